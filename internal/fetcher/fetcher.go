// Package fetcher retrieves operation records page by page and
// deduplicates the combined result.
package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/oldominion/indexer/internal/metrics"
	"github.com/oldominion/indexer/internal/model"
)

// selectFields is the fixed field selection requested on every page.
var selectFields = []string{
	"type", "id", "level", "timestamp", "hash", "counter", "nonce",
	"sender", "target", "originatedContract", "amount", "parameter",
	"status", "diffs",
}

// Source fetches one page of operation records. Implemented by the tzkt
// client; replaced by fakes in tests.
type Source interface {
	Operations(ctx context.Context, kind string, params url.Values) ([]model.Operation, error)
}

// Fetcher pulls operation records sequentially. Pages are fetched one at
// a time: each page's continuation decision depends on the prior page's
// size, trading latency for a simple termination condition.
type Fetcher struct {
	source Source
	logger *zap.Logger
}

// NewFetcher builds a Fetcher.
func NewFetcher(source Source, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{source: source, logger: logger}
}

// FetchAll retrieves operations of the given kind matching the filters,
// paging with offset = page*perPage until a short page signals
// end-of-data or maxPages is reached. maxPages is a hard safety cap
// against unbounded iteration on a live chain. The result deduplicates by
// operation id in first-occurrence order: a boundary record can appear in
// two adjacent pages when the underlying set grows mid-iteration.
//
// The second return value reports truncation: true when iteration stopped
// at the maxPages cap with records likely remaining, false when a short
// page marked the authoritative end of data. Callers tracking progress
// must not treat a truncated result as complete.
func (f *Fetcher) FetchAll(ctx context.Context, kind string, filters map[string]string, perPage, maxPages int) ([]model.Operation, bool, error) {
	if f.source == nil {
		return nil, false, fmt.Errorf("source is nil")
	}
	if perPage <= 0 {
		return nil, false, fmt.Errorf("per page must be greater than zero")
	}
	if maxPages <= 0 {
		return nil, false, fmt.Errorf("max pages must be greater than zero")
	}

	seen := make(map[int64]struct{})
	var out []model.Operation
	truncated := true

	for page := 0; page < maxPages; page++ {
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		default:
		}

		params := url.Values{}
		for key, value := range filters {
			params.Set(key, value)
		}
		params.Set("status", "applied")
		params.Set("offset", strconv.Itoa(page*perPage))
		params.Set("limit", strconv.Itoa(perPage))
		for _, field := range selectFields {
			params.Add("select", field)
		}

		ops, err := f.source.Operations(ctx, kind, params)
		if err != nil {
			return nil, false, fmt.Errorf("fetch page %d: %w", page, err)
		}
		metrics.PagesFetched.WithLabelValues(kind).Inc()

		added := 0
		for _, op := range ops {
			if _, ok := seen[op.ID]; ok {
				continue
			}
			seen[op.ID] = struct{}{}
			out = append(out, op)
			added++
		}

		f.logger.Debug("page fetched",
			zap.String("kind", kind),
			zap.Int("page", page),
			zap.Int("records", len(ops)),
			zap.Int("unique", added),
		)

		if len(ops) < perPage {
			truncated = false
			break
		}
	}

	return out, truncated, nil
}
