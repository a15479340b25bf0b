// Package ingest composes fetcher, dispatcher, and storage into one
// ingestion pass.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/oldominion/indexer/internal/dispatch"
	"github.com/oldominion/indexer/internal/fetcher"
	"github.com/oldominion/indexer/internal/metrics"
	"github.com/oldominion/indexer/internal/model"
	"github.com/oldominion/indexer/internal/storage"
)

// RunConfig holds runtime settings for one ingestion pass.
type RunConfig struct {
	Kinds             []string
	Filters           map[string]string
	PerPage           int
	MaxPages          int
	CheckpointPath    string
	CheckpointEnabled bool
}

// Runner fetches operation batches, dispatches them through the handler
// table, and hands validated events to storage. The runner itself holds
// no state between passes beyond the level checkpoint; duplicate
// redelivery across passes is safe because event ids are idempotent.
type Runner struct {
	cfg        RunConfig
	fetch      *fetcher.Fetcher
	dispatcher *dispatch.Dispatcher
	storage    storage.Storage
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, fetch *fetcher.Fetcher, dispatcher *dispatch.Dispatcher, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = []string{model.KindTransaction, model.KindOrigination}
	}
	return &Runner{
		cfg:        cfg,
		fetch:      fetch,
		dispatcher: dispatcher,
		storage:    storageSink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes one ingestion pass.
func (r *Runner) Run(ctx context.Context) error {
	if r.fetch == nil {
		return fmt.Errorf("fetcher is nil")
	}
	if r.dispatcher == nil {
		return fmt.Errorf("dispatcher is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}

	levels := make(map[string]int64)
	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok {
			for kind, level := range cp.Levels {
				levels[kind] = level
			}
			r.logger.Info("resume from checkpoint", zap.Any("levels", cp.Levels))
		}
	}

	started := time.Now()

	var ops []model.Operation
	for _, kind := range r.cfg.Kinds {
		filters := make(map[string]string, len(r.cfg.Filters)+1)
		for k, v := range r.cfg.Filters {
			filters[k] = v
		}
		if level, ok := levels[kind]; ok && level > 0 {
			filters["level.gt"] = strconv.FormatInt(level, 10)
		}

		fetched, truncated, err := r.fetch.FetchAll(ctx, kind, filters, r.cfg.PerPage, r.cfg.MaxPages)
		if err != nil {
			return fmt.Errorf("fetch %s operations: %w", kind, err)
		}
		metrics.OperationsFetched.WithLabelValues(kind).Add(float64(len(fetched)))
		ops = append(ops, fetched...)

		if len(fetched) == 0 {
			continue
		}
		// On a truncated fetch the highest fetched level may be incomplete,
		// so only levels strictly below it are safe to record. Advancing to
		// the full maximum would make the next pass skip the remainder.
		safe := maxLevel(fetched)
		if truncated {
			safe--
			r.logger.Warn("page cap reached, holding checkpoint back",
				zap.String("kind", kind),
				zap.Int64("safe_level", safe),
				zap.Int("max_pages", r.cfg.MaxPages),
			)
		}
		if safe > levels[kind] {
			levels[kind] = safe
		}
	}

	if len(ops) == 0 {
		r.logger.Info("nothing to ingest")
		return nil
	}

	result, err := r.dispatcher.Dispatch(ctx, ops)
	if err != nil {
		return fmt.Errorf("dispatch batch: %w", err)
	}

	for _, event := range result.Events {
		metrics.EventsEmitted.WithLabelValues(event.Type).Inc()
	}
	for _, failure := range result.Failures {
		metrics.HandlerFailures.WithLabelValues(failure.HandlerType, string(failure.Kind)).Inc()
		if failure.Kind == dispatch.FailureUnsupported {
			r.logger.Debug("handler rejection", zap.Error(failure.Err))
			continue
		}
		r.logger.Warn("handler failure",
			zap.Int64("op_id", failure.OperationID),
			zap.String("handler", failure.HandlerType),
			zap.String("kind", string(failure.Kind)),
			zap.Error(failure.Err),
		)
	}

	if err := r.storage.PutEventBatch(result.Events); err != nil {
		return fmt.Errorf("store events: %w", err)
	}

	if r.checkpoint != nil && len(levels) > 0 {
		if err := r.checkpoint.Save(levels); err != nil {
			return err
		}
	}

	metrics.BatchDuration.Observe(time.Since(started).Seconds())
	r.logger.Info("batch complete",
		zap.Int("operations", len(ops)),
		zap.Int("events", len(result.Events)),
		zap.Int("failures", len(result.Failures)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return nil
}

func maxLevel(ops []model.Operation) int64 {
	var max int64
	for _, op := range ops {
		if op.Level > max {
			max = op.Level
		}
	}
	return max
}
