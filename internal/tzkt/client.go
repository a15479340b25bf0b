// Package tzkt is a thin HTTP wrapper over the TzKT-style indexing API.
package tzkt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oldominion/indexer/internal/model"
)

const defaultTimeout = 30 * time.Second

// Client queries the indexing API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Operations fetches one page of operation records of the given kind
// ("transaction" or "origination") with arbitrary filter parameters.
// Transport and non-2xx failures surface immediately; retry policy is the
// caller's responsibility.
func (c *Client) Operations(ctx context.Context, kind string, params url.Values) ([]model.Operation, error) {
	var path string
	switch kind {
	case model.KindTransaction:
		path = "/v1/operations/transactions"
	case model.KindOrigination:
		path = "/v1/operations/originations"
	default:
		return nil, fmt.Errorf("unsupported operation kind: %s", kind)
	}

	var ops []model.Operation
	if err := c.get(ctx, path, params, &ops); err != nil {
		return nil, err
	}
	for i := range ops {
		if ops[i].Kind == "" {
			ops[i].Kind = kind
		}
	}
	return ops, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
