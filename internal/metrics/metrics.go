// Package metrics exposes Prometheus counters for the ingestion pipeline.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OperationsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "fetcher",
		Name:      "operations_fetched_total",
		Help:      "Unique operations fetched, by source kind",
	}, []string{"kind"})

	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "fetcher",
		Name:      "pages_fetched_total",
		Help:      "Pages requested from the indexing API, by source kind",
	}, []string{"kind"})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "dispatch",
		Name:      "events_emitted_total",
		Help:      "Token events emitted, by handler type",
	}, []string{"handler"})

	HandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "dispatch",
		Name:      "handler_failures_total",
		Help:      "Per-unit handler failures, by handler type and failure kind",
	}, []string{"handler", "kind"})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "indexer",
		Subsystem: "ingest",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of one fetch+dispatch+store pass",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)

// Serve exposes /metrics on addr. Non-blocking; the returned channel
// receives the server error, if any.
func Serve(addr string) <-chan error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}
