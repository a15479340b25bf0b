package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oldominion/indexer/internal/config"
	"github.com/oldominion/indexer/internal/dispatch"
	"github.com/oldominion/indexer/internal/fetcher"
	"github.com/oldominion/indexer/internal/handler"
	"github.com/oldominion/indexer/internal/ingest"
	"github.com/oldominion/indexer/internal/metrics"
	"github.com/oldominion/indexer/internal/model"
	"github.com/oldominion/indexer/internal/storage"
	"github.com/oldominion/indexer/internal/storage/postgres"
	"github.com/oldominion/indexer/internal/tzkt"
)

func runIngest(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.TzktURL == "" {
		return fmt.Errorf("tzkt url is required")
	}

	filters, err := config.ParseFilters(cfg.Filters)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveMetrics(cfg.MetricsAddr, logger)

	sink, closeSink, err := newSink(ctx, cfg.PGDSN, cfg.Out)
	if err != nil {
		return err
	}
	defer closeSink()

	registry, err := dispatch.NewRegistry(handler.All(handlerConfig(
		cfg.ObjktMarketplace, cfg.ObjktAsksBigmap,
		cfg.HenMarketplace, cfg.HenSwapsBigmap, cfg.HenObjktsFA2,
	))...)
	if err != nil {
		return err
	}

	client := tzkt.NewClient(cfg.TzktURL)
	fetch := fetcher.NewFetcher(client, logger)
	dispatcher := dispatch.NewDispatcher(registry, cfg.Workers, logger)

	runner := ingest.NewRunner(ingest.RunConfig{
		Filters:           filters,
		PerPage:           cfg.PerPage,
		MaxPages:          cfg.MaxPages,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
	}, fetch, dispatcher, sink, logger)

	logger.Info("indexer start",
		zap.String("tzkt_url", cfg.TzktURL),
		zap.Int("handlers", registry.Len()),
		zap.Int("per_page", cfg.PerPage),
		zap.Int("max_pages", cfg.MaxPages),
		zap.Int("workers", cfg.Workers),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadBackfill(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.TzktURL == "" {
		return fmt.Errorf("tzkt url is required")
	}
	if cfg.FromLevel <= 0 {
		return fmt.Errorf("from level is required")
	}

	filters, err := config.ParseFilters(cfg.Filters)
	if err != nil {
		return err
	}
	filters["level.ge"] = strconv.FormatInt(cfg.FromLevel, 10)
	if cfg.ToLevel > 0 {
		filters["level.le"] = strconv.FormatInt(cfg.ToLevel, 10)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveMetrics(cfg.MetricsAddr, logger)

	sink, closeSink, err := newSink(ctx, cfg.PGDSN, cfg.Out)
	if err != nil {
		return err
	}
	defer closeSink()

	registry, err := dispatch.NewRegistry(handler.All(handlerConfig(
		cfg.ObjktMarketplace, cfg.ObjktAsksBigmap,
		cfg.HenMarketplace, cfg.HenSwapsBigmap, cfg.HenObjktsFA2,
	))...)
	if err != nil {
		return err
	}

	client := tzkt.NewClient(cfg.TzktURL)
	fetch := fetcher.NewFetcher(client, logger)
	dispatcher := dispatch.NewDispatcher(registry, cfg.Workers, logger)

	runner := ingest.NewRunner(ingest.RunConfig{
		Filters:  filters,
		PerPage:  cfg.PerPage,
		MaxPages: cfg.MaxPages,
	}, fetch, dispatcher, sink, logger)

	logger.Info("backfill start",
		zap.String("tzkt_url", cfg.TzktURL),
		zap.Int64("from", cfg.FromLevel),
		zap.Int64("to", cfg.ToLevel),
		zap.Int("handlers", registry.Len()),
	)

	return runner.Run(ctx)
}

// serveMetrics starts the metrics endpoint. A bind or serve failure is
// logged rather than fatal; ingestion keeps running without metrics.
func serveMetrics(addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}
	errCh := metrics.Serve(addr)
	go func() {
		if err := <-errCh; err != nil {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

func handlerConfig(objktMarketplace string, objktAsksBigmap int64, henMarketplace string, henSwapsBigmap int64, henObjktsFA2 string) handler.Config {
	cfg := handler.DefaultConfig()
	if objktMarketplace != "" {
		cfg.ObjktMarketplace = objktMarketplace
	}
	if objktAsksBigmap != 0 {
		cfg.ObjktAsksBigmap = objktAsksBigmap
	}
	if henMarketplace != "" {
		cfg.HenMarketplace = henMarketplace
	}
	if henSwapsBigmap != 0 {
		cfg.HenSwapsBigmap = henSwapsBigmap
	}
	if henObjktsFA2 != "" {
		cfg.HenObjktsFA2 = henObjktsFA2
	}
	return cfg
}

// pgSink adapts the context-aware Postgres store to the storage interface.
type pgSink struct {
	ctx   context.Context
	store *postgres.Store
}

func (s *pgSink) PutEventBatch(events []model.TokenEvent) error {
	return s.store.UpsertEvents(s.ctx, events)
}

func newSink(ctx context.Context, pgDSN, out string) (storage.Storage, func(), error) {
	if pgDSN != "" {
		store, err := postgres.NewStore(ctx, pgDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &pgSink{ctx: ctx, store: store}, store.Close, nil
	}
	if out == "" {
		return nil, nil, fmt.Errorf("output path is required")
	}
	return storage.NewJsonlStorage(out), func() {}, nil
}
