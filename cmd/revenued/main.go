package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aevon-lab/revenue-engine/internal/aggregation"
	corecfg "github.com/aevon-lab/revenue-engine/internal/core/config"
	"github.com/aevon-lab/revenue-engine/internal/core/storage"
	"github.com/aevon-lab/revenue-engine/internal/core/storage/memory"
	"github.com/aevon-lab/revenue-engine/internal/core/storage/postgres"
	"github.com/aevon-lab/revenue-engine/internal/feed"
	"github.com/aevon-lab/revenue-engine/internal/feed/codec"
	"github.com/aevon-lab/revenue-engine/internal/ingestion"
	"github.com/aevon-lab/revenue-engine/internal/migrations"
	"github.com/aevon-lab/revenue-engine/internal/projection"
	"github.com/aevon-lab/revenue-engine/internal/seed"
	"github.com/aevon-lab/revenue-engine/internal/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "revenue.yaml", "Path to configuration file")
	seedPath := flag.String("seed", "", "Optional YAML file of opening bucket balances")
	flag.Parse()

	// 0. Initialize Logger
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))
	slog.Info("Loaded config",
		"database", cfg.Database.Type,
		"workers", cfg.Aggregation.WorkerCount,
		"idempotency", cfg.Aggregation.Idempotency,
		"feed", cfg.Feed.Enabled,
	)

	if err := run(cfg, *seedPath); err != nil {
		slog.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

func run(cfg *corecfg.Config, seedPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Storage
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// 2.1. Import opening balances
	if seedPath != "" {
		buckets, err := seed.LoadFile(seedPath)
		if err != nil {
			return err
		}
		res, err := seed.Apply(ctx, store, buckets)
		if err != nil {
			return err
		}
		slog.Info("Seed applied", "created", res.Created, "skipped", res.Skipped)
	}

	// 3. Initialize Aggregation
	aggSvc := aggregation.NewService(store, aggregation.WithIdempotency(cfg.Aggregation.Idempotency))
	dispatcher := aggregation.NewDispatcher(aggSvc, cfg.Aggregation.WorkerCount, cfg.Aggregation.QueueSize)

	// 4. Initialize Codecs
	pb, err := codec.NewProtobuf(ctx)
	if err != nil {
		return err
	}
	codecs := codec.NewRegistry(codec.JSON{}, pb)

	// 5. Initialize HTTP surface
	srv := server.New(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), store, cfg.Server.Mode)
	srv.Register(
		ingestion.NewService(dispatcher, codecs, cfg.Server.MaxBodySizeMB),
		projection.NewService(store),
	)

	// 6. Start Services
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	if cfg.Feed.Enabled {
		consumer := feed.NewConsumer(feed.Config{
			URL:         cfg.Feed.AMQPURL,
			Exchange:    cfg.Feed.Exchange,
			Queue:       cfg.Feed.Queue,
			RoutingKey:  cfg.Feed.RoutingKey,
			Prefetch:    cfg.Feed.Prefetch,
			ConsumerTag: cfg.Feed.ConsumerTag,
		}, dispatcher, codecs)
		g.Go(func() error { return consumer.Run(gctx) })
	} else {
		slog.Info("Invoice event feed disabled by config")
	}

	return g.Wait()
}

func openStore(cfg *corecfg.Config) (storage.BucketStore, func(), error) {
	timeout := cfg.Aggregation.TxTimeoutDuration()

	if cfg.Database.Type == "memory" {
		slog.Warn("Using in-memory bucket store; state is lost on exit")
		return memory.New(timeout), func() {}, nil
	}

	db, err := postgres.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := migrations.Run(db, cfg.Database.AutoMigrate); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	adapter, err := postgres.NewAdapter(db, timeout)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return adapter, func() {
		if err := adapter.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}, nil
}
