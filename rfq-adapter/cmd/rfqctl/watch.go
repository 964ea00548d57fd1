package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/portcall/adapters/internal/jobs"
	"github.com/portcall/adapters/pkg/utils"
	"github.com/portcall/adapters/rfq-adapter/internal/api"
	"github.com/portcall/adapters/rfq-adapter/internal/store"
	"github.com/portcall/adapters/rfq-adapter/internal/watcher"
	"github.com/portcall/adapters/rfq-adapter/pkg/config"
)

// runWatch polls the configured feed until ctx is cancelled, serving
// /health, /metrics and /sync alongside.
func runWatch(ctx context.Context, cfg *config.Config, c watcher.Feeds, logg *zap.Logger) error {
	if err := validateWatchConfig(cfg); err != nil {
		return err
	}
	source, err := watcher.SourceFor(c, cfg.WatchFeed)
	if err != nil {
		return err
	}

	logg.Info("starting [rfq-watch]...",
		zap.String("feed", cfg.WatchFeed),
		zap.String("events", cfg.EventsBackend),
		zap.String("redis", cfg.RedisAddr),
		zap.String("dsn", utils.MaskDSN(cfg.DatabaseURL)))

	// --- Store (Redis + optional Postgres archive) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPass, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, cfg.SeenTTL, logg)
	if err != nil {
		return fmt.Errorf("failed to init store: %w", err)
	}
	defer func() { _ = st.Close() }()

	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}

	if st.PG != nil && cfg.ArchiveRetention > 0 {
		pruner := jobs.NewArchivePruner(logg, st.PG, cfg.ArchiveRetention, cfg.ArchivePruneEvery)
		go pruner.Start(ctx)
	}

	// --- Publisher ---
	pub, err := newPublisher(cfg, cfg.OutboundSubject, logg)
	if err != nil {
		return fmt.Errorf("failed to init publisher: %w", err)
	}
	defer func() { _ = pub.Close() }()

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.HTTPReadTimeout,
		WriteTimeout:          cfg.HTTPWriteTimeout,
		IdleTimeout:           cfg.HTTPIdleTimeout,
		DisableStartupMessage: true,
	})
	api.RegisterRoutes(app, st, pub, cfg.WatchFeed)

	go func() {
		logg.Info("HTTP API listening", zap.Int("port", cfg.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Error("fiber.listen_failed", zap.Error(err))
		}
	}()

	poller := watcher.NewPoller(logg, source, st, pub,
		cfg.WatchFeed, cfg.OutboundSubject, cfg.ServiceName, cfg.WatchInterval)
	poller.Run(ctx)

	logg.Info("shutting down [rfq-watch]...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logg.Warn("fiber.shutdown_failed", zap.Error(err))
	}
	return nil
}

func validateWatchConfig(cfg *config.Config) error {
	if cfg.WatchInterval <= 0 {
		return fmt.Errorf("WATCH_INTERVAL must be positive, got %s", cfg.WatchInterval)
	}
	if cfg.ArchiveRetention > 0 && cfg.ArchivePruneEvery <= 0 {
		return fmt.Errorf("ARCHIVE_PRUNE_INTERVAL must be positive when ARCHIVE_RETENTION is set, got %s", cfg.ArchivePruneEvery)
	}
	return nil
}
