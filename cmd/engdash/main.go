package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"engdash/internal/cache"
	"engdash/internal/cli"
	apphttp "engdash/internal/http"
	"engdash/internal/log"
	"engdash/internal/services"
	"engdash/internal/worker"
)

const (
	shutdownGrace   = 30 * time.Second
	cleanupInterval = time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL"))

	if err := run(logger); err != nil {
		cli.Fatal(logger, "engdash stopped with error", err)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	rt, err := cli.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("Close failed", log.FieldError, err)
		}
	}()

	caches := cache.NewManager()
	caches.Register(rt.Snapshot)
	caches.StartCleanup(cleanupInterval)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, rt.Dashboard, rt.Exporter, apphttp.Options{
		Logger:           logger.WithComponent(log.ComponentHTTP),
		RefreshPerMinute: cfg.RefreshRateLimit,
		TrustedProxies:   cfg.TrustedProxyList(),
		RequestTimeout:   cfg.RequestTimeout,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx, shutdownGrace)
	})

	if rt.Broker != nil {
		refreshWorker := worker.NewRefreshWorker(rt.Dashboard)
		g.Go(func() error {
			return refreshWorker.Run(gctx, rt.Broker)
		})
	}

	if cfg.RefreshInterval > 0 {
		scheduler := services.NewRefreshScheduler(rt.Dashboard, services.RefreshSchedulerConfig{
			Interval: cfg.RefreshInterval,
			Announce: false,
		})
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	logger.Info("Starting engdash server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"snapshot_ttl", cfg.SnapshotTTL.String(),
		"refresh_interval", cfg.RefreshInterval.String())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
