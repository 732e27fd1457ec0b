package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/combokiosk/internal/application"
	"github.com/JonMunkholm/combokiosk/internal/config"
	"github.com/JonMunkholm/combokiosk/internal/core"
	"github.com/JonMunkholm/combokiosk/internal/logging"
	"github.com/JonMunkholm/combokiosk/internal/schema"
	"github.com/JonMunkholm/combokiosk/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"sync_interval", cfg.Sync.Interval.String(),
		"sync_source", cfg.Sync.HasSource(),
		"cache", cfg.Redis.URL != "",
	)

	ctx := context.Background()
	app, err := application.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if cfg.Database.ApplySchema {
		if err := schema.Apply(ctx, app.Pool); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		slog.Info("schema applied")
	}

	server := web.NewServer(cfg, web.Deps{
		Catalog:        app.Catalog,
		Syncer:         app.Syncer,
		ConfiguredSync: app.ConfiguredSync(),
	})

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go app.Syncer.StartSyncScheduler(jobCtx, core.ScheduleConfig{
		Interval: cfg.Sync.Interval,
		Request:  app.SyncRequest,
	})
	go server.Sessions().RunSweeper(jobCtx, cfg.Session.SweepInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let a running sync finish its current table
		limiter := app.Syncer.Limiter()
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for sync to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("sync did not complete in time", "error", err)
			} else {
				slog.Info("sync completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
