package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/gradeguard/internal/backend"
	"github.com/JonMunkholm/gradeguard/internal/config"
	"github.com/JonMunkholm/gradeguard/internal/core"
	"github.com/JonMunkholm/gradeguard/internal/logging"
	"github.com/JonMunkholm/gradeguard/internal/web"
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

	slog.Info("configuration loaded", "config", cfg.String())

	client := backend.New(cfg.Backend.URL, nil)
	slog.Info("grading backend configured", "url", client.BaseURL())
	store := core.NewStore(client, core.WithSyncTimeout(cfg.Backend.SyncTimeout))
	dispatcher := core.NewDispatcher(client, store, core.DispatcherConfig{
		ActionTimeout: cfg.Backend.ActionTimeout,
		UploadTimeout: cfg.Backend.UploadTimeout,
		SyncTimeout:   cfg.Backend.SyncTimeout,
		MaxConcurrent: cfg.Dispatch.MaxConcurrent,
		HistorySize:   cfg.Dispatch.HistorySize,
	})

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	refresh := core.RefreshConfig{
		Interval: cfg.Refresh.Interval,
		Timeout:  cfg.Backend.SyncTimeout,
	}
	if cfg.Refresh.Enabled {
		go store.StartRefreshScheduler(jobCtx, refresh)
	} else {
		// Still load the queue once so the first page is not empty.
		go func() {
			ctx, cancel := context.WithTimeout(jobCtx, refresh.Timeout)
			defer cancel()
			if _, err := store.Sync(ctx); err != nil {
				slog.Warn("initial sync failed", "error", err)
			}
		}()
	}

	server := web.NewServer(store, dispatcher, cfg)

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

		// Let an in-flight action finish its call and re-sync
		if status := dispatcher.Gate().Status(); status.Active > 0 {
			slog.Info("waiting for action to complete", "active", status.Active)
			if err := dispatcher.Gate().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("action did not complete in time", "error", err)
			} else {
				slog.Info("action completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
