// Package main is the entrypoint for the Extracta API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/caiodutra/extracta/internal/api"
	"github.com/caiodutra/extracta/internal/api/handler"
	mw "github.com/caiodutra/extracta/internal/api/middleware"
	"github.com/caiodutra/extracta/internal/api/response"
	"github.com/caiodutra/extracta/internal/cache"
	"github.com/caiodutra/extracta/internal/config"
	"github.com/caiodutra/extracta/internal/extraction"
	"github.com/caiodutra/extracta/internal/jira"
	"github.com/caiodutra/extracta/internal/store"
	"github.com/caiodutra/extracta/pkg/models"
)

const shutdownTimeout = 30 * time.Second

func main() {
	env := os.Getenv("EXTRACTA_ENV")

	var logHandler slog.Handler
	if env == "production" {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env,
		"page_size", cfg.Extraction.PageSize, "max_pages", cfg.Extraction.MaxPages)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store
	pgStore := store.NewPostgresStore(pool)

	// 6. Build the extraction pipeline
	newClient := func(creds *models.JiraConfig) jira.Client {
		return jira.NewHTTPClient(creds.Domain, creds.Email, creds.Token, cfg.Jira.RequestTimeout)
	}

	queue := extraction.NewJobQueue(pgStore, redisCache, logger)
	fetcher := extraction.NewFetcher(cfg.Extraction, logger)
	persister := extraction.NewPersister(pgStore, cfg.Extraction.BatchSize, logger)
	service := extraction.NewService(pgStore, queue, fetcher, persister, newClient, logger)

	worker := extraction.NewWorker(service, queue, logger)
	go worker.Run(ctx)
	slog.Info("extraction worker started")

	// 7. Build router with dependencies
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler:         healthHandler(pgStore, redisCache),
		ExtractHandler:        handler.NewExtractHandler(queue, cfg.Extraction.MaxRetries),
		JobStatusHandler:      handler.NewJobStatusHandler(queue),
		ProcessHandler:        handler.NewProcessHandler(service),
		HistoryHandler:        handler.NewHistoryHandler(pgStore, redisCache),
		ConnectionTestHandler: handler.NewConnectionTestHandler(pgStore, newClient, cfg.Jira.ProbeTimeout),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
