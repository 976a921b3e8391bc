package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/retailops/ims-analytics/internal/config"
	"github.com/retailops/ims-analytics/internal/database"
	"github.com/retailops/ims-analytics/internal/httpserver"
	"github.com/retailops/ims-analytics/internal/metrics"
	"github.com/retailops/ims-analytics/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting ims-analytics",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("data_source", cfg.Data.Source),
	)

	ctx := context.Background()

	// PostgreSQL is only required when it is the configured dataset source.
	var db *database.PostgresDB
	if cfg.Data.Source == config.SourcePostgres {
		db, err = database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("PostgreSQL not available", zap.Error(err))
		}
		defer db.Close()
	}

	// Redis backs the report cache; without it the in-memory cache is used.
	var rdb *database.RedisDB
	if cfg.Redis.Enabled {
		rdb, err = database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis not available, using in-memory report cache", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics("ims_analytics")
	}

	handler := httpserver.NewServer(&httpserver.Dependencies{
		DB:      db,
		Redis:   rdb,
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
	})

	// Middleware chain, outermost first: recovery, logging, metrics,
	// rate limiting, auth.
	rateLimit := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger)
	if m != nil {
		rateLimit.SetMetrics(m)
		handler = middleware.NewMetricsMiddleware(m).Handler(handler)
	}
	handler = middleware.NewAuthMiddleware(cfg.Auth, logger).Handler(handler)
	handler = rateLimit.Handler(handler)
	handler = middleware.NewLoggingMiddleware(logger).Handler(handler)
	handler = middleware.NewRecoveryMiddleware(logger).Handler(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Bound the per-IP limiter map over long uptimes.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimit.CleanupIPLimiters()
			case <-cleanupDone:
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	close(cleanupDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
