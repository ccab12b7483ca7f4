// Package main provides the worker application entry point.
// The worker consumes asynchronous CV ingestion tasks from Redpanda.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/observability"
	"github.com/fairyhunter13/ai-cv-search/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-cv-search/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-cv-search/internal/app"
	"github.com/fairyhunter13/ai-cv-search/internal/config"
	"github.com/fairyhunter13/ai-cv-search/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register Prometheus metrics in the worker process and expose them on a
	// dedicated /metrics endpoint so Prometheus can scrape ingestion metrics.
	observability.InitMetrics()
	metricsSrv := &http.Server{Addr: ":9090", Handler: promhttp.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg, "worker")
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer comps.Close()

	if err := app.EnsureCandidateCollection(ctx, comps.Vectors, time.Minute); err != nil {
		slog.Error("qdrant collection bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	// The worker never enqueues; Submit is only called by the server.
	ingestSvc := usecase.NewIngestService(comps.Jobs, nil, comps.Candidates)

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, cfg.IngestTopic, cfg.IngestGroup, cfg.ConsumerMaxConcurrency, ingestSvc)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer consumer.Close()

	if cfg.IngestJobRetentionDays > 0 {
		cleanup := postgres.NewCleanupService(comps.Pool, cfg.IngestJobRetentionDays)
		go cleanup.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("ingest job cleanup started",
			slog.Int("retention_days", cfg.IngestJobRetentionDays),
			slog.Duration("interval", cfg.CleanupInterval))
	}

	slog.Info("worker started, waiting for ingest tasks",
		slog.String("topic", cfg.IngestTopic),
		slog.String("group", cfg.IngestGroup),
		slog.Int("concurrency", cfg.ConsumerMaxConcurrency))
	if err := consumer.Run(ctx); err != nil {
		slog.Error("consumer stopped with error", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	slog.Info("worker stopped")
}
