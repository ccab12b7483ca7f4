// Command server starts the CV search HTTP server.
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

	httpserver "github.com/fairyhunter13/ai-cv-search/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-cv-search/internal/adapter/observability"
	"github.com/fairyhunter13/ai-cv-search/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-cv-search/internal/app"
	"github.com/fairyhunter13/ai-cv-search/internal/config"
	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	"github.com/fairyhunter13/ai-cv-search/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, AI, search and ingestion instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg, "server")
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
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

	// Async ingestion needs the broker; without it the API still serves
	// synchronous ingestion and answers async requests with 503.
	var queue domain.Queue
	checks := comps.ReadinessChecks()
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := redpanda.NewProducer(cfg.KafkaBrokers, cfg.IngestTopic)
		if err != nil {
			slog.Warn("redpanda producer unavailable; async ingestion disabled", slog.Any("error", err))
		} else {
			defer producer.Close()
			queue = producer
			checks = append(checks, httpserver.Check{Name: "queue", Probe: producer.Ping})
		}
	}
	ingestSvc := usecase.NewIngestService(comps.Jobs, queue, comps.Candidates)

	srv := httpserver.NewServer(cfg, comps.Candidates, ingestSvc, comps.Tika, checks...)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.Bool("async_ingest", queue != nil))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
