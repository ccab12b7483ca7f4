// Package observability provides logging, metrics, and tracing.
//
// Traces are exported over OTLP/gRPC; the HTTP server, the ingest worker and
// the Redpanda hooks share one provider and one propagator.
package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/fairyhunter13/ai-cv-search/internal/config"
)

// ComponentKey tags spans with the process that emitted them.
const ComponentKey = attribute.Key("cvsearch.component")

// SetupTracing installs the tracer provider for component when an OTLP
// endpoint is configured. The returned shutdown is nil when tracing is off.
func SetupTracing(cfg config.Config, component string) (func(context.Context) error, error) {
	// Installed unconditionally; kotel carries trace context across Redpanda.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	if cfg.OTLPEndpoint == "" {
		slog.Info("OTLP endpoint not set; tracing disabled", slog.String("component", component))
		return nil, nil
	}

	exporter, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(tracingAttributes(cfg, component)...))
	if err != nil {
		return nil, err
	}

	ratio := samplingRatio(cfg)
	slog.Info("tracing configured",
		slog.String("endpoint", cfg.OTLPEndpoint),
		slog.String("component", component),
		slog.Float64("sampling_ratio", ratio))

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func tracingAttributes(cfg config.Config, component string) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.ServiceNameKey.String(cfg.OTELServiceName),
		semconv.DeploymentEnvironmentKey.String(cfg.AppEnv),
		ComponentKey.String(component),
		attribute.String("cvsearch.chat_model", cfg.ChatModel),
		attribute.String("cvsearch.embeddings_model", cfg.EmbeddingsModel),
		attribute.String("cvsearch.qdrant_collection", cfg.QdrantCollection),
	}
}

// samplingRatio uses OTEL_SAMPLE_RATIO when it lies in (0, 1]; otherwise
// production samples 10% and every other environment samples everything.
func samplingRatio(cfg config.Config) float64 {
	if cfg.OTELSampleRatio > 0 && cfg.OTELSampleRatio <= 1 {
		return cfg.OTELSampleRatio
	}
	if cfg.IsProd() {
		return 0.1
	}
	return 1.0
}
