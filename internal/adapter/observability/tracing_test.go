package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-cv-search/internal/config"
)

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(config.Config{}, "server")
	require.NoError(t, err)
	assert.Nil(t, shutdown)
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	cfg := config.Config{OTLPEndpoint: "localhost:4317", OTELServiceName: "ai-cv-search", AppEnv: "test"}
	// The gRPC exporter connects lazily, so no collector is needed.
	shutdown, err := SetupTracing(cfg, "worker")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestSamplingRatio(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  config.Config
		want float64
	}{
		{"dev samples all", config.Config{AppEnv: "dev"}, 1.0},
		{"prod default", config.Config{AppEnv: "prod"}, 0.1},
		{"override", config.Config{AppEnv: "prod", OTELSampleRatio: 0.5}, 0.5},
		{"out of range ignored", config.Config{AppEnv: "dev", OTELSampleRatio: 2}, 1.0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, samplingRatio(tt.cfg), 1e-9)
		})
	}
}

func TestTracingAttributes(t *testing.T) {
	t.Parallel()
	attrs := tracingAttributes(config.Config{OTELServiceName: "svc", AppEnv: "prod", ChatModel: "m"}, "worker")
	got := map[attribute.Key]string{}
	for _, kv := range attrs {
		got[kv.Key] = kv.Value.AsString()
	}
	assert.Equal(t, "svc", got["service.name"])
	assert.Equal(t, "prod", got["deployment.environment"])
	assert.Equal(t, "worker", got[ComponentKey])
	assert.Equal(t, "m", got["cvsearch.chat_model"])
}
