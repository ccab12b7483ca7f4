// Package redpanda carries asynchronous ingestion tasks over a Kafka-compatible
// broker. The producer publishes one record per ingestion job keyed by job id;
// the consumer group hands decoded payloads to the ingestion service.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// DefaultTopic is used when no ingestion topic is configured.
const DefaultTopic = "cv-ingest"

const (
	headerJobID       = "job_id"
	headerContentType = "content-type"
)

// Producer publishes ingestion tasks. It implements domain.Queue.
type Producer struct {
	client *kgo.Client
	topic  string
}

// tracingHooks wires franz-go into the global tracer provider.
func tracingHooks() kgo.Opt {
	tracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	svc := kotel.NewKotel(kotel.WithTracer(tracer))
	return kgo.WithHooks(svc.Hooks()...)
}

// NewProducer connects to brokers and makes sure topic exists.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(16<<20),
		kgo.ProducerLinger(5*time.Millisecond),
		tracingHooks(),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := createTopicIfNotExists(ctx, client, topic, 1, 1); err != nil {
		// The broker may auto-create topics; producing reports the real failure.
		slog.Warn("ensure topic failed", slog.String("topic", topic), slog.Any("error", err))
	}
	slog.Info("redpanda producer ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Producer{client: client, topic: topic}, nil
}

// EnqueueIngest publishes payload and returns its job id once the broker acknowledged it.
func (p *Producer) EnqueueIngest(ctx domain.Context, payload domain.IngestTaskPayload) (string, error) {
	rec, err := newIngestRecord(p.topic, payload)
	if err != nil {
		return "", err
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return "", fmt.Errorf("%w: op=queue.EnqueueIngest: %w", domain.ErrUpstreamUnavailable, err)
	}
	slog.Info("ingest task enqueued",
		slog.String("job_id", payload.JobID),
		slog.String("filename", payload.Filename),
		slog.Int("text_len", len(payload.Text)))
	return payload.JobID, nil
}

// Ping verifies at least one broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes buffered records and releases the client.
func (p *Producer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}

func newIngestRecord(topic string, payload domain.IngestTaskPayload) (*kgo.Record, error) {
	if payload.JobID == "" {
		return nil, fmt.Errorf("%w: op=queue.EnqueueIngest: job id required", domain.ErrInvalidArgument)
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("op=queue.EnqueueIngest: marshal: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(payload.JobID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: headerJobID, Value: []byte(payload.JobID)},
			{Key: headerContentType, Value: []byte("application/json")},
		},
	}, nil
}
