package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	"github.com/fairyhunter13/ai-cv-search/internal/observability"
)

// IngestHandler processes one decoded ingestion task. Implementations record
// job failures themselves; a returned error is logged and the record is still committed.
type IngestHandler interface {
	ProcessIngest(ctx context.Context, payload domain.IngestTaskPayload) error
}

// IngestHandlerFunc adapts a function to IngestHandler.
type IngestHandlerFunc func(ctx context.Context, payload domain.IngestTaskPayload) error

// ProcessIngest calls f.
func (f IngestHandlerFunc) ProcessIngest(ctx context.Context, payload domain.IngestTaskPayload) error {
	return f(ctx, payload)
}

// fetcher is the slice of *kgo.Client the poll loop needs.
type fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
	MarkCommitRecords(rs ...*kgo.Record)
	Close()
}

// Consumer reads ingestion tasks as part of a consumer group.
type Consumer struct {
	client      fetcher
	handler     IngestHandler
	topic       string
	group       string
	concurrency int
}

// NewConsumer joins group on topic. concurrency bounds the records processed at once per poll.
func NewConsumer(brokers []string, topic, group string, concurrency int, handler IngestHandler) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if handler == nil {
		return nil, fmt.Errorf("ingest handler required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.SessionTimeout(30*time.Second),
		kgo.FetchMaxWait(5*time.Second),
		kgo.FetchMaxBytes(32<<20),
		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(time.Second),
		kgo.BlockRebalanceOnPoll(),
		tracingHooks(),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := createTopicIfNotExists(ctx, client, topic, 1, 1); err != nil {
		slog.Warn("ensure topic failed", slog.String("topic", topic), slog.Any("error", err))
	}
	return newConsumer(client, handler, topic, group, concurrency), nil
}

func newConsumer(client fetcher, handler IngestHandler, topic, group string, concurrency int) *Consumer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Consumer{client: client, handler: handler, topic: topic, group: group, concurrency: concurrency}
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("ingest consumer started",
		slog.String("topic", c.topic),
		slog.String("group", c.group),
		slog.Int("concurrency", c.concurrency))
	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			slog.Info("ingest consumer stopping")
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Warn("fetch error", slog.String("topic", topic), slog.Int("partition", int(partition)), slog.Any("error", err))
		})
		records := fetches.Records()
		if len(records) == 0 {
			c.allowRebalance()
			continue
		}
		c.handleBatch(ctx, records)
		c.client.MarkCommitRecords(records...)
		c.allowRebalance()
	}
}

func (c *Consumer) allowRebalance() {
	if cl, ok := c.client.(interface{ AllowRebalance() }); ok {
		cl.AllowRebalance()
	}
}

// handleBatch processes records with bounded concurrency and waits for all of them.
func (c *Consumer) handleBatch(ctx context.Context, records []*kgo.Record) {
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			c.handleRecord(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Consumer) handleRecord(ctx context.Context, rec *kgo.Record) {
	lg := slog.Default().With(
		slog.String("topic", rec.Topic),
		slog.Int("partition", int(rec.Partition)),
		slog.Int64("offset", rec.Offset))

	payload, err := decodeIngestRecord(rec)
	if err != nil {
		lg.Error("dropping undecodable ingest record", slog.Any("error", err))
		return
	}
	lg = lg.With(slog.String("job_id", payload.JobID))
	ctx = observability.ContextWithLogger(ctx, lg)
	if err := c.handler.ProcessIngest(ctx, payload); err != nil {
		lg.Error("ingest task failed", slog.Any("error", err))
		return
	}
	lg.Info("ingest task processed")
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
}

func decodeIngestRecord(rec *kgo.Record) (domain.IngestTaskPayload, error) {
	var p domain.IngestTaskPayload
	if err := json.Unmarshal(rec.Value, &p); err != nil {
		return p, fmt.Errorf("decode ingest payload: %w", err)
	}
	if p.JobID == "" {
		for _, h := range rec.Headers {
			if h.Key == headerJobID {
				p.JobID = string(h.Value)
			}
		}
	}
	if p.JobID == "" {
		return p, fmt.Errorf("decode ingest payload: missing job id")
	}
	return p, nil
}
