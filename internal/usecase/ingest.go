package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/observability"
	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	obsctx "github.com/fairyhunter13/ai-cv-search/internal/observability"
)

// CandidateIngester is the synchronous ingestion step run by workers.
type CandidateIngester interface {
	Ingest(ctx domain.Context, filename, text string) (domain.Candidate, error)
}

// IngestService tracks asynchronous ingestion jobs and runs them when consumed.
type IngestService struct {
	Jobs       domain.IngestJobRepository
	Queue      domain.Queue
	Candidates CandidateIngester
}

// NewIngestService constructs an IngestService with its dependencies.
func NewIngestService(j domain.IngestJobRepository, q domain.Queue, c CandidateIngester) IngestService {
	return IngestService{Jobs: j, Queue: q, Candidates: c}
}

// Submit records a queued job and publishes its task.
func (s IngestService) Submit(ctx domain.Context, filename, text string) (domain.IngestJob, error) {
	if strings.TrimSpace(text) == "" {
		return domain.IngestJob{}, fmt.Errorf("%w: empty extracted text", domain.ErrInvalidArgument)
	}
	if s.Queue == nil {
		return domain.IngestJob{}, fmt.Errorf("op=ingest.submit: %w: no queue configured", domain.ErrUpstreamUnavailable)
	}
	id, err := s.Jobs.Create(ctx, domain.IngestJob{Status: domain.IngestQueued, Filename: filename})
	if err != nil {
		return domain.IngestJob{}, fmt.Errorf("op=ingest.submit: %w", err)
	}
	if _, err := s.Queue.EnqueueIngest(ctx, domain.IngestTaskPayload{JobID: id, Filename: filename, Text: text}); err != nil {
		if uerr := s.Jobs.UpdateStatus(context.WithoutCancel(ctx), id, domain.IngestFailed, "", ptr("enqueue failed")); uerr != nil {
			obsctx.LoggerFromContext(ctx).Error("failed to record enqueue failure",
				slog.String("job_id", id), slog.Any("error", uerr))
		}
		return domain.IngestJob{}, fmt.Errorf("op=ingest.submit: %w", err)
	}
	return s.Jobs.Get(ctx, id)
}

// Process runs one consumed task. Redelivered tasks of finished jobs are skipped.
// The job records the outcome; the returned error is informational.
func (s IngestService) Process(ctx context.Context, task domain.IngestTaskPayload) error {
	lg := obsctx.LoggerFromContext(ctx).With(slog.String("job_id", task.JobID))
	job, err := s.Jobs.Get(ctx, task.JobID)
	if err != nil {
		return fmt.Errorf("op=ingest.process: %w", err)
	}
	if job.Status == domain.IngestCompleted || job.Status == domain.IngestFailed {
		lg.Info("skipping finished ingest job", slog.String("status", string(job.Status)))
		return nil
	}
	if err := s.Jobs.UpdateStatus(ctx, task.JobID, domain.IngestProcessing, "", nil); err != nil {
		return fmt.Errorf("op=ingest.process: %w", err)
	}
	observability.StartIngestJob()

	c, err := s.Candidates.Ingest(ctx, task.Filename, task.Text)
	if err != nil {
		observability.FailIngestJob()
		if uerr := s.Jobs.UpdateStatus(context.WithoutCancel(ctx), task.JobID, domain.IngestFailed, "", ptr(err.Error())); uerr != nil {
			lg.Error("failed to record job failure", slog.Any("error", uerr))
		}
		return fmt.Errorf("op=ingest.process: %w", err)
	}
	if err := s.Jobs.UpdateStatus(ctx, task.JobID, domain.IngestCompleted, c.ID, nil); err != nil {
		return fmt.Errorf("op=ingest.process: %w", err)
	}
	observability.CompleteIngestJob()
	return nil
}

// ProcessIngest lets the service serve as a queue consumer handler.
func (s IngestService) ProcessIngest(ctx context.Context, task domain.IngestTaskPayload) error {
	return s.Process(ctx, task)
}

// Get returns the job with id.
func (s IngestService) Get(ctx domain.Context, id string) (domain.IngestJob, error) {
	if id == "" {
		return domain.IngestJob{}, fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	return s.Jobs.Get(ctx, id)
}

func ptr(s string) *string { return &s }
