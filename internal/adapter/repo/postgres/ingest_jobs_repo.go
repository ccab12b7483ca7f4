package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// IngestJobRepo persists asynchronous ingestion jobs.
type IngestJobRepo struct{ Pool PgxPool }

// NewIngestJobRepo constructs an IngestJobRepo with the given pool.
func NewIngestJobRepo(p PgxPool) *IngestJobRepo { return &IngestJobRepo{Pool: p} }

// Create inserts a new job and returns its id.
func (r *IngestJobRepo) Create(ctx domain.Context, j domain.IngestJob) (string, error) {
	tracer := otel.Tracer("repo.ingest_jobs")
	ctx, span := tracer.Start(ctx, "ingest_jobs.Create")
	defer span.End()
	id := j.ID
	if id == "" {
		id = uuid.New().String()
	}
	status := j.Status
	if status == "" {
		status = domain.IngestQueued
	}
	now := time.Now().UTC()
	q := `INSERT INTO ingest_jobs (id, status, filename, candidate_id, error, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := r.Pool.Exec(ctx, q, id, string(status), j.Filename, j.CandidateID, j.Error, now, now); err != nil {
		return "", fmt.Errorf("op=ingest_job.create: %w", err)
	}
	return id, nil
}

// UpdateStatus moves a job to status. An empty candidateID or nil errMsg
// leaves the stored value untouched.
func (r *IngestJobRepo) UpdateStatus(ctx domain.Context, id string, status domain.IngestStatus, candidateID string, errMsg *string) error {
	tracer := otel.Tracer("repo.ingest_jobs")
	ctx, span := tracer.Start(ctx, "ingest_jobs.UpdateStatus")
	defer span.End()
	q := `UPDATE ingest_jobs SET status=$2,
		candidate_id=CASE WHEN $3 = '' THEN candidate_id ELSE $3 END,
		error=COALESCE($4, error),
		updated_at=$5
	WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, string(status), candidateID, errMsg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=ingest_job.update_status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=ingest_job.update_status: %w", domain.ErrNotFound)
	}
	return nil
}

// Get loads a job by id.
func (r *IngestJobRepo) Get(ctx domain.Context, id string) (domain.IngestJob, error) {
	tracer := otel.Tracer("repo.ingest_jobs")
	ctx, span := tracer.Start(ctx, "ingest_jobs.Get")
	defer span.End()
	q := `SELECT id, status, filename, candidate_id, error, created_at, updated_at FROM ingest_jobs WHERE id=$1`
	var j domain.IngestJob
	var status string
	err := r.Pool.QueryRow(ctx, q, id).Scan(&j.ID, &status, &j.Filename, &j.CandidateID, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.IngestJob{}, fmt.Errorf("op=ingest_job.get: %w", domain.ErrNotFound)
		}
		return domain.IngestJob{}, fmt.Errorf("op=ingest_job.get: %w", err)
	}
	j.Status = domain.IngestStatus(status)
	return j, nil
}
