// Package postgres provides PostgreSQL database adapters.
//
// Candidates are stored as a JSONB profile plus relational projections of
// the fields the search filters need (skills, degrees and work periods), so
// every filter resolves with one indexed query.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

const uniqueViolation = "23505"

// CandidateRepo persists candidates and serves the structured search index.
type CandidateRepo struct{ Pool PgxPool }

// NewCandidateRepo constructs a CandidateRepo with the given pool.
func NewCandidateRepo(p PgxPool) *CandidateRepo { return &CandidateRepo{Pool: p} }

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("repo.candidates").Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", "candidates"),
	)
	return ctx, span
}

// Create inserts a candidate and its projections in one transaction and
// returns its id (generates one if empty).
func (r *CandidateRepo) Create(ctx domain.Context, c domain.Candidate) (string, error) {
	ctx, span := startSpan(ctx, "candidates.Create", "INSERT")
	defer span.End()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	profile, err := json.Marshal(c.Profile)
	if err != nil {
		return "", fmt.Errorf("op=candidate.create: marshal profile: %w", err)
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("op=candidate.create: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO candidates (id, full_name, email, phone, location, profile, source_filename, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := tx.Exec(ctx, q, c.ID, c.Profile.FullName, c.Profile.Email, c.Profile.Phone, c.Profile.Location,
		profile, c.SourceFilename, c.CreatedAt, now); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", fmt.Errorf("op=candidate.create: %w: id %s exists", domain.ErrConflict, c.ID)
		}
		return "", fmt.Errorf("op=candidate.create: %w", err)
	}
	if err := writeProjections(ctx, tx, c.ID, c.Profile); err != nil {
		return "", fmt.Errorf("op=candidate.create: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("op=candidate.create: commit: %w", err)
	}
	return c.ID, nil
}

// Get loads a candidate by id.
func (r *CandidateRepo) Get(ctx domain.Context, id string) (domain.Candidate, error) {
	ctx, span := startSpan(ctx, "candidates.Get", "SELECT")
	defer span.End()
	q := `SELECT id, profile, source_filename, created_at, updated_at FROM candidates WHERE id=$1`
	c, err := scanCandidate(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", domain.ErrNotFound)
		}
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", err)
	}
	return c, nil
}

// List returns candidates ordered by creation time.
func (r *CandidateRepo) List(ctx domain.Context, offset, limit int) ([]domain.Candidate, error) {
	ctx, span := startSpan(ctx, "candidates.List", "SELECT")
	defer span.End()
	q := `SELECT id, profile, source_filename, created_at, updated_at FROM candidates
	ORDER BY created_at, id OFFSET $1 LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, max(offset, 0), nullableLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("op=candidate.list: %w", err)
	}
	defer rows.Close()
	out := []domain.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("op=candidate.list: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=candidate.list: %w", err)
	}
	return out, nil
}

// ListByIDs returns the candidates found, in the order of ids.
func (r *CandidateRepo) ListByIDs(ctx domain.Context, ids []string) ([]domain.Candidate, error) {
	ctx, span := startSpan(ctx, "candidates.ListByIDs", "SELECT")
	defer span.End()
	if len(ids) == 0 {
		return []domain.Candidate{}, nil
	}
	q := `SELECT id, profile, source_filename, created_at, updated_at FROM candidates WHERE id = ANY($1)`
	rows, err := r.Pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("op=candidate.list_by_ids: %w", err)
	}
	defer rows.Close()
	byID := make(map[string]domain.Candidate, len(ids))
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("op=candidate.list_by_ids: %w", err)
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=candidate.list_by_ids: %w", err)
	}
	out := make([]domain.Candidate, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Update replaces the profile and its projections.
func (r *CandidateRepo) Update(ctx domain.Context, c domain.Candidate) error {
	ctx, span := startSpan(ctx, "candidates.Update", "UPDATE")
	defer span.End()
	profile, err := json.Marshal(c.Profile)
	if err != nil {
		return fmt.Errorf("op=candidate.update: marshal profile: %w", err)
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=candidate.update: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `UPDATE candidates SET full_name=$2, email=$3, phone=$4, location=$5, profile=$6, source_filename=$7, updated_at=$8 WHERE id=$1`
	tag, err := tx.Exec(ctx, q, c.ID, c.Profile.FullName, c.Profile.Email, c.Profile.Phone, c.Profile.Location,
		profile, c.SourceFilename, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=candidate.update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=candidate.update: %w", domain.ErrNotFound)
	}
	if err := deleteProjections(ctx, tx, c.ID); err != nil {
		return fmt.Errorf("op=candidate.update: %w", err)
	}
	if err := writeProjections(ctx, tx, c.ID, c.Profile); err != nil {
		return fmt.Errorf("op=candidate.update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=candidate.update: commit: %w", err)
	}
	return nil
}

// Delete removes a candidate; projections cascade.
func (r *CandidateRepo) Delete(ctx domain.Context, id string) error {
	ctx, span := startSpan(ctx, "candidates.Delete", "DELETE")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM candidates WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=candidate.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=candidate.delete: %w", domain.ErrNotFound)
	}
	return nil
}

func deleteProjections(ctx context.Context, tx pgx.Tx, id string) error {
	for _, table := range []string{"candidate_skills", "candidate_education", "candidate_work_periods"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE candidate_id=$1", id); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func writeProjections(ctx context.Context, tx pgx.Tx, id string, p domain.CandidateProfile) error {
	seen := make(map[string]struct{}, len(p.Skills))
	for _, s := range p.Skills {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if _, err := tx.Exec(ctx, `INSERT INTO candidate_skills (candidate_id, skill, skill_lower) VALUES ($1,$2,$3)`, id, s, k); err != nil {
			return fmt.Errorf("insert skill: %w", err)
		}
	}
	for i, e := range p.Education {
		if _, err := tx.Exec(ctx, `INSERT INTO candidate_education (candidate_id, position, degree) VALUES ($1,$2,$3)`, id, i, e.Degree); err != nil {
			return fmt.Errorf("insert education: %w", err)
		}
	}
	for i, w := range p.WorkExperience {
		if _, err := tx.Exec(ctx, `INSERT INTO candidate_work_periods (candidate_id, position, start_date, end_date) VALUES ($1,$2,$3,$4)`,
			id, i, dateArg(&w.StartDate), dateArg(w.EndDate)); err != nil {
			return fmt.Errorf("insert work period: %w", err)
		}
	}
	return nil
}

func scanCandidate(row pgx.Row) (domain.Candidate, error) {
	var c domain.Candidate
	var profile []byte
	if err := row.Scan(&c.ID, &profile, &c.SourceFilename, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Candidate{}, err
	}
	if err := json.Unmarshal(profile, &c.Profile); err != nil {
		return domain.Candidate{}, fmt.Errorf("decode profile %s: %w", c.ID, err)
	}
	return c, nil
}

// dateArg maps a missing or zero date to SQL NULL.
func dateArg(d *domain.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.Time
}

// nullableLimit maps "no limit" to LIMIT NULL.
func nullableLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
