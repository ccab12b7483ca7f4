package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// AllCandidateIDs returns every candidate id.
func (r *CandidateRepo) AllCandidateIDs(ctx domain.Context) ([]string, error) {
	ctx, span := startSpan(ctx, "candidates.AllCandidateIDs", "SELECT")
	defer span.End()
	return r.queryStrings(ctx, "op=candidate.all_ids", `SELECT id FROM candidates ORDER BY id`)
}

// CandidateIDsWithSkills returns candidates having every skill (case-insensitive).
func (r *CandidateRepo) CandidateIDsWithSkills(ctx domain.Context, skills []string) ([]string, error) {
	ctx, span := startSpan(ctx, "candidates.CandidateIDsWithSkills", "SELECT")
	defer span.End()
	want := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		k := strings.ToLower(strings.TrimSpace(s))
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		want = append(want, k)
	}
	if len(want) == 0 {
		return r.AllCandidateIDs(ctx)
	}
	q := `SELECT candidate_id FROM candidate_skills WHERE skill_lower = ANY($1)
	GROUP BY candidate_id HAVING COUNT(DISTINCT skill_lower) = $2 ORDER BY candidate_id`
	return r.queryStrings(ctx, "op=candidate.ids_with_skills", q, want, len(want))
}

// CandidateIDsByLocation matches a case-insensitive substring of the location.
func (r *CandidateRepo) CandidateIDsByLocation(ctx domain.Context, substr string) ([]string, error) {
	ctx, span := startSpan(ctx, "candidates.CandidateIDsByLocation", "SELECT")
	defer span.End()
	q := `SELECT id FROM candidates WHERE location ILIKE '%' || $1 || '%' ESCAPE '\' ORDER BY id`
	return r.queryStrings(ctx, "op=candidate.ids_by_location", q, escapeLike(substr))
}

// EducationDegrees returns every degree with its owner.
func (r *CandidateRepo) EducationDegrees(ctx domain.Context) ([]domain.DegreeRecord, error) {
	ctx, span := startSpan(ctx, "candidates.EducationDegrees", "SELECT")
	defer span.End()
	rows, err := r.Pool.Query(ctx, `SELECT candidate_id, degree FROM candidate_education ORDER BY candidate_id, position`)
	if err != nil {
		return nil, fmt.Errorf("op=candidate.education_degrees: %w", err)
	}
	defer rows.Close()
	var out []domain.DegreeRecord
	for rows.Next() {
		var d domain.DegreeRecord
		if err := rows.Scan(&d.CandidateID, &d.Degree); err != nil {
			return nil, fmt.Errorf("op=candidate.education_degrees: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=candidate.education_degrees: %w", err)
	}
	return out, nil
}

// WorkPeriods returns every dated work period.
func (r *CandidateRepo) WorkPeriods(ctx domain.Context) ([]domain.WorkPeriod, error) {
	ctx, span := startSpan(ctx, "candidates.WorkPeriods", "SELECT")
	defer span.End()
	q := `SELECT candidate_id, start_date, end_date FROM candidate_work_periods
	WHERE start_date IS NOT NULL ORDER BY candidate_id, position`
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=candidate.work_periods: %w", err)
	}
	defer rows.Close()
	var out []domain.WorkPeriod
	for rows.Next() {
		var (
			id    string
			start time.Time
			end   *time.Time
		)
		if err := rows.Scan(&id, &start, &end); err != nil {
			return nil, fmt.Errorf("op=candidate.work_periods: %w", err)
		}
		p := domain.WorkPeriod{CandidateID: id, Start: domain.Date{Time: start}}
		if end != nil {
			p.End = &domain.Date{Time: *end}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=candidate.work_periods: %w", err)
	}
	return out, nil
}

// DistinctSkills lists skills case-insensitively deduplicated, alphabetically.
func (r *CandidateRepo) DistinctSkills(ctx domain.Context, limit int) ([]string, error) {
	ctx, span := startSpan(ctx, "candidates.DistinctSkills", "SELECT")
	defer span.End()
	q := `SELECT MIN(skill) FROM candidate_skills GROUP BY skill_lower ORDER BY skill_lower LIMIT $1`
	return r.queryStrings(ctx, "op=candidate.distinct_skills", q, nullableLimit(limit))
}

// DistinctLocations lists non-empty locations case-insensitively deduplicated.
func (r *CandidateRepo) DistinctLocations(ctx domain.Context, limit int) ([]string, error) {
	ctx, span := startSpan(ctx, "candidates.DistinctLocations", "SELECT")
	defer span.End()
	q := `SELECT MIN(location) FROM candidates WHERE btrim(location) <> ''
	GROUP BY lower(location) ORDER BY lower(location) LIMIT $1`
	return r.queryStrings(ctx, "op=candidate.distinct_locations", q, nullableLimit(limit))
}

func (r *CandidateRepo) queryStrings(ctx context.Context, op, q string, args ...any) ([]string, error) {
	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(strings.TrimSpace(s)) }
