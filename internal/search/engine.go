// Package search ranks and filters candidates: structured filters resolve to
// id sets, the sets are intersected, and the survivors are ranked by the
// mean cosine similarity of the experience and skills embeddings.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/observability"
	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	obsctx "github.com/fairyhunter13/ai-cv-search/internal/observability"
)

// QueryEmbedder turns query text into an embedding pair.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) (domain.EmbeddingPair, error)
}

// Engine executes semantic and filter-only searches.
type Engine struct {
	index   domain.CandidateIndex
	vectors domain.VectorStore
	queries QueryEmbedder
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the notion of "now" used for open-ended work periods.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine.
func NewEngine(index domain.CandidateIndex, vectors domain.VectorStore, queries QueryEmbedder, opts ...Option) *Engine {
	e := &Engine{index: index, vectors: vectors, queries: queries, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Search ranks the candidates passing q's filters by similarity to q.Text,
// highest first with ties broken by ascending id, then applies offset and limit.
func (e *Engine) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchHit, error) {
	defer observability.ObserveSearch("semantic", time.Now())
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("op=search.Search: %w: query text is required", domain.ErrInvalidArgument)
	}

	ids, err := e.eligible(ctx, q.Filters)
	if err != nil {
		return nil, fmt.Errorf("op=search.Search: %w", err)
	}
	if len(ids) == 0 {
		return []domain.SearchHit{}, nil
	}

	query, err := e.queries.EmbedQuery(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("op=search.Search: %w", err)
	}
	stored, err := e.vectors.FetchEmbeddings(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("op=search.Search: fetch embeddings: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(ids))
	missing := 0
	for _, id := range ids {
		pair, ok := stored[id]
		if !ok {
			// scored 0 rather than dropped so filters stay authoritative
			missing++
			hits = append(hits, domain.SearchHit{CandidateID: id})
			continue
		}
		hits = append(hits, domain.SearchHit{CandidateID: id, Score: Similarity(query, pair)})
	}
	if missing > 0 {
		obsctx.LoggerFromContext(ctx).Warn("candidates without stored embeddings",
			slog.Int("missing", missing),
			slog.Int("eligible", len(ids)))
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].CandidateID < hits[j].CandidateID
	})
	return paginate(hits, q.Offset, q.Limit), nil
}

// Filter applies q's filters without ranking. Results are ordered by id.
func (e *Engine) Filter(ctx context.Context, q domain.SearchQuery) ([]string, error) {
	defer observability.ObserveSearch("filter", time.Now())
	ids, err := e.eligible(ctx, q.Filters)
	if err != nil {
		return nil, fmt.Errorf("op=search.Filter: %w", err)
	}
	sort.Strings(ids)
	return paginate(ids, q.Offset, q.Limit), nil
}

// Similarity is the mean of the experience and skills cosine similarities.
func Similarity(query, candidate domain.EmbeddingPair) float64 {
	return (Cosine(query.Experience, candidate.Experience) + Cosine(query.Skills, candidate.Skills)) / 2
}

// eligible resolves every present filter to an id set and intersects them.
// Without filters all candidates are eligible. The first empty set ends the
// resolution early.
func (e *Engine) eligible(ctx context.Context, f domain.SearchFilters) ([]string, error) {
	resolvers, err := e.resolvers(f)
	if err != nil {
		return nil, err
	}
	if len(resolvers) == 0 {
		return e.index.AllCandidateIDs(ctx)
	}

	var acc map[string]struct{}
	for _, resolve := range resolvers {
		ids, err := resolve(ctx)
		if err != nil {
			return nil, err
		}
		acc = intersect(acc, ids)
		if len(acc) == 0 {
			return nil, nil
		}
	}
	out := make([]string, 0, len(acc))
	for id := range acc {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

type resolver func(ctx context.Context) ([]string, error)

// resolvers validates f and returns one resolver per present filter.
func (e *Engine) resolvers(f domain.SearchFilters) ([]resolver, error) {
	var out []resolver

	if skills := normalizeSkills(f.RequiredSkills); len(skills) > 0 {
		out = append(out, func(ctx context.Context) ([]string, error) {
			return e.index.CandidateIDsWithSkills(ctx, skills)
		})
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		out = append(out, func(ctx context.Context) ([]string, error) {
			return e.index.CandidateIDsByLocation(ctx, loc)
		})
	}
	if f.EducationLevel != "" {
		level, err := ParseEducationLevel(string(f.EducationLevel))
		if err != nil {
			return nil, err
		}
		out = append(out, func(ctx context.Context) ([]string, error) {
			return e.byEducation(ctx, level)
		})
	}
	if f.MinExperienceYears != nil {
		min := *f.MinExperienceYears
		if min < 0 || math.IsNaN(min) || math.IsInf(min, 0) {
			return nil, &domain.InvalidFilterValueError{Filter: "min_experience_years", Value: fmt.Sprint(min)}
		}
		if min > 0 {
			out = append(out, func(ctx context.Context) ([]string, error) {
				return e.byExperience(ctx, min)
			})
		}
	}
	return out, nil
}

func (e *Engine) byEducation(ctx context.Context, level domain.EducationLevel) ([]string, error) {
	degrees, err := e.index.EducationDegrees(ctx)
	if err != nil {
		return nil, err
	}
	phrases := keywordsAtOrAbove(level)
	seen := make(map[string]struct{})
	var out []string
	for _, d := range degrees {
		if _, ok := seen[d.CandidateID]; ok {
			continue
		}
		if degreeMatches(d.Degree, phrases) {
			seen[d.CandidateID] = struct{}{}
			out = append(out, d.CandidateID)
		}
	}
	return out, nil
}

func (e *Engine) byExperience(ctx context.Context, minYears float64) ([]string, error) {
	periods, err := e.index.WorkPeriods(ctx)
	if err != nil {
		return nil, err
	}
	byCandidate := make(map[string][]domain.WorkPeriod)
	for _, p := range periods {
		byCandidate[p.CandidateID] = append(byCandidate[p.CandidateID], p)
	}
	now := e.now()
	var out []string
	for id, ps := range byCandidate {
		if ExperienceYears(ps, now) >= minYears {
			out = append(out, id)
		}
	}
	return out, nil
}

func normalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// intersect narrows acc to ids. A nil acc means "unrestricted".
func intersect(acc map[string]struct{}, ids []string) map[string]struct{} {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if acc == nil {
			next[id] = struct{}{}
			continue
		}
		if _, ok := acc[id]; ok {
			next[id] = struct{}{}
		}
	}
	return next
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
