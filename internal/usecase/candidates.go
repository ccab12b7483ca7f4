// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	obsctx "github.com/fairyhunter13/ai-cv-search/internal/observability"
	"github.com/fairyhunter13/ai-cv-search/pkg/textx"
)

// Listing bounds for distinct skill and location values.
const (
	DefaultListingLimit = 100
	MaxListingLimit     = 1000
)

// ProfileExtractor turns normalized CV text into one merged profile.
type ProfileExtractor interface {
	Run(ctx context.Context, text string) (domain.CandidateProfile, error)
}

// ProfileEmbedder derives the embedding pair of a profile. It never fails.
type ProfileEmbedder interface {
	EmbedProfile(ctx context.Context, p domain.CandidateProfile) domain.EmbeddingPair
}

// Searcher ranks or filters candidate ids.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchHit, error)
	Filter(ctx context.Context, q domain.SearchQuery) ([]string, error)
}

// RankedCandidate is a search result loaded from the repository.
type RankedCandidate struct {
	Candidate domain.Candidate `json:"candidate"`
	Score     float64          `json:"score"`
}

// CandidateService orchestrates extraction, persistence and search of candidates.
type CandidateService struct {
	Candidates domain.CandidateRepository
	Index      domain.CandidateIndex
	Vectors    domain.VectorStore
	Extractor  ProfileExtractor
	Embedder   ProfileEmbedder
	Search     Searcher
}

// NewCandidateService constructs a CandidateService with its dependencies.
func NewCandidateService(c domain.CandidateRepository, idx domain.CandidateIndex, v domain.VectorStore, x ProfileExtractor, e ProfileEmbedder, s Searcher) CandidateService {
	return CandidateService{Candidates: c, Index: idx, Vectors: v, Extractor: x, Embedder: e, Search: s}
}

// Ingest extracts a profile from raw CV text, stores it and indexes its vectors.
func (s CandidateService) Ingest(ctx domain.Context, filename, text string) (domain.Candidate, error) {
	text = textx.Normalize(text)
	if text == "" {
		return domain.Candidate{}, fmt.Errorf("%w: op=candidate.ingest: empty extracted text", domain.ErrInvalidArgument)
	}
	started := time.Now()
	profile, err := s.Extractor.Run(ctx, text)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.ingest: %w", err)
	}
	c, err := s.Import(ctx, filename, profile)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.ingest: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Info("candidate ingested",
		slog.String("candidate_id", c.ID),
		slog.String("filename", filename),
		slog.Int("work_entries", len(profile.WorkExperience)),
		slog.Int("skills", len(profile.Skills)),
		slog.Duration("took", time.Since(started)))
	return c, nil
}

// Import stores an already structured profile and indexes its vectors.
// The profile is normalized first. When the vectors cannot be stored the
// candidate record is removed again.
func (s CandidateService) Import(ctx domain.Context, filename string, profile domain.CandidateProfile) (domain.Candidate, error) {
	profile = profile.Normalized()
	pair := s.Embedder.EmbedProfile(ctx, profile)

	id, err := s.Candidates.Create(ctx, domain.Candidate{Profile: profile, SourceFilename: filename})
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.import: %w", err)
	}
	if err := s.Vectors.UpsertEmbeddings(ctx, id, pair); err != nil {
		if derr := s.Candidates.Delete(ctx, id); derr != nil {
			obsctx.LoggerFromContext(ctx).Error("rollback of candidate failed",
				slog.String("candidate_id", id), slog.Any("error", derr))
		}
		return domain.Candidate{}, fmt.Errorf("op=candidate.import: %w", err)
	}
	return s.Candidates.Get(ctx, id)
}

// Get returns one candidate.
func (s CandidateService) Get(ctx domain.Context, id string) (domain.Candidate, error) {
	if id == "" {
		return domain.Candidate{}, fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	return s.Candidates.Get(ctx, id)
}

// List returns candidates in creation order.
func (s CandidateService) List(ctx domain.Context, offset, limit int) ([]domain.Candidate, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	if limit > domain.MaxSearchLimit {
		limit = domain.MaxSearchLimit
	}
	return s.Candidates.List(ctx, offset, limit)
}

// Update replaces the profile of an existing candidate and re-embeds it.
func (s CandidateService) Update(ctx domain.Context, id string, profile domain.CandidateProfile) (domain.Candidate, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return domain.Candidate{}, err
	}
	profile = profile.Normalized()
	c.Profile = profile
	if err := s.Candidates.Update(ctx, c); err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.update: %w", err)
	}
	if err := s.Vectors.UpsertEmbeddings(ctx, id, s.Embedder.EmbedProfile(ctx, profile)); err != nil {
		return domain.Candidate{}, fmt.Errorf("op=candidate.update: %w", err)
	}
	return s.Candidates.Get(ctx, id)
}

// Delete removes a candidate and its vectors.
func (s CandidateService) Delete(ctx domain.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	if err := s.Candidates.Delete(ctx, id); err != nil {
		return fmt.Errorf("op=candidate.delete: %w", err)
	}
	if err := s.Vectors.DeleteEmbeddings(ctx, id); err != nil {
		return fmt.Errorf("op=candidate.delete: %w", err)
	}
	return nil
}

// SemanticSearch ranks candidates by similarity to q.Text within the filtered set.
func (s CandidateService) SemanticSearch(ctx domain.Context, q domain.SearchQuery) ([]RankedCandidate, error) {
	hits, err := s.Search.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=candidate.semantic_search: %w", err)
	}
	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.CandidateID
		scores[h.CandidateID] = h.Score
	}
	return s.load(ctx, ids, scores)
}

// FilterSearch applies only the structured filters of q.
func (s CandidateService) FilterSearch(ctx domain.Context, q domain.SearchQuery) ([]RankedCandidate, error) {
	ids, err := s.Search.Filter(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=candidate.filter_search: %w", err)
	}
	return s.load(ctx, ids, nil)
}

func (s CandidateService) load(ctx domain.Context, ids []string, scores map[string]float64) ([]RankedCandidate, error) {
	out := []RankedCandidate{}
	if len(ids) == 0 {
		return out, nil
	}
	cands, err := s.Candidates.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("op=candidate.load: %w", err)
	}
	for _, c := range cands {
		out = append(out, RankedCandidate{Candidate: c, Score: scores[c.ID]})
	}
	return out, nil
}

// Skills lists distinct skills across candidates.
func (s CandidateService) Skills(ctx domain.Context, limit int) ([]string, error) {
	return s.Index.DistinctSkills(ctx, listingLimit(limit))
}

// Locations lists distinct candidate locations.
func (s CandidateService) Locations(ctx domain.Context, limit int) ([]string, error) {
	return s.Index.DistinctLocations(ctx, listingLimit(limit))
}

func listingLimit(n int) int {
	if n <= 0 {
		return DefaultListingLimit
	}
	if n > MaxListingLimit {
		return MaxListingLimit
	}
	return n
}
