package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/repo/memory"
	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

type stubExtractor struct {
	mu      sync.Mutex
	profile domain.CandidateProfile
	err     error
	texts   []string
}

func (s *stubExtractor) Run(_ context.Context, text string) (domain.CandidateProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.profile, s.err
}

// skillEmbedder maps the first skill of a profile to a fixed vector.
type skillEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (e *skillEmbedder) EmbedProfile(_ context.Context, p domain.CandidateProfile) domain.EmbeddingPair {
	e.calls++
	v := []float32{0, 0}
	if len(p.Skills) > 0 {
		if got, ok := e.vectors[p.Skills[0]]; ok {
			v = got
		}
	}
	return domain.EmbeddingPair{Experience: v, Skills: v}
}

type flakyVectors struct {
	*memory.VectorStore
	upsertErr error
	deleteErr error
}

func (f *flakyVectors) UpsertEmbeddings(ctx context.Context, id string, p domain.EmbeddingPair) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.VectorStore.UpsertEmbeddings(ctx, id, p)
}

func (f *flakyVectors) DeleteEmbeddings(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.VectorStore.DeleteEmbeddings(ctx, id)
}

type fixedQuery struct{ pair domain.EmbeddingPair }

func (f fixedQuery) EmbedQuery(context.Context, string) (domain.EmbeddingPair, error) {
	return f.pair, nil
}

type recordingQueue struct {
	mu    sync.Mutex
	tasks []domain.IngestTaskPayload
	err   error
}

func (q *recordingQueue) EnqueueIngest(_ context.Context, p domain.IngestTaskPayload) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, p)
	return p.JobID, nil
}

type ingesterFunc func(ctx context.Context, filename, text string) (domain.Candidate, error)

func (f ingesterFunc) Ingest(ctx context.Context, filename, text string) (domain.Candidate, error) {
	return f(ctx, filename, text)
}

var errBoom = errors.New("boom")

func sampleProfile(name string, skills ...string) domain.CandidateProfile {
	return domain.CandidateProfile{
		FullName: name,
		Email:    "unknown@example.com",
		Phone:    "unknown",
		Location: "Jakarta, Indonesia",
		Skills:   skills,
		WorkExperience: []domain.WorkExperienceRecord{{
			Company:   "Acme Corp",
			Position:  "Engineer",
			StartDate: domain.NewDate(2019, 1, 1),
		}},
	}
}
