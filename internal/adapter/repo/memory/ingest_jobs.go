package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// IngestJobStore implements domain.IngestJobRepository.
type IngestJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.IngestJob
}

// NewIngestJobStore creates an empty store.
func NewIngestJobStore() *IngestJobStore {
	return &IngestJobStore{jobs: make(map[string]domain.IngestJob)}
}

func (s *IngestJobStore) Create(_ context.Context, j domain.IngestJob) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	j.CreatedAt, j.UpdatedAt = now, now
	if j.Status == "" {
		j.Status = domain.IngestQueued
	}
	s.jobs[j.ID] = j
	return j.ID, nil
}

func (s *IngestJobStore) UpdateStatus(_ context.Context, id string, status domain.IngestStatus, candidateID string, errMsg *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("op=ingest_job.update_status: %w", domain.ErrNotFound)
	}
	j.Status = status
	if candidateID != "" {
		j.CandidateID = candidateID
	}
	if errMsg != nil {
		j.Error = *errMsg
	}
	j.UpdatedAt = time.Now().UTC()
	s.jobs[id] = j
	return nil
}

func (s *IngestJobStore) Get(_ context.Context, id string) (domain.IngestJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.IngestJob{}, fmt.Errorf("op=ingest_job.get: %w", domain.ErrNotFound)
	}
	return j, nil
}
