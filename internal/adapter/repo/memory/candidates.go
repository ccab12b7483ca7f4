// Package memory provides in-process implementations of the persistence
// ports. They back cvctl's offline commands and unit tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// CandidateStore implements domain.CandidateRepository and domain.CandidateIndex.
type CandidateStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Candidate
	order []string
	now   func() time.Time
}

// NewCandidateStore creates an empty store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{byID: make(map[string]domain.Candidate), now: time.Now}
}

// Create stores c, assigning an id when c.ID is empty.
func (s *CandidateStore) Create(_ context.Context, c domain.Candidate) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := s.byID[c.ID]; ok {
		return "", fmt.Errorf("op=candidate.create: %w: id %s exists", domain.ErrConflict, c.ID)
	}
	now := s.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.byID[c.ID] = c
	s.order = append(s.order, c.ID)
	return c.ID, nil
}

func (s *CandidateStore) Get(_ context.Context, id string) (domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", domain.ErrNotFound)
	}
	return c, nil
}

func (s *CandidateStore) List(_ context.Context, offset, limit int) ([]domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	out := []domain.Candidate{}
	for i := offset; i < len(s.order); i++ {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.byID[s.order[i]])
	}
	return out, nil
}

func (s *CandidateStore) ListByIDs(_ context.Context, ids []string) ([]domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CandidateStore) Update(_ context.Context, c domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[c.ID]
	if !ok {
		return fmt.Errorf("op=candidate.update: %w", domain.ErrNotFound)
	}
	c.CreatedAt = prev.CreatedAt
	c.UpdatedAt = s.now().UTC()
	s.byID[c.ID] = c
	return nil
}

func (s *CandidateStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("op=candidate.delete: %w", domain.ErrNotFound)
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// AllCandidateIDs returns ids in insertion order.
func (s *CandidateStore) AllCandidateIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.order...), nil
}

func (s *CandidateStore) CandidateIDsWithSkills(_ context.Context, skills []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.order {
		have := make(map[string]struct{})
		for _, sk := range s.byID[id].Profile.Skills {
			have[strings.ToLower(strings.TrimSpace(sk))] = struct{}{}
		}
		all := true
		for _, want := range skills {
			if _, ok := have[strings.ToLower(strings.TrimSpace(want))]; !ok {
				all = false
				break
			}
		}
		if all {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *CandidateStore) CandidateIDsByLocation(_ context.Context, substr string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(substr)
	var out []string
	for _, id := range s.order {
		if strings.Contains(strings.ToLower(s.byID[id].Profile.Location), needle) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *CandidateStore) EducationDegrees(_ context.Context) ([]domain.DegreeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DegreeRecord
	for _, id := range s.order {
		for _, e := range s.byID[id].Profile.Education {
			out = append(out, domain.DegreeRecord{CandidateID: id, Degree: e.Degree})
		}
	}
	return out, nil
}

func (s *CandidateStore) WorkPeriods(_ context.Context) ([]domain.WorkPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.WorkPeriod
	for _, id := range s.order {
		for _, w := range s.byID[id].Profile.WorkExperience {
			out = append(out, domain.WorkPeriod{CandidateID: id, Start: w.StartDate, End: w.EndDate})
		}
	}
	return out, nil
}

// DistinctSkills returns skills sorted case-insensitively, keeping the first spelling seen.
func (s *CandidateStore) DistinctSkills(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var values []string
	for _, id := range s.order {
		values = append(values, s.byID[id].Profile.Skills...)
	}
	return distinct(values, limit), nil
}

func (s *CandidateStore) DistinctLocations(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var values []string
	for _, id := range s.order {
		values = append(values, s.byID[id].Profile.Location)
	}
	return distinct(values, limit), nil
}

func distinct(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := []string{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		k := strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
