package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// VectorStore implements domain.VectorStore.
type VectorStore struct {
	mu    sync.RWMutex
	pairs map[string]domain.EmbeddingPair
}

// NewVectorStore creates an empty store.
func NewVectorStore() *VectorStore {
	return &VectorStore{pairs: make(map[string]domain.EmbeddingPair)}
}

func (v *VectorStore) UpsertEmbeddings(_ context.Context, candidateID string, pair domain.EmbeddingPair) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pairs[candidateID] = domain.EmbeddingPair{
		Experience: slices.Clone(pair.Experience),
		Skills:     slices.Clone(pair.Skills),
	}
	return nil
}

func (v *VectorStore) FetchEmbeddings(_ context.Context, ids []string) (map[string]domain.EmbeddingPair, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]domain.EmbeddingPair, len(ids))
	for _, id := range ids {
		if p, ok := v.pairs[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// DeleteEmbeddings is idempotent.
func (v *VectorStore) DeleteEmbeddings(_ context.Context, candidateID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.pairs, candidateID)
	return nil
}
