package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

const (
	vectorExperience = "experience"
	vectorSkills     = "skills"
	payloadCandidate = "candidate_id"
)

// pointNamespace derives stable point ids, since Qdrant only accepts UUIDs
// or integers and candidate ids are arbitrary strings.
var pointNamespace = uuid.MustParse("6f1c7a52-3a0e-4f8b-9d55-0c1f3b7e2a91")

// PointID maps a candidate id to its Qdrant point id.
func PointID(candidateID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(candidateID)).String()
}

// CandidateVectors implements domain.VectorStore on one Qdrant collection
// holding the experience and skills embeddings as named vectors.
type CandidateVectors struct {
	client     *Client
	collection string
	dim        int
}

// NewCandidateVectors constructs the store. Call EnsureCollection before use.
func NewCandidateVectors(client *Client, collection string, dim int) *CandidateVectors {
	return &CandidateVectors{client: client, collection: collection, dim: dim}
}

// EnsureCollection creates the collection if missing. Dot distance tolerates
// the all-zero fallback vectors; ranking is computed by the search engine.
func (s *CandidateVectors) EnsureCollection(ctx context.Context) error {
	err := s.client.EnsureCollection(ctx, s.collection, map[string]VectorParams{
		vectorExperience: {Size: s.dim, Distance: "Dot"},
		vectorSkills:     {Size: s.dim, Distance: "Dot"},
	})
	if err != nil {
		return wrap(fmt.Errorf("ensure collection %s: %w", s.collection, err))
	}
	return nil
}

func (s *CandidateVectors) UpsertEmbeddings(ctx context.Context, candidateID string, pair domain.EmbeddingPair) error {
	pt := Point{
		ID: PointID(candidateID),
		Vector: map[string][]float32{
			vectorExperience: pair.Experience,
			vectorSkills:     pair.Skills,
		},
		Payload: map[string]any{payloadCandidate: candidateID},
	}
	if err := s.client.UpsertPoints(ctx, s.collection, []Point{pt}); err != nil {
		return wrap(err)
	}
	return nil
}

func (s *CandidateVectors) FetchEmbeddings(ctx context.Context, ids []string) (map[string]domain.EmbeddingPair, error) {
	out := make(map[string]domain.EmbeddingPair, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	byPoint := make(map[string]string, len(ids))
	pointIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		pid := PointID(id)
		byPoint[pid] = id
		pointIDs = append(pointIDs, pid)
	}
	points, err := s.client.GetPoints(ctx, s.collection, pointIDs)
	if err != nil {
		return nil, wrap(err)
	}
	for _, p := range points {
		id, ok := byPoint[p.ID]
		if !ok {
			continue
		}
		exp, sk := p.Vector[vectorExperience], p.Vector[vectorSkills]
		if exp == nil || sk == nil {
			continue
		}
		out[id] = domain.EmbeddingPair{Experience: exp, Skills: sk}
	}
	return out, nil
}

// DeleteEmbeddings is idempotent; Qdrant ignores unknown ids.
func (s *CandidateVectors) DeleteEmbeddings(ctx context.Context, candidateID string) error {
	if err := s.client.DeletePoints(ctx, s.collection, []string{PointID(candidateID)}); err != nil {
		return wrap(err)
	}
	return nil
}

func wrap(err error) error {
	return &domain.CollaboratorUnavailableError{Collaborator: domain.CollaboratorVector, Err: err}
}
