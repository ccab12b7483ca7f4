package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// Query prompt framings. Each biases one vector toward its aspect.
const (
	experienceQueryPrefix = "Find candidates with experience in: "
	skillsQueryPrefix     = "Find candidates with skills in: "
)

// EmbedQuery embeds a free-text search query as an experience-framed and a
// skills-framed prompt. Unlike EmbedProfile, failures are returned: a query
// ranked against zero vectors would silently produce meaningless scores.
func (g *Generator) EmbedQuery(ctx context.Context, text string) (domain.EmbeddingPair, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.EmbeddingPair{}, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	exp, err := g.embed(ctx, experienceQueryPrefix+text)
	if err != nil {
		return domain.EmbeddingPair{}, fmt.Errorf("op=embedding.EmbedQuery kind=%s: %w", KindExperience, queryError(err))
	}
	skills, err := g.embed(ctx, skillsQueryPrefix+text)
	if err != nil {
		return domain.EmbeddingPair{}, fmt.Errorf("op=embedding.EmbedQuery kind=%s: %w", KindSkills, queryError(err))
	}
	return domain.EmbeddingPair{Experience: exp, Skills: skills}, nil
}

// queryError reports malformed vectors as an unavailable collaborator.
func queryError(err error) error {
	if errors.Is(err, errEmptyVector) || errors.Is(err, errDimensionMismatch) {
		return &domain.CollaboratorUnavailableError{Collaborator: domain.CollaboratorEmbedding, Err: err}
	}
	return err
}
