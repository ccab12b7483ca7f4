// Package embedding derives the experience and skills vectors of candidate
// profiles and search queries.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/observability"
	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	obsctx "github.com/fairyhunter13/ai-cv-search/internal/observability"
)

// Defaults for the generator.
const (
	DefaultDimension      = 1536
	DefaultCacheSize      = 100
	DefaultCallTimeout    = 30 * time.Second
	MaxExperienceEntries  = 3
	MaxSkillsForEmbedding = 20
)

// Vector kinds, used in logs and metrics.
const (
	KindExperience = "experience"
	KindSkills     = "skills"
)

var (
	errEmptyText         = errors.New("empty text")
	errEmptyVector       = errors.New("empty embedding returned")
	errDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Generator embeds profiles and queries through an AIClient. It owns a
// bounded LRU cache keyed by the exact (whitespace-normalized) input text.
type Generator struct {
	ai      domain.AIClient
	dim     int
	timeout time.Duration
	cache   *lru.Cache[string, []float32]
}

// Option configures a Generator.
type Option func(*Generator)

// WithDimension sets D, the dimension of every vector, including fallbacks.
func WithDimension(d int) Option {
	return func(g *Generator) {
		if d > 0 {
			g.dim = d
		}
	}
}

// WithCallTimeout sets the per-call embedding timeout. Zero disables it.
func WithCallTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// NewGenerator creates a Generator whose cache holds at most cacheSize vectors.
func NewGenerator(ai domain.AIClient, cacheSize int, opts ...Option) (*Generator, error) {
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("op=embedding.NewGenerator: %w", err)
	}
	g := &Generator{ai: ai, dim: DefaultDimension, timeout: DefaultCallTimeout, cache: cache}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Dimension returns D.
func (g *Generator) Dimension() int { return g.dim }

// EmbedProfile never fails: an empty source text, a failed call or a
// malformed vector yields the zero vector of dimension D for that half.
func (g *Generator) EmbedProfile(ctx context.Context, p domain.CandidateProfile) domain.EmbeddingPair {
	return domain.EmbeddingPair{
		Experience: g.embedOrZero(ctx, KindExperience, ExperienceText(p)),
		Skills:     g.embedOrZero(ctx, KindSkills, SkillsText(p)),
	}
}

func (g *Generator) embedOrZero(ctx context.Context, kind, text string) []float32 {
	vec, err := g.embed(ctx, text)
	if err == nil {
		return vec
	}
	reason := "error"
	switch {
	case errors.Is(err, errEmptyText):
		reason = "empty_text"
	case errors.Is(err, errEmptyVector):
		reason = "empty_vector"
	case errors.Is(err, errDimensionMismatch):
		reason = "dimension_mismatch"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		reason = "timeout"
	}
	observability.RecordEmbeddingFallback(kind, reason)
	obsctx.LoggerFromContext(ctx).Warn("embedding degraded to zero vector",
		slog.String("kind", kind),
		slog.String("reason", reason),
		slog.Int("dim", g.dim),
		slog.Any("error", err))
	return make([]float32, g.dim)
}

// embed returns the vector for text, consulting the cache first. Only
// successful, well-formed vectors are cached.
func (g *Generator) embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil, errEmptyText
	}
	key := cacheKey(text)
	if vec, ok := g.cache.Get(key); ok {
		observability.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return slices.Clone(vec), nil
	}
	observability.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	var vecs [][]float32
	err := obsctx.CallWithTimeout(ctx, domain.CollaboratorEmbedding, g.timeout, func(cctx context.Context) error {
		var err error
		vecs, err = g.ai.Embed(cctx, []string{text})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, errEmptyVector
	}
	if len(vecs[0]) != g.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", errDimensionMismatch, len(vecs[0]), g.dim)
	}
	g.cache.Add(key, slices.Clone(vecs[0]))
	return vecs[0], nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ExperienceText renders up to three most recently started work entries as
// "position at company: description", newest first. Entries without a start
// date sort last; ties keep profile order.
func ExperienceText(p domain.CandidateProfile) string {
	work := slices.Clone(p.WorkExperience)
	sort.SliceStable(work, func(i, j int) bool {
		a, b := work[i].StartDate, work[j].StartDate
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b.Time)
	})
	if len(work) > MaxExperienceEntries {
		work = work[:MaxExperienceEntries]
	}
	parts := make([]string, 0, len(work))
	for _, w := range work {
		parts = append(parts, fmt.Sprintf("%s at %s: %s", w.Position, w.Company, w.Description))
	}
	return strings.Join(parts, " ")
}

// SkillsText joins the first twenty skills in insertion order.
func SkillsText(p domain.CandidateProfile) string {
	skills := p.Skills
	if len(skills) > MaxSkillsForEmbedding {
		skills = skills[:MaxSkillsForEmbedding]
	}
	return strings.Join(skills, " ")
}
