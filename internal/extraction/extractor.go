// Package extraction turns CV text into a structured candidate profile:
// chunking, per-chunk model extraction with one repair pass, and an
// order-preserving merge of the chunk results.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/observability"
	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	obsctx "github.com/fairyhunter13/ai-cv-search/internal/observability"
)

// Default model call settings for extraction.
const (
	DefaultMaxTokens   = 4000
	DefaultCallTimeout = 60 * time.Second
)

// Extractor sends one chunk plus the fixed instruction contract to the model
// and parses the answer as a CandidateProfile.
type Extractor struct {
	ai           domain.AIClient
	systemPrompt string
	maxTokens    int
	timeout      time.Duration
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMaxTokens bounds the completion size.
func WithMaxTokens(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithCallTimeout sets the per-call model timeout. Zero disables it.
func WithCallTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) { e.timeout = d }
}

// WithCurrentYear pins the year stated in the instruction contract.
func WithCurrentYear(year int) ExtractorOption {
	return func(e *Extractor) { e.systemPrompt = buildSystemPrompt(year) }
}

// NewExtractor builds the instruction contract once; it is reused for every chunk.
func NewExtractor(ai domain.AIClient, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ai:           ai,
		systemPrompt: buildSystemPrompt(time.Now().Year()),
		maxTokens:    DefaultMaxTokens,
		timeout:      DefaultCallTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SystemPrompt returns the instruction contract.
func (e *Extractor) SystemPrompt() string { return e.systemPrompt }

// Extract extracts a profile from a single chunk of text.
func (e *Extractor) Extract(ctx context.Context, chunk string) (domain.CandidateProfile, error) {
	return e.extractChunk(ctx, 0, chunk)
}

func (e *Extractor) extractChunk(ctx context.Context, index int, chunk string) (domain.CandidateProfile, error) {
	lg := obsctx.LoggerFromContext(ctx).With(slog.Int("chunk_index", index))

	var raw string
	err := obsctx.CallWithTimeout(ctx, domain.CollaboratorLLM, e.timeout, func(cctx context.Context) error {
		var err error
		raw, err = e.ai.ChatJSON(cctx, e.systemPrompt, buildUserPrompt(chunk), e.maxTokens)
		return err
	})
	if err != nil {
		observability.ExtractionChunksTotal.WithLabelValues("error").Inc()
		return domain.CandidateProfile{}, fmt.Errorf("op=extraction.extract chunk=%d: %w", index, err)
	}

	profile, err := parseProfile(raw)
	if err != nil {
		lg.Warn("initial parse failed, applying repair pass", slog.Any("error", err))
		profile, err = parseProfile(repairResponse(raw))
		if err != nil {
			observability.ExtractionRepairsTotal.WithLabelValues("failed").Inc()
			observability.ExtractionChunksTotal.WithLabelValues("parse_error").Inc()
			lg.Error("model response unparsable after repair",
				slog.Any("error", err),
				slog.Int("raw_len", len(raw)))
			return domain.CandidateProfile{}, &domain.ExtractionParseError{ChunkIndex: index, Raw: raw, Err: err}
		}
		observability.ExtractionRepairsTotal.WithLabelValues("succeeded").Inc()
	}

	observability.ExtractionChunksTotal.WithLabelValues("ok").Inc()
	lg.Debug("chunk extracted",
		slog.Int("work_entries", len(profile.WorkExperience)),
		slog.Int("skills", len(profile.Skills)))
	return profile.Normalized(), nil
}
