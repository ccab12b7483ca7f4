package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	obsctx "github.com/fairyhunter13/ai-cv-search/internal/observability"
	"github.com/fairyhunter13/ai-cv-search/pkg/textx"
)

// DefaultConcurrency bounds in-flight model calls per document.
const DefaultConcurrency = 4

// Pipeline chunks a document, extracts every chunk concurrently and merges
// the results in chunk order.
type Pipeline struct {
	extractor   *Extractor
	maxLength   int
	overlap     int
	concurrency int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithChunking sets the chunk length and overlap in characters.
func WithChunking(maxLength, overlap int) PipelineOption {
	return func(p *Pipeline) {
		p.maxLength = maxLength
		p.overlap = overlap
	}
}

// WithConcurrency bounds the number of concurrent chunk extractions.
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewPipeline creates a Pipeline over extractor.
func NewPipeline(extractor *Extractor, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		extractor:   extractor,
		maxLength:   textx.DefaultChunkMaxLength,
		overlap:     textx.DefaultChunkOverlap,
		concurrency: DefaultConcurrency,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run extracts one profile from normalized document text. Any failing chunk
// fails the document and cancels the chunks still in flight.
func (p *Pipeline) Run(ctx context.Context, text string) (domain.CandidateProfile, error) {
	chunks, err := textx.Chunk(text, p.maxLength, p.overlap)
	if err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("op=extraction.pipeline: %w", &domain.ChunkingError{Reason: err.Error()})
	}
	obsctx.LoggerFromContext(ctx).Info("extracting document",
		slog.Int("chunks", len(chunks)),
		slog.Int("chars", len([]rune(text))),
		slog.Int("concurrency", p.concurrency))

	// results[i] belongs to chunks[i]; merge order never depends on completion order.
	results := make([]domain.CandidateProfile, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			profile, err := p.extractor.extractChunk(gctx, i, chunk)
			if err != nil {
				return err
			}
			results[i] = profile
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("op=extraction.pipeline: %w", err)
	}
	return Merge(results)
}
