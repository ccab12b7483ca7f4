package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/repo/memory"
	"github.com/fairyhunter13/ai-cv-search/internal/app"
	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	"github.com/fairyhunter13/ai-cv-search/internal/embedding"
	"github.com/fairyhunter13/ai-cv-search/internal/search"
	"github.com/fairyhunter13/ai-cv-search/internal/seed"
	"github.com/fairyhunter13/ai-cv-search/internal/usecase"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search candidates semantically or by filters",
	Long: "Runs a semantic search when --q is given and a filter-only search otherwise. " +
		"With --from-seed the candidates are loaded into memory from a YAML seed file instead of the configured stores.",
	Args: cobra.NoArgs,
	RunE: runSearch,
}

type searchFlags struct {
	q         string
	skills    []string
	location  string
	education string
	minYears  float64
	limit     int
	offset    int
	fromSeed  string
}

var sf searchFlags

func init() {
	f := searchCmd.Flags()
	f.StringVar(&sf.q, "q", "", "Free-text query; empty runs a filter-only search")
	f.StringSliceVar(&sf.skills, "skills", nil, "Required skills (all must match)")
	f.StringVar(&sf.location, "location", "", "Location substring")
	f.StringVar(&sf.education, "education", "", "Minimum education level: high_school, bachelor, master, phd")
	f.Float64Var(&sf.minYears, "min-years", 0, "Minimum total years of work experience")
	f.IntVar(&sf.limit, "limit", domain.DefaultSearchLimit, "Maximum results")
	f.IntVar(&sf.offset, "offset", 0, "Results to skip")
	f.StringVar(&sf.fromSeed, "from-seed", "", "Search an in-memory store loaded from this YAML seed file")
	rootCmd.AddCommand(searchCmd)
}

// query builds the domain query; min-years only becomes a filter when the flag was set.
func (f searchFlags) query(minYearsSet bool) domain.SearchQuery {
	filters := domain.SearchFilters{
		RequiredSkills: f.skills,
		Location:       f.location,
		EducationLevel: domain.EducationLevel(f.education),
	}
	if minYearsSet {
		years := f.minYears
		filters.MinExperienceYears = &years
	}
	return domain.NewSearchQuery(f.q, filters, f.limit, f.offset)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	q := sf.query(cmd.Flags().Changed("min-years"))

	svc, closeFn, err := searchService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	var res []usecase.RankedCandidate
	if q.Text != "" {
		res, err = svc.SemanticSearch(ctx, q)
	} else {
		res, err = svc.FilterSearch(ctx, q)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func searchService(ctx context.Context) (usecase.CandidateService, func(), error) {
	if sf.fromSeed == "" {
		comps, err := app.Build(ctx, cfg)
		if err != nil {
			return usecase.CandidateService{}, nil, err
		}
		return comps.Candidates, comps.Close, nil
	}

	embedder, err := embedding.NewGenerator(app.NewAIClient(cfg, nil), cfg.EmbedCacheSize,
		embedding.WithDimension(cfg.EmbeddingDim),
		embedding.WithCallTimeout(cfg.AICallTimeout))
	if err != nil {
		return usecase.CandidateService{}, nil, err
	}
	svc := memoryService(embedder)
	if _, err := seed.File(ctx, svc, sf.fromSeed); err != nil {
		return usecase.CandidateService{}, nil, fmt.Errorf("load %s: %w", sf.fromSeed, err)
	}
	return svc, func() {}, nil
}

type queryEmbedder interface {
	usecase.ProfileEmbedder
	search.QueryEmbedder
}

func memoryService(embedder queryEmbedder) usecase.CandidateService {
	store := memory.NewCandidateStore()
	vectors := memory.NewVectorStore()
	engine := search.NewEngine(store, vectors, embedder)
	return usecase.NewCandidateService(store, store, vectors, nil, embedder, engine)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
