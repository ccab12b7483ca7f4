package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/repo/memory"
	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	"github.com/fairyhunter13/ai-cv-search/internal/search"
)

type harness struct {
	svc     CandidateService
	store   *memory.CandidateStore
	vectors *flakyVectors
	extract *stubExtractor
	embed   *skillEmbedder
}

func newHarness(profile domain.CandidateProfile, query domain.EmbeddingPair) *harness {
	store := memory.NewCandidateStore()
	vecs := &flakyVectors{VectorStore: memory.NewVectorStore()}
	ext := &stubExtractor{profile: profile}
	emb := &skillEmbedder{vectors: map[string][]float32{
		"Go":     {1, 0},
		"Python": {0, 1},
	}}
	engine := search.NewEngine(store, vecs, fixedQuery{pair: query})
	return &harness{
		svc:     NewCandidateService(store, store, vecs, ext, emb, engine),
		store:   store,
		vectors: vecs,
		extract: ext,
		embed:   emb,
	}
}

func TestCandidateService_Ingest(t *testing.T) {
	t.Parallel()
	h := newHarness(sampleProfile("Jane Doe", "Go"), domain.EmbeddingPair{})
	ctx := context.Background()

	c, err := h.svc.Ingest(ctx, "jane.pdf", "  Jane Doe\r\n\r\n\r\n\r\nGo engineer\x00 ")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "jane.pdf", c.SourceFilename)
	assert.Equal(t, "Jane Doe", c.Profile.FullName)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, []string{"Jane Doe\n\nGo engineer"}, h.extract.texts)

	got, err := h.vectors.FetchEmbeddings(ctx, []string{c.ID})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, got[c.ID].Skills)
}

func TestCandidateService_Ingest_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		text       string
		extractErr error
		upsertErr  error
		wantIs     error
	}{
		{name: "blank text", text: " \n\t ", wantIs: domain.ErrInvalidArgument},
		{name: "extraction fails", text: "cv", extractErr: &domain.ExtractionParseError{Raw: "{", Err: errBoom}, wantIs: domain.ErrSchemaInvalid},
		{name: "vector store down", text: "cv", upsertErr: &domain.CollaboratorUnavailableError{Collaborator: domain.CollaboratorVector, Err: errBoom}, wantIs: domain.ErrUpstreamUnavailable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(sampleProfile("Jane", "Go"), domain.EmbeddingPair{})
			h.extract.err = tt.extractErr
			h.vectors.upsertErr = tt.upsertErr

			_, err := h.svc.Ingest(context.Background(), "cv.txt", tt.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)

			all, err := h.store.AllCandidateIDs(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all, "no candidate survives a failed ingest")
		})
	}
}

func TestCandidateService_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	h := newHarness(sampleProfile("Jane", "Go"), domain.EmbeddingPair{})
	ctx := context.Background()
	c, err := h.svc.Ingest(ctx, "cv.txt", "Jane, Go")
	require.NoError(t, err)

	updated, err := h.svc.Update(ctx, c.ID, sampleProfile("Jane Q. Doe", "Python"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Q. Doe", updated.Profile.FullName)
	assert.Equal(t, 2, h.embed.calls, "update re-embeds the profile")
	vecs, err := h.vectors.FetchEmbeddings(ctx, []string{c.ID})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vecs[c.ID].Skills)

	_, err = h.svc.Update(ctx, "missing", sampleProfile("x"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, h.svc.Delete(ctx, c.ID))
	_, err = h.svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	vecs, err = h.vectors.FetchEmbeddings(ctx, []string{c.ID})
	require.NoError(t, err)
	assert.Empty(t, vecs)

	assert.ErrorIs(t, h.svc.Delete(ctx, c.ID), domain.ErrNotFound)
	assert.ErrorIs(t, h.svc.Delete(ctx, ""), domain.ErrInvalidArgument)
}

func TestCandidateService_SemanticSearch(t *testing.T) {
	t.Parallel()
	h := newHarness(domain.CandidateProfile{}, domain.EmbeddingPair{Experience: []float32{1, 0}, Skills: []float32{1, 0}})
	ctx := context.Background()

	h.extract.profile = sampleProfile("Gopher", "Go")
	gopher, err := h.svc.Ingest(ctx, "a.txt", "a")
	require.NoError(t, err)
	h.extract.profile = sampleProfile("Pythonista", "Python")
	py, err := h.svc.Ingest(ctx, "b.txt", "b")
	require.NoError(t, err)

	got, err := h.svc.SemanticSearch(ctx, domain.NewSearchQuery("golang backend", domain.SearchFilters{}, 10, 0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, gopher.ID, got[0].Candidate.ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.Equal(t, py.ID, got[1].Candidate.ID)
	assert.InDelta(t, 0.0, got[1].Score, 1e-6)

	got, err = h.svc.SemanticSearch(ctx, domain.NewSearchQuery("golang", domain.SearchFilters{RequiredSkills: []string{"python"}}, 10, 0))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, py.ID, got[0].Candidate.ID)

	_, err = h.svc.SemanticSearch(ctx, domain.NewSearchQuery(" ", domain.SearchFilters{}, 10, 0))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCandidateService_FilterSearch(t *testing.T) {
	t.Parallel()
	h := newHarness(sampleProfile("Jane", "Go", "Python"), domain.EmbeddingPair{})
	ctx := context.Background()
	_, err := h.svc.Ingest(ctx, "a.txt", "a")
	require.NoError(t, err)

	got, err := h.svc.FilterSearch(ctx, domain.NewSearchQuery("", domain.SearchFilters{Location: "jakarta"}, 10, 0))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Score)

	got, err = h.svc.FilterSearch(ctx, domain.NewSearchQuery("", domain.SearchFilters{Location: "berlin"}, 10, 0))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = h.svc.FilterSearch(ctx, domain.NewSearchQuery("", domain.SearchFilters{EducationLevel: "kindergarten"}, 10, 0))
	var fe *domain.InvalidFilterValueError
	assert.ErrorAs(t, err, &fe)
}

func TestCandidateService_ListingsAndList(t *testing.T) {
	t.Parallel()
	h := newHarness(sampleProfile("Jane", "Go", "Python"), domain.EmbeddingPair{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := h.svc.Ingest(ctx, "cv.txt", "cv")
		require.NoError(t, err)
	}

	skills, err := h.svc.Skills(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Python"}, skills)

	skills, err = h.svc.Skills(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, skills)

	locs, err := h.svc.Locations(ctx, 5000)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jakarta, Indonesia"}, locs)

	page, err := h.svc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	page, err = h.svc.List(ctx, -5, 0)
	require.NoError(t, err)
	assert.Len(t, page, 3)
}

func TestListingLimit(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultListingLimit, listingLimit(0))
	assert.Equal(t, DefaultListingLimit, listingLimit(-1))
	assert.Equal(t, 7, listingLimit(7))
	assert.Equal(t, MaxListingLimit, listingLimit(MaxListingLimit+1))
}

func TestCandidateService_Import(t *testing.T) {
	t.Parallel()
	h := newHarness(domain.CandidateProfile{}, domain.EmbeddingPair{})
	ctx := context.Background()

	c, err := h.svc.Import(ctx, "seed.yaml", sampleProfile("Ana", "Python"))
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.Profile.FullName)
	assert.Empty(t, h.extract.texts)

	got, err := h.vectors.FetchEmbeddings(ctx, []string{c.ID})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, got[c.ID].Skills)

	h.vectors.upsertErr = errBoom
	_, err = h.svc.Import(ctx, "seed.yaml", sampleProfile("Bo", "Go"))
	require.ErrorIs(t, err, errBoom)
	all, err := h.store.AllCandidateIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, all)
}

func TestCandidateService_NormalizesStoredProfiles(t *testing.T) {
	t.Parallel()
	h := newHarness(domain.CandidateProfile{}, domain.EmbeddingPair{})
	ctx := context.Background()

	c, err := h.svc.Import(ctx, "seed.yaml", sampleProfile("Ana", " Go", "go", "GO "))
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, c.Profile.Skills)
	vecs, err := h.vectors.FetchEmbeddings(ctx, []string{c.ID})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vecs[c.ID].Skills, "embedding sees the trimmed skill")

	blank := sampleProfile("  ", "Python", "python")
	blank.Email = ""
	blank.WorkExperience[0].Company = " "
	updated, err := h.svc.Update(ctx, c.ID, blank)
	require.NoError(t, err)
	assert.Equal(t, domain.PlaceholderFullName, updated.Profile.FullName)
	assert.Equal(t, domain.PlaceholderEmail, updated.Profile.Email)
	assert.Equal(t, domain.PlaceholderCompany, updated.Profile.WorkExperience[0].Company)
	assert.Equal(t, []string{"Python"}, updated.Profile.Skills)

	stored, err := h.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Profile, stored.Profile)
}
