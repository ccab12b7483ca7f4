package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/repo/memory"
	"github.com/fairyhunter13/ai-cv-search/internal/config"
	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	"github.com/fairyhunter13/ai-cv-search/internal/search"
	"github.com/fairyhunter13/ai-cv-search/internal/usecase"
)

type profileByText struct{ err error }

// Run names the candidate after the first line of the text.
func (p profileByText) Run(_ context.Context, text string) (domain.CandidateProfile, error) {
	if p.err != nil {
		return domain.CandidateProfile{}, p.err
	}
	name := text
	if i := bytes.IndexByte([]byte(text), '\n'); i >= 0 {
		name = text[:i]
	}
	return domain.CandidateProfile{
		FullName: name, Email: "unknown@example.com", Phone: "unknown", Location: "Jakarta",
		Skills: []string{"Go"},
	}, nil
}

type unitEmbedder struct{}

func (unitEmbedder) EmbedProfile(context.Context, domain.CandidateProfile) domain.EmbeddingPair {
	return domain.EmbeddingPair{Experience: []float32{1, 0}, Skills: []float32{1, 0}}
}

func (unitEmbedder) EmbedQuery(context.Context, string) (domain.EmbeddingPair, error) {
	return domain.EmbeddingPair{Experience: []float32{1, 0}, Skills: []float32{1, 0}}, nil
}

// passthroughExtractor returns the bytes as text.
type passthroughExtractor struct{ err error }

func (p passthroughExtractor) Extract(_ context.Context, _ string, data []byte) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return string(data), nil
}

type memQueue struct{ tasks []domain.IngestTaskPayload }

func (q *memQueue) EnqueueIngest(_ context.Context, p domain.IngestTaskPayload) (string, error) {
	q.tasks = append(q.tasks, p)
	return p.JobID, nil
}

type testEnv struct {
	srv     *Server
	handler http.Handler
	queue   *memQueue
	store   *memory.CandidateStore
}

func testConfig() config.Config {
	return config.Config{MaxUploadMB: 1, MaxBatchFiles: 3}
}

func newTestEnv(t *testing.T, extractErr error) *testEnv {
	t.Helper()
	store := memory.NewCandidateStore()
	vecs := memory.NewVectorStore()
	engine := search.NewEngine(store, vecs, unitEmbedder{})
	cands := usecase.NewCandidateService(store, store, vecs, profileByText{err: extractErr}, unitEmbedder{}, engine)
	q := &memQueue{}
	ingest := usecase.NewIngestService(memory.NewIngestJobStore(), q, cands)
	srv := NewServer(testConfig(), cands, ingest, passthroughExtractor{})
	return &testEnv{srv: srv, handler: testRouter(srv), queue: q, store: store}
}

func testRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(Recoverer(), RequestID())
	r.Post("/v1/cvs", s.IngestCVHandler())
	r.Post("/v1/cvs/batch", s.BatchIngestHandler())
	r.Get("/v1/ingestions/{id}", s.IngestionStatusHandler())
	r.Get("/v1/search/semantic", s.SemanticSearchHandler())
	r.Get("/v1/search/filter", s.FilterSearchHandler())
	r.Get("/v1/skills", s.SkillsHandler())
	r.Get("/v1/locations", s.LocationsHandler())
	r.Get("/v1/candidates", s.ListCandidatesHandler())
	r.Get("/v1/candidates/{id}", s.GetCandidateHandler())
	r.Put("/v1/candidates/{id}", s.UpdateCandidateHandler())
	r.Delete("/v1/candidates/{id}", s.DeleteCandidateHandler())
	r.Get("/readyz", s.ReadyzHandler())
	return r
}

type upload struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, path string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, files...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
