package tika

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// minimal PDF header is enough for content sniffing.
var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestExtractPath_PDFViaTika(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, pdfBytes, body)
		_, _ = w.Write([]byte("Jane   Doe\r\n\r\n\r\nSenior Engineer\x00\n"))
	}))
	defer srv.Close()

	p := writeTemp(t, "cv.pdf", pdfBytes)
	c := New(srv.URL, WithAllowedRoots(filepath.Dir(p)))
	text, err := c.ExtractPath(context.Background(), "cv.pdf", p)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\n\nSenior Engineer", text)
}

func TestExtractPath_PlainTextSkipsTika(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("tika must not be called for plain text")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := writeTemp(t, "cv.txt", []byte("John Smith\nGo developer\n"))
	c := New(srv.URL, WithAllowedRoots(filepath.Dir(p)))
	text, err := c.ExtractPath(context.Background(), "cv.txt", p)
	require.NoError(t, err)
	assert.Equal(t, "John Smith\nGo developer", text)
}

func TestExtract_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		status   int
		body     string
		data     []byte
		sentinel error
	}{
		{"unprocessable document", http.StatusUnprocessableEntity, "", pdfBytes, domain.ErrUnreadableDocument},
		{"unsupported media", http.StatusUnsupportedMediaType, "", pdfBytes, domain.ErrUnreadableDocument},
		{"server failure", http.StatusInternalServerError, "", pdfBytes, domain.ErrUpstreamUnavailable},
		{"no text", http.StatusOK, "  \n ", pdfBytes, domain.ErrUnreadableDocument},
		{"empty upload", http.StatusOK, "", nil, domain.ErrUnreadableDocument},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			_, err := New(srv.URL).Extract(context.Background(), "cv.pdf", tt.data)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestExtract_Timeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).Extract(context.Background(), "cv.pdf", pdfBytes)
	var te *domain.CollaboratorTimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, domain.CollaboratorTika, te.Collaborator)
}

func TestExtractPath_DisallowedPath(t *testing.T) {
	t.Parallel()
	c := New("http://unused", WithAllowedRoots(t.TempDir()))
	_, err := c.ExtractPath(context.Background(), "passwd", "/etc/passwd")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestExtractPath_MissingFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := New("http://unused", WithAllowedRoots(dir))
	_, err := c.ExtractPath(context.Background(), "cv.pdf", filepath.Join(dir, "missing.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPing(t *testing.T) {
	t.Parallel()
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/version", r.URL.Path)
		_, _ = w.Write([]byte("Apache Tika 2.9.1"))
	}))
	defer ok.Close()
	assert.NoError(t, New(ok.URL).Ping(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	assert.Error(t, New(down.URL).Ping(context.Background()))
}
