package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-cv-search/internal/config"
	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	"github.com/fairyhunter13/ai-cv-search/internal/usecase"
)

// DocumentExtractor turns uploaded document bytes into plain text.
type DocumentExtractor interface {
	Extract(ctx context.Context, fileName string, data []byte) (string, error)
}

// Check is one named readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Server aggregates handlers dependencies.
type Server struct {
	Cfg        config.Config
	Candidates usecase.CandidateService
	Ingest     usecase.IngestService
	Extractor  DocumentExtractor
	Checks     []Check
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, candidates usecase.CandidateService, ingest usecase.IngestService, extractor DocumentExtractor, checks ...Check) *Server {
	return &Server{Cfg: cfg, Candidates: candidates, Ingest: ingest, Extractor: extractor, Checks: checks}
}

var errUnsupportedMedia = errors.New("unsupported media type")

const multipartOverhead = 1 << 20

var allowedExts = map[string]bool{".pdf": true, ".docx": true, ".txt": true}

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// checkUpload enforces the extension allowlist, then sniffs the content.
func checkUpload(filename string, data []byte) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] {
		return fmt.Errorf("%w: extension %q", errUnsupportedMedia, ext)
	}
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/pdf"), mt.Is(docxMIME), mt.Is("text/plain"):
		return nil
	case ext == ".txt" && strings.HasPrefix(mt.String(), "text/"):
		return nil
	}
	return fmt.Errorf("%w: content %s", errUnsupportedMedia, mt.String())
}

// readPart reads one uploaded file, rejecting it once it exceeds the upload limit.
func (s *Server) readPart(fh *multipart.FileHeader) ([]byte, error) {
	limit := s.Cfg.MaxUploadBytes()
	if fh.Size > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrInvalidArgument, fh.Filename, err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidArgument, fh.Filename, err)
	}
	if int64(len(data)) > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	return data, nil
}

// textFromPart validates and extracts one uploaded document.
func (s *Server) textFromPart(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	data, err := s.readPart(fh)
	if err != nil {
		return "", err
	}
	if err := checkUpload(fh.Filename, data); err != nil {
		return "", err
	}
	if s.Extractor == nil {
		return "", fmt.Errorf("%w: text extraction not configured", domain.ErrUpstreamUnavailable)
	}
	return s.Extractor.Extract(ctx, fh.Filename, data)
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request, maxFiles int) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument)
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxFiles)*s.Cfg.MaxUploadBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

// IngestCVHandler handles POST /v1/cvs. With ?async=true the CV is queued and
// 202 returns the job; otherwise 201 returns the stored candidate.
func (s *Server) IngestCVHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.parseMultipart(w, r, 1); err != nil {
			writeError(w, r, err, nil)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		files := r.MultipartForm.File["file"]
		if len(files) != 1 {
			writeError(w, r, fmt.Errorf("%w: exactly one file required", domain.ErrInvalidArgument), map[string]string{"field": "file"})
			return
		}
		fh := files[0]
		ctx := r.Context()
		text, err := s.textFromPart(ctx, fh)
		if err != nil {
			writeError(w, r, err, map[string]string{"filename": fh.Filename})
			return
		}

		if async := r.URL.Query().Get("async"); async == "true" || async == "1" {
			if s.Ingest.Queue == nil {
				writeError(w, r, fmt.Errorf("%w: async ingestion disabled", domain.ErrUpstreamUnavailable), nil)
				return
			}
			job, err := s.Ingest.Submit(ctx, fh.Filename, text)
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
			w.Header().Set("Location", "/v1/ingestions/"+job.ID)
			writeJSON(w, http.StatusAccepted, job)
			return
		}

		c, err := s.Candidates.Ingest(ctx, fh.Filename, text)
		if err != nil {
			writeError(w, r, err, map[string]string{"filename": fh.Filename})
			return
		}
		w.Header().Set("Location", "/v1/candidates/"+c.ID)
		writeJSON(w, http.StatusCreated, c)
	}
}

type batchFailure struct {
	Filename string `json:"filename"`
	Code     string `json:"code"`
	Error    string `json:"error"`
}

// BatchIngestHandler handles POST /v1/cvs/batch. Each file succeeds or fails on its own.
func (s *Server) BatchIngestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxFiles := s.Cfg.MaxBatchFiles
		if maxFiles <= 0 {
			maxFiles = 1
		}
		if err := s.parseMultipart(w, r, maxFiles); err != nil {
			writeError(w, r, err, nil)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		files := r.MultipartForm.File["files"]
		switch {
		case len(files) == 0:
			writeError(w, r, fmt.Errorf("%w: at least one file required", domain.ErrInvalidArgument), map[string]string{"field": "files"})
			return
		case len(files) > maxFiles:
			writeError(w, r, fmt.Errorf("%w: too many files", domain.ErrInvalidArgument), map[string]int{"max_files": maxFiles})
			return
		}

		ctx := r.Context()
		lg := LoggerFrom(r)
		successful := []domain.Candidate{}
		failed := []batchFailure{}
		for _, fh := range files {
			text, err := s.textFromPart(ctx, fh)
			if err == nil {
				var c domain.Candidate
				if c, err = s.Candidates.Ingest(ctx, fh.Filename, text); err == nil {
					successful = append(successful, c)
					continue
				}
			}
			_, code := errorStatus(err)
			lg.Warn("batch item failed", slog.String("filename", fh.Filename), slog.Any("error", err))
			failed = append(failed, batchFailure{Filename: fh.Filename, Code: code, Error: err.Error()})
			if ctx.Err() != nil {
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"successful": successful,
			"failed":     failed,
			"total":      len(files),
		})
	}
}

// IngestionStatusHandler handles GET /v1/ingestions/{id}.
func (s *Server) IngestionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.Ingest.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

type checkResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// ReadyzHandler runs every readiness probe; any failure answers 503.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		results := make([]checkResult, 0, len(s.Checks))
		status := http.StatusOK
		for _, c := range s.Checks {
			res := checkResult{Name: c.Name, OK: true}
			if err := c.Probe(ctx); err != nil {
				res.OK, res.Details = false, err.Error()
				status = http.StatusServiceUnavailable
			}
			results = append(results, res)
		}
		writeJSON(w, status, map[string]any{"checks": results})
	}
}
