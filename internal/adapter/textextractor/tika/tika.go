// Package tika provides Apache Tika integration for text extraction.
//
// Plain-text uploads are read directly; everything else is sent to a Tika
// server. Output is normalized with paragraph breaks kept, since the
// chunker prefers to cut on them.
package tika

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	"github.com/fairyhunter13/ai-cv-search/internal/observability"
	"github.com/fairyhunter13/ai-cv-search/pkg/textx"
)

// Client is a minimal Apache Tika HTTP client implementing domain.TextExtractor.
// It performs PUT /tika with Accept: text/plain to retrieve extracted text.
// See: https://tika.apache.org/server/ for API details.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	roots      []string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each Tika call.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithAllowedRoots replaces the directories files may be read from.
func WithAllowedRoots(dirs ...string) Option {
	return func(c *Client) { c.roots = dirs }
}

// New constructs a Tika client. By default only files under the system temp
// dir and the working directory may be extracted.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9998"
	}
	wd, _ := os.Getwd()
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:    30 * time.Second,
		roots:      []string{os.TempDir(), wd},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ping checks that the Tika server answers GET /version.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/version", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tika status %d", resp.StatusCode)
	}
	return nil
}

// ExtractPath reads the file at path and returns its normalized text.
func (c *Client) ExtractPath(ctx context.Context, fileName, path string) (string, error) {
	openPath, err := c.confine(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(openPath) //nolint:gosec // path confined above
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: read: %w", err)
	}
	return c.Extract(ctx, fileName, data)
}

// Extract returns the normalized text of an in-memory document.
func (c *Client) Extract(ctx context.Context, fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &domain.UnreadableDocumentError{Filename: fileName, Err: errors.New("empty file")}
	}
	mt := mimetype.Detect(data)

	var raw string
	if mt.Is("text/plain") {
		raw = string(data)
	} else {
		err := observability.CallWithTimeout(ctx, domain.CollaboratorTika, c.timeout, func(callCtx context.Context) error {
			var err error
			raw, err = c.put(callCtx, fileName, mt.String(), data)
			return err
		})
		if err != nil {
			return "", err
		}
	}

	text := textx.Normalize(raw)
	if text == "" {
		return "", &domain.UnreadableDocumentError{Filename: fileName, Err: errors.New("no text extracted")}
	}
	return text, nil
}

func (c *Client) put(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain; charset=UTF-8")
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &domain.CollaboratorUnavailableError{Collaborator: domain.CollaboratorTika, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusUnsupportedMediaType:
		return "", &domain.UnreadableDocumentError{Filename: fileName, Err: fmt.Errorf("tika status %d", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", &domain.CollaboratorUnavailableError{Collaborator: domain.CollaboratorTika, Err: fmt.Errorf("tika status %d", resp.StatusCode)}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.CollaboratorUnavailableError{Collaborator: domain.CollaboratorTika, Err: err}
	}
	return string(b), nil
}

// confine resolves path and rejects anything outside the allowed roots.
func (c *Client) confine(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)
	for _, root := range c.roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			continue
		}
		return filepath.Join(root, rel), nil
	}
	return "", fmt.Errorf("%w: disallowed path %s", domain.ErrInvalidArgument, abs)
}
