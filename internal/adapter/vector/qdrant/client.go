// Package qdrant provides a minimal Qdrant HTTP client and the candidate
// embedding store built on it.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client is a minimal Qdrant HTTP client used by the app.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New constructs a Qdrant client with baseURL and optional apiKey.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("qdrant %s status %d: %s", e.Op, e.Status, e.Body)
}

// VectorParams describes one named vector of a collection.
type VectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

// Point is a stored point with named vectors.
type Point struct {
	ID      string               `json:"id"`
	Vector  map[string][]float32 `json:"vector,omitempty"`
	Payload map[string]any       `json:"payload,omitempty"`
}

// Ping checks that the server is ready.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/readyz", nil, nil)
}

// EnsureCollection creates the collection with the given named vectors if it does not exist.
func (c *Client) EnsureCollection(ctx context.Context, name string, vectors map[string]VectorParams) error {
	err := c.do(ctx, "get collection", http.MethodGet, "/collections/"+name, nil, nil)
	if err == nil {
		return nil
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		return err
	}
	return c.do(ctx, "create collection", http.MethodPut, "/collections/"+name, map[string]any{"vectors": vectors}, nil)
}

// UpsertPoints inserts or updates points, waiting for the write to apply.
func (c *Client) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	return c.do(ctx, "upsert", http.MethodPut, "/collections/"+collection+"/points?wait=true",
		map[string]any{"points": points}, nil)
}

// GetPoints retrieves points by id with their vectors and payloads. Unknown ids are skipped.
func (c *Client) GetPoints(ctx context.Context, collection string, ids []string) ([]Point, error) {
	var out struct {
		Result []Point `json:"result"`
	}
	body := map[string]any{"ids": ids, "with_vector": true, "with_payload": true}
	if err := c.do(ctx, "retrieve", http.MethodPost, "/collections/"+collection+"/points", body, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// DeletePoints removes points by id.
func (c *Client) DeletePoints(ctx context.Context, collection string, ids []string) error {
	return c.do(ctx, "delete", http.MethodPost, "/collections/"+collection+"/points/delete?wait=true",
		map[string]any{"points": ids}, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant %s: encode: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("qdrant %s: %w", op, err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("qdrant %s: decode: %w", op, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}
