package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamRateLimit   = errors.New("upstream rate limit")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrSchemaInvalid       = errors.New("schema invalid")
	ErrUnreadableDocument  = errors.New("unreadable document")
	ErrInternal            = errors.New("internal error")
)

// Collaborator names used in typed errors.
const (
	CollaboratorLLM       = "llm"
	CollaboratorEmbedding = "embedding"
	CollaboratorTika      = "tika"
	CollaboratorVector    = "vector_store"
)

// ChunkingError reports malformed chunker input.
type ChunkingError struct {
	Reason string
}

func (e *ChunkingError) Error() string { return "chunking: " + e.Reason }

func (e *ChunkingError) Unwrap() error { return ErrInvalidArgument }

// ExtractionParseError carries the raw model response that failed both parse attempts.
type ExtractionParseError struct {
	ChunkIndex int
	Raw        string
	Err        error
}

func (e *ExtractionParseError) Error() string {
	return fmt.Sprintf("extraction parse failed for chunk %d: %v", e.ChunkIndex, e.Err)
}

func (e *ExtractionParseError) Unwrap() []error { return []error{ErrSchemaInvalid, e.Err} }

// EmptyMergeError is returned when merge receives no profiles.
type EmptyMergeError struct{}

func (e *EmptyMergeError) Error() string { return "merge: no profiles to merge" }

func (e *EmptyMergeError) Unwrap() error { return ErrInternal }

// CollaboratorUnavailableError reports a failed remote call.
type CollaboratorUnavailableError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorUnavailableError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.Err}
}

// RateLimitedError reports that the collaborator (or the local budget) refused the call.
type RateLimitedError struct {
	Collaborator string
	RetryAfter   time.Duration
	Err          error
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %s", e.Collaborator, e.RetryAfter)
	}
	return e.Collaborator + " rate limited"
}

func (e *RateLimitedError) Unwrap() []error { return []error{ErrUpstreamRateLimit, e.Err} }

// CollaboratorTimeoutError reports that a remote call exceeded its per-call timeout.
type CollaboratorTimeoutError struct {
	Collaborator string
	Timeout      time.Duration
	Err          error
}

func (e *CollaboratorTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Collaborator, e.Timeout)
}

func (e *CollaboratorTimeoutError) Unwrap() []error { return []error{ErrUpstreamTimeout, e.Err} }

// InvalidFilterValueError reports an unknown search filter value.
type InvalidFilterValueError struct {
	Filter string
	Value  string
}

func (e *InvalidFilterValueError) Error() string {
	return fmt.Sprintf("invalid value %q for filter %s", e.Value, e.Filter)
}

func (e *InvalidFilterValueError) Unwrap() error { return ErrInvalidArgument }

// UnreadableDocumentError reports that text could not be extracted from an upload.
type UnreadableDocumentError struct {
	Filename string
	Err      error
}

func (e *UnreadableDocumentError) Error() string {
	return fmt.Sprintf("unreadable document %s: %v", e.Filename, e.Err)
}

func (e *UnreadableDocumentError) Unwrap() []error { return []error{ErrUnreadableDocument, e.Err} }
