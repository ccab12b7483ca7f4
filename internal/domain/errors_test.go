package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrors_UnwrapToSentinels(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"chunking", &ChunkingError{Reason: "empty text"}, ErrInvalidArgument},
		{"parse", &ExtractionParseError{ChunkIndex: 2, Raw: "{", Err: cause}, ErrSchemaInvalid},
		{"empty merge", &EmptyMergeError{}, ErrInternal},
		{"unavailable", &CollaboratorUnavailableError{Collaborator: CollaboratorLLM, Err: cause}, ErrUpstreamUnavailable},
		{"rate limited", &RateLimitedError{Collaborator: CollaboratorLLM, RetryAfter: time.Second}, ErrUpstreamRateLimit},
		{"timeout", &CollaboratorTimeoutError{Collaborator: CollaboratorEmbedding, Timeout: time.Second}, ErrUpstreamTimeout},
		{"filter", &InvalidFilterValueError{Filter: "education_level", Value: "kindergarten"}, ErrInvalidArgument},
		{"unreadable", &UnreadableDocumentError{Filename: "cv.pdf", Err: cause}, ErrUnreadableDocument},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("op=test: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.target)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestTypedErrors_CauseIsReachable(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("op=x: %w", &CollaboratorUnavailableError{Collaborator: CollaboratorLLM, Err: cause})
	assert.ErrorIs(t, err, cause)

	var unavailable *CollaboratorUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, CollaboratorLLM, unavailable.Collaborator)
}

func TestExtractionParseError_CarriesRaw(t *testing.T) {
	err := error(&ExtractionParseError{ChunkIndex: 1, Raw: "not json", Err: errors.New("bad")})
	var pe *ExtractionParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "not json", pe.Raw)
	assert.Contains(t, err.Error(), "chunk 1")
}
