// Package app wires application components and startup helpers.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	qdrantcli "github.com/fairyhunter13/ai-cv-search/internal/adapter/vector/qdrant"
)

// EnsureCandidateCollection creates the candidate vector collection, retrying
// while Qdrant is still starting.
func EnsureCandidateCollection(ctx context.Context, vectors *qdrantcli.CandidateVectors, maxWait time.Duration) error {
	if vectors == nil {
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = maxWait
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := vectors.EnsureCollection(ctx)
		if err != nil {
			slog.Warn("qdrant ensure collection failed", slog.Int("attempt", attempt), slog.Any("error", err))
		}
		return err
	}, backoff.WithContext(bo, ctx))
}
