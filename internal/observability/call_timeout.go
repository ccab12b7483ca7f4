package observability

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// CallWithTimeout runs fn with a child context bounded by timeout. When the
// child deadline fires while the parent is still live the failure becomes a
// CollaboratorTimeoutError; parent cancellation is returned as ctx.Err().
// A non-positive timeout runs fn under ctx unchanged.
func CallWithTimeout(ctx context.Context, collaborator string, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(cctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var te *domain.CollaboratorTimeoutError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		LoggerFromContext(ctx).Warn("collaborator call timed out",
			slog.String("collaborator", collaborator),
			slog.Duration("timeout", timeout),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
		return &domain.CollaboratorTimeoutError{Collaborator: collaborator, Timeout: timeout, Err: err}
	}
	return err
}
