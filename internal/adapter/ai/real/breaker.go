package real

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// circuitState is the state of one endpoint's breaker.
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var errCircuitOpen = errors.New("circuit open")

// breaker fails calls fast after threshold consecutive provider failures.
// After recovery it lets a single probe through; the probe's outcome closes
// or reopens the circuit.
type breaker struct {
	mu        sync.Mutex
	op        string
	threshold int
	recovery  time.Duration
	now       func() time.Time

	state       circuitState
	failures    int
	openedAt    time.Time
	probeActive bool
}

func newBreaker(op string, threshold int, recovery time.Duration) *breaker {
	return &breaker{op: op, threshold: threshold, recovery: recovery, now: time.Now}
}

// allow reports whether a call may go out.
func (b *breaker) allow() bool {
	if b == nil || b.threshold <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case circuitOpen:
		if b.now().Sub(b.openedAt) < b.recovery {
			return false
		}
		b.state = circuitHalfOpen
		b.probeActive = true
		return true
	case circuitHalfOpen:
		if b.probeActive {
			return false
		}
		b.probeActive = true
		return true
	default:
		return true
	}
}

func (b *breaker) success() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != circuitClosed {
		slog.Info("ai circuit closed", slog.String("op", b.op))
	}
	b.state = circuitClosed
	b.failures = 0
	b.probeActive = false
}

func (b *breaker) failure() {
	if b == nil || b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.probeActive = false
	if b.state == circuitHalfOpen || b.failures >= b.threshold {
		if b.state != circuitOpen {
			slog.Warn("ai circuit opened",
				slog.String("op", b.op),
				slog.Int("consecutive_failures", b.failures))
		}
		b.state = circuitOpen
		b.openedAt = b.now()
	}
}

func (b *breaker) current() circuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// record feeds a classified call outcome into b. Rate limiting, rejected
// requests (4xx) and caller cancellation are ignored.
func (b *breaker) record(err error) {
	if b == nil {
		return
	}
	var unavailable *domain.CollaboratorUnavailableError
	var timeout *domain.CollaboratorTimeoutError
	var se *statusError
	switch {
	case err == nil:
		b.success()
	case errors.Is(err, context.Canceled):
	case errors.As(err, &se) && se.Status < http.StatusInternalServerError:
	case errors.As(err, &unavailable), errors.As(err, &timeout):
		b.failure()
		return
	}
	if err != nil {
		// release a half-open probe without judging it
		b.mu.Lock()
		b.probeActive = false
		b.mu.Unlock()
	}
}
