// Package real implements domain.AIClient against an OpenAI-compatible API.
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-cv-search/internal/adapter/observability"
	"github.com/fairyhunter13/ai-cv-search/internal/config"
	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	"github.com/fairyhunter13/ai-cv-search/internal/service/ratelimiter"
)

const provider = "openai"

// Client implements domain.AIClient with chat completions and embeddings.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	limiter ratelimiter.Limiter
	counter *tokencount.Counter
	backoff func() backoff.BackOff
	chatCB  *breaker
	embedCB *breaker
}

// Option configures a Client.
type Option func(*Client)

// WithLimiter draws every call from the shared token buckets.
func WithLimiter(l ratelimiter.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithCircuitBreaker fails calls fast once threshold consecutive calls to
// an endpoint failed, probing again after recovery. threshold 0 disables it.
func WithCircuitBreaker(threshold int, recovery time.Duration) Option {
	return func(c *Client) {
		c.chatCB = newBreaker("chat", threshold, recovery)
		c.embedCB = newBreaker("embed", threshold, recovery)
	}
}

// New constructs a client. Per-call deadlines come from the caller's context.
func New(cfg config.Config, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		hc:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		counter: tokencount.DefaultCounter,
		chatCB:  newBreaker("chat", 5, 30*time.Second),
		embedCB: newBreaker("embed", 5, 30*time.Second),
	}
	c.backoff = c.defaultBackoff
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) defaultBackoff() backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime, expo.InitialInterval, expo.MaxInterval, expo.Multiplier = c.cfg.GetAIBackoffConfig()
	return expo
}

// statusError is a non-2xx provider response.
type statusError struct {
	Op         string
	Status     int
	RetryAfter time.Duration
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Op, e.Status, e.Body)
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ChatJSON runs one completion in JSON mode and returns the message content.
func (c *Client) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cfg.OpenAIAPIKey == "" || c.cfg.ChatModel == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY or CHAT_MODEL missing", domain.ErrInvalidArgument)
	}
	if err := c.admit(ctx, ratelimiter.BucketChat, domain.CollaboratorLLM); err != nil {
		return "", err
	}

	body := map[string]any{
		"model":           c.cfg.ChatModel,
		"temperature":     c.cfg.ChatTemperature,
		"max_tokens":      maxTokens,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	if !c.chatCB.allow() {
		return "", &domain.CollaboratorUnavailableError{Collaborator: domain.CollaboratorLLM, Err: errCircuitOpen}
	}
	var out chatResponse
	err := c.post(ctx, "chat", "/chat/completions", body, &out)
	if err != nil {
		err = classify(ctx, domain.CollaboratorLLM, err)
	}
	c.chatCB.record(err)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", &domain.CollaboratorUnavailableError{Collaborator: domain.CollaboratorLLM, Err: errors.New("empty choices")}
	}
	content := out.Choices[0].Message.Content

	if out.Usage != nil {
		c.recordTokens(out.Usage.PromptTokens, out.Usage.CompletionTokens)
	} else {
		u := c.counter.CalculateUsage(systemPrompt, userPrompt, content, c.cfg.ChatModel)
		c.recordTokens(u.PromptTokens, u.CompletionTokens)
	}
	return content, nil
}

// Embed returns one vector per input, in input order.
func (c *Client) Embed(ctx domain.Context, texts []string) ([][]float32, error) {
	if c.cfg.OpenAIAPIKey == "" || c.cfg.EmbeddingsModel == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY or EMBEDDINGS_MODEL missing", domain.ErrInvalidArgument)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := c.admit(ctx, ratelimiter.BucketEmbed, domain.CollaboratorEmbedding); err != nil {
		return nil, err
	}

	body := map[string]any{"model": c.cfg.EmbeddingsModel, "input": texts}
	if c.cfg.EmbeddingDim > 0 && strings.HasPrefix(c.cfg.EmbeddingsModel, "text-embedding-3") {
		body["dimensions"] = c.cfg.EmbeddingDim
	}
	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Usage *struct {
			PromptTokens int `json:"prompt_tokens"`
		} `json:"usage"`
	}
	if !c.embedCB.allow() {
		return nil, &domain.CollaboratorUnavailableError{Collaborator: domain.CollaboratorEmbedding, Err: errCircuitOpen}
	}
	err := c.post(ctx, "embed", "/embeddings", body, &out)
	if err != nil {
		err = classify(ctx, domain.CollaboratorEmbedding, err)
	}
	c.embedCB.record(err)
	if err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, &domain.CollaboratorUnavailableError{
			Collaborator: domain.CollaboratorEmbedding,
			Err:          fmt.Errorf("got %d embeddings for %d inputs", len(out.Data), len(texts)),
		}
	}
	res := make([][]float32, len(texts))
	for i, d := range out.Data {
		idx := d.Index
		if idx < 0 || idx >= len(res) || res[idx] != nil {
			idx = i
		}
		res[idx] = d.Embedding
	}
	if out.Usage != nil {
		observability.AITokensTotal.WithLabelValues(provider, "embedding").Add(float64(out.Usage.PromptTokens))
	}
	return res, nil
}

// admit consults the shared limiter. Limiter failures admit the call.
func (c *Client) admit(ctx context.Context, bucket, collaborator string) error {
	if c.limiter == nil {
		return nil
	}
	allowed, retryAfter, err := c.limiter.Allow(ctx, bucket, 1)
	if err != nil || allowed {
		return nil
	}
	slog.Warn("ai call rejected by local rate limiter",
		slog.String("bucket", bucket),
		slog.Duration("retry_after", retryAfter))
	return &domain.RateLimitedError{Collaborator: collaborator, RetryAfter: retryAfter, Err: domain.ErrRateLimited}
}

// maxRetryAfter bounds how long a provider Retry-After may hold a call; a
// longer hint ends the retries and surfaces the rate limit to the caller.
const maxRetryAfter = 30 * time.Second

// retryAfterBackOff stretches the next delay to the provider's Retry-After.
type retryAfterBackOff struct {
	backoff.BackOff
	hint time.Duration
}

func (b *retryAfterBackOff) Reset() {
	b.hint = 0
	b.BackOff.Reset()
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	hint := b.hint
	b.hint = 0
	switch {
	case next == backoff.Stop:
		return backoff.Stop
	case hint > maxRetryAfter:
		return backoff.Stop
	case hint > next:
		return hint
	}
	return next
}

// post sends body with retries: 429 and 5xx are retried with exponential
// backoff, waiting at least the provider's Retry-After; other 4xx fail at once.
func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("encode %s request: %w", op, err))
	}
	endpoint := strings.TrimRight(c.cfg.OpenAIBaseURL, "/") + path
	bo := &retryAfterBackOff{BackOff: c.backoff()}

	attempt := func() error {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(req)
		observability.AIRequestsTotal.WithLabelValues(provider, op).Inc()
		observability.AIRequestDuration.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			se := &statusError{
				Op:         op,
				Status:     resp.StatusCode,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Body:       strings.TrimSpace(string(snippet)),
			}
			slog.Warn("ai provider non-2xx",
				slog.String("provider", provider),
				slog.String("op", op),
				slog.Int("status", resp.StatusCode),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
				slog.String("body", se.Body))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				bo.hint = se.RetryAfter
				return se
			}
			return backoff.Permanent(se)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", op, err)
		}
		return nil
	}

	return backoff.Retry(attempt, backoff.WithContext(bo, ctx))
}

func (c *Client) recordTokens(prompt, completion int) {
	observability.AITokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	observability.AITokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
}

// classify maps a failed call to the domain error taxonomy.
func classify(ctx context.Context, collaborator string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.CollaboratorTimeoutError{Collaborator: collaborator, Err: err}
	}
	var se *statusError
	if errors.As(err, &se) && se.Status == http.StatusTooManyRequests {
		return &domain.RateLimitedError{Collaborator: collaborator, RetryAfter: se.RetryAfter, Err: err}
	}
	return &domain.CollaboratorUnavailableError{Collaborator: collaborator, Err: err}
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
