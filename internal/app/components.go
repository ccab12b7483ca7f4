package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/ai/real"
	httpserver "github.com/fairyhunter13/ai-cv-search/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-cv-search/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-cv-search/internal/adapter/textextractor/tika"
	qdrantcli "github.com/fairyhunter13/ai-cv-search/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/ai-cv-search/internal/config"
	"github.com/fairyhunter13/ai-cv-search/internal/embedding"
	"github.com/fairyhunter13/ai-cv-search/internal/extraction"
	"github.com/fairyhunter13/ai-cv-search/internal/search"
	"github.com/fairyhunter13/ai-cv-search/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-cv-search/internal/usecase"
)

// Components is the dependency graph shared by the server, worker and CLI.
type Components struct {
	Cfg        config.Config
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	AI         *real.Client
	Tika       *tika.Client
	Qdrant     *qdrantcli.Client
	Vectors    *qdrantcli.CandidateVectors
	Jobs       *postgres.IngestJobRepo
	Pipeline   *extraction.Pipeline
	Embedder   *embedding.Generator
	Candidates usecase.CandidateService
}

// NewAIClient builds the model provider client, throttled through Redis when rdb is set.
func NewAIClient(cfg config.Config, rdb *redis.Client) *real.Client {
	var opts []real.Option
	if rdb != nil {
		lim := ratelimiter.NewRedisLimiter(rdb, map[string]ratelimiter.BucketConfig{
			ratelimiter.BucketChat:  ratelimiter.PerMinute(cfg.AIChatRPM),
			ratelimiter.BucketEmbed: ratelimiter.PerMinute(cfg.AIEmbedRPM),
		})
		opts = append(opts, real.WithLimiter(lim))
	}
	return real.New(cfg, opts...)
}

// NewPipeline builds the chunk, extract and merge pipeline from configuration.
func NewPipeline(cfg config.Config, ai *real.Client) *extraction.Pipeline {
	maxLen, overlap := cfg.ChunkConfig()
	ext := extraction.NewExtractor(ai,
		extraction.WithMaxTokens(cfg.ChatMaxTokens),
		extraction.WithCallTimeout(cfg.AICallTimeout))
	return extraction.NewPipeline(ext,
		extraction.WithChunking(maxLen, overlap),
		extraction.WithConcurrency(cfg.ExtractConcurrency))
}

// NewRedis connects to REDIS_URL; it returns nil when Redis is not configured.
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("op=app.redis: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis ping failed; rate limiter fails open until it recovers", slog.Any("error", err))
	}
	return rdb, nil
}

// Build connects to every backing service and wires the candidate service.
func Build(ctx context.Context, cfg config.Config) (*Components, error) {
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	rdb, err := NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, err
	}

	ai := NewAIClient(cfg, rdb)
	embedder, err := embedding.NewGenerator(ai, cfg.EmbedCacheSize,
		embedding.WithDimension(cfg.EmbeddingDim),
		embedding.WithCallTimeout(cfg.AICallTimeout))
	if err != nil {
		pool.Close()
		return nil, err
	}
	qcli := qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey)
	vectors := qdrantcli.NewCandidateVectors(qcli, cfg.QdrantCollection, cfg.EmbeddingDim)

	repo := postgres.NewCandidateRepo(pool)
	pipeline := NewPipeline(cfg, ai)
	engine := search.NewEngine(repo, vectors, embedder)

	return &Components{
		Cfg:        cfg,
		Pool:       pool,
		Redis:      rdb,
		AI:         ai,
		Tika:       tika.New(cfg.TikaURL, tika.WithTimeout(cfg.AICallTimeout)),
		Qdrant:     qcli,
		Vectors:    vectors,
		Jobs:       postgres.NewIngestJobRepo(pool),
		Pipeline:   pipeline,
		Embedder:   embedder,
		Candidates: usecase.NewCandidateService(repo, repo, vectors, pipeline, embedder, engine),
	}, nil
}

// ReadinessChecks probes the components this process depends on.
func (c *Components) ReadinessChecks() []httpserver.Check {
	var rdb redis.UniversalClient
	if c.Redis != nil {
		rdb = c.Redis
	}
	return BuildReadinessChecks(c.Pool, c.Qdrant, c.Tika, rdb)
}

// Close releases pooled connections.
func (c *Components) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
