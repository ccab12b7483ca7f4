// Package ratelimiter implements a shared token bucket in Redis so every
// server and worker replica draws from the same provider quota.
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bucket keys for the model provider quotas.
const (
	BucketChat  = "ai:chat"
	BucketEmbed = "ai:embed"
)

// Limiter admits or rejects a unit of work against a named bucket.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig is a token bucket: Capacity tokens refilled at RefillRate per second.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64
}

// PerMinute builds a bucket admitting n requests per minute with a burst of n.
func PerMinute(n int) BucketConfig {
	if n <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{Capacity: int64(n), RefillRate: float64(n) / 60.0}
}

// RedisLimiter evaluates buckets atomically with a Lua script.
type RedisLimiter struct {
	redis   redis.Scripter
	script  *redis.Script
	prefix  string
	mu      sync.RWMutex
	buckets map[string]BucketConfig
	now     func() time.Time
}

// NewRedisLimiter returns nil when rdb is nil; a nil limiter admits everything.
func NewRedisLimiter(rdb redis.Scripter, buckets map[string]BucketConfig) *RedisLimiter {
	if rdb == nil {
		return nil
	}
	cp := make(map[string]BucketConfig, len(buckets))
	for k, v := range buckets {
		cp[k] = v
	}
	return &RedisLimiter{
		redis:   rdb,
		script:  redis.NewScript(tokenBucketScript),
		prefix:  "rate:",
		buckets: cp,
		now:     time.Now,
	}
}

// tokenBucketScript refills the bucket for the elapsed time, then takes cost
// tokens if available. Returns {allowed, tokens, retry_after_seconds}.
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local data = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(data[1]) or capacity
local last_refill = tonumber(data[2]) or now

local delta = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_after = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
elseif refill_rate > 0 then
  retry_after = (cost - tokens) / refill_rate
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("EXPIRE", key, math.ceil(capacity / refill_rate) + 60)

return { allowed, tostring(tokens), tostring(retry_after) }
`

// Allow takes cost tokens from bucket key. Unknown buckets, a nil limiter and
// Redis failures all admit the call; the provider's own 429s still apply.
func (l *RedisLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	l.mu.RLock()
	cfg, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok || cfg.Capacity <= 0 || cfg.RefillRate <= 0 {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(l.now().UnixNano()) / 1e9
	res, err := l.script.Run(ctx, l.redis, []string{l.prefix + key}, cfg.Capacity, cfg.RefillRate, nowSec, cost).Slice()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, err
	}
	if len(res) < 3 {
		slog.Error("redis rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}
	allowed, _ := res[0].(int64)
	retryAfter := time.Duration(parseFloat(res[2]) * float64(time.Second))
	return allowed == 1, retryAfter, nil
}

// SetBucket updates or creates the configuration of a bucket.
func (l *RedisLimiter) SetBucket(key string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = cfg
}
