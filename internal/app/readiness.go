package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/ai-cv-search/internal/adapter/httpserver"
)

// Pinger is anything with a context-aware Ping, such as a pgx pool or the Qdrant and Tika clients.
type Pinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks returns the db, qdrant and tika probes, plus redis when
// a client is configured. A nil dependency reports "not configured".
func BuildReadinessChecks(db, qdrant, tika Pinger, rdb redis.UniversalClient) []httpserver.Check {
	checks := []httpserver.Check{
		{Name: "db", Probe: probe("db", db)},
		{Name: "qdrant", Probe: probe("qdrant", qdrant)},
		{Name: "tika", Probe: probe("tika", tika)},
	}
	if rdb != nil {
		checks = append(checks, httpserver.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return checks
}

func probe(name string, p Pinger) func(context.Context) error {
	return func(ctx context.Context) error {
		if p == nil {
			return fmt.Errorf("%s not configured", name)
		}
		return p.Ping(ctx)
	}
}
