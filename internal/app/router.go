package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-cv-search/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-cv-search/internal/adapter/observability"
	"github.com/fairyhunter13/ai-cv-search/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// requestTimeout covers a synchronous multi-chunk extraction.
func requestTimeout(cfg config.Config) time.Duration {
	if cfg.HTTPWriteTimeout > 0 {
		return cfg.HTTPWriteTimeout
	}
	return 5 * time.Minute
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(requestTimeout(cfg)))
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "Location", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1", func(v1 chi.Router) {
		// Writes hit the model provider; limit them per client IP.
		v1.Group(func(wr chi.Router) {
			if cfg.RateLimitPerMin > 0 {
				wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			}
			wr.Post("/cvs", srv.IngestCVHandler())
			wr.Post("/cvs/batch", srv.BatchIngestHandler())
			wr.Put("/candidates/{id}", srv.UpdateCandidateHandler())
			wr.Delete("/candidates/{id}", srv.DeleteCandidateHandler())
		})
		v1.Get("/ingestions/{id}", srv.IngestionStatusHandler())
		v1.Get("/search/semantic", srv.SemanticSearchHandler())
		v1.Get("/search/filter", srv.FilterSearchHandler())
		v1.Get("/skills", srv.SkillsHandler())
		v1.Get("/locations", srv.LocationsHandler())
		v1.Get("/candidates", srv.ListCandidatesHandler())
		v1.Get("/candidates/{id}", srv.GetCandidateHandler())
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
