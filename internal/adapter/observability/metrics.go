package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Estimated tokens sent to and received from the model provider",
		},
		[]string{"provider", "kind"},
	)

	ExtractionChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_chunks_total",
			Help: "Chunks sent through structured extraction by outcome",
		},
		[]string{"outcome"},
	)
	ExtractionRepairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_repairs_total",
			Help: "Model responses that needed the repair pass, by outcome",
		},
		[]string{"outcome"},
	)
	EmbeddingFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_fallbacks_total",
			Help: "Zero-vector substitutions by vector kind and reason",
		},
		[]string{"kind", "reason"},
	)
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_cache_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"},
	)
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Search latency by mode",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"mode"},
	)

	IngestJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_jobs_total",
			Help: "Asynchronous ingestion jobs by status transition",
		},
		[]string{"status"},
	)
	IngestJobsProcessing = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_jobs_processing",
			Help: "Number of ingestion jobs currently processing",
		},
	)
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			AITokensTotal,
			ExtractionChunksTotal,
			ExtractionRepairsTotal,
			EmbeddingFallbacksTotal,
			EmbeddingCacheTotal,
			SearchDuration,
			IngestJobsTotal,
			IngestJobsProcessing,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// RecordEmbeddingFallback counts a zero-vector substitution.
func RecordEmbeddingFallback(kind, reason string) {
	EmbeddingFallbacksTotal.WithLabelValues(kind, reason).Inc()
}

// ObserveSearch records the latency of one search call.
func ObserveSearch(mode string, started time.Time) {
	SearchDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

func StartIngestJob() {
	IngestJobsProcessing.Inc()
	IngestJobsTotal.WithLabelValues("processing").Inc()
}

func CompleteIngestJob() {
	IngestJobsProcessing.Dec()
	IngestJobsTotal.WithLabelValues("completed").Inc()
}

func FailIngestJob() {
	IngestJobsProcessing.Dec()
	IngestJobsTotal.WithLabelValues("failed").Inc()
}
