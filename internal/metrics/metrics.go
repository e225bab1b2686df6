// Package metrics exports Prometheus counters/histograms for the HTTP
// layer and the domain components (recommend, feedback, guard, cache).
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/histogram/gauge the service exports.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	RecommendationsTotal  *prometheus.CounterVec
	RecommendDuration     prometheus.Histogram
	FeedbackTotal         *prometheus.CounterVec
	FeedbackDuration      prometheus.Histogram

	GuardRejectionsTotal *prometheus.CounterVec
	RateLimitRejections  *prometheus.CounterVec

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheSize   prometheus.Gauge

	DBQueryTotal    *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec
}

// New builds a Metrics instance under the given Prometheus namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests"},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "http_requests_in_flight", Help: "Current in-flight HTTP requests"},
		),
		RecommendationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "recommendations_total", Help: "Total recommend() calls by outcome"},
			[]string{"outcome"},
		),
		RecommendDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "recommend_duration_seconds",
				Help:      "recommend() pipeline duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		FeedbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "feedback_total", Help: "Total feedback() calls by action and outcome"},
			[]string{"action", "outcome"},
		),
		FeedbackDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "feedback_duration_seconds",
				Help:      "feedback() pipeline duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		GuardRejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "guard_rejections_total", Help: "Total C7 guard rejections by kind"},
			[]string{"kind"},
		),
		RateLimitRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejections_total", Help: "Total C8 rate limit rejections by class"},
			[]string{"class"},
		),
		CacheHits: promauto.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "cache_hits_total", Help: "Total C9 cache hits"},
		),
		CacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "cache_misses_total", Help: "Total C9 cache misses"},
		),
		CacheSize: promauto.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "cache_size", Help: "Current C9 cache entry count"},
		),
		DBQueryTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "db_queries_total", Help: "Total storage operations"},
			[]string{"operation", "collection"},
		),
		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation", "collection"},
		),
	}
}

// Middleware wraps next with request counting/timing.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath collapses high-cardinality path segments (session,
// product ids) into placeholders so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/recommend/"):
		return "/api/recommend/{sessionId}"
	case strings.HasPrefix(path, "/api/feedback/status/"):
		return "/api/feedback/status/{session}/{product}/{action}"
	case strings.HasPrefix(path, "/api/cache/invalidate/session/"):
		return "/api/cache/invalidate/session/{id}"
	default:
		return path
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler { return promhttp.Handler() }

// RecordDBQuery records one storage operation's outcome.
func (m *Metrics) RecordDBQuery(operation, collection string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, collection).Inc()
	m.DBQueryDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
}
