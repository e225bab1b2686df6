package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fashion-reco/reco-engine/internal/logging"
	"github.com/fashion-reco/reco-engine/internal/metrics"
	"github.com/fashion-reco/reco-engine/internal/ratelimit"
)

// loggingMiddleware logs every completed request via Logger.HTTPRequestLog,
// independent of the Prometheus counters s.Metrics.Middleware records.
func loggingMiddleware(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			log.HTTPRequestLog(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), clientIP(r))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// corsMiddleware echoes the configured allow-list (or "*") on every
// response and short-circuits preflight OPTIONS requests.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAll := len(origins) == 0 || (len(origins) == 1 && origins[0] == "*")
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, API-Version, Idempotency-Key")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware applies the C8 per-IP sliding window to every
// request, tagging the bucket by ClassFor(path) (spec.md §4.8).
func rateLimitMiddleware(limiter *ratelimit.Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := ratelimit.ClassFor(r.URL.Path)
			result := limiter.Allow(clientIP(r), class, time.Now())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", result.ResetAt.UTC().Format(time.RFC3339))

			if !result.Allowed {
				m.RateLimitRejections.WithLabelValues(string(class)).Inc()
				retrySeconds := int(result.RetryAfter.Seconds())
				if retrySeconds < 1 {
					retrySeconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
				writeAppError(w, rateLimitedError(retrySeconds))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
