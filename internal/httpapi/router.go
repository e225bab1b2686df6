// Package httpapi is the HTTP transport for the recommendation engine:
// request/response envelopes, versioning, rate limiting, the C7 guard,
// and the per-resource handlers that front the recommend/feedback/
// catalog domain packages.
package httpapi

import (
	"context"
	"net/http"

	"github.com/fashion-reco/reco-engine/internal/config"
	"github.com/fashion-reco/reco-engine/internal/feedback"
	"github.com/fashion-reco/reco-engine/internal/guard"
	"github.com/fashion-reco/reco-engine/internal/logging"
	"github.com/fashion-reco/reco-engine/internal/metrics"
	"github.com/fashion-reco/reco-engine/internal/model"
	"github.com/fashion-reco/reco-engine/internal/ratelimit"
	"github.com/fashion-reco/reco-engine/internal/reccache"
	"github.com/fashion-reco/reco-engine/internal/recommend"
)

// SessionStore is the subset of mongostore.Store the session handler
// needs directly, beyond what recommend.Store/feedback.Store cover.
type SessionStore interface {
	CreateSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	CountProducts(ctx context.Context) (int64, error)
}

// Server holds every component the HTTP layer wires together. All
// fields besides Cache are required; Cache may be nil, and Guard's
// backing Tables may be in-memory or Redis-backed, chosen by the caller.
type Server struct {
	Store    SessionStore
	Engine   *recommend.Engine
	Feedback *feedback.Processor
	Guard    *guard.Guard
	Limiter  *ratelimit.Limiter
	Cache    *reccache.Cache
	Metrics  *metrics.Metrics
	Config   *config.Config
	Log      *logging.Logger
}

// Router assembles the full middleware stack and endpoint surface:
// CORS -> metrics -> logging -> versioning -> rate limit -> mux. The C7
// guard's idempotency-key and fingerprint checks are applied per-handler
// rather than in the middleware chain, since only the feedback handlers
// carry a feedback key to check against; session/recommend/feedback all
// call guard.Check/guard.Record themselves (spec.md §4.7).
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	registerObservability(mux, s)
	registerSession(mux, s)
	registerRecommend(mux, s)
	registerFeedback(mux, s)
	registerAdmin(mux, s)

	handler := chain(mux,
		corsMiddleware(s.Config.CORSOrigins),
		s.Metrics.Middleware,
		loggingMiddleware(s.Log),
		versioningMiddleware,
		rateLimitMiddleware(s.Limiter, s.Metrics),
	)
	return handler
}
