package httpapi

import (
	"net/http"

	"github.com/fashion-reco/reco-engine/internal/metrics"
)

// registerObservability wires GET /health, /api/health, /api/metrics,
// /api/version (spec.md §6's "Observability" row).
func registerObservability(mux *http.ServeMux, s *Server) {
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /api/health", s.health)
	mux.Handle("GET /api/metrics", metrics.Handler())
	mux.HandleFunc("GET /api/version", s.version)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	count, err := s.Store.CountProducts(r.Context())
	status := "ok"
	if err != nil {
		status = "degraded"
		s.Log.WithError(err).Error("health check: counting products failed")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        status,
		"product_count": count,
	})
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"current_version":    CurrentVersion,
		"supported_versions": SupportedVersions,
		"algorithm":          "LinUCB",
	})
}
