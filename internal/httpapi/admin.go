package httpapi

import "net/http"

// registerAdmin wires the guard and cache administration endpoints
// (spec.md §6): duplicate-detection stats/reset and cache stats/clear/
// invalidate.
func registerAdmin(mux *http.ServeMux, s *Server) {
	mux.HandleFunc("GET /api/duplicate-detection/stats", s.duplicateDetectionStats)
	mux.HandleFunc("POST /api/duplicate-detection/reset", s.duplicateDetectionReset)

	mux.HandleFunc("GET /api/cache/stats", s.cacheStats)
	mux.HandleFunc("POST /api/cache/clear", s.cacheClear)
	mux.HandleFunc("POST /api/cache/invalidate/session/{id}", s.cacheInvalidateSession)
}

func (s *Server) duplicateDetectionStats(w http.ResponseWriter, r *http.Request) {
	counters, err := s.Guard.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "internal", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"request_hashes":  counters.RequestHashes,
		"feedback_keys":   counters.FeedbackKeys,
		"idempotent_keys": counters.IdempotentKeys,
	})
}

// duplicateDetectionReset is dev-only, gated on Config.EnableDebugRoutes
// (spec.md §6's "Dev-only reset" note).
func (s *Server) duplicateDetectionReset(w http.ResponseWriter, r *http.Request) {
	if !s.Config.EnableDebugRoutes {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "not_found"})
		return
	}
	if err := s.Guard.Reset(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "internal", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	if s.Cache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "enabled": false})
		return
	}
	stats := s.Cache.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"enabled": true,
		"hits":    stats.Hits,
		"misses":  stats.Misses,
		"size":    stats.Size,
	})
}

func (s *Server) cacheClear(w http.ResponseWriter, r *http.Request) {
	if s.Cache != nil {
		s.Cache.Clear()
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) cacheInvalidateSession(w http.ResponseWriter, r *http.Request) {
	if s.Cache != nil {
		s.Cache.InvalidateSession(r.PathValue("id"))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
