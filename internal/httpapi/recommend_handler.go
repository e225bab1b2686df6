package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fashion-reco/reco-engine/internal/apperror"
	"github.com/fashion-reco/reco-engine/internal/guard"
	"github.com/fashion-reco/reco-engine/internal/recommend"
)

// registerRecommend wires GET /api/recommend/{sessionId} and POST
// /api/recommendations/batch (spec.md §6).
func registerRecommend(mux *http.ServeMux, s *Server) {
	mux.HandleFunc("GET /api/recommend/{sessionId}", s.recommendOne)
	mux.HandleFunc("POST /api/recommendations/batch", s.recommendBatch)
}

func parseFilters(r *http.Request) recommend.Filters {
	q := r.URL.Query()
	f := recommend.Filters{Category: q.Get("category")}
	if v := q.Get("minPrice"); v != "" {
		f.MinPrice, _ = strconv.ParseFloat(v, 64)
	}
	if v := q.Get("maxPrice"); v != "" {
		f.MaxPrice, _ = strconv.ParseFloat(v, 64)
	}
	return f
}

// recommendOne handles GET /api/recommend/{sessionId}. The "limit" query
// parameter documented in spec.md §6 has no defined meaning against this
// endpoint's singular response shape; it is accepted but currently a
// no-op — /api/recommendations/batch is the path to request more than
// one recommendation per session.
func (s *Server) recommendOne(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	resp, err := s.Engine.Recommend(r.Context(), recommend.Request{
		SessionID: sessionID,
		Filters:   parseFilters(r),
		Count:     1,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	rec := resp.Recommendations[0]
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"recommendation": map[string]any{
			"product":           rec.Product,
			"confidence_score":  rec.ConfidenceScore,
			"base_score":        rec.BaseScore,
			"diversity_bonus":   rec.DiversityBonus,
			"exploration_bonus": rec.ExplorationBonus,
			"algorithm":         "LinUCB",
			"reasoning":         resp.Reasoning,
		},
		"user_stats": map[string]any{
			"total_interactions": resp.TotalInteractions,
			"confidence_tier":    resp.ConfidenceTier,
			"alpha":              resp.Alpha,
			"products_seen":      resp.ProductsSeen,
		},
		"diversity_info": map[string]any{
			"excluded_products": resp.ExcludedCount,
		},
		"filters_applied": map[string]any{
			"min_price": r.URL.Query().Get("minPrice"),
			"max_price": r.URL.Query().Get("maxPrice"),
			"category":  r.URL.Query().Get("category"),
		},
		"from_cache": resp.FromCache,
	})
}

type batchRecommendRequest struct {
	Requests []struct {
		SessionID string             `json:"sessionId"`
		Count     int                `json:"count,omitempty"`
		Filters   *batchFiltersInput `json:"filters,omitempty"`
	} `json:"requests"`
}

type batchFiltersInput struct {
	MinPrice float64 `json:"minPrice"`
	MaxPrice float64 `json:"maxPrice"`
	Category string  `json:"category"`
}

// recommendBatch handles POST /api/recommendations/batch: up to
// recommend.MaxBatchSize items, each resolved independently so one
// session's failure never blocks another's result.
func (s *Server) recommendBatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindValidation, "reading request body", err))
		return
	}

	var req batchRecommendRequest
	if err := decodeJSON(body, &req); err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
		return
	}
	if len(req.Requests) == 0 {
		writeAppError(w, apperror.New(apperror.KindValidation, "requests must not be empty"))
		return
	}
	if len(req.Requests) > recommend.MaxBatchSize {
		writeAppError(w, apperror.New(apperror.KindValidation, "batch exceeds the maximum of 10 requests").
			WithDetails(map[string]any{"max": recommend.MaxBatchSize, "got": len(req.Requests)}))
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	fingerprint := guard.Fingerprint(clientIP(r), r.Method, r.URL.Path, body, r.URL.Query())
	guardNow := time.Now()

	decision, err := s.Guard.Check(r.Context(), fingerprint, idempotencyKey, nil, guardNow)
	if err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindInternal, "guard check failed", err))
		return
	}
	if decision.IdempotentReplay {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(decision.CachedResponse.StatusCode)
		_, _ = w.Write(decision.CachedResponse.Body)
		return
	}
	if !decision.Allow {
		writeAppError(w, guardDecisionError(decision))
		return
	}
	if err := s.Guard.Record(r.Context(), fingerprint, idempotencyKey, nil, "", guardNow); err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindInternal, "guard record failed", err))
		return
	}

	rec := &recorder{ResponseWriter: w, status: http.StatusOK}
	w = rec

	items := make([]recommend.BatchItem, len(req.Requests))
	for i, item := range req.Requests {
		f := recommend.Filters{}
		if item.Filters != nil {
			f = recommend.Filters{MinPrice: item.Filters.MinPrice, MaxPrice: item.Filters.MaxPrice, Category: item.Filters.Category}
		}
		items[i] = recommend.BatchItem{SessionID: item.SessionID, Count: item.Count, Filters: f}
	}

	results := s.Engine.RecommendBatch(r.Context(), items)

	out := make([]map[string]any, len(results))
	successCount := 0
	for i, res := range results {
		if res.Err != nil {
			appErr, ok := apperror.As(res.Err)
			kind := "internal"
			msg := res.Err.Error()
			if ok {
				kind = string(appErr.Kind)
				msg = appErr.Message
			}
			out[i] = map[string]any{"session_id": items[i].SessionID, "success": false, "error": kind, "message": msg}
			continue
		}
		successCount++
		out[i] = map[string]any{
			"session_id":      items[i].SessionID,
			"success":         true,
			"recommendations": res.Response.Recommendations,
			"partial":         res.Response.Partial,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"results":           out,
		"successful_count":  successCount,
		"failed_count":       len(results) - successCount,
	})

	if idempotencyKey != "" {
		if err := s.Guard.CacheIdempotentResponse(r.Context(), idempotencyKey, rec.status, rec.buf.Bytes(), guardNow); err != nil {
			s.Log.WithError(err).Warn("caching idempotent response failed", "idempotency_key", idempotencyKey)
		}
	}
}
