package httpapi

import (
	"net/http"
	"time"

	"github.com/fashion-reco/reco-engine/internal/apperror"
	"github.com/fashion-reco/reco-engine/internal/guard"
	"github.com/fashion-reco/reco-engine/internal/model"

	"github.com/google/uuid"
)

// registerSession wires POST /api/session (spec.md §6).
func registerSession(mux *http.ServeMux, s *Server) {
	mux.HandleFunc("POST /api/session", s.createSession)
}

type createSessionRequest struct {
	UserID  string         `json:"userId"`
	Context map[string]any `json:"context,omitempty"`
}

// createSession handles POST /api/session: { userId, context? } -> 201.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindValidation, "reading request body", err))
		return
	}

	var req createSessionRequest
	if err := decodeJSON(body, &req); err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
		return
	}
	if req.UserID == "" {
		writeAppError(w, apperror.New(apperror.KindValidation, "userId is required").
			WithDetails(map[string]any{"field": "userId"}))
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

	now := time.Now()
	sess := &model.Session{
		SessionID:         uuid.NewString(),
		UserID:            req.UserID,
		Alpha:             model.DefaultAlpha,
		Dimensions:        s.Config.FeatureDimensions,
		TotalInteractions: 0,
		Status:            model.SessionActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Store.CreateSession(r.Context(), sess); err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindInternal, "creating session", err))
	} else {
		writeJSON(w, http.StatusCreated, map[string]any{
			"success":    true,
			"session_id": sess.SessionID,
			"algorithm":  "LinUCB",
			"configuration": map[string]any{
				"alpha":               sess.Alpha,
				"feature_dimensions":  sess.Dimensions,
				"exploration_strategy": "adaptive-alpha-decay",
			},
		})
	}

	if idempotencyKey != "" {
		if err := s.Guard.CacheIdempotentResponse(r.Context(), idempotencyKey, rec.status, rec.buf.Bytes(), guardNow); err != nil {
			s.Log.WithError(err).Warn("caching idempotent response failed", "idempotency_key", idempotencyKey)
		}
	}
}
