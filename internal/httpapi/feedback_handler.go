package httpapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/fashion-reco/reco-engine/internal/apperror"
	"github.com/fashion-reco/reco-engine/internal/feedback"
	"github.com/fashion-reco/reco-engine/internal/guard"
	"github.com/fashion-reco/reco-engine/internal/model"
)

// registerFeedback wires POST /api/feedback, POST /api/feedback/batch,
// and GET /api/feedback/status/{session}/{product}/{action} (spec.md
// §6).
func registerFeedback(mux *http.ServeMux, s *Server) {
	mux.HandleFunc("POST /api/feedback", s.postFeedback)
	mux.HandleFunc("POST /api/feedback/batch", s.postFeedbackBatch)
	mux.HandleFunc("GET /api/feedback/status/{session}/{product}/{action}", s.feedbackStatus)
}

type feedbackRequest struct {
	SessionID string         `json:"session_id"`
	ProductID string         `json:"product_id"`
	Action    string         `json:"action"`
	Context   map[string]any `json:"context,omitempty"`
}

// recorder captures the status/body a handler writes so it can be
// cached verbatim for idempotency replay (spec.md §4.7's byte-identical
// replay requirement).
type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (rw *recorder) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recorder) Write(b []byte) (int, error) {
	rw.buf.Write(b)
	return rw.ResponseWriter.Write(b)
}

// postFeedback handles POST /api/feedback, applying the C7 guard's
// precedence list before the C6 pipeline runs (spec.md §4.6, §4.7).
func (s *Server) postFeedback(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindValidation, "reading request body", err))
		return
	}
	var req feedbackRequest
	if err := decodeJSON(body, &req); err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
		return
	}
	action := model.Action(req.Action)
	if !action.Valid() {
		writeAppError(w, apperror.New(apperror.KindValidation, "action must be one of love|like|dislike|skip|neutral").
			WithDetails(map[string]any{"action": req.Action}))
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	fingerprint := guard.Fingerprint(clientIP(r), r.Method, r.URL.Path, body, r.URL.Query())
	feedbackKey := &guard.FeedbackKey{SessionID: req.SessionID, ProductID: req.ProductID}
	now := time.Now()

	decision, err := s.Guard.Check(r.Context(), fingerprint, idempotencyKey, feedbackKey, now)
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
	if err := s.Guard.Record(r.Context(), fingerprint, idempotencyKey, feedbackKey, action, now); err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindInternal, "guard record failed", err))
		return
	}

	rec := &recorder{ResponseWriter: w, status: http.StatusOK}
	result, procErr := s.Feedback.Process(r.Context(), feedback.Request{SessionID: req.SessionID, ProductID: req.ProductID, Action: action})
	if procErr != nil {
		writeAppError(rec, procErr)
	} else {
		writeFeedbackResult(rec, result)
		_ = s.Guard.MarkProcessed(r.Context(), *feedbackKey)
	}

	if idempotencyKey != "" {
		if err := s.Guard.CacheIdempotentResponse(r.Context(), idempotencyKey, rec.status, rec.buf.Bytes(), now); err != nil {
			s.Log.WithError(err).Warn("caching idempotent response failed", "idempotency_key", idempotencyKey)
		}
	}
}

func writeFeedbackResult(w http.ResponseWriter, result *feedback.Result) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"learning_update": map[string]any{
			"reward":             result.Reward,
			"score_before":       result.ScoreBefore,
			"score_after":        result.ScoreAfter,
			"total_interactions": result.TotalInteractions,
			"alpha":              result.Alpha,
		},
		"user_insights": map[string]any{
			"confidence_tier": result.ConfidenceTier,
			"top_positive":    result.TopPositive,
			"top_negative":    result.TopNegative,
		},
		"diversity_stats": map[string]any{},
		"score_evolution": map[string]any{
			"before": result.ScoreBefore,
			"after":  result.ScoreAfter,
			"delta":  result.ScoreAfter - result.ScoreBefore,
		},
	})
}

// guardDecisionError maps a rejecting guard.Decision to the §7 error
// envelope.
func guardDecisionError(d guard.Decision) *apperror.Error {
	seconds := int(d.RetryAfter.Seconds())
	if seconds < 1 && d.RetryAfter > 0 {
		seconds = 1
	}
	switch d.Kind {
	case "rapid_feedback":
		return apperror.New(apperror.KindRapidFeedback, "feedback submitted too soon after a prior reaction to this product").WithRetryAfter(seconds)
	case "feedback_conflict":
		return apperror.New(apperror.KindFeedbackConflict, "a conflicting reaction to this product is still within its window").WithRetryAfter(seconds)
	case "duplicate_request":
		return apperror.New(apperror.KindDuplicateRequest, "duplicate request").WithRetryAfter(int(guard.WindowGeneral.Seconds()))
	default:
		return apperror.New(apperror.KindValidation, "request rejected by guard")
	}
}

type feedbackBatchItem struct {
	SessionID string `json:"session_id"`
	ProductID string `json:"product_id"`
	Action    string `json:"action"`
}

type feedbackBatchRequest struct {
	Items   []feedbackBatchItem `json:"items"`
	Options struct {
		ContinueOnError       bool `json:"continueOnError"`
		UpdateModelImmediately bool `json:"updateModelImmediately"`
		IgnoreConflicts       bool `json:"ignoreConflicts"`
	} `json:"options"`
}

const maxFeedbackBatch = 50

// postFeedbackBatch handles POST /api/feedback/batch, applying the
// intra-batch duplicate rule of spec.md §4.7/§8 scenario S6 before
// running each non-duplicate item through the C6 pipeline.
func (s *Server) postFeedbackBatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindValidation, "reading request body", err))
		return
	}
	var req feedbackBatchRequest
	if err := decodeJSON(body, &req); err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindValidation, "invalid request body", err))
		return
	}
	if len(req.Items) == 0 {
		writeAppError(w, apperror.New(apperror.KindValidation, "items must not be empty"))
		return
	}
	if len(req.Items) > maxFeedbackBatch {
		writeAppError(w, apperror.New(apperror.KindValidation, "batch exceeds the maximum of 50 items").
			WithDetails(map[string]any{"max": maxFeedbackBatch, "got": len(req.Items)}))
		return
	}

	keys := make([]guard.FeedbackKey, len(req.Items))
	for i, item := range req.Items {
		keys[i] = guard.FeedbackKey{SessionID: item.SessionID, ProductID: item.ProductID}
	}
	dupIdx := guard.IntraBatchDuplicates(keys)

	if len(dupIdx) > 0 && !req.Options.IgnoreConflicts {
		writeJSON(w, http.StatusConflict, map[string]any{
			"success":       false,
			"error":         string(apperror.KindBatchConflict),
			"message":       "batch contains duplicate (session, product) entries",
			"conflict_info": map[string]any{"type": "batch_conflict", "duplicate_indexes": dupIdx, "timestamp": time.Now()},
		})
		return
	}
	skip := make(map[int]bool, len(dupIdx))
	for _, i := range dupIdx {
		skip[i] = true
	}

	results := make([]map[string]any, len(req.Items))
	successCount, failCount := 0, 0
	now := time.Now()

	for i, item := range req.Items {
		if skip[i] {
			results[i] = map[string]any{"index": i, "session_id": item.SessionID, "product_id": item.ProductID, "skipped": true, "reason": "duplicate_in_batch"}
			continue
		}

		action := model.Action(item.Action)
		if !action.Valid() {
			failCount++
			results[i] = map[string]any{"index": i, "success": false, "error": string(apperror.KindValidation)}
			if !req.Options.ContinueOnError {
				break
			}
			continue
		}

		decision, err := s.Guard.Check(r.Context(), "", "", &keys[i], now)
		if err == nil && !decision.Allow {
			failCount++
			results[i] = map[string]any{"index": i, "success": false, "error": decision.Kind}
			if !req.Options.ContinueOnError {
				break
			}
			continue
		}
		_ = s.Guard.Record(r.Context(), "", "", &keys[i], action, now)

		result, procErr := s.Feedback.Process(r.Context(), feedback.Request{SessionID: item.SessionID, ProductID: item.ProductID, Action: action})
		if procErr != nil {
			failCount++
			appErr, ok := apperror.As(procErr)
			if !ok {
				appErr = apperror.New(apperror.KindInternal, procErr.Error())
			}
			results[i] = map[string]any{"index": i, "success": false, "error": string(appErr.Kind), "message": appErr.Message}
			if !req.Options.ContinueOnError {
				break
			}
			continue
		}
		_ = s.Guard.MarkProcessed(r.Context(), keys[i])
		successCount++
		results[i] = map[string]any{
			"index":      i,
			"session_id": item.SessionID,
			"product_id": item.ProductID,
			"success":    true,
			"reward":     result.Reward,
			"score_after": result.ScoreAfter,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"successful_feedbacks": successCount,
		"failed_feedbacks":     failCount,
		"results":              results,
	})
}

// feedbackStatus handles GET /api/feedback/status/{session}/{product}/{action}.
// The guard record is keyed on (session, product) only, so {action} in the
// path is the action the caller expects to find recorded, not a lookup
// key; a record for a different action is reported not_found, matching
// the conflict semantics of §4.7 (a later action replaces the former as
// "what's currently guarded" for this product).
func (s *Server) feedbackStatus(w http.ResponseWriter, r *http.Request) {
	action := model.Action(r.PathValue("action"))
	key := guard.FeedbackKey{SessionID: r.PathValue("session"), ProductID: r.PathValue("product")}
	rec, err := s.Guard.Status(r.Context(), key)
	if err != nil {
		writeAppError(w, apperror.Wrap(apperror.KindInternal, "loading guard status", err))
		return
	}
	if rec == nil || rec.Action != action {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "not_found",
			"message": "no guard record for this (session, product, action)",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"timestamp": rec.Timestamp,
		"processed": rec.Processed,
	})
}
