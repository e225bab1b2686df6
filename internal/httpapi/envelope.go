package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fashion-reco/reco-engine/internal/apperror"
)

// writeJSON encodes data as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorEnvelope is the common error shape from spec.md §6: "{success:false,
// error:<kind>, message, conflict_info?|retry_after_seconds?|details?|timestamp}".
type errorEnvelope struct {
	Success           bool           `json:"success"`
	Error             string         `json:"error"`
	Message           string         `json:"message"`
	ConflictInfo       *conflictInfo `json:"conflict_info,omitempty"`
	RetryAfterSeconds  *int          `json:"retry_after_seconds,omitempty"`
	Details            map[string]any `json:"details,omitempty"`
	Timestamp          time.Time      `json:"timestamp"`
}

type conflictInfo struct {
	Type             string    `json:"type"`
	Timestamp        time.Time `json:"timestamp"`
	Suggestion       string    `json:"suggestion"`
}

// writeAppError translates any error into the §7 error envelope. Errors
// that are not an *apperror.Error are reported as a generic "internal"
// error rather than leaking their detail to the client; writeAppError
// itself does not log them.
func writeAppError(w http.ResponseWriter, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.New(apperror.KindInternal, "internal error")
	}

	env := errorEnvelope{
		Success:   false,
		Error:     string(appErr.Kind),
		Message:   appErr.Message,
		Details:   appErr.Details,
		Timestamp: time.Now(),
	}

	switch appErr.Kind {
	case apperror.KindRapidFeedback, apperror.KindFeedbackConflict, apperror.KindBatchConflict:
		env.ConflictInfo = &conflictInfo{
			Type:       string(appErr.Kind),
			Timestamp:  env.Timestamp,
			Suggestion: "wait for the reported retry_after_seconds before retrying",
		}
		fallthrough
	case apperror.KindDuplicateRequest, apperror.KindRateLimited:
		secs := int(appErr.RetryAfterSeconds)
		env.RetryAfterSeconds = &secs
		if secs > 0 {
			w.Header().Set("Retry-After", itoa(secs))
		}
	}

	writeJSON(w, appErr.HTTPStatus(), env)
}

func rateLimitedError(retryAfterSeconds int) *apperror.Error {
	return apperror.New(apperror.KindRateLimited, "rate limit exceeded").WithRetryAfter(retryAfterSeconds)
}

func newUnsupportedVersionError(version string) *apperror.Error {
	return apperror.New(apperror.KindUnsupportedVersion, "unsupported API version").
		WithDetails(map[string]any{"requested_version": version, "supported_versions": SupportedVersions})
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
