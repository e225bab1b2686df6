// Package apperror defines the typed error kinds carried across the
// storage, bandit, and HTTP layers (spec.md §7). Each kind has a fixed
// HTTP status and a stable wire string; handlers translate any Error at
// the boundary instead of inventing per-endpoint error shapes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the §7 error kinds. It is also the wire value of the
// error envelope's "error" field.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindSessionNotFound    Kind = "session_not_found"
	KindProductNotFound    Kind = "product_not_found"
	KindSessionInactive    Kind = "session_inactive"
	KindNoCandidates       Kind = "no_candidates"
	KindDuplicateRequest   Kind = "duplicate_request"
	KindRapidFeedback      Kind = "rapid_feedback"
	KindFeedbackConflict   Kind = "feedback_conflict"
	KindBatchConflict      Kind = "batch_conflict"
	KindRateLimited        Kind = "rate_limited"
	KindIdempotentReplay   Kind = "idempotent_replay"
	KindUnsupportedVersion Kind = "unsupported_version"
	KindModelSingular      Kind = "model_singular"
	KindInternal           Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindValidation:         http.StatusBadRequest,
	KindSessionNotFound:    http.StatusNotFound,
	KindProductNotFound:    http.StatusNotFound,
	KindSessionInactive:    http.StatusGone,
	KindNoCandidates:       http.StatusNotFound,
	KindDuplicateRequest:   http.StatusConflict,
	KindRapidFeedback:      http.StatusConflict,
	KindFeedbackConflict:   http.StatusConflict,
	KindBatchConflict:      http.StatusConflict,
	KindRateLimited:        http.StatusTooManyRequests,
	KindIdempotentReplay:   http.StatusOK,
	KindUnsupportedVersion: http.StatusBadRequest,
	KindModelSingular:      http.StatusInternalServerError,
	KindInternal:           http.StatusInternalServerError,
}

// Error is a typed application error: a stable Kind plus a human message
// and optional structured Details for the error envelope.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	// RetryAfterSeconds is set for duplicate_request, rate_limited,
	// rapid_feedback and feedback_conflict.
	RetryAfterSeconds int
	err               error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// HTTPStatus returns the fixed status for e.Kind.
func (e *Error) HTTPStatus() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around a lower-level cause,
// e.g. a storage driver error translated at a repository boundary.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, err: cause}
}

// WithDetails attaches field-level validation details and returns e for
// chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithRetryAfter attaches a Retry-After hint and returns e for chaining.
func (e *Error) WithRetryAfter(seconds int) *Error {
	e.RetryAfterSeconds = seconds
	return e
}

// As reports whether err (or anything it wraps) is an *Error, giving
// back the concrete value the way errors.As does.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Storage-layer sentinels: mongostore and any future driver translate
// their native not-found/duplicate-key errors into these before handing
// them to the domain layer, which then wraps them into a Kind above.
var (
	ErrNotFound  = errors.New("apperror: entity not found")
	ErrDuplicate = errors.New("apperror: duplicate key")
)
