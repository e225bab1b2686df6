// Package logging provides structured logging built on log/slog.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// ContextKey is the type of values stashed in a context for WithContext
// to pick up automatically.
type ContextKey string

const (
	TraceIDKey   ContextKey = "trace_id"
	SessionIDKey ContextKey = "session_id"
	ProductIDKey ContextKey = "product_id"
)

// Logger wraps *slog.Logger with the domain-specific helpers below.
type Logger struct {
	*slog.Logger
	component string
}

// Config controls a Logger's level, format, and output destination.
type Config struct {
	Level     string `json:"level"`
	Format    string `json:"format"` // json or text
	Output    string `json:"output"` // stdout, stderr, or file path
	Component string `json:"component"`
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var output io.Writer
	switch cfg.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			output = os.Stdout
		} else {
			output = f
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		Logger:    slog.New(handler).With(slog.String("component", cfg.Component)),
		component: cfg.Component,
	}
}

// Default builds a Logger reading LOG_LEVEL/LOG_FORMAT from the
// environment, writing to stdout.
func Default(component string) *Logger {
	return New(Config{
		Level:     os.Getenv("LOG_LEVEL"),
		Format:    os.Getenv("LOG_FORMAT"),
		Output:    "stdout",
		Component: component,
	})
}

// WithContext pulls trace/session/product identifiers out of ctx, if
// present, and attaches them to the returned Logger.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := []any{}
	if v, ok := ctx.Value(TraceIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("trace_id", v))
	}
	if v, ok := ctx.Value(SessionIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("session_id", v))
	}
	if v, ok := ctx.Value(ProductIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("product_id", v))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.Logger.With(attrs...), component: l.component}
}

// WithSession attaches a session_id attribute.
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("session_id", sessionID)), component: l.component}
}

// WithError attaches an error attribute, returning l unchanged if err is
// nil.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{Logger: l.Logger.With(slog.String("error", err.Error())), component: l.component}
}

// HTTPRequestLog logs one completed HTTP request.
func (l *Logger) HTTPRequestLog(method, path string, status int, duration time.Duration, clientIP string) {
	l.Logger.Info("http request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
		slog.String("client_ip", clientIP),
	)
}

// RecommendLog logs one recommend() call (spec.md §4.5, component C5).
func (l *Logger) RecommendLog(sessionID string, candidateCount, selectedCount int, duration time.Duration, err error) {
	attrs := []any{
		slog.String("session_id", sessionID),
		slog.Int("candidate_count", candidateCount),
		slog.Int("selected_count", selectedCount),
		slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
	}
	if err != nil {
		l.Logger.Error("recommend failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	l.Logger.Info("recommend", attrs...)
}

// FeedbackLog logs one feedback() call (spec.md §4.6, component C6).
func (l *Logger) FeedbackLog(sessionID, productID, action string, reward float64, err error) {
	attrs := []any{
		slog.String("session_id", sessionID),
		slog.String("product_id", productID),
		slog.String("action", action),
		slog.Float64("reward", reward),
	}
	if err != nil {
		l.Logger.Error("feedback failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	l.Logger.Info("feedback", attrs...)
}
