// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for user ID
	UserIDKey contextKey = "user_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment. Development gets a readable
// text handler at debug level, everything else JSON at info level.
func New(env string) *Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// WithContext returns a logger enriched with request_id and user_id from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	out := l
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		out = &Logger{Logger: out.With(slog.String("request_id", requestID))}
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		out = &Logger{Logger: out.With(slog.String("user_id", userID))}
	}
	return out
}

// HTTPRequest logs a completed HTTP request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// WebhookEvent logs the outcome of a calendar webhook delivery.
func (l *Logger) WebhookEvent(trigger, calendarEventID, outcome string) {
	l.Info("webhook_event",
		slog.String("trigger", trigger),
		slog.String("calendar_event_id", calendarEventID),
		slog.String("outcome", outcome),
	)
}

// WebhookDropped logs a discarded webhook payload. These are acknowledged to
// the provider, so the log line is the only trace the delivery leaves.
func (l *Logger) WebhookDropped(trigger, reason string) {
	l.Warn("webhook_dropped",
		slog.String("trigger", trigger),
		slog.String("reason", reason),
	)
}

// PaymentEvent logs payment lifecycle activity.
func (l *Logger) PaymentEvent(event, reference string, amountCents int64) {
	l.Info("payment_event",
		slog.String("event", event),
		slog.String("reference", reference),
		slog.Int64("amount_cents", amountCents),
	)
}

// DatabaseError logs database errors.
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// EmailError logs a failed email dispatch. Notification sends are
// fire-and-forget, so failures surface here and nowhere else.
func (l *Logger) EmailError(template, recipient string, err error) {
	l.Error("email_error",
		slog.String("template", template),
		slog.String("recipient", recipient),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
