package logging

import (
	"context"
	"log/slog"
)

type contextKey string

// Context keys for fields appended to every record logged with the context.
const (
	// RequestIDKey carries the HTTP request or CLI invocation id.
	RequestIDKey contextKey = "request_id"

	// EvaluationIDKey carries the evidence record id of the evaluation in flight.
	EvaluationIDKey contextKey = "evaluation_id"

	// SourceKey carries where the request came from (cli, http, intake).
	SourceKey contextKey = "source"

	// TraceIDKey carries the active trace id.
	TraceIDKey contextKey = "trace_id"
)

// contextFieldOrder fixes the order fields appear in output.
var contextFieldOrder = []contextKey{RequestIDKey, EvaluationIDKey, SourceKey, TraceIDKey}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return get(ctx, RequestIDKey)
}

// WithEvaluationID adds an evaluation ID to the context.
func WithEvaluationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, EvaluationIDKey, id)
}

// GetEvaluationID retrieves the evaluation ID from the context.
func GetEvaluationID(ctx context.Context) string {
	return get(ctx, EvaluationIDKey)
}

// WithSource adds the request source to the context.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// GetSource retrieves the request source from the context.
func GetSource(ctx context.Context) string {
	return get(ctx, SourceKey)
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	return get(ctx, TraceIDKey)
}

func get(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs returns the non-empty context fields as attributes.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range contextFieldOrder {
		if v := get(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}
