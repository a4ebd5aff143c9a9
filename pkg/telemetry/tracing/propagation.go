package tracing

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/covenant/pkg/telemetry/logging"
)

// Propagator returns the global text map propagator.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract returns ctx carrying any W3C trace context found in headers.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// HTTPMiddleware extracts a well-formed incoming trace context, opens a
// server span named after the method and path, and echoes the trace ID in
// X-Trace-ID and in the request's log fields.
func HTTPMiddleware(t *Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if ValidateTraceParent(r.Header.Get("traceparent")) {
				ctx = Extract(ctx, r.Header)
			}
			ctx, span := t.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			if sc := span.SpanContext(); sc.IsValid() {
				traceID := sc.TraceID().String()
				w.Header().Set("X-Trace-ID", traceID)
				ctx = logging.WithTraceID(ctx, traceID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateTraceParent reports whether traceparent is a well-formed W3C
// header: version-trace_id-parent_id-flags with non-zero ids.
//
// Example: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
func ValidateTraceParent(traceparent string) bool {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return false
	}

	lengths := [4]int{2, 32, 16, 2}
	for i, p := range parts {
		if len(p) != lengths[i] || !isHexString(p) {
			return false
		}
	}

	return strings.Trim(parts[1], "0") != "" && strings.Trim(parts[2], "0") != ""
}

func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
