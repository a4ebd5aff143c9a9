package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/propagation"

	"mercator-hq/covenant/pkg/telemetry/logging"
)

func TestValidateTraceParent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", true},
		{"uppercase hex", "00-4BF92F3577B34DA6A3CE929D0E0E4736-00F067AA0BA902B7-00", true},
		{"too few parts", "00-4bf92f3577b34da6a3ce929d0e0e4736-01", false},
		{"short trace id", "00-4bf92f35-00f067aa0ba902b7-01", false},
		{"non-hex", "00-zzf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", false},
		{"zero trace id", "00-00000000000000000000000000000000-00f067aa0ba902b7-01", false},
		{"zero parent id", "00-4bf92f3577b34da6a3ce929d0e0e4736-0000000000000000-01", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateTraceParent(tt.input); got != tt.want {
				t.Errorf("ValidateTraceParent(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestHTTPMiddleware(t *testing.T) {
	tracer, exp := newTestTracer(t)

	// WithoutGlobal leaves the global propagator unset, so exercise the
	// extraction directly with a TraceContext propagator.
	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	header := http.Header{}
	header.Set("traceparent", parent)
	ctx := propagation.TraceContext{}.Extract(context.Background(), propagation.HeaderCarrier(header))

	var sawTrace, sawLogTrace string
	handler := HTTPMiddleware(tracer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawTrace = TraceID(r.Context())
		sawLogTrace = logging.GetTraceID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if sawTrace != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("handler trace id = %q, want inherited trace", sawTrace)
	}
	if sawLogTrace != sawTrace {
		t.Errorf("log trace id = %q, want %q", sawLogTrace, sawTrace)
	}
	if rec.Header().Get("X-Trace-ID") != sawTrace {
		t.Errorf("X-Trace-ID = %q, want %q", rec.Header().Get("X-Trace-ID"), sawTrace)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "POST /v1/evaluate" {
		t.Fatalf("unexpected spans: %+v", spans)
	}
}
