package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/consent"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tracer, err := New(&config.TracingConfig{
		Enabled:     true,
		Sampler:     SamplerAlways,
		ServiceName: "covenant-test",
	}, WithExporter(exp), WithoutGlobal())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, exp
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		opts    []Option
		wantErr bool
		enabled bool
	}{
		{name: "nil config", config: nil, wantErr: true},
		{name: "disabled tracing", config: &config.TracingConfig{Enabled: false}},
		{
			name:    "enabled with exporter",
			config:  &config.TracingConfig{Enabled: true, Sampler: "always"},
			opts:    []Option{WithExporter(tracetest.NewInMemoryExporter()), WithoutGlobal()},
			enabled: true,
		},
		{
			name:    "invalid sampler",
			config:  &config.TracingConfig{Enabled: true, Sampler: "sometimes"},
			opts:    []Option{WithoutGlobal()},
			wantErr: true,
		},
		{
			name:    "invalid ratio",
			config:  &config.TracingConfig{Enabled: true, Sampler: "ratio", SampleRatio: 1.5},
			opts:    []Option{WithoutGlobal()},
			wantErr: true,
		},
		{
			name:    "missing endpoint",
			config:  &config.TracingConfig{Enabled: true, Sampler: "always"},
			opts:    []Option{WithoutGlobal()},
			wantErr: true,
		},
		{
			name: "otlp endpoint",
			config: &config.TracingConfig{
				Enabled:  true,
				Sampler:  "ratio",
				Endpoint: "localhost:4317",
				Insecure: true,
				Timeout:  time.Second,
			},
			opts:    []Option{WithoutGlobal()},
			enabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			defer tracer.Shutdown(context.Background())
			if tracer.Enabled() != tt.enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.enabled)
			}
		})
	}
}

func TestTracer_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}

	ctx, span := tracer.Start(context.Background(), SpanEvaluate)
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Error("disabled tracer produced a valid span context")
	}
	if TraceID(ctx) != "" {
		t.Errorf("TraceID() = %q, want empty", TraceID(ctx))
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNoop(t *testing.T) {
	tracer := Noop()
	if tracer.Enabled() {
		t.Error("Noop() tracer reports enabled")
	}

	_, span := tracer.Start(context.Background(), SpanEvaluate)
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("Noop() tracer produced a valid span context")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestTracer_EvaluationSpan(t *testing.T) {
	tracer, exp := newTestTracer(t)

	req := &consent.Request{
		ConsentState:     consent.String("EXPLICIT"),
		IntendedUse:      consent.String("ANALYTICS"),
		SensitivityLevel: consent.String("MEDIUM"),
		Transfer:         consent.Bool(false),
		Aggregation:      consent.Bool(false),
		Timestamp:        consent.String("2026-01-01T00:00:00Z"),
	}
	result := consent.Evaluate(req)

	ctx, span := tracer.Start(context.Background(), SpanEvaluate, trace.WithAttributes(RequestAttributes(req)...))
	if TraceID(ctx) == "" || SpanID(ctx) == "" {
		t.Error("expected trace and span ids on the context")
	}
	SetResultAttributes(span, result)
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != SpanEvaluate {
		t.Errorf("span name = %q", spans[0].Name)
	}

	attrs := attrMap(spans[0].Attributes)
	if got := attrs[AttrDecision].AsString(); got != "ALLOW" {
		t.Errorf("decision = %q, want ALLOW", got)
	}
	if got := attrs[AttrCost].AsInt64(); got != 2 {
		t.Errorf("cost = %d, want 2", got)
	}
	if got := attrs[AttrConsentState].AsString(); got != "EXPLICIT" {
		t.Errorf("consent.state = %q", got)
	}
	if got := attrs[AttrAuditHash].AsString(); got != result.AuditHash() {
		t.Errorf("audit hash = %q, want %q", got, result.AuditHash())
	}
}

func TestRequestAttributes_OmitsAbsent(t *testing.T) {
	attrs := attrMap(RequestAttributes(&consent.Request{IntendedUse: consent.String("MARKETING")}))
	if len(attrs) != 1 {
		t.Fatalf("got %d attributes, want 1: %v", len(attrs), attrs)
	}
	if RequestAttributes(nil) != nil {
		t.Error("nil request should produce no attributes")
	}
}

func TestResultAttributes_Terminal(t *testing.T) {
	result := consent.Evaluate(&consent.Request{})
	attrs := attrMap(ResultAttributes(result))

	if got := attrs[AttrReason].AsString(); got != "missing_field" {
		t.Errorf("reason = %q, want missing_field", got)
	}
	if !attrs[AttrTerminal].AsBool() {
		t.Error("terminal attribute should be true")
	}
	if _, ok := attrs[AttrCost]; ok {
		t.Error("terminal result should not carry a cost")
	}
}

func TestSetError(t *testing.T) {
	tracer, exp := newTestTracer(t)

	_, span := tracer.Start(context.Background(), "op")
	SetError(span, nil)
	SetError(span, errors.New("storage unavailable"))
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("got %d events, want 1 exception event", len(spans[0].Events))
	}
}

func TestTracer_ParentChild(t *testing.T) {
	tracer, exp := newTestTracer(t)

	ctx, parent := tracer.Start(context.Background(), SpanEvaluateBatch)
	_, child := tracer.Start(ctx, SpanEvaluate)
	child.End()
	parent.End()

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("child span is not parented to the batch span")
	}
}
