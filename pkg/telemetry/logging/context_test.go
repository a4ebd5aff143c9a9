package logging

import (
	"context"
	"testing"
)

func TestContextKeys(t *testing.T) {
	tests := []struct {
		name string
		set  func(context.Context, string) context.Context
		get  func(context.Context) string
	}{
		{"request_id", WithRequestID, GetRequestID},
		{"evaluation_id", WithEvaluationID, GetEvaluationID},
		{"source", WithSource, GetSource},
		{"trace_id", WithTraceID, GetTraceID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.set(context.Background(), "value-1")
			if got := tt.get(ctx); got != "value-1" {
				t.Errorf("got %q, want value-1", got)
			}
			if got := tt.get(context.Background()); got != "" {
				t.Errorf("empty context got %q", got)
			}
		})
	}
}

func TestContextAttrs_Order(t *testing.T) {
	ctx := WithTraceID(context.Background(), "t")
	ctx = WithSource(ctx, "cli")
	ctx = WithRequestID(ctx, "r")

	attrs := contextAttrs(ctx)
	want := []string{"request_id", "source", "trace_id"}
	if len(attrs) != len(want) {
		t.Fatalf("got %d attrs, want %d", len(attrs), len(want))
	}
	for i, k := range want {
		if attrs[i].Key != k {
			t.Errorf("attrs[%d] = %q, want %q", i, attrs[i].Key, k)
		}
	}
}

func TestContextOverwrite(t *testing.T) {
	ctx := WithRequestID(context.Background(), "first")
	ctx = WithRequestID(ctx, "second")
	if got := GetRequestID(ctx); got != "second" {
		t.Errorf("GetRequestID() = %q, want second", got)
	}
}
