package evidence

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"mercator-hq/covenant/pkg/consent"
)

func TestNewRecord(t *testing.T) {
	instant := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	eval := consent.NewEvaluator(consent.WithClock(consent.FixedClock(instant)))

	scoredReq := &consent.Request{
		ConsentState:     consent.String("IMPLIED"),
		IntendedUse:      consent.String("CORE_SERVICE"),
		SensitivityLevel: consent.String("HIGH"),
		Transfer:         consent.Bool(false),
		Aggregation:      consent.Bool(false),
		Timestamp:        consent.String("2024-01-01T00:00:00Z"),
	}
	triggerReq := &consent.Request{
		ConsentState:     consent.String("EXPLICIT"),
		IntendedUse:      consent.String("MODEL_TRAINING"),
		SensitivityLevel: consent.String("LOW"),
		Transfer:         consent.Bool(true),
		Aggregation:      consent.Bool(false),
		Timestamp:        consent.String("2024-01-01T00:00:00Z"),
	}

	tests := []struct {
		name         string
		req          *consent.Request
		wantDecision string
		wantTerminal bool
		wantReason   string
		wantDetail   string
		wantCost     *int
	}{
		{
			name:         "scored",
			req:          scoredReq,
			wantDecision: "ESCALATE",
			wantCost:     intPtr(12),
		},
		{
			name:         "triggered",
			req:          triggerReq,
			wantDecision: "ESCALATE",
			wantTerminal: true,
			wantReason:   "escalation_triggered",
			wantDetail:   `["transfer","model_training"]`,
		},
		{
			name:         "missing field",
			req:          &consent.Request{},
			wantDecision: "DENY",
			wantTerminal: true,
			wantReason:   "missing_field",
			wantDetail:   `"consent_state"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := eval.Evaluate(tt.req)
			rec := NewRecord(tt.req, result, Meta{
				RequestID:      "req-1",
				Source:         SourceCLI,
				EvaluatedAt:    instant,
				EvaluationTime: time.Millisecond,
			})

			if _, err := uuid.Parse(rec.ID); err != nil {
				t.Errorf("ID %q is not a UUID: %v", rec.ID, err)
			}
			if rec.Decision != tt.wantDecision || rec.Terminal != tt.wantTerminal {
				t.Errorf("decision = %s terminal = %v", rec.Decision, rec.Terminal)
			}
			if rec.Reason != tt.wantReason || rec.Detail != tt.wantDetail {
				t.Errorf("reason = %q detail = %q", rec.Reason, rec.Detail)
			}
			if (rec.ConsentCost == nil) != (tt.wantCost == nil) || (rec.ConsentCost != nil && *rec.ConsentCost != *tt.wantCost) {
				t.Errorf("ConsentCost = %v, want %v", rec.ConsentCost, tt.wantCost)
			}
			if rec.AuditHash != result.AuditHash() {
				t.Errorf("AuditHash mismatch")
			}
			if len(rec.RequestHash) != 64 {
				t.Errorf("RequestHash = %q", rec.RequestHash)
			}
		})
	}
}

func TestNewRecord_DistinctIDs(t *testing.T) {
	req := &consent.Request{}
	result := consent.Evaluate(req)
	a := NewRecord(req, result, Meta{})
	b := NewRecord(req, result, Meta{})
	if a.ID == b.ID {
		t.Errorf("NewRecord() reused id %s", a.ID)
	}
}

func TestRequestHash(t *testing.T) {
	a := &consent.Request{ConsentState: consent.String("EXPLICIT"), Transfer: consent.Bool(true)}
	b := &consent.Request{Transfer: consent.Bool(true), ConsentState: consent.String("EXPLICIT")}
	c := &consent.Request{ConsentState: consent.String("EXPLICIT"), Transfer: consent.Bool(false)}

	if RequestHash(a) != RequestHash(b) {
		t.Error("RequestHash() differs for equal requests")
	}
	if RequestHash(a) == RequestHash(c) {
		t.Error("RequestHash() equal for different requests")
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	errs := []error{
		NewStorageError("sqlite", "store", cause),
		NewQueryError(&Query{}, cause),
		NewRecorderError("id", cause),
		NewRetentionError(30, cause),
		NewExportError("csv", 3, cause),
	}
	for _, err := range errs {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
		if err.Error() == "" {
			t.Errorf("%T has empty message", err)
		}
	}
}

func intPtr(i int) *int { return &i }
