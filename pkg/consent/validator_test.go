package consent

import "testing"

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name      string
		req       *Request
		wantKind  ValidationKind
		wantField string
	}{
		{
			name:     "valid",
			req:      validRequest(),
			wantKind: Valid,
		},
		{
			name:      "nil request reports first field",
			req:       nil,
			wantKind:  MissingField,
			wantField: FieldConsentState,
		},
		{
			name:      "empty request reports first field",
			req:       &Request{},
			wantKind:  MissingField,
			wantField: FieldConsentState,
		},
		{
			name:      "missing timestamp",
			req:       withField(validRequest(), func(r *Request) { r.Timestamp = nil }),
			wantKind:  MissingField,
			wantField: FieldTimestamp,
		},
		{
			name: "multiple missing reports earliest in order",
			req: withField(validRequest(), func(r *Request) {
				r.Aggregation = nil
				r.SensitivityLevel = nil
			}),
			wantKind:  MissingField,
			wantField: FieldSensitivityLevel,
		},
		{
			name:      "missing transfer",
			req:       withField(validRequest(), func(r *Request) { r.Transfer = nil }),
			wantKind:  MissingField,
			wantField: FieldTransfer,
		},
		{
			name:     "unknown consent state",
			req:      withField(validRequest(), func(r *Request) { r.ConsentState = String("MAYBE") }),
			wantKind: UnknownConsentState,
		},
		{
			name:     "unknown intended use",
			req:      withField(validRequest(), func(r *Request) { r.IntendedUse = String("RESALE") }),
			wantKind: UnknownIntendedUse,
		},
		{
			name: "unknown consent wins over unknown use",
			req: withField(validRequest(), func(r *Request) {
				r.ConsentState = String("MAYBE")
				r.IntendedUse = String("RESALE")
			}),
			wantKind: UnknownConsentState,
		},
		{
			name:     "lowercase consent is not in vocabulary",
			req:      withField(validRequest(), func(r *Request) { r.ConsentState = String("explicit") }),
			wantKind: UnknownConsentState,
		},
		{
			name:     "unknown sensitivity tolerated",
			req:      withField(validRequest(), func(r *Request) { r.SensitivityLevel = String("EXOTIC") }),
			wantKind: Valid,
		},
		{
			name:     "empty timestamp tolerated",
			req:      withField(validRequest(), func(r *Request) { r.Timestamp = String("") }),
			wantKind: Valid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.req)
			if got.Kind != tt.wantKind {
				t.Errorf("Validate() kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.Field != tt.wantField {
				t.Errorf("Validate() field = %q, want %q", got.Field, tt.wantField)
			}
		})
	}
}

func TestValidationOutcome_Verdict(t *testing.T) {
	tests := []struct {
		name         string
		outcome      ValidationOutcome
		wantDecision Decision
		wantReason   Reason
		wantDetail   Detail
	}{
		{
			name:         "missing field denies with field name",
			outcome:      ValidationOutcome{Kind: MissingField, Field: FieldTransfer},
			wantDecision: DecisionDeny,
			wantReason:   ReasonMissingField,
			wantDetail:   DetailText(FieldTransfer),
		},
		{
			name:         "unknown use denies",
			outcome:      ValidationOutcome{Kind: UnknownIntendedUse},
			wantDecision: DecisionDeny,
			wantReason:   ReasonUnknownIntendedUse,
			wantDetail:   NoDetail(),
		},
		{
			name:         "unknown consent escalates",
			outcome:      ValidationOutcome{Kind: UnknownConsentState},
			wantDecision: DecisionEscalate,
			wantReason:   ReasonUnknownConsentState,
			wantDetail:   NoDetail(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := tt.outcome.Verdict().(*TerminalVerdict)
			if !ok {
				t.Fatalf("Verdict() = %T, want *TerminalVerdict", tt.outcome.Verdict())
			}
			if v.Decision != tt.wantDecision {
				t.Errorf("Decision = %s, want %s", v.Decision, tt.wantDecision)
			}
			if v.Reason != tt.wantReason {
				t.Errorf("Reason = %s, want %s", v.Reason, tt.wantReason)
			}
			if !v.Detail.Equal(tt.wantDetail) {
				t.Errorf("Detail = %v, want %v", v.Detail, tt.wantDetail)
			}
		})
	}

	if (ValidationOutcome{Kind: Valid}).Verdict() != nil {
		t.Error("Verdict() for valid outcome should be nil")
	}
}
