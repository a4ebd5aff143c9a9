package consent

import (
	"errors"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantConsent *string
		wantUse     *string
		wantLevel   *string
		wantTS      *string
		wantXfer    *bool
		wantAgg     *bool
	}{
		{
			name:        "complete document",
			input:       `{"consent_state":"EXPLICIT","intended_use":"ANALYTICS","sensitivity_level":"LOW","transfer":true,"aggregation":false,"timestamp":"t1"}`,
			wantConsent: String("EXPLICIT"),
			wantUse:     String("ANALYTICS"),
			wantLevel:   String("LOW"),
			wantTS:      String("t1"),
			wantXfer:    Bool(true),
			wantAgg:     Bool(false),
		},
		{
			name:  "absent fields stay nil",
			input: `{}`,
		},
		{
			name:        "non-string consent carried as json text",
			input:       `{"consent_state":5,"timestamp":null}`,
			wantConsent: String("5"),
			wantTS:      String("null"),
		},
		{
			name:   "numeric timestamp carried as json text",
			input:  `{"timestamp":123}`,
			wantTS: String("123"),
		},
		{
			name:      "structured sensitivity carried as json text",
			input:     `{"sensitivity_level":{"b":1,"a":2}}`,
			wantLevel: String(`{"a":2,"b":1}`),
		},
		{
			name:     "string booleans present but not true",
			input:    `{"transfer":"true","aggregation":1}`,
			wantXfer: Bool(false),
			wantAgg:  Bool(false),
		},
		{
			name:     "null booleans present but not true",
			input:    `{"transfer":null}`,
			wantXfer: Bool(false),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeJSON([]byte(tt.input))
			if err != nil {
				t.Fatalf("DecodeJSON() error = %v", err)
			}
			assertString(t, "consent_state", req.ConsentState, tt.wantConsent)
			assertString(t, "intended_use", req.IntendedUse, tt.wantUse)
			assertString(t, "sensitivity_level", req.SensitivityLevel, tt.wantLevel)
			assertString(t, "timestamp", req.Timestamp, tt.wantTS)
			assertBool(t, "transfer", req.Transfer, tt.wantXfer)
			assertBool(t, "aggregation", req.Aggregation, tt.wantAgg)
		})
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed", `{"consent_state":`},
		{"array", `[1,2]`},
		{"null", `null`},
		{"string", `"EXPLICIT"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tt.input))
			if err == nil {
				t.Fatal("DecodeJSON() expected error")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("DecodeJSON() error type = %T, want *DecodeError", err)
			}
		})
	}
}

func TestDecodeJSONList(t *testing.T) {
	reqs, err := DecodeJSONList([]byte(` [{"consent_state":"EXPLICIT"},{"intended_use":"MARKETING"}]`))
	if err != nil {
		t.Fatalf("DecodeJSONList() error = %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("DecodeJSONList() len = %d, want 2", len(reqs))
	}
	if reqs[0].Consent() != ConsentExplicit || reqs[1].Use() != UseMarketing {
		t.Errorf("DecodeJSONList() order not preserved")
	}

	single, err := DecodeJSONList([]byte(`{"consent_state":"IMPLIED"}`))
	if err != nil {
		t.Fatalf("DecodeJSONList(single) error = %v", err)
	}
	if len(single) != 1 || single[0].Consent() != ConsentImplied {
		t.Errorf("DecodeJSONList(single) = %+v", single)
	}

	if _, err := DecodeJSONList([]byte(`[{"a":1}, null]`)); err == nil {
		t.Error("DecodeJSONList() expected error for null element")
	}
}

func TestDecodeYAML(t *testing.T) {
	input := `
consent_state: CONTRACTUAL
intended_use: CORE_SERVICE
sensitivity_level: MEDIUM
transfer: false
aggregation: yes
timestamp: 2024-01-01T00:00:00Z
`
	req, err := DecodeYAML([]byte(input))
	if err != nil {
		t.Fatalf("DecodeYAML() error = %v", err)
	}
	assertString(t, "consent_state", req.ConsentState, String("CONTRACTUAL"))
	assertString(t, "timestamp", req.Timestamp, String("2024-01-01T00:00:00Z"))
	assertBool(t, "transfer", req.Transfer, Bool(false))
	// "yes" is a plain string in YAML 1.2.
	assertBool(t, "aggregation", req.Aggregation, Bool(false))
}

func TestDecodeYAMLList(t *testing.T) {
	input := `
- consent_state: EXPLICIT
  intended_use: ANALYTICS
- consent_state: PROHIBITED
`
	reqs, err := DecodeYAMLList([]byte(input))
	if err != nil {
		t.Fatalf("DecodeYAMLList() error = %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("DecodeYAMLList() len = %d, want 2", len(reqs))
	}
	if reqs[1].Consent() != ConsentProhibited {
		t.Errorf("second consent = %s", reqs[1].Consent())
	}

	if _, err := DecodeYAMLList([]byte("")); err == nil {
		t.Error("DecodeYAMLList() expected error for empty document")
	}
}

func TestRequest_ToMap(t *testing.T) {
	req := &Request{ConsentState: String("EXPLICIT"), Transfer: Bool(true)}
	doc := req.ToMap()

	if len(doc) != 2 {
		t.Fatalf("ToMap() len = %d, want 2", len(doc))
	}
	if doc[FieldConsentState] != "EXPLICIT" || doc[FieldTransfer] != true {
		t.Errorf("ToMap() = %v", doc)
	}

	round := FromMap(doc)
	if round.Consent() != ConsentExplicit || round.IntendedUse != nil {
		t.Errorf("FromMap(ToMap()) = %+v", round)
	}
}

func assertString(t *testing.T, field string, got, want *string) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("%s = %v, want %v", field, got, want)
	case *got != *want:
		t.Errorf("%s = %q, want %q", field, *got, *want)
	}
}

func assertBool(t *testing.T, field string, got, want *bool) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("%s = %v, want %v", field, got, want)
	case *got != *want:
		t.Errorf("%s = %v, want %v", field, *got, *want)
	}
}
