package main

import (
	"fmt"
	"testing"

	"mercator-hq/covenant/pkg/consent"
)

func scoredJSON(decision string, cost int, ts, hash string) string {
	return fmt.Sprintf(`{"decision":%q,"consent_cost":%d,"timestamp":%q,"audit_hash":%q}`, decision, cost, ts, hash)
}

func TestDecodeAndVerifyResults(t *testing.T) {
	const ts = "2026-03-01T12:00:00Z"
	good := consent.ScoredHash(consent.DecisionAllow, 2, ts)
	valid := scoredJSON("ALLOW", 2, ts, good)
	tampered := scoredJSON("ALLOW", 1, ts, good)
	terminal := `{"decision":"DENY","reason":"missing_field","detail":"intended_use","audit_hash":"abc"}`

	tests := []struct {
		name           string
		input          string
		wantCount      int
		wantErr        bool
		wantVerifiable []bool
		wantValid      []bool
	}{
		{
			name:           "single valid object",
			input:          valid,
			wantCount:      1,
			wantVerifiable: []bool{true},
			wantValid:      []bool{true},
		},
		{
			name:           "array with tampered and terminal",
			input:          "[" + valid + "," + tampered + "," + terminal + "]",
			wantCount:      3,
			wantVerifiable: []bool{true, true, false},
			wantValid:      []bool{true, false, false},
		},
		{name: "empty", input: "  ", wantErr: true},
		{name: "bad decision", input: scoredJSON("MAYBE", 1, ts, good), wantErr: true},
		{name: "bad element", input: "[" + valid + ",42]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := decodeResults([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeResults() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(results) != tt.wantCount {
				t.Fatalf("got %d results, want %d", len(results), tt.wantCount)
			}
			for i, o := range verifyResults(results) {
				if o.Index != i {
					t.Errorf("[%d] Index = %d", i, o.Index)
				}
				if o.Verifiable != tt.wantVerifiable[i] {
					t.Errorf("[%d] Verifiable = %v, want %v", i, o.Verifiable, tt.wantVerifiable[i])
				}
				if o.Valid != tt.wantValid[i] {
					t.Errorf("[%d] Valid = %v, want %v", i, o.Valid, tt.wantValid[i])
				}
			}
		})
	}
}
