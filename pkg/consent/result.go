package consent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Detail is the optional context attached to a terminal outcome: absent, a
// single string, or an ordered list of names.
type Detail struct {
	value  string
	items  []string
	isText bool
	isList bool
}

// NoDetail returns an absent detail.
func NoDetail() Detail { return Detail{} }

// DetailText returns a single-string detail.
func DetailText(s string) Detail {
	return Detail{value: s, isText: true}
}

// DetailList returns an ordered list detail. The items are copied.
func DetailList(items ...string) Detail {
	cp := make([]string, len(items))
	copy(cp, items)
	return Detail{items: cp, isList: true}
}

// IsZero reports whether the detail is absent.
func (d Detail) IsZero() bool {
	return !d.isText && !d.isList
}

// Text returns the single-string form and whether d holds one.
func (d Detail) Text() (string, bool) {
	return d.value, d.isText
}

// Items returns a copy of the list form, or nil when d is not a list.
func (d Detail) Items() []string {
	if !d.isList {
		return nil
	}
	cp := make([]string, len(d.items))
	copy(cp, d.items)
	return cp
}

// Equal reports whether two details hold the same value.
func (d Detail) Equal(o Detail) bool {
	if d.isText != o.isText || d.isList != o.isList || d.value != o.value {
		return false
	}
	if len(d.items) != len(o.items) {
		return false
	}
	for i := range d.items {
		if d.items[i] != o.items[i] {
			return false
		}
	}
	return true
}

// String renders the detail for humans: "", the text, or comma-joined items.
func (d Detail) String() string {
	switch {
	case d.isText:
		return d.value
	case d.isList:
		return strings.Join(d.items, ",")
	}
	return ""
}

// MarshalJSON encodes the detail as null, a string, or an array.
func (d Detail) MarshalJSON() ([]byte, error) {
	switch {
	case d.isText:
		return json.Marshal(d.value)
	case d.isList:
		return json.Marshal(d.items)
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes null, a string, or an array of strings.
func (d *Detail) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*d = NoDetail()
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*d = DetailText(s)
		return nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		var items []string
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*d = DetailList(items...)
		return nil
	}
	return fmt.Errorf("detail must be null, a string, or a list of strings")
}

// Result is a sealed evaluation outcome. It is either a *Terminal or a
// *Scored; the two shapes never mix.
type Result interface {
	Decision() Decision
	AuditHash() string

	// Terminal reports whether the result is a deny/escalate with a reason.
	Terminal() bool
}

// Terminal is a deny or escalate outcome produced before the cost matrix.
type Terminal struct {
	decision  Decision
	reason    Reason
	detail    Detail
	auditHash string
}

// Decision returns the decision.
func (t *Terminal) Decision() Decision { return t.decision }

// Reason returns the terminal reason.
func (t *Terminal) Reason() Reason { return t.reason }

// Detail returns the attached detail.
func (t *Terminal) Detail() Detail { return t.detail }

// AuditHash returns the hex digest sealing this result.
func (t *Terminal) AuditHash() string { return t.auditHash }

// Terminal always returns true.
func (t *Terminal) Terminal() bool { return true }

type terminalJSON struct {
	Decision  Decision `json:"decision"`
	Reason    Reason   `json:"reason"`
	Detail    Detail   `json:"detail"`
	AuditHash string   `json:"audit_hash"`
}

// MarshalJSON encodes {decision, reason, detail, audit_hash}.
func (t *Terminal) MarshalJSON() ([]byte, error) {
	return json.Marshal(terminalJSON{
		Decision:  t.decision,
		Reason:    t.reason,
		Detail:    t.detail,
		AuditHash: t.auditHash,
	})
}

// Scored is an outcome produced by the cost matrix.
type Scored struct {
	decision    Decision
	consentCost int
	timestamp   string
	auditHash   string
}

// Decision returns the decision.
func (s *Scored) Decision() Decision { return s.decision }

// ConsentCost returns base cost times sensitivity multiplier.
func (s *Scored) ConsentCost() int { return s.consentCost }

// Timestamp returns the request timestamp, copied verbatim.
func (s *Scored) Timestamp() string { return s.timestamp }

// AuditHash returns the hex digest sealing this result.
func (s *Scored) AuditHash() string { return s.auditHash }

// Terminal always returns false.
func (s *Scored) Terminal() bool { return false }

type scoredJSON struct {
	Decision    Decision `json:"decision"`
	ConsentCost int      `json:"consent_cost"`
	Timestamp   string   `json:"timestamp"`
	AuditHash   string   `json:"audit_hash"`
}

// MarshalJSON encodes {decision, consent_cost, timestamp, audit_hash}.
func (s *Scored) MarshalJSON() ([]byte, error) {
	return json.Marshal(scoredJSON{
		Decision:    s.decision,
		ConsentCost: s.consentCost,
		Timestamp:   s.timestamp,
		AuditHash:   s.auditHash,
	})
}

// DecodeResult parses a result previously produced by MarshalJSON. The shape
// is chosen by the presence of consent_cost.
func DecodeResult(data []byte) (Result, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, NewDecodeError("json", err)
	}

	if _, ok := probe["consent_cost"]; ok {
		var sj scoredJSON
		if err := json.Unmarshal(data, &sj); err != nil {
			return nil, NewDecodeError("json", err)
		}
		if !sj.Decision.IsValid() {
			return nil, NewDecodeError("json", fmt.Errorf("invalid decision %q", sj.Decision))
		}
		return &Scored{
			decision:    sj.Decision,
			consentCost: sj.ConsentCost,
			timestamp:   sj.Timestamp,
			auditHash:   sj.AuditHash,
		}, nil
	}

	var tj terminalJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, NewDecodeError("json", err)
	}
	if !tj.Decision.IsValid() {
		return nil, NewDecodeError("json", fmt.Errorf("invalid decision %q", tj.Decision))
	}
	return &Terminal{
		decision:  tj.Decision,
		reason:    tj.Reason,
		detail:    tj.Detail,
		auditHash: tj.AuditHash,
	}, nil
}
