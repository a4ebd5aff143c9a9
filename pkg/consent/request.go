package consent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Request describes one data-processing request. A nil field means the field
// was absent from the input document.
type Request struct {
	ConsentState     *string `json:"consent_state,omitempty" yaml:"consent_state,omitempty"`
	IntendedUse      *string `json:"intended_use,omitempty" yaml:"intended_use,omitempty"`
	SensitivityLevel *string `json:"sensitivity_level,omitempty" yaml:"sensitivity_level,omitempty"`
	Transfer         *bool   `json:"transfer,omitempty" yaml:"transfer,omitempty"`
	Aggregation      *bool   `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Timestamp        *string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Has reports whether the named field is present.
func (r *Request) Has(field string) bool {
	if r == nil {
		return false
	}
	switch field {
	case FieldConsentState:
		return r.ConsentState != nil
	case FieldIntendedUse:
		return r.IntendedUse != nil
	case FieldSensitivityLevel:
		return r.SensitivityLevel != nil
	case FieldTransfer:
		return r.Transfer != nil
	case FieldAggregation:
		return r.Aggregation != nil
	case FieldTimestamp:
		return r.Timestamp != nil
	}
	return false
}

// Consent returns the consent state, or "" when absent.
func (r *Request) Consent() ConsentState {
	if r == nil || r.ConsentState == nil {
		return ""
	}
	return ConsentState(*r.ConsentState)
}

// Use returns the intended use, or "" when absent.
func (r *Request) Use() IntendedUse {
	if r == nil || r.IntendedUse == nil {
		return ""
	}
	return IntendedUse(*r.IntendedUse)
}

// Sensitivity returns the sensitivity level, or "" when absent.
func (r *Request) Sensitivity() Sensitivity {
	if r == nil || r.SensitivityLevel == nil {
		return ""
	}
	return Sensitivity(*r.SensitivityLevel)
}

// TimestampValue returns the timestamp, or "" when absent.
func (r *Request) TimestampValue() string {
	if r == nil || r.Timestamp == nil {
		return ""
	}
	return *r.Timestamp
}

func (r *Request) transferSet() bool {
	return r.Transfer != nil && *r.Transfer
}

func (r *Request) aggregationSet() bool {
	return r.Aggregation != nil && *r.Aggregation
}

// DecodeJSON decodes a single JSON object into a Request.
//
// Fields are read leniently so that malformed values fail closed during
// evaluation instead of failing the decode: non-string values for string
// fields are carried as their compact JSON text, and non-boolean values for
// transfer or aggregation are treated as present but not true.
func DecodeJSON(data []byte) (*Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, NewDecodeError("json", err)
	}
	if doc == nil {
		return nil, NewDecodeError("json", fmt.Errorf("document is not an object"))
	}
	return FromMap(doc), nil
}

// DecodeJSONList decodes either a single JSON object or an array of objects.
func DecodeJSONList(data []byte) ([]*Request, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		req, err := DecodeJSON(trimmed)
		if err != nil {
			return nil, err
		}
		return []*Request{req}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var docs []map[string]any
	if err := dec.Decode(&docs); err != nil {
		return nil, NewDecodeError("json", err)
	}

	reqs := make([]*Request, 0, len(docs))
	for i, doc := range docs {
		if doc == nil {
			return nil, NewDecodeError("json", fmt.Errorf("element %d is not an object", i))
		}
		reqs = append(reqs, FromMap(doc))
	}
	return reqs, nil
}

// DecodeYAML decodes a single YAML mapping into a Request.
func DecodeYAML(data []byte) (*Request, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewDecodeError("yaml", err)
	}
	if doc == nil {
		return nil, NewDecodeError("yaml", fmt.Errorf("document is not a mapping"))
	}
	return FromMap(doc), nil
}

// DecodeYAMLList decodes either a single YAML mapping or a sequence of mappings.
func DecodeYAMLList(data []byte) ([]*Request, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, NewDecodeError("yaml", err)
	}
	if len(node.Content) == 0 {
		return nil, NewDecodeError("yaml", fmt.Errorf("empty document"))
	}

	root := node.Content[0]
	if root.Kind != yaml.SequenceNode {
		var doc map[string]any
		if err := root.Decode(&doc); err != nil {
			return nil, NewDecodeError("yaml", err)
		}
		return []*Request{FromMap(doc)}, nil
	}

	var docs []map[string]any
	if err := root.Decode(&docs); err != nil {
		return nil, NewDecodeError("yaml", err)
	}

	reqs := make([]*Request, 0, len(docs))
	for _, doc := range docs {
		reqs = append(reqs, FromMap(doc))
	}
	return reqs, nil
}

// FromMap builds a Request from a generic document. Keys absent from doc are
// left nil.
func FromMap(doc map[string]any) *Request {
	return &Request{
		ConsentState:     textField(doc, FieldConsentState),
		IntendedUse:      textField(doc, FieldIntendedUse),
		SensitivityLevel: textField(doc, FieldSensitivityLevel),
		Transfer:         flagField(doc, FieldTransfer),
		Aggregation:      flagField(doc, FieldAggregation),
		Timestamp:        textField(doc, FieldTimestamp),
	}
}

// ToMap renders the present fields of r as a generic document.
func (r *Request) ToMap() map[string]any {
	doc := make(map[string]any, len(RequiredFields))
	if r == nil {
		return doc
	}
	if r.ConsentState != nil {
		doc[FieldConsentState] = *r.ConsentState
	}
	if r.IntendedUse != nil {
		doc[FieldIntendedUse] = *r.IntendedUse
	}
	if r.SensitivityLevel != nil {
		doc[FieldSensitivityLevel] = *r.SensitivityLevel
	}
	if r.Transfer != nil {
		doc[FieldTransfer] = *r.Transfer
	}
	if r.Aggregation != nil {
		doc[FieldAggregation] = *r.Aggregation
	}
	if r.Timestamp != nil {
		doc[FieldTimestamp] = *r.Timestamp
	}
	return doc
}

func textField(doc map[string]any, key string) *string {
	v, ok := doc[key]
	if !ok {
		return nil
	}

	switch val := v.(type) {
	case string:
		return &val
	case time.Time:
		s := val.UTC().Format(time.RFC3339Nano)
		return &s
	}

	raw, err := json.Marshal(v)
	if err != nil {
		s := fmt.Sprint(v)
		return &s
	}
	s := string(raw)
	return &s
}

// flagField only yields true for a boolean true. Any other present value
// (null, strings, numbers) is recorded as false.
func flagField(doc map[string]any, key string) *bool {
	v, ok := doc[key]
	if !ok {
		return nil
	}
	b, isBool := v.(bool)
	return Bool(isBool && b)
}
