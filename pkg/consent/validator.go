package consent

// ValidationKind classifies a validation outcome.
type ValidationKind int

// Validation outcomes.
const (
	Valid ValidationKind = iota
	MissingField
	UnknownConsentState
	UnknownIntendedUse
)

func (k ValidationKind) String() string {
	switch k {
	case Valid:
		return "valid"
	case MissingField:
		return "missing_field"
	case UnknownConsentState:
		return "unknown_consent_state"
	case UnknownIntendedUse:
		return "unknown_intended_use"
	}
	return "invalid"
}

// ValidationOutcome is the result of validating a request.
type ValidationOutcome struct {
	Kind ValidationKind

	// Field names the first missing field when Kind is MissingField.
	Field string
}

// OK reports whether the request passed validation.
func (o ValidationOutcome) OK() bool {
	return o.Kind == Valid
}

// Verdict converts a failed validation into its terminal verdict. It returns
// nil for a valid outcome.
func (o ValidationOutcome) Verdict() Verdict {
	switch o.Kind {
	case MissingField:
		return deny(ReasonMissingField, DetailText(o.Field))
	case UnknownIntendedUse:
		return deny(ReasonUnknownIntendedUse, NoDetail())
	case UnknownConsentState:
		return escalate(ReasonUnknownConsentState, NoDetail())
	}
	return nil
}

// Validator checks required fields and the fixed vocabularies.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks req and returns the first violation found.
//
// Required fields are checked in RequiredFields order. An out-of-vocabulary
// consent state is checked before an out-of-vocabulary intended use, so a
// request failing both is escalated rather than denied. Sensitivity and
// timestamp values are not checked.
func (v *Validator) Validate(req *Request) ValidationOutcome {
	for _, field := range RequiredFields {
		if !req.Has(field) {
			return ValidationOutcome{Kind: MissingField, Field: field}
		}
	}

	if !req.Consent().IsValid() {
		return ValidationOutcome{Kind: UnknownConsentState}
	}
	if !req.Use().IsValid() {
		return ValidationOutcome{Kind: UnknownIntendedUse}
	}

	return ValidationOutcome{Kind: Valid}
}
