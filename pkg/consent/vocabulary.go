package consent

// ConsentState is the data subject's recorded consent posture.
type ConsentState string

// Consent states.
const (
	ConsentExplicit    ConsentState = "EXPLICIT"
	ConsentImplied     ConsentState = "IMPLIED"
	ConsentContractual ConsentState = "CONTRACTUAL"
	ConsentAnonymized  ConsentState = "ANONYMIZED"
	ConsentUnknown     ConsentState = "UNKNOWN"
	ConsentProhibited  ConsentState = "PROHIBITED"
)

var validConsentStates = map[ConsentState]bool{
	ConsentExplicit:    true,
	ConsentImplied:     true,
	ConsentContractual: true,
	ConsentAnonymized:  true,
	ConsentUnknown:     true,
	ConsentProhibited:  true,
}

// IsValid reports whether s belongs to the consent vocabulary.
func (s ConsentState) IsValid() bool {
	return validConsentStates[s]
}

func (s ConsentState) String() string {
	return string(s)
}

// IntendedUse is the declared purpose for processing.
type IntendedUse string

// Intended uses.
const (
	UseCoreService   IntendedUse = "CORE_SERVICE"
	UseAnalytics     IntendedUse = "ANALYTICS"
	UseMarketing     IntendedUse = "MARKETING"
	UseModelTraining IntendedUse = "MODEL_TRAINING"
)

var validIntendedUses = map[IntendedUse]bool{
	UseCoreService:   true,
	UseAnalytics:     true,
	UseMarketing:     true,
	UseModelTraining: true,
}

// IsValid reports whether u belongs to the intended-use vocabulary.
func (u IntendedUse) IsValid() bool {
	return validIntendedUses[u]
}

func (u IntendedUse) String() string {
	return string(u)
}

// Sensitivity is the declared sensitivity of the data. Values outside
// LOW, MEDIUM and HIGH are accepted and priced with the fallback multiplier.
type Sensitivity string

// Recognized sensitivity levels.
const (
	SensitivityLow    Sensitivity = "LOW"
	SensitivityMedium Sensitivity = "MEDIUM"
	SensitivityHigh   Sensitivity = "HIGH"
)

// IsRecognized reports whether s has a dedicated multiplier.
func (s Sensitivity) IsRecognized() bool {
	switch s {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
		return true
	}
	return false
}

func (s Sensitivity) String() string {
	return string(s)
}

// Decision is the evaluator's verdict.
type Decision string

// Decisions. DecisionDelete is reserved for a future policy revision and is
// never produced by the current matrix.
const (
	DecisionAllow             Decision = "ALLOW"
	DecisionAllowWithControls Decision = "ALLOW_WITH_CONTROLS"
	DecisionEscalate          Decision = "ESCALATE"
	DecisionDeny              Decision = "DENY"
	DecisionDelete            Decision = "DELETE"
)

// Decisions lists every legal decision value in severity order.
var Decisions = []Decision{
	DecisionAllow,
	DecisionAllowWithControls,
	DecisionEscalate,
	DecisionDeny,
	DecisionDelete,
}

// IsValid reports whether d is a legal decision value.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionAllow, DecisionAllowWithControls, DecisionEscalate, DecisionDeny, DecisionDelete:
		return true
	}
	return false
}

func (d Decision) String() string {
	return string(d)
}

// Reason names why a terminal outcome was produced.
type Reason string

// Terminal reasons.
const (
	ReasonMissingField        Reason = "missing_field"
	ReasonUnknownConsentState Reason = "unknown_consent_state"
	ReasonUnknownIntendedUse  Reason = "unknown_intended_use"
	ReasonProhibitedConsent   Reason = "prohibited_consent"
	ReasonUnknownConsent      Reason = "unknown_consent"
	ReasonEscalationTriggered Reason = "escalation_triggered"
)

func (r Reason) String() string {
	return string(r)
}

// Trigger is a named escalation condition.
type Trigger string

// Escalation triggers, in reporting order.
const (
	TriggerTransfer      Trigger = "transfer"
	TriggerAggregation   Trigger = "aggregation"
	TriggerModelTraining Trigger = "model_training"
)

// Field names of a request, in validation order.
const (
	FieldConsentState     = "consent_state"
	FieldIntendedUse      = "intended_use"
	FieldSensitivityLevel = "sensitivity_level"
	FieldTransfer         = "transfer"
	FieldAggregation      = "aggregation"
	FieldTimestamp        = "timestamp"
)

// RequiredFields lists the request fields in the order they are checked.
var RequiredFields = []string{
	FieldConsentState,
	FieldIntendedUse,
	FieldSensitivityLevel,
	FieldTransfer,
	FieldAggregation,
	FieldTimestamp,
}
