package consent

// Cost thresholds of the v1 decision matrix.
const (
	// AllowMaxCost is the highest cost that is allowed outright.
	AllowMaxCost = 2

	// ControlsMaxCost is the highest cost allowed with controls.
	ControlsMaxCost = 4

	// FallbackCost prices consent states and sensitivity levels without a
	// dedicated table entry.
	FallbackCost = 5
)

// Verdict is an unsealed engine outcome: a *TerminalVerdict or a
// *ScoredVerdict.
type Verdict interface {
	verdict()
}

// TerminalVerdict is a deny or escalate decision carrying a reason.
type TerminalVerdict struct {
	Decision Decision
	Reason   Reason
	Detail   Detail
}

func (*TerminalVerdict) verdict() {}

// ScoredVerdict is a decision reached through the cost matrix.
type ScoredVerdict struct {
	Decision    Decision
	ConsentCost int
	Timestamp   string
}

func (*ScoredVerdict) verdict() {}

func deny(reason Reason, detail Detail) *TerminalVerdict {
	return &TerminalVerdict{Decision: DecisionDeny, Reason: reason, Detail: detail}
}

func escalate(reason Reason, detail Detail) *TerminalVerdict {
	return &TerminalVerdict{Decision: DecisionEscalate, Reason: reason, Detail: detail}
}

// Engine applies the fixed v1 consent policy.
type Engine struct {
	validator *Validator
}

// NewEngine creates a new decision engine.
func NewEngine() *Engine {
	return &Engine{validator: NewValidator()}
}

// Decide runs the policy over req. It is a pure function of req.
//
// Requests that would fail validation are re-routed to their validation
// verdict, so Decide is total over every input.
func (e *Engine) Decide(req *Request) Verdict {
	// Rule 1-2: vocabulary failures
	if out := e.validator.Validate(req); !out.OK() {
		return out.Verdict()
	}

	consent := req.Consent()

	// Rule 3: absolute prohibition
	if consent == ConsentProhibited {
		return deny(ReasonProhibitedConsent, NoDetail())
	}

	// Rule 4: consent not established
	if consent == ConsentUnknown {
		return escalate(ReasonUnknownConsent, NoDetail())
	}

	// Rule 5: escalation triggers, reported together
	if triggers := Triggers(req); len(triggers) > 0 {
		names := make([]string, len(triggers))
		for i, t := range triggers {
			names[i] = string(t)
		}
		return escalate(ReasonEscalationTriggered, DetailList(names...))
	}

	// Rule 6-7: cost matrix
	cost := ConsentCost(consent, req.Sensitivity())
	return &ScoredVerdict{
		Decision:    DecisionForCost(cost),
		ConsentCost: cost,
		Timestamp:   req.TimestampValue(),
	}
}

// Triggers returns the escalation conditions met by req in reporting order.
func Triggers(req *Request) []Trigger {
	var triggers []Trigger
	if req.transferSet() {
		triggers = append(triggers, TriggerTransfer)
	}
	if req.aggregationSet() {
		triggers = append(triggers, TriggerAggregation)
	}
	if req.Use() == UseModelTraining {
		triggers = append(triggers, TriggerModelTraining)
	}
	return triggers
}

// BaseCost returns the consent-strength component of the cost.
func BaseCost(s ConsentState) int {
	switch s {
	case ConsentExplicit:
		return 1
	case ConsentContractual, ConsentAnonymized:
		return 2
	case ConsentImplied:
		return 3
	}
	return FallbackCost
}

// SensitivityMultiplier returns the sensitivity component of the cost.
func SensitivityMultiplier(s Sensitivity) int {
	switch s {
	case SensitivityLow:
		return 1
	case SensitivityMedium:
		return 2
	case SensitivityHigh:
		return 4
	}
	return FallbackCost
}

// ConsentCost returns BaseCost(s) * SensitivityMultiplier(level).
func ConsentCost(s ConsentState, level Sensitivity) int {
	return BaseCost(s) * SensitivityMultiplier(level)
}

// DecisionForCost places a cost into its decision band.
func DecisionForCost(cost int) Decision {
	switch {
	case cost <= AllowMaxCost:
		return DecisionAllow
	case cost <= ControlsMaxCost:
		return DecisionAllowWithControls
	}
	return DecisionEscalate
}
