package consent

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock sets the clock used to salt terminal audit hashes.
func WithClock(clock Clock) Option {
	return func(e *Evaluator) {
		if clock != nil {
			e.sealer = NewSealer(clock)
		}
	}
}

// Evaluator runs Validator, Engine and Sealer in sequence.
type Evaluator struct {
	validator *Validator
	engine    *Engine
	sealer    *Sealer
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		validator: NewValidator(),
		engine:    NewEngine(),
		sealer:    NewSealer(SystemClock{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate produces a sealed result for req.
//
// The request first passes the Validator. A missing field or an unknown
// consent state or intended use ends evaluation there with a terminal
// result. Otherwise the Engine applies the decision matrix:
//
//  1. PROHIBITED consent denies.
//  2. UNKNOWN consent escalates.
//  3. Transfer, aggregation and model training triggers escalate together.
//  4. Everything else is scored: ALLOW up to AllowMaxCost,
//     ALLOW_WITH_CONTROLS up to ControlsMaxCost, ESCALATE above.
//
// Every input, including nil, yields a result; policy outcomes are never
// errors. Scored results carry a reproducible audit hash. Terminal results
// carry a hash salted with the evaluator's clock, so replaying the same
// denial gives a different hash unless the clock is fixed:
//
//	ev := consent.NewEvaluator(consent.WithClock(consent.FixedClock(t0)))
//	res := ev.Evaluate(req)
//	fmt.Println(res.Decision(), res.AuditHash())
//
// Evaluate is safe for concurrent use.
func (e *Evaluator) Evaluate(req *Request) Result {
	if out := e.validator.Validate(req); !out.OK() {
		return e.sealer.Seal(out.Verdict())
	}
	return e.sealer.Seal(e.engine.Decide(req))
}

var defaultEvaluator = NewEvaluator()

// Evaluate evaluates req with a system-clock evaluator.
func Evaluate(req *Request) Result {
	return defaultEvaluator.Evaluate(req)
}
