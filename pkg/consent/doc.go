// Package consent implements a deterministic consent-policy evaluator.
//
// Given a structured description of a data-processing request (consent
// posture, intended use, sensitivity, transfer and aggregation flags, and an
// opaque timestamp) the evaluator produces exactly one decision from a fixed
// vocabulary together with a tamper-evident audit hash.
//
// # Pipeline
//
// Evaluation runs three stages in strict sequence:
//
//  1. Validator: required fields and vocabularies. Violations fail closed.
//  2. Engine: prohibition checks, escalation triggers, and the cost matrix.
//  3. Sealer: canonical JSON plus SHA-256 over the outcome.
//
// The validator and the early engine checks short-circuit directly to the
// sealer.
//
// # Results
//
// A Result is one of two shapes:
//
//	// *Terminal: deny or escalate with a reason
//	{"decision": "DENY", "reason": "missing_field", "detail": "timestamp", "audit_hash": "..."}
//
//	// *Scored: the cost matrix ran
//	{"decision": "ALLOW", "consent_cost": 1, "timestamp": "...", "audit_hash": "..."}
//
// Scored hashes cover decision, consent_cost and timestamp and are
// reproducible. Terminal hashes cover reason, detail and the evaluation
// instant read from the evaluator's Clock, so replaying the same denial
// yields a different hash each time.
//
// # Basic Usage
//
//	req, err := consent.DecodeJSON(body)
//	if err != nil {
//	    return err
//	}
//	result := consent.Evaluate(req)
//	fmt.Println(result.Decision())
//
// Tests substitute the clock:
//
//	ev := consent.NewEvaluator(consent.WithClock(consent.FixedClock(t0)))
//
// # Concurrency
//
// Evaluator holds no mutable state and may be shared across goroutines.
package consent
