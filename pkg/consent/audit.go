package consent

import (
	"fmt"
	"time"

	"mercator-hq/covenant/pkg/canonical"
)

// SaltFormat is the layout of the evaluation instant mixed into terminal
// audit hashes.
const SaltFormat = time.RFC3339Nano

type scoredRecord struct {
	ConsentCost int      `json:"consent_cost"`
	Decision    Decision `json:"decision"`
	Timestamp   string   `json:"timestamp"`
}

type terminalRecord struct {
	Detail Detail `json:"detail"`
	Reason Reason `json:"reason"`
	TS     string `json:"ts"`
}

// Sealer attaches audit hashes to verdicts.
//
// Scored verdicts hash {consent_cost, decision, timestamp} and are
// reproducible. Terminal verdicts hash {detail, reason, ts} where ts is read
// from the clock at sealing time, so identical denials never share a hash
// unless the clock reads the same instant.
type Sealer struct {
	clock Clock
}

// NewSealer creates a sealer reading terminal salts from clock. A nil clock
// uses the system clock.
func NewSealer(clock Clock) *Sealer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Sealer{clock: clock}
}

// Seal converts a verdict into a sealed Result.
//
// A *ScoredVerdict becomes a *Scored whose hash covers only its decision,
// cost and request timestamp, so the same triple always seals to the same
// hash. A *TerminalVerdict becomes a *Terminal whose hash covers its reason,
// detail and the clock reading at the moment of sealing.
//
// Both payloads are serialized as RFC 8785 canonical JSON and hashed with
// SHA-256; the hash is the lowercase hex digest. Seal panics on any other
// Verdict implementation, which would be a programming error in this
// package.
func (s *Sealer) Seal(v Verdict) Result {
	switch v := v.(type) {
	case *ScoredVerdict:
		return &Scored{
			decision:    v.Decision,
			consentCost: v.ConsentCost,
			timestamp:   v.Timestamp,
			auditHash:   ScoredHash(v.Decision, v.ConsentCost, v.Timestamp),
		}
	case *TerminalVerdict:
		salt := s.clock.Now().UTC().Format(SaltFormat)
		return &Terminal{
			decision:  v.Decision,
			reason:    v.Reason,
			detail:    v.Detail,
			auditHash: TerminalHash(v.Reason, v.Detail, salt),
		}
	}
	panic(fmt.Sprintf("consent: unsealable verdict %T", v))
}

// ScoredHash computes the reproducible hash of a scored outcome.
func ScoredHash(decision Decision, cost int, timestamp string) string {
	return mustHash(scoredRecord{
		ConsentCost: cost,
		Decision:    decision,
		Timestamp:   timestamp,
	})
}

// TerminalHash computes the hash of a terminal outcome salted with ts.
func TerminalHash(reason Reason, detail Detail, ts string) string {
	return mustHash(terminalRecord{
		Detail: detail,
		Reason: reason,
		TS:     ts,
	})
}

// VerifyScored reports whether a scored result's hash matches its content.
// Terminal results cannot be verified without their salt and always report
// false.
func VerifyScored(r Result) bool {
	s, ok := r.(*Scored)
	if !ok {
		return false
	}
	return s.auditHash == ScoredHash(s.decision, s.consentCost, s.timestamp)
}

// mustHash panics only if a record type above stops being JSON-encodable.
func mustHash(v any) string {
	h, err := canonical.Hash(v)
	if err != nil {
		panic(fmt.Sprintf("consent: audit encoding failed: %v", err))
	}
	return h
}
