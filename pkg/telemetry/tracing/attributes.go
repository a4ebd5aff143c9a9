package tracing

import (
	"mercator-hq/covenant/pkg/consent"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanEvaluate      = "consent.evaluate"
	SpanEvaluateBatch = "consent.evaluate_batch"
	SpanIntakeFile    = "intake.process_file"
)

// Attribute keys for consent evaluation spans.
const (
	AttrSource           = attribute.Key("covenant.source")
	AttrRequestID        = attribute.Key("covenant.request_id")
	AttrBatchSize        = attribute.Key("covenant.batch_size")
	AttrConsentState     = attribute.Key("consent.state")
	AttrIntendedUse      = attribute.Key("consent.intended_use")
	AttrSensitivityLevel = attribute.Key("consent.sensitivity_level")
	AttrTransfer         = attribute.Key("consent.transfer")
	AttrAggregation      = attribute.Key("consent.aggregation")
	AttrDecision         = attribute.Key("consent.decision")
	AttrReason           = attribute.Key("consent.reason")
	AttrCost             = attribute.Key("consent.cost")
	AttrAuditHash        = attribute.Key("consent.audit_hash")
	AttrTerminal         = attribute.Key("consent.terminal")
)

// RequestAttributes returns attributes for the fields present on req.
// Absent fields are omitted rather than recorded as empty.
func RequestAttributes(req *consent.Request) []attribute.KeyValue {
	if req == nil {
		return nil
	}

	var attrs []attribute.KeyValue
	if req.ConsentState != nil {
		attrs = append(attrs, AttrConsentState.String(*req.ConsentState))
	}
	if req.IntendedUse != nil {
		attrs = append(attrs, AttrIntendedUse.String(*req.IntendedUse))
	}
	if req.SensitivityLevel != nil {
		attrs = append(attrs, AttrSensitivityLevel.String(*req.SensitivityLevel))
	}
	if req.Transfer != nil {
		attrs = append(attrs, AttrTransfer.Bool(*req.Transfer))
	}
	if req.Aggregation != nil {
		attrs = append(attrs, AttrAggregation.Bool(*req.Aggregation))
	}
	return attrs
}

// ResultAttributes returns attributes describing result.
func ResultAttributes(result consent.Result) []attribute.KeyValue {
	if result == nil {
		return nil
	}

	attrs := []attribute.KeyValue{
		AttrDecision.String(result.Decision().String()),
		AttrAuditHash.String(result.AuditHash()),
		AttrTerminal.Bool(result.Terminal()),
	}
	switch r := result.(type) {
	case *consent.Terminal:
		attrs = append(attrs, AttrReason.String(r.Reason().String()))
	case *consent.Scored:
		attrs = append(attrs, AttrCost.Int(r.ConsentCost()))
	}
	return attrs
}

// SetResultAttributes records result on span.
func SetResultAttributes(span trace.Span, result consent.Result) {
	span.SetAttributes(ResultAttributes(result)...)
}
