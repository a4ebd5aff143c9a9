// Package tracing provides OpenTelemetry tracing for consent evaluations.
//
// Each evaluation opens a consent.evaluate span carrying the request fields
// that were present and the resulting decision, reason or cost, and audit
// hash. Batches open a consent.evaluate_batch parent span. Spans are
// exported over OTLP gRPC; when tracing is disabled the tracer is a noop.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(version))
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, tracing.SpanEvaluate,
//	    trace.WithAttributes(tracing.RequestAttributes(req)...))
//	result := evaluator.Evaluate(req)
//	tracing.SetResultAttributes(span, result)
//	span.End()
//
// # Sampling
//
// Samplers are parent-based. Root spans use "always", "never" or "ratio"
// (trace ID ratio with sample_ratio).
package tracing
