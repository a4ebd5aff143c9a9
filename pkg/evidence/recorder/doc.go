// Package recorder persists evidence records without blocking evaluations.
//
// Records are queued on a buffered channel and written by a single worker
// goroutine. When the buffer stays full for WriteTimeout the record is
// dropped, counted and logged; the evaluation result is unaffected.
//
// # Basic Usage
//
//	rec := recorder.NewRecorder(store, &recorder.Config{
//	    Enabled:      true,
//	    AsyncBuffer:  1000,
//	    WriteTimeout: 5 * time.Second,
//	}, recorder.WithObserver(collector))
//	defer rec.Close()
//
//	result := evaluator.Evaluate(req)
//	_ = rec.Observe(ctx, req, result, evidence.Meta{
//	    RequestID:   requestID,
//	    Source:      evidence.SourceHTTP,
//	    EvaluatedAt: time.Now(),
//	})
//
// # Shutdown
//
// Close stops intake, drains whatever is buffered and waits for the worker.
// Records offered after Close are dropped with a RecorderError.
//
// # Field Limits
//
// Request values are recorded as received, so an arbitrary JSON value in an
// enum field could be large. Observe truncates those fields to
// MaxFieldLength bytes. Audit and request hashes are computed before
// truncation.
package recorder
