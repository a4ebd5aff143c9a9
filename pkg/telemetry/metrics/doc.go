// Package metrics provides Prometheus metrics for covenant.
//
// # Metrics
//
//   - covenant_decisions_total{decision,reason,source}
//   - covenant_escalation_triggers_total{trigger}
//   - covenant_consent_cost (histogram)
//   - covenant_evaluation_duration_seconds{decision}
//   - covenant_batch_size (histogram)
//   - covenant_evidence_records_stored_total, _write_failures_total,
//     _records_dropped_total, _write_duration_seconds
//   - covenant_http_requests_total{method,route,status},
//     covenant_http_request_duration_seconds{method,route},
//     covenant_http_requests_in_flight
//
// Scored results carry reason="scored".
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	rec := recorder.NewRecorder(store, recCfg, recorder.WithObserver(collector))
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// All recording methods are no-ops when metrics are disabled.
package metrics
