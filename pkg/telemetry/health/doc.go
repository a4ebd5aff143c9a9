// Package health provides liveness, readiness and version endpoints.
//
// Liveness always succeeds while the process runs. Readiness runs every
// registered check concurrently with a per-check timeout and reports 503
// if any fails. The serve command registers the evidence storage ping:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("evidence_storage", health.PingCheck(store))
//	r.Get(cfg.Telemetry.Health.ReadinessPath, checker.ReadinessHandler())
package health
