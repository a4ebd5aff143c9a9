// Package telemetry wires covenant's observability components together.
//
// # Components
//
//   - logging: slog loggers with PII redaction and context fields
//   - metrics: Prometheus decision, evidence and HTTP metrics
//   - tracing: OpenTelemetry spans per evaluation
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, health.NewVersionInfo(version, commit, date), nil)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//	slog.SetDefault(tel.Logger)
package telemetry
