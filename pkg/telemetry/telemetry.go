package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/telemetry/health"
	"mercator-hq/covenant/pkg/telemetry/logging"
	"mercator-hq/covenant/pkg/telemetry/metrics"
	"mercator-hq/covenant/pkg/telemetry/tracing"
)

// Telemetry bundles the logger, metrics collector, tracer and health
// checker built from one telemetry config section.
type Telemetry struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Health  *health.Checker
	Version health.VersionInfo
}

// New builds every telemetry component. Logs go to logOutput (stderr when nil).
func New(cfg *config.TelemetryConfig, version health.VersionInfo, logOutput io.Writer) (*Telemetry, error) {
	logCfg := logging.FromConfig(cfg.Logging)
	logCfg.Writer = logOutput
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing, tracing.WithServiceVersion(version.Version))
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	return &Telemetry{
		Logger:  logger,
		Metrics: metrics.NewCollector(&cfg.Metrics, nil),
		Tracer:  tracer,
		Health:  health.New(cfg.Health.CheckTimeout),
		Version: version,
	}, nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.Tracer.Shutdown(ctx)
}
