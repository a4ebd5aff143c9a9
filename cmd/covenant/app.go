package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/recorder"
	"mercator-hq/covenant/pkg/evidence/storage"
	"mercator-hq/covenant/pkg/service"
	"mercator-hq/covenant/pkg/telemetry"
)

// loadConfig loads the configuration named by --config, falling back to
// covenant.yaml in the working directory and then to built-in defaults.
// Environment overrides apply in every case.
func loadConfig() (*config.Config, error) {
	path := configPath()
	if err := config.Initialize(path); err != nil {
		return nil, cli.NewConfigError(displayPath(path), err.Error())
	}

	cfg := config.GetConfig()
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat(config.DefaultConfigurationFile); err == nil {
		return config.DefaultConfigurationFile
	}
	return ""
}

func displayPath(path string) string {
	if path == "" {
		return "defaults"
	}
	return path
}

// app holds the components a command wires together.
type app struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	store    evidence.Storage
	recorder *recorder.Recorder
	svc      *service.Service
}

type appOptions struct {
	// evidence opens storage and records evaluations when the config
	// enables it.
	evidence bool

	// logOutput overrides stderr.
	logOutput io.Writer
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	tel, err := telemetry.New(&cfg.Telemetry, buildInfo(), opts.logOutput)
	if err != nil {
		return nil, cli.NewConfigError("telemetry", err.Error())
	}
	slog.SetDefault(tel.Logger)

	a := &app{cfg: cfg, tel: tel}
	svcOpts := []service.Option{
		service.WithTracer(tel.Tracer),
		service.WithMetrics(tel.Metrics),
		service.WithLogger(tel.Logger.With("component", "service")),
		service.WithLimits(cfg.Evaluator),
	}

	if opts.evidence && cfg.Evidence.Enabled {
		store, err := storage.Open(ctx, &cfg.Evidence)
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, fmt.Errorf("open evidence storage: %w", err)
		}
		a.store = store
		a.recorder = recorder.NewRecorder(store, &recorder.Config{
			Enabled:        true,
			AsyncBuffer:    cfg.Evidence.Recorder.AsyncBuffer,
			WriteTimeout:   cfg.Evidence.Recorder.WriteTimeout,
			MaxFieldLength: cfg.Evidence.Recorder.MaxFieldLength,
		},
			recorder.WithObserver(tel.Metrics),
			recorder.WithLogger(tel.Logger.With("component", "evidence.recorder")),
		)
		svcOpts = append(svcOpts, service.WithEvidence(a.recorder))
	}

	a.svc = service.New(svcOpts...)
	return a, nil
}

// openStore opens evidence storage without the rest of the app, for the
// evidence subcommands.
func openStore(ctx context.Context, cfg *config.Config) (evidence.Storage, error) {
	store, err := storage.Open(ctx, &cfg.Evidence)
	if err != nil {
		return nil, fmt.Errorf("open evidence storage: %w", err)
	}
	return store, nil
}

// Close drains the recorder, closes storage and flushes spans.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.recorder != nil {
		errs = append(errs, a.recorder.Close())
		if st := a.recorder.Stats(); st.Failed > 0 || st.Dropped > 0 {
			a.tel.Logger.Warn("evidence records lost",
				"stored", st.Stored,
				"failed", st.Failed,
				"dropped", st.Dropped,
			)
		}
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.tel.Shutdown(ctx))
	return errors.Join(errs...)
}
