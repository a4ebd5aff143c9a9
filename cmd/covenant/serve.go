package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/evidence/retention"
	"mercator-hq/covenant/pkg/intake"
	"mercator-hq/covenant/pkg/server"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	withIntake    bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP evaluation server",
	Long: `Start the covenant HTTP server.

The server exposes POST /v1/evaluate, /v1/evaluate/batch and /v1/verify,
GET /v1/evidence, health and version endpoints, and Prometheus metrics.
When evidence retention has a prune schedule, pruning runs in the
background. When intake is enabled (or --intake is set), the drop
directory is watched as well.

Examples:
  # Start with covenant.yaml from the working directory
  covenant serve

  # Start with a custom config and listen address
  covenant serve --config /etc/covenant/covenant.yaml --listen 0.0.0.0:8080

  # Validate config and wiring without listening
  covenant serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.withIntake, "intake", false, "also watch the intake directory")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}
	if serveFlags.withIntake {
		cfg.Intake.Enabled = true
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("flags", err.Error())
	}
	config.SetConfig(cfg)

	if serveFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{evidence: true})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer a.Close(context.Background())

	if a.store != nil && cfg.Evidence.Retention.PruneSchedule != "" {
		pruner := retention.NewPruner(a.store, retentionConfig(cfg),
			retention.WithLogger(a.tel.Logger.With("component", "evidence.retention")))
		if err := pruner.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer pruner.Stop()
			if next := pruner.NextPruning(); next != nil {
				slog.Debug("evidence retention scheduler started", "next_pruning", next)
			}
		}
	}

	var srvOpts []server.Option
	if a.store != nil {
		srvOpts = append(srvOpts, server.WithEvidence(a.store))
	}
	srv := server.New(cfg, a.svc, a.tel, srvOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if cfg.Intake.Enabled {
		watcher := intake.NewWatcher(cfg.Intake, a.svc,
			intake.WithTracer(a.tel.Tracer),
			intake.WithLogger(a.tel.Logger.With("component", "intake")),
		)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	go func() {
		select {
		case <-srv.Ready():
			addr := srv.Addr().String()
			fmt.Fprintf(cmd.ErrOrStderr(), "covenant %s listening on %s\n", Version, addr)
			fmt.Fprintf(cmd.ErrOrStderr(), "  health:  http://%s%s\n", addr, cfg.Telemetry.Health.LivenessPath)
			if cfg.Telemetry.Metrics.Enabled {
				fmt.Fprintf(cmd.ErrOrStderr(), "  metrics: http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
			}
			if cfg.Intake.Enabled {
				fmt.Fprintf(cmd.ErrOrStderr(), "  intake:  %s -> %s\n", cfg.Intake.Directory, cfg.Intake.OutboxDirectory)
			}
		case <-gctx.Done():
		}
	}()

	if err := g.Wait(); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

func retentionConfig(cfg *config.Config) *retention.Config {
	return &retention.Config{
		RetentionDays:       cfg.Evidence.Retention.Days,
		PruneSchedule:       cfg.Evidence.Retention.PruneSchedule,
		ArchiveBeforeDelete: cfg.Evidence.Retention.ArchiveBeforeDelete,
		ArchivePath:         cfg.Evidence.Retention.ArchivePath,
		MaxRecords:          cfg.Evidence.Retention.MaxRecords,
	}
}
