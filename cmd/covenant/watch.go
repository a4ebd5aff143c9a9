package main

import (
	"context"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/intake"
)

var watchFlags struct {
	dir        string
	outbox     string
	processed  string
	noEvidence bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Evaluate documents dropped into a directory",
	Long: `Watch a directory and evaluate every request document written to it.

Existing documents are evaluated on start. Each <name>.json, .yaml or .yml
produces <outbox>/<name>.result.json. Documents that cannot be decoded
produce an error record instead and never stop the watcher.

Examples:
  # Watch the configured intake directory
  covenant watch

  # Watch ./inbox and move evaluated inputs to ./done
  covenant watch --dir ./inbox --outbox ./outbox --processed ./done`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFlags.dir, "dir", "", "directory to watch (default: intake.directory)")
	watchCmd.Flags().StringVar(&watchFlags.outbox, "outbox", "", "result directory (default: intake.outbox_directory)")
	watchCmd.Flags().StringVar(&watchFlags.processed, "processed", "", "move evaluated inputs here (default: leave in place)")
	watchCmd.Flags().BoolVar(&watchFlags.noEvidence, "no-evidence", false, "do not record evidence")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchFlags.dir != "" {
		cfg.Intake.Directory = watchFlags.dir
	}
	if watchFlags.outbox != "" {
		cfg.Intake.OutboxDirectory = watchFlags.outbox
	}
	if watchFlags.processed != "" {
		cfg.Intake.ProcessedDirectory = watchFlags.processed
	}
	cfg.Intake.Enabled = true
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("flags", err.Error())
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{evidence: !watchFlags.noEvidence})
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer a.Close(context.Background())

	watcher := intake.NewWatcher(cfg.Intake, a.svc,
		intake.WithTracer(a.tel.Tracer),
		intake.WithLogger(a.tel.Logger.With("component", "intake")),
	)
	if err := watcher.Run(ctx); err != nil {
		return cli.NewCommandError("watch", err)
	}
	return nil
}
