package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/export"
	"mercator-hq/covenant/pkg/evidence/query"
	"mercator-hq/covenant/pkg/evidence/retention"
)

// evidenceFilters are the filter flags shared by query, export and count.
// They map one-to-one onto the GET /v1/evidence query parameters.
type evidenceFilters struct {
	since        string
	until        string
	decision     string
	reason       string
	source       string
	consentState string
	intendedUse  string
	auditHash    string
	requestID    string
	terminal     string
	minCost      int
	maxCost      int
	limit        int
	offset       int
	sortBy       string
	sortOrder    string
}

func (f *evidenceFilters) register(fs *pflag.FlagSet, paged bool) {
	fs.StringVar(&f.since, "since", "", "records evaluated at or after (RFC 3339 or duration ago, e.g. 24h)")
	fs.StringVar(&f.until, "until", "", "records evaluated at or before (RFC 3339 or duration ago)")
	fs.StringVar(&f.decision, "decision", "", "filter by decision (ALLOW, ALLOW_WITH_CONTROLS, ESCALATE, DENY)")
	fs.StringVar(&f.reason, "reason", "", "filter by terminal reason (e.g. missing_field)")
	fs.StringVar(&f.source, "source", "", "filter by source (cli, http, intake)")
	fs.StringVar(&f.consentState, "consent-state", "", "filter by consent state as received")
	fs.StringVar(&f.intendedUse, "intended-use", "", "filter by intended use as received")
	fs.StringVar(&f.auditHash, "audit-hash", "", "filter by audit hash")
	fs.StringVar(&f.requestID, "request-id", "", "filter by request id")
	fs.StringVar(&f.terminal, "terminal", "", "true for terminal results only, false for scored only")
	fs.IntVar(&f.minCost, "min-cost", -1, "minimum consent cost")
	fs.IntVar(&f.maxCost, "max-cost", -1, "maximum consent cost")
	if paged {
		fs.IntVar(&f.limit, "limit", 0, "max results (default from query limits)")
		fs.IntVar(&f.offset, "offset", 0, "pagination offset")
		fs.StringVar(&f.sortBy, "sort-by", "", "evaluated_at, consent_cost or decision")
		fs.StringVar(&f.sortOrder, "sort-order", "", "asc or desc")
	}
}

func (f *evidenceFilters) values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("since", f.since)
	set("until", f.until)
	set("decision", f.decision)
	set("reason", f.reason)
	set("source", f.source)
	set("consent_state", f.consentState)
	set("intended_use", f.intendedUse)
	set("audit_hash", f.auditHash)
	set("request_id", f.requestID)
	set("terminal", f.terminal)
	set("sort_by", f.sortBy)
	set("sort_order", f.sortOrder)
	if f.minCost >= 0 {
		v.Set("min_cost", strconv.Itoa(f.minCost))
	}
	if f.maxCost >= 0 {
		v.Set("max_cost", strconv.Itoa(f.maxCost))
	}
	if f.limit > 0 {
		v.Set("limit", strconv.Itoa(f.limit))
	}
	if f.offset > 0 {
		v.Set("offset", strconv.Itoa(f.offset))
	}
	return v
}

func (f *evidenceFilters) query(now time.Time) (*evidence.Query, error) {
	return query.FromValues(f.values(), now)
}

var evidenceFlags struct {
	query  evidenceFilters
	export evidenceFilters
	count  evidenceFilters
	output string
	format string
	file   string

	pruneDays       int
	pruneMaxRecords int64
	pruneArchive    bool
	pruneDryRun     bool
}

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Query and manage recorded evidence",
	Long: `Query, export, count and prune evidence records.

Every evaluation made with evidence enabled is recorded with its request
fields as received, the decision, the audit hash and a hash of the
request. These commands read the backend named in the evidence config.

Subcommands:
  query   - list records matching filters
  export  - write matching records as JSON or CSV
  count   - count matching records
  prune   - apply the retention policy once`,
}

var evidenceQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query evidence records",
	Long: `Query evidence records with filters.

Examples:
  # Escalations from the last 24 hours
  covenant evidence query --since 24h --decision ESCALATE

  # Highest-cost scored results as JSON
  covenant evidence query --terminal=false --sort-by consent_cost -o json

  # Look up a result by audit hash
  covenant evidence query --audit-hash 3f0c...`,
	RunE: runEvidenceQuery,
}

var evidenceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export evidence records",
	Long: `Stream matching evidence records to a file or stdout.

Examples:
  # Export everything from March as CSV
  covenant evidence export --since 2026-03-01T00:00:00Z --until 2026-04-01T00:00:00Z --format csv --file march.csv

  # Export denials as JSON to stdout
  covenant evidence export --decision DENY`,
	RunE: runEvidenceExport,
}

var evidenceCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count evidence records",
	RunE:  runEvidenceCount,
}

var evidencePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Delete records older than the retention period and beyond the
maximum record count, optionally archiving them to JSON first.

Examples:
  # Apply the configured policy
  covenant evidence prune

  # Show how many records are older than 30 days
  covenant evidence prune --days 30 --dry-run`,
	RunE: runEvidencePrune,
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceQueryCmd, evidenceExportCmd, evidenceCountCmd, evidencePruneCmd)

	evidenceFlags.query.register(evidenceQueryCmd.Flags(), true)
	evidenceQueryCmd.Flags().StringVarP(&evidenceFlags.output, "output", "o", "text", "output format: text, json")

	evidenceFlags.export.register(evidenceExportCmd.Flags(), false)
	evidenceExportCmd.Flags().StringVar(&evidenceFlags.format, "format", "json", "export format: json, csv")
	evidenceExportCmd.Flags().StringVar(&evidenceFlags.file, "file", "", "output file (default: stdout)")

	evidenceFlags.count.register(evidenceCountCmd.Flags(), false)

	evidencePruneCmd.Flags().IntVar(&evidenceFlags.pruneDays, "days", -1, "override retention days (0 keeps forever)")
	evidencePruneCmd.Flags().Int64Var(&evidenceFlags.pruneMaxRecords, "max-records", -1, "override maximum record count (0 is unlimited)")
	evidencePruneCmd.Flags().BoolVar(&evidenceFlags.pruneArchive, "archive", false, "archive records to JSON before deleting")
	evidencePruneCmd.Flags().BoolVar(&evidenceFlags.pruneDryRun, "dry-run", false, "report what would be deleted by age without deleting")
}

// withStore loads config, opens the evidence store and runs fn with a
// context bounded by the query timeout.
func withStore(cmd *cobra.Command, name string, fn func(ctx context.Context, cfg *config.Config, store evidence.Storage) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()
	if cfg.Evidence.Query.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Evidence.Query.Timeout)
		defer cancel()
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return cli.NewCommandError(name, err)
	}
	defer store.Close()

	if err := fn(ctx, cfg, store); err != nil {
		return cli.NewCommandError(name, err)
	}
	return nil
}

func runEvidenceQuery(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evidenceFlags.output)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("use 'covenant evidence export --format csv' for CSV")
	}

	q, err := evidenceFlags.query.query(time.Now())
	if err != nil {
		return err
	}

	return withStore(cmd, "evidence query", func(ctx context.Context, _ *config.Config, store evidence.Storage) error {
		records, err := store.Query(ctx, q)
		if err != nil {
			return err
		}
		if format == cli.FormatText && len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No records found.")
			return nil
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), records)
	})
}

func runEvidenceExport(cmd *cobra.Command, args []string) error {
	q, err := evidenceFlags.export.query(time.Now())
	if err != nil {
		return err
	}
	return withStore(cmd, "evidence export", func(ctx context.Context, cfg *config.Config, store evidence.Storage) error {
		// Export every match rather than one page.
		total, err := store.Count(ctx, q)
		if err != nil {
			return err
		}
		if total > 0 {
			q.Limit = int(total)
		}
		q.Offset = 0

		exp, err := export.New(evidenceFlags.format, export.Options{
			Pretty: cfg.Evidence.Export.JSONPretty,
			Header: cfg.Evidence.Export.CSVIncludeHeader,
		})
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if evidenceFlags.file != "" {
			f, err := os.Create(evidenceFlags.file)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		recordsCh, errCh, err := store.QueryStream(ctx, q)
		if err != nil {
			return err
		}
		if err := exp.ExportStream(ctx, recordsCh, w); err != nil {
			return err
		}
		return <-errCh
	})
}

func runEvidenceCount(cmd *cobra.Command, args []string) error {
	q, err := evidenceFlags.count.query(time.Now())
	if err != nil {
		return err
	}

	return withStore(cmd, "evidence count", func(ctx context.Context, _ *config.Config, store evidence.Storage) error {
		n, err := store.Count(ctx, q)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	})
}

func runEvidencePrune(cmd *cobra.Command, args []string) error {
	return withStore(cmd, "evidence prune", func(ctx context.Context, cfg *config.Config, store evidence.Storage) error {
		rc := retentionConfig(cfg)
		if evidenceFlags.pruneDays >= 0 {
			rc.RetentionDays = evidenceFlags.pruneDays
		}
		if evidenceFlags.pruneMaxRecords >= 0 {
			rc.MaxRecords = evidenceFlags.pruneMaxRecords
		}
		if evidenceFlags.pruneArchive {
			rc.ArchiveBeforeDelete = true
		}

		pruner := retention.NewPruner(store, rc)
		out := cmd.OutOrStdout()

		if evidenceFlags.pruneDryRun {
			if rc.RetentionDays <= 0 {
				fmt.Fprintln(out, "retention disabled: no records are old enough to prune")
				return nil
			}
			cutoff := pruner.Cutoff()
			n, err := store.Count(ctx, &evidence.Query{EndTime: &cutoff})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d record(s) evaluated before %s would be deleted\n", n, cutoff.Format(time.RFC3339))
			return nil
		}

		n, err := pruner.Prune(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "pruned %d record(s)\n", n)
		return nil
	})
}
