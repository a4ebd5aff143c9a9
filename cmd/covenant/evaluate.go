package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/consent"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/intake"
)

var evaluateFlags struct {
	input      string
	output     string
	failOn     []string
	noEvidence bool
	outbox     string
	progress   bool
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [file|dir|-]...",
	Short: "Evaluate consent requests",
	Long: `Evaluate one or more consent request documents.

A document is one request object or a list of them, in JSON or YAML. Files
are decoded by extension; stdin ("-" or no arguments) is sniffed: a leading
'{' or '[' means JSON, anything else YAML.

A directory argument evaluates every .json, .yaml and .yml file in it and
writes <name>.result.json files to the outbox, like the watch command.

Policy outcomes are never errors: DENY and ESCALATE exit 0 unless listed
in --fail-on, in which case the command exits 3.

Examples:
  # Evaluate a file
  covenant evaluate request.json

  # Evaluate from stdin with JSON output
  echo '{"consent_state":"EXPLICIT", ...}' | covenant evaluate -o json

  # Fail a CI step on any DENY or ESCALATE
  covenant evaluate requests.yaml --fail-on DENY,ESCALATE

  # Evaluate a directory of documents
  covenant evaluate ./inbox --outbox ./results --progress`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evaluateFlags.input, "input", "", "input format for stdin: json or yaml (default: detect)")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.output, "output", "o", "text", "output format: text, json, csv")
	evaluateCmd.Flags().StringSliceVar(&evaluateFlags.failOn, "fail-on", nil, "exit 3 when any result has one of these decisions")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.noEvidence, "no-evidence", false, "do not record evidence for these evaluations")
	evaluateCmd.Flags().StringVar(&evaluateFlags.outbox, "outbox", "", "result directory for directory inputs (default: intake.outbox_directory)")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.progress, "progress", false, "show progress on stderr for directory inputs")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evaluateFlags.output)
	if err != nil {
		return err
	}
	failOn, err := parseDecisions(evaluateFlags.failOn)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{evidence: !evaluateFlags.noEvidence})
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	defer a.Close(context.Background())

	if len(args) == 0 {
		args = []string{"-"}
	}

	var results []consent.Result
	for _, arg := range args {
		info, statErr := os.Stat(arg)
		if arg != "-" && statErr == nil && info.IsDir() {
			dirResults, err := evaluateDir(ctx, a, arg, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return cli.NewCommandError("evaluate", err)
			}
			results = append(results, dirResults...)
			continue
		}

		fileResults, err := evaluateDocument(ctx, a, arg, cmd.InOrStdin())
		if err != nil {
			return cli.NewCommandError("evaluate", err)
		}
		results = append(results, fileResults...)
	}

	if len(results) > 0 {
		var out any = results
		if len(results) == 1 {
			out = results[0]
		}
		if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	}

	return checkFailOn(results, failOn)
}

// evaluateDocument decodes one file (or stdin for "-") and evaluates every
// request in it.
func evaluateDocument(ctx context.Context, a *app, path string, stdin io.Reader) ([]consent.Result, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	reqs, err := decodeRequests(path, data, evaluateFlags.input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	evs, err := a.svc.EvaluateBatch(ctx, evidence.SourceCLI, reqs)
	if err != nil {
		return nil, err
	}
	results := make([]consent.Result, len(evs))
	for i, ev := range evs {
		results[i] = ev.Result
	}
	return results, nil
}

// decodeRequests picks the decoder from the forced format, the file
// extension, or the first non-space byte.
func decodeRequests(path string, data []byte, forced string) ([]*consent.Request, error) {
	format := strings.ToLower(forced)
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			format = "json"
		case ".yaml", ".yml":
			format = "yaml"
		default:
			trimmed := bytes.TrimSpace(data)
			if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
				format = "json"
			} else {
				format = "yaml"
			}
		}
	}

	switch format {
	case "json":
		return consent.DecodeJSONList(data)
	case "yaml", "yml":
		return consent.DecodeYAMLList(data)
	default:
		return nil, fmt.Errorf("unknown input format %q (want json or yaml)", forced)
	}
}

// evaluateDir processes every accepted file in dir through the intake
// processor and reports one line per file to w.
func evaluateDir(ctx context.Context, a *app, dir string, w, progressOut io.Writer) ([]consent.Result, error) {
	icfg := a.cfg.Intake
	icfg.Directory = dir
	icfg.ProcessedDirectory = ""
	if evaluateFlags.outbox != "" {
		icfg.OutboxDirectory = evaluateFlags.outbox
	}

	proc := intake.NewProcessor(icfg, a.svc,
		intake.WithTracer(a.tel.Tracer),
		intake.WithLogger(a.tel.Logger.With("component", "intake")),
	)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && proc.Accepts(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	var progress *cli.Progress
	if evaluateFlags.progress {
		progress = cli.NewProgress(progressOut, "files")
		progress.Start(len(paths))
		defer progress.Finish()
	}

	var results []consent.Result
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		fr, err := proc.ProcessFile(ctx, path)
		if err != nil {
			return results, err
		}
		if progress != nil {
			progress.Increment(fr.DecodeErr != nil)
		}
		if fr.DecodeErr != nil {
			fmt.Fprintf(w, "%s: error: %v\n", path, fr.DecodeErr)
			continue
		}
		fmt.Fprintf(w, "%s: %d result(s) -> %s\n", path, len(fr.Results), fr.Output)
		results = append(results, fr.Results...)
	}
	return results, nil
}

func parseDecisions(values []string) (map[consent.Decision]bool, error) {
	set := make(map[consent.Decision]bool, len(values))
	for _, v := range values {
		d := consent.Decision(strings.ToUpper(strings.TrimSpace(v)))
		if !d.IsValid() {
			return nil, fmt.Errorf("--fail-on: unknown decision %q", v)
		}
		set[d] = true
	}
	return set, nil
}

// checkFailOn returns a DecisionError for the first listed decision, in
// severity order, that any result produced.
func checkFailOn(results []consent.Result, failOn map[consent.Decision]bool) error {
	if len(failOn) == 0 {
		return nil
	}

	counts := make(map[consent.Decision]int)
	for _, r := range results {
		if failOn[r.Decision()] {
			counts[r.Decision()]++
		}
	}
	for _, d := range []consent.Decision{consent.DecisionDeny, consent.DecisionEscalate, consent.DecisionAllowWithControls, consent.DecisionAllow, consent.DecisionDelete} {
		if counts[d] > 0 {
			return &cli.DecisionError{Decision: d.String(), Count: counts[d]}
		}
	}
	return nil
}
