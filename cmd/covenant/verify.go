package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/consent"
)

var verifyFlags struct {
	output string
}

var verifyCmd = &cobra.Command{
	Use:   "verify [file]",
	Short: "Recompute audit hashes of scored results",
	Long: `Verify that scored results have not been altered since evaluation.

The input is a single result object or an array of results, as written by
"covenant evaluate -o json" or the intake outbox. For each scored result
the audit hash is recomputed from its decision, consent cost and
timestamp. Terminal results (DENY or ESCALATE with a reason) are reported
as not verifiable because their hash covers only the decision.

Reads stdin when no file is given or the file is "-".

Examples:
  covenant verify results.json
  covenant evaluate -o json request.json | covenant verify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&verifyFlags.output, "output", "o", "text", "output format: text, json")
}

// verifyOutcome is one line of verify output.
type verifyOutcome struct {
	Index      int    `json:"index"`
	Decision   string `json:"decision"`
	AuditHash  string `json:"audit_hash"`
	Verifiable bool   `json:"verifiable"`
	Valid      bool   `json:"valid"`
}

var errHashMismatch = errors.New("audit hash mismatch")

func runVerify(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(verifyFlags.output)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("verify supports text and json output")
	}

	var data []byte
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return cli.NewCommandError("verify", err)
	}

	results, err := decodeResults(data)
	if err != nil {
		return cli.NewCommandError("verify", err)
	}

	outcomes := verifyResults(results)
	invalid := 0
	for _, o := range outcomes {
		if o.Verifiable && !o.Valid {
			invalid++
		}
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		if err := (&cli.JSONFormatter{Indent: true}).FormatTo(out, outcomes); err != nil {
			return err
		}
	} else {
		for _, o := range outcomes {
			status := "valid"
			switch {
			case !o.Verifiable:
				status = "not verifiable"
			case !o.Valid:
				status = "INVALID"
			}
			fmt.Fprintf(out, "[%d] %s %s: %s\n", o.Index, o.Decision, o.AuditHash, status)
		}
	}

	if invalid > 0 {
		return cli.NewCommandError("verify", fmt.Errorf("%d of %d result(s): %w", invalid, len(outcomes), errHashMismatch))
	}
	return nil
}

// decodeResults accepts a single result object or an array of them.
func decodeResults(data []byte) ([]consent.Result, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty input")
	}
	if trimmed[0] != '[' {
		r, err := consent.DecodeResult(trimmed)
		if err != nil {
			return nil, err
		}
		return []consent.Result{r}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("invalid result array: %w", err)
	}
	results := make([]consent.Result, 0, len(raw))
	for i, item := range raw {
		r, err := consent.DecodeResult(item)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func verifyResults(results []consent.Result) []verifyOutcome {
	outcomes := make([]verifyOutcome, len(results))
	for i, r := range results {
		outcomes[i] = verifyOutcome{
			Index:      i,
			Decision:   r.Decision().String(),
			AuditHash:  r.AuditHash(),
			Verifiable: !r.Terminal(),
			Valid:      consent.VerifyScored(r),
		}
	}
	return outcomes
}
