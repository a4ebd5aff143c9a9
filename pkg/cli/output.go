package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"mercator-hq/covenant/pkg/consent"
	"mercator-hq/covenant/pkg/evidence"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output; results use their canonical wire shape.
	FormatJSON OutputFormat = "json"
	// FormatCSV is one row per result.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or csv)", s)
	}
}

// Formatter writes command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// NewFormatter creates a formatter for format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{Header: true}
	default:
		return &TextFormatter{}
	}
}

// TextFormatter renders results one per line and evidence records as a
// table. Other values print with %v.
type TextFormatter struct{}

// FormatTo writes data to w.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case consent.Result:
		_, err := fmt.Fprintln(w, ResultLine(v))
		return err
	case []consent.Result:
		for i, r := range v {
			if _, err := fmt.Fprintf(w, "[%d] %s\n", i, ResultLine(r)); err != nil {
				return err
			}
		}
		return nil
	case []*evidence.Record:
		return writeRecordTable(w, v)
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

// ResultLine renders a result on one line:
//
//	ALLOW consent_cost=1 timestamp=2026-01-01T00:00:00Z audit_hash=3f0c...
//	DENY reason=missing_field detail=intended_use audit_hash=9a41...
func ResultLine(r consent.Result) string {
	var b strings.Builder
	b.WriteString(r.Decision().String())

	switch v := r.(type) {
	case *consent.Terminal:
		fmt.Fprintf(&b, " reason=%s", v.Reason())
		if !v.Detail().IsZero() {
			fmt.Fprintf(&b, " detail=%s", v.Detail())
		}
	case *consent.Scored:
		fmt.Fprintf(&b, " consent_cost=%d timestamp=%s", v.ConsentCost(), v.Timestamp())
	}

	fmt.Fprintf(&b, " audit_hash=%s", r.AuditHash())
	return b.String()
}

func writeRecordTable(w io.Writer, records []*evidence.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEVALUATED AT\tSOURCE\tDECISION\tREASON/COST\tAUDIT HASH")
	for _, r := range records {
		outcome := r.Reason
		if !r.Terminal && r.ConsentCost != nil {
			outcome = "cost " + strconv.Itoa(*r.ConsentCost)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.EvaluatedAt.UTC().Format(time.RFC3339),
			r.Source,
			r.Decision,
			outcome,
			shortHash(r.AuditHash),
		)
	}
	return tw.Flush()
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w as JSON.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// resultColumns is the CSV layout for results. Fields that do not apply
// to a result's shape are left empty.
var resultColumns = []string{"decision", "reason", "detail", "consent_cost", "timestamp", "audit_hash"}

// CSVFormatter writes results as CSV rows.
type CSVFormatter struct {
	Header bool
}

// FormatTo writes a consent.Result or []consent.Result to w.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	var results []consent.Result
	switch v := data.(type) {
	case consent.Result:
		results = []consent.Result{v}
	case []consent.Result:
		results = v
	default:
		return fmt.Errorf("csv output not supported for %T", data)
	}

	cw := csv.NewWriter(w)
	if f.Header {
		if err := cw.Write(resultColumns); err != nil {
			return err
		}
	}
	for _, r := range results {
		if err := cw.Write(resultRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func resultRow(r consent.Result) []string {
	row := make([]string, len(resultColumns))
	row[0] = r.Decision().String()
	row[5] = r.AuditHash()

	switch v := r.(type) {
	case *consent.Terminal:
		row[1] = v.Reason().String()
		row[2] = v.Detail().String()
	case *consent.Scored:
		row[3] = strconv.Itoa(v.ConsentCost())
		row[4] = v.Timestamp()
	}
	return row
}
