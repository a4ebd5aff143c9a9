package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"mercator-hq/covenant/pkg/evidence"
)

func createTestRecord(id string) *evidence.Record {
	transfer := true
	aggregation := false
	return &evidence.Record{
		ID:               id,
		RequestID:        "req-" + id,
		Source:           evidence.SourceHTTP,
		EvaluatedAt:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		RecordedAt:       time.Date(2024, 6, 1, 12, 0, 0, 5000, time.UTC),
		EvaluationTime:   42 * time.Microsecond,
		ConsentState:     "EXPLICIT",
		IntendedUse:      "ANALYTICS",
		SensitivityLevel: "LOW",
		Transfer:         &transfer,
		Aggregation:      &aggregation,
		RequestTimestamp: "2024-01-01T00:00:00Z",
		RequestHash:      "rh",
		Decision:         "ESCALATE",
		Terminal:         true,
		Reason:           "escalation_triggered",
		Detail:           `["transfer"]`,
		AuditHash:        "ah",
	}
}

func streamOf(records ...*evidence.Record) <-chan *evidence.Record {
	ch := make(chan *evidence.Record, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)
	return ch
}

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"json", "*export.JSONExporter", false},
		{"CSV", "*export.CSVExporter", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := New(tt.format, Options{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if typeName := fmt.Sprintf("%T", got); typeName != tt.want {
					t.Errorf("New() type = %s, want %s", typeName, tt.want)
				}
			}
		})
	}
}

func TestJSONExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		records []*evidence.Record
		pretty  bool
		wantLen int
	}{
		{"nil records", nil, false, 0},
		{"single record is still an array", []*evidence.Record{createTestRecord("a")}, false, 1},
		{"pretty", []*evidence.Record{createTestRecord("a"), createTestRecord("b")}, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewJSONExporter(tt.pretty).Export(context.Background(), tt.records, &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			var decoded []evidence.Record
			if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
				t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
			}
			if len(decoded) != tt.wantLen {
				t.Errorf("decoded %d records, want %d", len(decoded), tt.wantLen)
			}
			if tt.pretty != strings.Contains(buf.String(), "\n") {
				t.Errorf("pretty=%v but output = %s", tt.pretty, buf.String())
			}
		})
	}
}

func TestJSONExporter_ExportStream(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		for _, n := range []int{0, 1, 3} {
			records := make([]*evidence.Record, n)
			for i := range records {
				records[i] = createTestRecord(string(rune('a' + i)))
			}

			var buf bytes.Buffer
			if err := NewJSONExporter(pretty).ExportStream(context.Background(), streamOf(records...), &buf); err != nil {
				t.Fatalf("ExportStream() error = %v", err)
			}

			var decoded []evidence.Record
			if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
				t.Fatalf("pretty=%v n=%d: invalid JSON: %v\n%s", pretty, n, err, buf.String())
			}
			if len(decoded) != n {
				t.Errorf("pretty=%v: decoded %d records, want %d", pretty, len(decoded), n)
			}
			for i, r := range decoded {
				if r.ID != records[i].ID {
					t.Errorf("record %d id = %s, want %s", i, r.ID, records[i].ID)
				}
			}
		}
	}
}

func TestExportStream_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan *evidence.Record)
	exporters := map[string]StreamExporter{
		"json": NewJSONExporter(false),
		"csv":  NewCSVExporter(true),
	}
	for name, exp := range exporters {
		t.Run(name, func(t *testing.T) {
			err := exp.ExportStream(ctx, ch, &bytes.Buffer{})
			if !errors.Is(err, context.Canceled) {
				t.Errorf("ExportStream() error = %v, want context.Canceled", err)
			}
		})
	}
}

func TestCSVExporter_Export(t *testing.T) {
	scored := createTestRecord("b")
	scored.Terminal = false
	scored.Reason = ""
	scored.Detail = ""
	scored.Transfer = nil
	cost := 2
	scored.ConsentCost = &cost
	scored.Decision = "ALLOW"

	var buf bytes.Buffer
	err := NewCSVExporter(true).Export(context.Background(), []*evidence.Record{createTestRecord("a"), scored}, &buf)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	header := rows[0]
	col := func(row []string, name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("column %s missing", name)
		return ""
	}

	if got := col(rows[1], "detail"); got != `["transfer"]` {
		t.Errorf("detail = %q", got)
	}
	if got := col(rows[1], "consent_cost"); got != "" {
		t.Errorf("terminal consent_cost = %q, want empty", got)
	}
	if got := col(rows[1], "evaluated_at"); got != "2024-06-01T12:00:00Z" {
		t.Errorf("evaluated_at = %q", got)
	}
	if got := col(rows[1], "evaluation_us"); got != "42" {
		t.Errorf("evaluation_us = %q", got)
	}
	if got := col(rows[2], "consent_cost"); got != "2" {
		t.Errorf("scored consent_cost = %q, want 2", got)
	}
	if got := col(rows[2], "transfer"); got != "" {
		t.Errorf("absent transfer = %q, want empty", got)
	}
	if got := col(rows[2], "aggregation"); got != "false" {
		t.Errorf("aggregation = %q, want false", got)
	}
}

func TestCSVExporter_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(false).ExportStream(context.Background(), streamOf(createTestRecord("a")), &buf); err != nil {
		t.Fatalf("ExportStream() error = %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "a" {
		t.Errorf("rows = %v", rows)
	}
	if len(rows[0]) != len(Columns()) {
		t.Errorf("row width = %d, want %d", len(rows[0]), len(Columns()))
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExport_WriterError(t *testing.T) {
	records := []*evidence.Record{createTestRecord("a")}
	exporters := map[string]StreamExporter{
		"json": NewJSONExporter(false),
		"csv":  NewCSVExporter(true),
	}
	for name, exp := range exporters {
		t.Run(name, func(t *testing.T) {
			err := exp.Export(context.Background(), records, failingWriter{})
			var exportErr *evidence.ExportError
			if !errors.As(err, &exportErr) {
				t.Fatalf("Export() error = %v, want *evidence.ExportError", err)
			}
			if exportErr.Format != name {
				t.Errorf("Format = %q, want %q", exportErr.Format, name)
			}
		})
	}
}

func BenchmarkCSVExporter_ExportStream(b *testing.B) {
	records := make([]*evidence.Record, 1000)
	for i := range records {
		records[i] = createTestRecord("bench")
	}
	exp := NewCSVExporter(true)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := exp.ExportStream(context.Background(), streamOf(records...), &buf); err != nil {
			b.Fatal(err)
		}
	}
}
