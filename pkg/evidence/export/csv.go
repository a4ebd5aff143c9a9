package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"mercator-hq/covenant/pkg/evidence"
)

// flushEvery bounds how many streamed rows are buffered before a flush.
const flushEvery = 100

// CSVExporter exports evidence records to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Columns returns the CSV column names in row order.
func Columns() []string {
	return []string{
		"id", "request_id", "source",
		"evaluated_at", "recorded_at", "evaluation_us",
		"consent_state", "intended_use", "sensitivity_level",
		"transfer", "aggregation", "request_timestamp", "request_hash",
		"decision", "terminal", "reason", "detail", "consent_cost", "audit_hash",
	}
}

// Export writes evidence records to w in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Columns()); err != nil {
			return evidence.NewExportError(FormatCSV, 0, err)
		}
	}

	for i, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return evidence.NewExportError(FormatCSV, i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError(FormatCSV, len(records), err)
	}
	return nil
}

// ExportStream writes rows as records arrive, flushing periodically.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Columns()); err != nil {
			return evidence.NewExportError(FormatCSV, 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError(FormatCSV, count, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return evidence.NewExportError(FormatCSV, count, err)
			}
			count++

			if count%flushEvery == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError(FormatCSV, count, err)
				}
			}
		}
	}
}

// recordToRow flattens a record. Absent flags and costs become empty cells.
func recordToRow(r *evidence.Record) []string {
	return []string{
		r.ID,
		r.RequestID,
		r.Source,
		formatTime(r.EvaluatedAt),
		formatTime(r.RecordedAt),
		strconv.FormatInt(r.EvaluationTime.Microseconds(), 10),
		r.ConsentState,
		r.IntendedUse,
		r.SensitivityLevel,
		formatBool(r.Transfer),
		formatBool(r.Aggregation),
		r.RequestTimestamp,
		r.RequestHash,
		r.Decision,
		strconv.FormatBool(r.Terminal),
		r.Reason,
		r.Detail,
		formatInt(r.ConsentCost),
		r.AuditHash,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
