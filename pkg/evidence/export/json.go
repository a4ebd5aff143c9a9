package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/covenant/pkg/evidence"
)

// JSONExporter exports evidence records as a JSON array.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records as a JSON array. An empty slice yields "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	if records == nil {
		records = []*evidence.Record{}
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return evidence.NewExportError(FormatJSON, 0, err)
	}

	if _, err := w.Write(data); err != nil {
		return evidence.NewExportError(FormatJSON, 0, err)
	}
	return nil
}

// ExportStream writes records from recordsCh as one JSON array, one record at
// a time.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return evidence.NewExportError(FormatJSON, 0, err)
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				closing := "]"
				if e.Pretty && count > 0 {
					closing = "\n]"
				}
				if _, err := io.WriteString(w, closing); err != nil {
					return evidence.NewExportError(FormatJSON, count, err)
				}
				return nil
			}

			sep := ","
			if count == 0 {
				sep = ""
			}
			if e.Pretty {
				sep += "\n  "
			}
			if _, err := io.WriteString(w, sep); err != nil {
				return evidence.NewExportError(FormatJSON, count, err)
			}

			data, err := e.serializeRecord(record)
			if err != nil {
				return evidence.NewExportError(FormatJSON, count, err)
			}
			if _, err := w.Write(data); err != nil {
				return evidence.NewExportError(FormatJSON, count, err)
			}
			count++
		}
	}
}

func (e *JSONExporter) serializeRecord(record *evidence.Record) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
