package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"mercator-hq/covenant/pkg/evidence"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// StreamExporter is an evidence.Exporter that can also consume a record
// stream.
type StreamExporter interface {
	evidence.Exporter
	ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error
}

// Options configures exporters built by New.
type Options struct {
	// Pretty indents JSON output.
	Pretty bool

	// Header writes the CSV header row.
	Header bool
}

// New returns the exporter for format.
func New(format string, opts Options) (StreamExporter, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return NewJSONExporter(opts.Pretty), nil
	case FormatCSV:
		return NewCSVExporter(opts.Header), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (must be %q or %q)", format, FormatJSON, FormatCSV)
	}
}
