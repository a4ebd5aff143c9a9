// Package export writes evidence records as JSON or CSV.
//
// # Export Formats
//
//   - JSON: always an array, compact or pretty-printed
//   - CSV: one row per record with an optional header row
//
// # Usage
//
//	exporter, err := export.New("csv", export.Options{Header: true})
//	if err != nil {
//	    return err
//	}
//	recordsCh, errCh, err := store.QueryStream(ctx, q)
//	if err != nil {
//	    return err
//	}
//	if err := exporter.ExportStream(ctx, recordsCh, os.Stdout); err != nil {
//	    return err
//	}
//	return <-errCh
//
// # Streaming
//
// ExportStream writes records as they arrive, so large exports never hold the
// full result set in memory.
//
// # Error Handling
//
// Encoding and writer failures are returned as *evidence.ExportError carrying
// the number of records written before the failure. Context cancellation is
// returned unwrapped.
package export
