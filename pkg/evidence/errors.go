package evidence

import (
	"errors"
	"fmt"
)

var (
	// ErrRecorderClosed is returned for records submitted after Close.
	ErrRecorderClosed = errors.New("evidence recorder closed")

	// ErrBufferFull is returned when a record waited WriteTimeout for room
	// in the recorder buffer and was dropped.
	ErrBufferFull = errors.New("evidence buffer full")
)

// StorageError reports a failed backend operation.
type StorageError struct {
	Backend   string // memory, sqlite, sqlite-pure, postgres
	Operation string // open, store, query, count, delete, ...
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("evidence %s backend: %s: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// QueryError reports a query rejected before reaching storage. HTTP
// handlers map it to 400.
type QueryError struct {
	Query *Query
	Cause error
}

func (e *QueryError) Error() string {
	return "invalid evidence query: " + e.Cause.Error()
}

func (e *QueryError) Unwrap() error { return e.Cause }

// NewQueryError creates a QueryError.
func NewQueryError(query *Query, cause error) *QueryError {
	return &QueryError{Query: query, Cause: cause}
}

// RecorderError reports a record that was not enqueued.
type RecorderError struct {
	RecordID string
	Cause    error
}

func (e *RecorderError) Error() string {
	if e.RecordID == "" {
		return "evidence record dropped: " + e.Cause.Error()
	}
	return fmt.Sprintf("evidence record %s dropped: %v", e.RecordID, e.Cause)
}

func (e *RecorderError) Unwrap() error { return e.Cause }

// NewRecorderError creates a RecorderError.
func NewRecorderError(recordID string, cause error) *RecorderError {
	return &RecorderError{RecordID: recordID, Cause: cause}
}

// RetentionError reports a failed pruning pass.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("evidence pruning (%d day retention): %v", e.RetentionDays, e.Cause)
}

func (e *RetentionError) Unwrap() error { return e.Cause }

// NewRetentionError creates a RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{RetentionDays: retentionDays, Cause: cause}
}

// ExportError reports an export that stopped part way. RecordCount is the
// number of records written before the failure.
type ExportError struct {
	Format      string
	RecordCount int
	Cause       error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%s export failed after %d record(s): %v", e.Format, e.RecordCount, e.Cause)
}

func (e *ExportError) Unwrap() error { return e.Cause }

// NewExportError creates an ExportError.
func NewExportError(format string, recordCount int, cause error) *ExportError {
	return &ExportError{Format: format, RecordCount: recordCount, Cause: cause}
}
