package evidence

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"mercator-hq/covenant/pkg/canonical"
	"mercator-hq/covenant/pkg/consent"
)

// Evaluation sources.
const (
	SourceCLI    = "cli"
	SourceHTTP   = "http"
	SourceIntake = "intake"
)

// Record is the audit trail entry for a single evaluation.
type Record struct {
	// Identity
	ID        string `json:"id"`         // UUID v4
	RequestID string `json:"request_id"` // Correlation ID from the caller
	Source    string `json:"source"`     // cli, http, intake

	// Timestamps
	EvaluatedAt    time.Time     `json:"evaluated_at"`
	RecordedAt     time.Time     `json:"recorded_at"`
	EvaluationTime time.Duration `json:"evaluation_time"`

	// Request as received. Empty strings and nil flags mean absent.
	ConsentState     string `json:"consent_state"`
	IntendedUse      string `json:"intended_use"`
	SensitivityLevel string `json:"sensitivity_level"`
	Transfer         *bool  `json:"transfer"`
	Aggregation      *bool  `json:"aggregation"`
	RequestTimestamp string `json:"request_timestamp"`
	RequestHash      string `json:"request_hash"` // SHA-256 of the canonical request document

	// Result
	Decision    string `json:"decision"`
	Terminal    bool   `json:"terminal"`
	Reason      string `json:"reason,omitempty"`
	Detail      string `json:"detail,omitempty"` // JSON text: null, "x", or [...]
	ConsentCost *int   `json:"consent_cost,omitempty"`
	AuditHash   string `json:"audit_hash"`
}

// Meta carries the context of an evaluation that is not part of the request.
type Meta struct {
	RequestID      string
	Source         string
	EvaluatedAt    time.Time
	EvaluationTime time.Duration
}

// NewRecord builds a record from a request and its sealed result.
func NewRecord(req *consent.Request, result consent.Result, meta Meta) *Record {
	rec := &Record{
		ID:             uuid.New().String(),
		RequestID:      meta.RequestID,
		Source:         meta.Source,
		EvaluatedAt:    meta.EvaluatedAt,
		EvaluationTime: meta.EvaluationTime,
		RequestHash:    RequestHash(req),
	}

	if req != nil {
		rec.ConsentState = string(req.Consent())
		rec.IntendedUse = string(req.Use())
		rec.SensitivityLevel = string(req.Sensitivity())
		rec.RequestTimestamp = req.TimestampValue()
		rec.Transfer = copyBool(req.Transfer)
		rec.Aggregation = copyBool(req.Aggregation)
	}

	if result == nil {
		return rec
	}

	rec.Decision = string(result.Decision())
	rec.AuditHash = result.AuditHash()
	rec.Terminal = result.Terminal()

	switch r := result.(type) {
	case *consent.Terminal:
		rec.Reason = string(r.Reason())
		if detail, err := json.Marshal(r.Detail()); err == nil {
			rec.Detail = string(detail)
		}
	case *consent.Scored:
		cost := r.ConsentCost()
		rec.ConsentCost = &cost
	}

	return rec
}

// RequestHash returns the canonical SHA-256 of the fields present in req.
func RequestHash(req *consent.Request) string {
	h, err := canonical.Hash(req.ToMap())
	if err != nil {
		return ""
	}
	return h
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// Query defines filter parameters for querying evidence records.
type Query struct {
	// Time range over EvaluatedAt
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start time
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive end time

	// Filters
	RequestID    string `json:"request_id,omitempty"`
	Source       string `json:"source,omitempty"`
	Decision     string `json:"decision,omitempty"`
	Reason       string `json:"reason,omitempty"`
	ConsentState string `json:"consent_state,omitempty"`
	IntendedUse  string `json:"intended_use,omitempty"`
	AuditHash    string `json:"audit_hash,omitempty"`
	Terminal     *bool  `json:"terminal,omitempty"`

	// Thresholds
	MinCost *int `json:"min_cost,omitempty"`
	MaxCost *int `json:"max_cost,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // "evaluated_at", "consent_cost", "decision"
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc"
}

// Storage defines the interface for evidence storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream streams matching records.
	//
	// The records channel is closed when the query completes. The error
	// channel is buffered (size 1) and closed after the records channel.
	//
	//   recordsCh, errCh, err := store.QueryStream(ctx, query)
	//   if err != nil {
	//       return err
	//   }
	//   for record := range recordsCh {
	//       // Process record
	//   }
	//   if err := <-errCh; err != nil {
	//       return err
	//   }
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns how many
	// were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes records in a specific format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
