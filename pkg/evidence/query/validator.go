package query

import (
	"fmt"

	"mercator-hq/covenant/pkg/consent"
	"mercator-hq/covenant/pkg/evidence"
)

const (
	// DefaultLimit is the default number of records to return if not specified.
	DefaultLimit = 100

	// MaxLimit is the maximum number of records that can be returned in a single query.
	MaxLimit = 10000
)

// ValidSortFields contains the fields that can be used for sorting.
var ValidSortFields = map[string]bool{
	"evaluated_at": true,
	"consent_cost": true,
	"decision":     true,
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// ValidSources contains the recognised evaluation sources.
var ValidSources = map[string]bool{
	evidence.SourceCLI:    true,
	evidence.SourceHTTP:   true,
	evidence.SourceIntake: true,
}

// Validate validates a query and returns an error if any parameters are invalid.
func Validate(q *evidence.Query) error {
	if q.Limit < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}

	if q.Offset < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	if q.SortBy != "" && !ValidSortFields[q.SortBy] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}

	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	if q.Decision != "" && !consent.Decision(q.Decision).IsValid() {
		return evidence.NewQueryError(q, fmt.Errorf("invalid decision: %s", q.Decision))
	}

	if q.Source != "" && !ValidSources[q.Source] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid source: %s (must be 'cli', 'http', or 'intake')", q.Source))
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return evidence.NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}

	if q.MinCost != nil && q.MaxCost != nil && *q.MinCost > *q.MaxCost {
		return evidence.NewQueryError(q, fmt.Errorf("min_cost must be <= max_cost"))
	}

	return nil
}

// ApplyDefaults applies default values to a query.
func ApplyDefaults(q *evidence.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = "evaluated_at"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
