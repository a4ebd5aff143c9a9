// Package query validates evidence queries and builds them from request
// parameters.
//
// # Query Validation
//
// The validator ensures query parameters are valid before execution:
//
//   - Limit >= 0 and <= MaxLimit
//   - Offset >= 0
//   - Sort field is evaluated_at, consent_cost or decision
//   - Sort order is asc or desc
//   - Decision and source belong to their vocabularies
//   - Time range is valid (start <= end)
//   - Cost thresholds are valid (min <= max)
//
// # Parameters
//
// FromValues builds a query from URL query parameters, as served by
// GET /v1/evidence:
//
//	q, err := query.FromValues(r.URL.Query(), time.Now())
//	if err != nil {
//	    return err
//	}
//	records, err := store.Query(ctx, q)
//
// Times accept RFC 3339 or a Go duration meaning "that long ago" (for
// example since=24h).
package query
