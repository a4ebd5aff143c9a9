package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mercator-hq/covenant/pkg/evidence"
)

// FromValues builds a validated query from URL parameters. Unknown
// parameters are ignored. Defaults are applied.
func FromValues(values url.Values, now time.Time) (*evidence.Query, error) {
	q := &evidence.Query{
		RequestID:    values.Get("request_id"),
		Source:       values.Get("source"),
		Decision:     strings.ToUpper(values.Get("decision")),
		Reason:       values.Get("reason"),
		ConsentState: values.Get("consent_state"),
		IntendedUse:  values.Get("intended_use"),
		AuditHash:    values.Get("audit_hash"),
		SortBy:       values.Get("sort_by"),
		SortOrder:    strings.ToLower(values.Get("sort_order")),
	}

	var err error
	if q.StartTime, err = timeParam(values, "since", now); err != nil {
		return nil, evidence.NewQueryError(q, err)
	}
	if q.EndTime, err = timeParam(values, "until", now); err != nil {
		return nil, evidence.NewQueryError(q, err)
	}
	if q.Limit, err = intParam(values, "limit"); err != nil {
		return nil, evidence.NewQueryError(q, err)
	}
	if q.Offset, err = intParam(values, "offset"); err != nil {
		return nil, evidence.NewQueryError(q, err)
	}
	if q.MinCost, err = optionalInt(values, "min_cost"); err != nil {
		return nil, evidence.NewQueryError(q, err)
	}
	if q.MaxCost, err = optionalInt(values, "max_cost"); err != nil {
		return nil, evidence.NewQueryError(q, err)
	}

	if v := values.Get("terminal"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, evidence.NewQueryError(q, fmt.Errorf("terminal: %w", err))
		}
		q.Terminal = &b
	}

	if err := Validate(q); err != nil {
		return nil, err
	}
	ApplyDefaults(q)
	return q, nil
}

// ParseTime parses an RFC 3339 instant or a duration before now.
func ParseTime(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC 3339 or duration", s)
	}
	return now.Add(-d), nil
}

func timeParam(values url.Values, key string, now time.Time) (*time.Time, error) {
	v := values.Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := ParseTime(v, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &t, nil
}

func intParam(values url.Values, key string) (int, error) {
	v := values.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func optionalInt(values url.Values, key string) (*int, error) {
	if values.Get(key) == "" {
		return nil, nil
	}
	n, err := intParam(values, key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
