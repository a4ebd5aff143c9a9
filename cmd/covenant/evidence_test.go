package main

import (
	"testing"
	"time"
)

func TestEvidenceFiltersQuery(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("unset flags leave filters empty", func(t *testing.T) {
		f := evidenceFilters{minCost: -1, maxCost: -1}
		q, err := f.query(now)
		if err != nil {
			t.Fatalf("query() error = %v", err)
		}
		if q.StartTime != nil || q.MinCost != nil || q.MaxCost != nil || q.Terminal != nil {
			t.Errorf("expected no filters, got %+v", q)
		}
		if q.Limit == 0 || q.SortBy == "" {
			t.Errorf("defaults not applied: %+v", q)
		}
	})

	t.Run("all filters", func(t *testing.T) {
		f := evidenceFilters{
			since:        "24h",
			until:        "2026-03-09T12:00:00Z",
			decision:     "escalate",
			reason:       "escalation_triggered",
			source:       "cli",
			consentState: "EXPLICIT",
			intendedUse:  "MARKETING",
			terminal:     "true",
			minCost:      0,
			maxCost:      4,
			limit:        10,
			offset:       5,
			sortBy:       "consent_cost",
			sortOrder:    "ASC",
		}
		q, err := f.query(now)
		if err != nil {
			t.Fatalf("query() error = %v", err)
		}
		if q.StartTime == nil || !q.StartTime.Equal(now.Add(-24*time.Hour)) {
			t.Errorf("StartTime = %v", q.StartTime)
		}
		if q.EndTime == nil || q.EndTime.Hour() != 12 {
			t.Errorf("EndTime = %v", q.EndTime)
		}
		if q.Decision != "ESCALATE" || q.SortOrder != "asc" {
			t.Errorf("normalisation: decision %q sort order %q", q.Decision, q.SortOrder)
		}
		if q.MinCost == nil || *q.MinCost != 0 || q.MaxCost == nil || *q.MaxCost != 4 {
			t.Errorf("cost bounds: %v %v", q.MinCost, q.MaxCost)
		}
		if q.Terminal == nil || !*q.Terminal {
			t.Errorf("Terminal = %v", q.Terminal)
		}
		if q.Limit != 10 || q.Offset != 5 {
			t.Errorf("page = %d/%d", q.Limit, q.Offset)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		for _, f := range []evidenceFilters{
			{minCost: -1, maxCost: -1, since: "yesterday"},
			{minCost: -1, maxCost: -1, terminal: "maybe"},
			{minCost: -1, maxCost: -1, decision: "MAYBE"},
			{minCost: -1, maxCost: -1, sortBy: "reason"},
		} {
			if _, err := f.query(now); err == nil {
				t.Errorf("expected error for %+v", f)
			}
		}
	})
}
