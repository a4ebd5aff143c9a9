package storage

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"mercator-hq/covenant/pkg/evidence"
)

func TestBuildWhereClause(t *testing.T) {
	start := time.Unix(100, 0)
	terminal := true
	minCost := 3

	tests := []struct {
		name      string
		query     *evidence.Query
		ph        placeholderFunc
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "nil query",
			query:     nil,
			ph:        questionMark,
			wantWhere: "",
		},
		{
			name:      "empty query",
			query:     &evidence.Query{},
			ph:        questionMark,
			wantWhere: "",
		},
		{
			name:      "sqlite placeholders",
			query:     &evidence.Query{Decision: "DENY", Reason: "missing_field"},
			ph:        questionMark,
			wantWhere: "decision = ? AND reason = ?",
			wantArgs:  []any{"DENY", "missing_field"},
		},
		{
			name:      "postgres placeholders",
			query:     &evidence.Query{StartTime: &start, Terminal: &terminal, MinCost: &minCost},
			ph:        dollar,
			wantWhere: "evaluated_at >= $1 AND terminal = $2 AND consent_cost >= $3",
			wantArgs:  []any{start.UnixNano(), true, int64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildWhereClause(tt.query, tt.ph)
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if len(args) != len(tt.wantArgs) || (len(args) > 0 && !reflect.DeepEqual(args, tt.wantArgs)) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestOrderAndPage(t *testing.T) {
	tests := []struct {
		name  string
		query *evidence.Query
		want  string
	}{
		{"defaults", nil, " ORDER BY evaluated_at DESC, id DESC LIMIT 100"},
		{"ascending cost", &evidence.Query{SortBy: "consent_cost", SortOrder: "asc"}, " ORDER BY consent_cost ASC, id ASC LIMIT 100"},
		{"unknown sort ignored", &evidence.Query{SortBy: "id; DROP TABLE evidence"}, " ORDER BY evaluated_at DESC, id DESC LIMIT 100"},
		{"paging", &evidence.Query{Limit: 10, Offset: 20}, " ORDER BY evaluated_at DESC, id DESC LIMIT 10 OFFSET 20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orderAndPage(tt.query); got != tt.want {
				t.Errorf("orderAndPage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInsertStatement(t *testing.T) {
	stmt := insertStatement(dollar)
	if !strings.Contains(stmt, "$19)") {
		t.Errorf("insertStatement() missing last placeholder: %s", stmt)
	}
	if got := len(recordArgs(&evidence.Record{})); got != recordColumnCount {
		t.Errorf("recordArgs() len = %d, want %d", got, recordColumnCount)
	}
}
