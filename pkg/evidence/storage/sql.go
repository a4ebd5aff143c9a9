package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mercator-hq/covenant/pkg/evidence"
)

// Default paging and ordering shared by every backend.
const (
	defaultLimit     = 100
	defaultSortBy    = "evaluated_at"
	defaultSortOrder = "DESC"
)

// sortColumns maps public sort fields onto column names.
var sortColumns = map[string]string{
	"evaluated_at": "evaluated_at",
	"consent_cost": "consent_cost",
	"decision":     "decision",
}

// recordColumns lists the evidence table columns in scan order.
const recordColumns = `id, request_id, source,
	evaluated_at, recorded_at, evaluation_us,
	consent_state, intended_use, sensitivity_level, transfer, aggregation, request_timestamp, request_hash,
	decision, terminal, reason, detail, consent_cost, audit_hash`

const recordColumnCount = 19

// placeholderFunc renders the n-th (1-based) bind parameter.
type placeholderFunc func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// insertStatement returns an INSERT for the evidence table.
func insertStatement(ph placeholderFunc) string {
	marks := make([]string, recordColumnCount)
	for i := range marks {
		marks[i] = ph(i + 1)
	}
	return fmt.Sprintf("INSERT INTO evidence (%s) VALUES (%s)", recordColumns, strings.Join(marks, ", "))
}

// recordArgs flattens a record into bind arguments matching recordColumns.
func recordArgs(r *evidence.Record) []any {
	var transfer, aggregation, cost any
	if r.Transfer != nil {
		transfer = *r.Transfer
	}
	if r.Aggregation != nil {
		aggregation = *r.Aggregation
	}
	if r.ConsentCost != nil {
		cost = int64(*r.ConsentCost)
	}

	return []any{
		r.ID, r.RequestID, r.Source,
		r.EvaluatedAt.UnixNano(), r.RecordedAt.UnixNano(), r.EvaluationTime.Microseconds(),
		r.ConsentState, r.IntendedUse, r.SensitivityLevel, transfer, aggregation, r.RequestTimestamp, r.RequestHash,
		r.Decision, r.Terminal, r.Reason, r.Detail, cost, r.AuditHash,
	}
}

// buildWhereClause builds a WHERE clause (without the keyword) and its
// arguments. Placeholders are numbered from 1.
func buildWhereClause(query *evidence.Query, ph placeholderFunc) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, ph(len(args))))
	}

	if query == nil {
		return "", nil
	}

	if query.StartTime != nil {
		add("evaluated_at >= %s", query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		add("evaluated_at <= %s", query.EndTime.UnixNano())
	}
	if query.RequestID != "" {
		add("request_id = %s", query.RequestID)
	}
	if query.Source != "" {
		add("source = %s", query.Source)
	}
	if query.Decision != "" {
		add("decision = %s", query.Decision)
	}
	if query.Reason != "" {
		add("reason = %s", query.Reason)
	}
	if query.ConsentState != "" {
		add("consent_state = %s", query.ConsentState)
	}
	if query.IntendedUse != "" {
		add("intended_use = %s", query.IntendedUse)
	}
	if query.AuditHash != "" {
		add("audit_hash = %s", query.AuditHash)
	}
	if query.Terminal != nil {
		add("terminal = %s", *query.Terminal)
	}
	if query.MinCost != nil {
		add("consent_cost >= %s", int64(*query.MinCost))
	}
	if query.MaxCost != nil {
		add("consent_cost <= %s", int64(*query.MaxCost))
	}

	return strings.Join(conditions, " AND "), args
}

// orderAndPage renders ORDER BY, LIMIT and OFFSET. Unknown sort fields fall
// back to the default so that user input never reaches the SQL text.
func orderAndPage(query *evidence.Query) string {
	sortBy := defaultSortBy
	sortOrder := defaultSortOrder
	limit := defaultLimit
	offset := 0

	if query != nil {
		if col, ok := sortColumns[query.SortBy]; ok {
			sortBy = col
		}
		if strings.EqualFold(query.SortOrder, "asc") {
			sortOrder = "ASC"
		}
		if query.Limit > 0 {
			limit = query.Limit
		}
		offset = query.Offset
	}

	clause := fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT %d", sortBy, sortOrder, sortOrder, limit)
	if offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", offset)
	}
	return clause
}

func selectStatement(query *evidence.Query, ph placeholderFunc) (string, []any) {
	where, args := buildWhereClause(query, ph)
	stmt := "SELECT " + recordColumns + " FROM evidence"
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt + orderAndPage(query), args
}

func countStatement(query *evidence.Query, ph placeholderFunc) (string, []any) {
	where, args := buildWhereClause(query, ph)
	stmt := "SELECT COUNT(*) FROM evidence"
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt, args
}

func deleteStatement(query *evidence.Query, ph placeholderFunc) (string, []any) {
	where, args := buildWhereClause(query, ph)
	stmt := "DELETE FROM evidence"
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt, args
}

// rowScanner is satisfied by *sql.Rows and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSQLRecord scans a database/sql row into a record.
func scanSQLRecord(row rowScanner) (*evidence.Record, error) {
	var (
		r                   evidence.Record
		evaluatedAt         int64
		recordedAt          int64
		evaluationUS        int64
		transfer            sql.NullBool
		aggregation         sql.NullBool
		cost                sql.NullInt64
		reason, detail, src sql.NullString
	)

	err := row.Scan(
		&r.ID, &r.RequestID, &src,
		&evaluatedAt, &recordedAt, &evaluationUS,
		&r.ConsentState, &r.IntendedUse, &r.SensitivityLevel, &transfer, &aggregation, &r.RequestTimestamp, &r.RequestHash,
		&r.Decision, &r.Terminal, &reason, &detail, &cost, &r.AuditHash,
	)
	if err != nil {
		return nil, err
	}

	r.Source = src.String
	r.Reason = reason.String
	r.Detail = detail.String
	r.EvaluatedAt = time.Unix(0, evaluatedAt).UTC()
	r.RecordedAt = time.Unix(0, recordedAt).UTC()
	r.EvaluationTime = time.Duration(evaluationUS) * time.Microsecond
	if transfer.Valid {
		v := transfer.Bool
		r.Transfer = &v
	}
	if aggregation.Valid {
		v := aggregation.Bool
		r.Aggregation = &v
	}
	if cost.Valid {
		v := int(cost.Int64)
		r.ConsentCost = &v
	}

	return &r, nil
}
