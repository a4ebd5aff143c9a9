package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mercator-hq/covenant/pkg/evidence"
)

// PostgresConfig contains configuration for the PostgreSQL backend.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// SSLMode is passed through as sslmode.
	// Default: require
	SSLMode string

	// MaxConns caps the pool size. Zero keeps the pgx default.
	MaxConns int32
}

// DSN renders the connection URL.
func (c *PostgresConfig) DSN() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String()
}

// PostgresStorage implements evidence.Storage on a pgx connection pool.
type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStorage connects to PostgreSQL and creates the schema.
func NewPostgresStorage(ctx context.Context, config *PostgresConfig) (*PostgresStorage, error) {
	if config == nil {
		return nil, evidence.NewStorageError(BackendPostgres, "open", errors.New("postgres config is required"))
	}

	poolConfig, err := pgxpool.ParseConfig(config.DSN())
	if err != nil {
		return nil, evidence.NewStorageError(BackendPostgres, "parse_config", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, evidence.NewStorageError(BackendPostgres, "open", err)
	}

	s := NewPostgresStorageFromPool(pool)
	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s.logger.Info("PostgreSQL storage initialized",
		"host", config.Host,
		"database", config.Database,
	)
	return s, nil
}

// NewPostgresStorageFromPool wraps an existing pool. The schema is not
// created.
func NewPostgresStorageFromPool(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{
		pool:   pool,
		logger: slog.Default().With("component", "evidence.storage.postgres"),
	}
}

func (s *PostgresStorage) initialize(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, PostgresSchema); err != nil {
		return evidence.NewStorageError(BackendPostgres, "create_schema", err)
	}
	if _, err := s.pool.Exec(ctx, postgresInsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError(BackendPostgres, "insert_schema_version", err)
	}

	var version int
	err := s.pool.QueryRow(ctx, GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return evidence.NewStorageError(BackendPostgres, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError(BackendPostgres, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store persists a record.
func (s *PostgresStorage) Store(ctx context.Context, record *evidence.Record) error {
	if _, err := s.pool.Exec(ctx, insertStatement(dollar), recordArgs(record)...); err != nil {
		return evidence.NewStorageError(BackendPostgres, "store", err)
	}
	return nil
}

// Query retrieves records matching the query filters.
func (s *PostgresStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.Record, error) {
	stmt, args := selectStatement(query, dollar)

	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, evidence.NewStorageError(BackendPostgres, "query", err)
	}
	defer rows.Close()

	records := []*evidence.Record{}
	for rows.Next() {
		record, err := scanPgRecord(rows)
		if err != nil {
			return nil, evidence.NewStorageError(BackendPostgres, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError(BackendPostgres, "query", err)
	}
	return records, nil
}

// QueryStream streams records matching the query filters.
func (s *PostgresStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)

	stmt, args := selectStatement(query, dollar)

	go func() {
		defer close(errCh)
		defer close(recordsCh)

		rows, err := s.pool.Query(ctx, stmt, args...)
		if err != nil {
			errCh <- evidence.NewStorageError(BackendPostgres, "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanPgRecord(rows)
			if err != nil {
				errCh <- evidence.NewStorageError(BackendPostgres, "scan", err)
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- evidence.NewStorageError(BackendPostgres, "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *PostgresStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	stmt, args := countStatement(query, dollar)

	var count int64
	if err := s.pool.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError(BackendPostgres, "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *PostgresStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	stmt, args := deleteStatement(query, dollar)

	tag, err := s.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, evidence.NewStorageError(BackendPostgres, "delete", err)
	}
	return tag.RowsAffected(), nil
}

// Ping verifies the server is reachable.
func (s *PostgresStorage) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return evidence.NewStorageError(BackendPostgres, "ping", err)
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	s.logger.Info("PostgreSQL storage closed")
	return nil
}

func scanPgRecord(row pgx.Row) (*evidence.Record, error) {
	var (
		r            evidence.Record
		evaluatedAt  int64
		recordedAt   int64
		evaluationUS int64
		cost         *int64
		reason       *string
		detail       *string
	)

	err := row.Scan(
		&r.ID, &r.RequestID, &r.Source,
		&evaluatedAt, &recordedAt, &evaluationUS,
		&r.ConsentState, &r.IntendedUse, &r.SensitivityLevel, &r.Transfer, &r.Aggregation, &r.RequestTimestamp, &r.RequestHash,
		&r.Decision, &r.Terminal, &reason, &detail, &cost, &r.AuditHash,
	)
	if err != nil {
		return nil, err
	}

	r.EvaluatedAt = time.Unix(0, evaluatedAt).UTC()
	r.RecordedAt = time.Unix(0, recordedAt).UTC()
	r.EvaluationTime = time.Duration(evaluationUS) * time.Microsecond
	if reason != nil {
		r.Reason = *reason
	}
	if detail != nil {
		r.Detail = *detail
	}
	if cost != nil {
		v := int(*cost)
		r.ConsentCost = &v
	}
	return &r, nil
}
