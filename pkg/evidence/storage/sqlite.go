package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/covenant/pkg/evidence"
)

// Backend names.
const (
	BackendMemory     = "memory"
	BackendSQLite     = "sqlite"
	BackendSQLitePure = "sqlite-pure"
	BackendPostgres   = "postgres"
)

// SQLiteConfig contains configuration for the SQLite storage backends.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/evidence.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements evidence.Storage on SQLite through database/sql.
// The same implementation serves the cgo driver (mattn/go-sqlite3) and the
// pure-Go driver (modernc.org/sqlite).
type SQLiteStorage struct {
	db      *sql.DB
	config  *SQLiteConfig
	backend string
	logger  *slog.Logger
}

// NewSQLiteStorage opens a SQLite database with the cgo driver.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	return openSQLite("sqlite3", BackendSQLite, config)
}

func openSQLite(driver, backend string, config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "evidence.storage."+backend)

	db, err := sql.Open(driver, config.Path)
	if err != nil {
		return nil, evidence.NewStorageError(backend, "open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:      db,
		config:  config,
		backend: backend,
		logger:  logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", driver,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize applies pragmas, creates the schema and checks its version.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return evidence.NewStorageError(s.backend, "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return evidence.NewStorageError(s.backend, "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError(s.backend, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError(s.backend, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return evidence.NewStorageError(s.backend, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError(s.backend, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists a record.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.Record) error {
	if _, err := s.db.ExecContext(ctx, insertStatement(questionMark), recordArgs(record)...); err != nil {
		return evidence.NewStorageError(s.backend, "store", err)
	}
	return nil
}

// Query retrieves records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.Record, error) {
	stmt, args := selectStatement(query, questionMark)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, evidence.NewStorageError(s.backend, "query", err)
	}
	defer rows.Close()

	records := []*evidence.Record{}
	for rows.Next() {
		record, err := scanSQLRecord(rows)
		if err != nil {
			return nil, evidence.NewStorageError(s.backend, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError(s.backend, "query", err)
	}

	return records, nil
}

// QueryStream streams records matching the query filters.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)

	stmt, args := selectStatement(query, questionMark)

	go func() {
		defer close(errCh)
		defer close(recordsCh)

		rows, err := s.db.QueryContext(ctx, stmt, args...)
		if err != nil {
			errCh <- evidence.NewStorageError(s.backend, "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanSQLRecord(rows)
			if err != nil {
				errCh <- evidence.NewStorageError(s.backend, "scan", err)
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
			errCh <- evidence.NewStorageError(s.backend, "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	stmt, args := countStatement(query, questionMark)

	var count int64
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError(s.backend, "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *SQLiteStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	stmt, args := deleteStatement(query, questionMark)

	result, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, evidence.NewStorageError(s.backend, "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError(s.backend, "delete", err)
	}
	return count, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return evidence.NewStorageError(s.backend, "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError(s.backend, "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}
