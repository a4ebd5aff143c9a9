package storage

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// newPostgresForTest connects to dsn, creates the schema and truncates the
// evidence table.
func newPostgresForTest(t *testing.T, dsn string) (*PostgresStorage, error) {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	s := NewPostgresStorageFromPool(pool)
	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, "TRUNCATE evidence"); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}
