// Package storage provides backends for evidence records.
//
// # Backends
//
//   - memory: map guarded by a RWMutex, for tests and ephemeral runs
//   - sqlite: github.com/mattn/go-sqlite3 (cgo)
//   - sqlite-pure: modernc.org/sqlite, same schema and SQL, no cgo
//   - postgres: github.com/jackc/pgx/v5 connection pool
//
// All backends share one column layout and one query builder, so filters,
// ordering and paging behave the same everywhere. Instants are stored as Unix
// nanoseconds.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:        "data/evidence.db",
//	    WALMode:     true,
//	    BusyTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// Or from configuration:
//
//	store, err := storage.Open(ctx, &cfg.Evidence)
//
// # Ordering
//
// Results default to evaluated_at descending with a limit of 100. Sort
// fields outside evaluated_at, consent_cost and decision are ignored.
package storage
