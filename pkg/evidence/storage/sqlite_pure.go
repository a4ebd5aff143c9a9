package storage

import (
	_ "modernc.org/sqlite"
)

// NewPureSQLiteStorage opens a SQLite database with the pure-Go driver. It
// shares schema and SQL with NewSQLiteStorage and suits builds without cgo.
func NewPureSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	return openSQLite("sqlite", BackendSQLitePure, config)
}
