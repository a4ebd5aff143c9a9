package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/evidence"
)

// Open creates the backend named by cfg.Backend. SQLite parent
// directories are created as needed.
func Open(ctx context.Context, cfg *config.EvidenceConfig) (evidence.Storage, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStorage(), nil

	case BackendSQLite, BackendSQLitePure, "":
		sc := &SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		}
		if sc.Path == "" {
			sc.Path = config.DefaultEvidenceSQLitePath
		}
		if dir := filepath.Dir(sc.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, evidence.NewStorageError(cfg.Backend, "open", err)
			}
		}
		if cfg.Backend == BackendSQLitePure {
			return NewPureSQLiteStorage(sc)
		}
		return NewSQLiteStorage(sc)

	case BackendPostgres:
		return NewPostgresStorage(ctx, &PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.MaxConns,
		})

	default:
		return nil, fmt.Errorf("unknown evidence backend %q", cfg.Backend)
	}
}
