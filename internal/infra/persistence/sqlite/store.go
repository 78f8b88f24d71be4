// Package sqlite provides the embedded SQLite backend. It opens the file with
// the pure-Go modernc driver and delegates queries to sqlstore.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"smartstock/internal/infra/persistence/sqlstore"
	"smartstock/pkg/domain"
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "smartstock.db"

// Store is a SQLite-backed domain.Store.
type Store struct {
	*sqlstore.Store
	path string
}

// NewStore opens (creating if needed) the database file at path and applies
// the schema. The store holds a single connection; SQLite serialises writers
// anyway and an in-memory database exists only on the connection that made it.
func NewStore(ctx context.Context, path string, opts ...sqlstore.Option) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = NORMAL`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	s := &Store{Store: sqlstore.New(db, sqlstore.SQLite, opts...), path: path}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

var _ domain.Store = (*Store)(nil)
