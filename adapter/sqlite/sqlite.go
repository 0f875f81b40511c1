// Package sqlite provides the SQLite adapter.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/getpup/pupsourcing-migrator/adapter/sqldb"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect implements sqldb.Dialect for SQLite.
type Dialect struct{}

var _ sqldb.Dialect = Dialect{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) TransactionalDDL() bool { return true }

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
}

func (Dialect) CreateTableQuery(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    version INTEGER PRIMARY KEY,
    migration_name TEXT NOT NULL DEFAULT '',
    applied_at TEXT NOT NULL,
    breakpoint INTEGER NOT NULL DEFAULT 0
)`, table)
}

// Open opens the database file at dsn and returns an adapter using table as
// the ledger. SQLite allows a single writer, so the pool is limited to one
// connection; this also keeps ":memory:" databases alive for the adapter's
// lifetime.
func Open(ctx context.Context, dsn, table string) (*sqldb.Adapter, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	a, err := sqldb.New(db, Dialect{}, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}
