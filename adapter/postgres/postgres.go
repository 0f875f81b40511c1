// Package postgres provides the PostgreSQL adapter. PostgreSQL supports
// transactional DDL, so each migration and its ledger write commit together.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/getpup/pupsourcing-migrator/adapter/sqldb"
	_ "github.com/lib/pq"
)

// Dialect implements sqldb.Dialect for PostgreSQL.
type Dialect struct{}

var _ sqldb.Dialect = Dialect{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) TransactionalDDL() bool { return true }

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Dialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
}

func (Dialect) CreateTableQuery(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    version BIGINT PRIMARY KEY,
    migration_name VARCHAR(255) NOT NULL DEFAULT '',
    applied_at VARCHAR(40) NOT NULL,
    breakpoint BOOLEAN NOT NULL DEFAULT FALSE
)`, table)
}

// Open connects to dsn and returns an adapter using table as the ledger.
// The connection is verified with a ping.
func Open(ctx context.Context, dsn, table string) (*sqldb.Adapter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	a, err := sqldb.New(db, Dialect{}, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}
