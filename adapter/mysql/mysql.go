// Package mysql provides the MySQL/MariaDB adapter. MySQL commits DDL
// implicitly, so the adapter reports no transactional DDL support and the
// executor verifies the ledger between steps instead.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/getpup/pupsourcing-migrator/adapter/sqldb"
	"github.com/go-sql-driver/mysql"
)

// Dialect implements sqldb.Dialect for MySQL and MariaDB.
type Dialect struct{}

var _ sqldb.Dialect = Dialect{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) TransactionalDDL() bool { return false }

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
}

func (Dialect) CreateTableQuery(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    version BIGINT NOT NULL PRIMARY KEY,
    migration_name VARCHAR(255) NOT NULL DEFAULT '',
    applied_at VARCHAR(40) NOT NULL,
    breakpoint TINYINT(1) NOT NULL DEFAULT 0
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`, table)
}

// ParseDSN validates dsn and returns the driver configuration.
// It returns an error when the DSN names no database.
//
// ClientFoundRows is always enabled so an UPDATE that leaves a ledger row
// unchanged still reports it as affected.
func ParseDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("invalid mysql dsn: no database name")
	}
	cfg.ClientFoundRows = true
	return cfg, nil
}

// Open connects to dsn and returns an adapter using table as the ledger.
// The connection is verified with a ping.
func Open(ctx context.Context, dsn, table string) (*sqldb.Adapter, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql database %s: %w", cfg.DBName, err)
	}

	a, err := sqldb.New(db, Dialect{}, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}
