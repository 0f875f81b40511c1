//go:build integration

package migrations_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/getpup/pupsourcing-migrator/pkg/migrations"
	"github.com/getpup/pupsourcing-migrator/source"
)

// applyLedger generates the ledger file for kind and executes it against db.
func applyLedger(t *testing.T, db *sql.DB, kind, table string) {
	t.Helper()

	config := migrations.Config{
		OutputFolder:   t.TempDir(),
		OutputFilename: kind + "_ledger.sql",
		VersionTable:   table,
	}

	path, err := migrations.Generate(kind, &config)
	if err != nil {
		t.Fatalf("Failed to generate ledger: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read ledger file: %v", err)
	}

	for _, stmt := range source.SplitStatements(string(content)) {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			t.Fatalf("Failed to execute ledger DDL: %v\n%s", err, stmt)
		}
	}

	// Running it twice must be harmless.
	for _, stmt := range source.SplitStatements(string(content)) {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			t.Fatalf("Ledger DDL is not idempotent: %v", err)
		}
	}

	if _, err := db.ExecContext(context.Background(),
		"INSERT INTO "+table+" (version, migration_name, applied_at, breakpoint) VALUES (20210103081132, 'create_users', '2021-01-03T08:11:32Z', false)"); err != nil {
		t.Fatalf("Failed to insert ledger row: %v", err)
	}

	var count int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		t.Fatalf("Failed to count ledger rows: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 ledger row, got %d", count)
	}
}

func TestIntegrationPostgres(t *testing.T) {
	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping PostgreSQL integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	const table = "gen_schema_migrations"
	_, _ = db.Exec("DROP TABLE IF EXISTS " + table)
	t.Cleanup(func() { _, _ = db.Exec("DROP TABLE IF EXISTS " + table) })

	applyLedger(t, db, "postgres", table)
}

func TestIntegrationMySQL(t *testing.T) {
	dbURL := os.Getenv("MYSQL_URL")
	if dbURL == "" {
		t.Skip("MYSQL_URL not set, skipping MySQL integration test")
	}

	db, err := sql.Open("mysql", dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer db.Close()

	const table = "gen_schema_migrations"
	_, _ = db.Exec("DROP TABLE IF EXISTS " + table)
	t.Cleanup(func() { _, _ = db.Exec("DROP TABLE IF EXISTS " + table) })

	applyLedger(t, db, "mysql", table)
}

func TestIntegrationSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer db.Close()

	applyLedger(t, db, "sqlite", "schema_migrations")
}
