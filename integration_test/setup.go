//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/adapter/registry"
	"github.com/getpup/pupsourcing-migrator/manager"
	"github.com/getpup/pupsourcing-migrator/source"
)

// backend describes a database reachable through an environment variable.
type backend struct {
	kind   string
	driver string
	envVar string
}

var (
	postgresBackend = backend{kind: "postgres", driver: "postgres", envVar: "POSTGRES_URL"}
	mysqlBackend    = backend{kind: "mysql", driver: "mysql", envVar: "MYSQL_URL"}
)

// getTestDB returns a connection for b and its DSN.
// It skips the test if the backend's environment variable is not set.
func getTestDB(t *testing.T, b backend) (*sql.DB, string) {
	t.Helper()

	dsn := os.Getenv(b.envVar)
	if dsn == "" {
		t.Skipf("%s not set, skipping integration test", b.envVar)
	}

	db, err := sql.Open(b.driver, dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db, dsn
}

// dropTables drops the given tables before and after the test.
// Errors are logged but don't fail the test.
func dropTables(t *testing.T, db *sql.DB, tables ...string) {
	t.Helper()

	drop := func() {
		for _, table := range tables {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				t.Logf("warning: failed to drop %s: %v", table, err)
			}
		}
	}

	drop()
	t.Cleanup(drop)
}

// newManager creates a manager for a single-database environment.
func newManager(t *testing.T, b backend, dsn, versionTable string, migrations fs.FS) *manager.Manager {
	t.Helper()

	disabled := false
	m, err := manager.New(manager.Config{
		Environments: []migrator.Environment{{
			Name:         "integration",
			Adapter:      b.kind,
			DSN:          dsn,
			VersionTable: versionTable,
		}},
		Source:         source.NewDir(migrations, "."),
		Factory:        registry.New().Open,
		MetricsEnabled: &disabled,
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m
}

func tableExists(t *testing.T, db *sql.DB, b backend, table string) bool {
	t.Helper()

	query := `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
	if b.kind == "mysql" {
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
	}

	var count int
	if err := db.QueryRowContext(context.Background(), query, table).Scan(&count); err != nil {
		t.Fatalf("failed to check table %s: %v", table, err)
	}
	return count > 0
}

func ledgerVersions(t *testing.T, db *sql.DB, table string) []migrator.Version {
	t.Helper()

	rows, err := db.Query(fmt.Sprintf("SELECT version FROM %s ORDER BY version", table))
	if err != nil {
		t.Fatalf("failed to read ledger: %v", err)
	}
	defer rows.Close()

	var out []migrator.Version
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			t.Fatalf("failed to scan ledger: %v", err)
		}
		out = append(out, migrator.Version(v))
	}
	return out
}
