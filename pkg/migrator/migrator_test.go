package migrator

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rootpkg "github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/adapter/registry"
	"github.com/getpup/pupsourcing-migrator/executor"
	"github.com/getpup/pupsourcing-migrator/source"
)

var testFS = fstest.MapFS{
	"migrations/20210101000000_create_users.up.sql":   {Data: []byte("CREATE TABLE users (id INTEGER PRIMARY KEY);")},
	"migrations/20210101000000_create_users.down.sql": {Data: []byte("DROP TABLE users;")},
	"migrations/20210102000000_add_name.sql":          {Data: []byte("ALTER TABLE users ADD COLUMN name TEXT;")},
}

var memoryEnv = Environment{Name: "test", Adapter: "memory"}

func TestNew_ValidConfig(t *testing.T) {
	m, err := New(
		WithEnvironment(memoryEnv),
		WithMigrationsFS(testFS, "migrations"),
		WithMetricsEnabled(false),
	)

	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Equal(t, "test", m.DefaultEnvironment())
}

func TestNew_MissingEnvironment(t *testing.T) {
	m, err := New(WithMigrationsFS(testFS, "migrations"))

	assert.Error(t, err)
	assert.Nil(t, m)
	assert.Contains(t, err.Error(), "at least one environment is required")
}

func TestNew_MissingMigrations(t *testing.T) {
	m, err := New(WithEnvironment(memoryEnv))

	assert.Error(t, err)
	assert.Nil(t, m)
	assert.Contains(t, err.Error(), "no migrations configured")
}

func TestNew_InvalidGoMigration(t *testing.T) {
	_, err := New(
		WithEnvironment(memoryEnv),
		WithMigration(1, "first", source.Statements("SELECT 1"), nil),
		WithMigration(1, "again", source.Statements("SELECT 1"), nil),
	)

	assert.ErrorIs(t, err, rootpkg.ErrDuplicateVersion)
}

func TestNew_VersionTableDefaults(t *testing.T) {
	m, err := New(
		WithEnvironment(memoryEnv),
		WithEnvironment(Environment{Name: "custom", Adapter: "memory", VersionTable: "own_table"}),
		WithVersionTable("app_migrations"),
		WithMigrationsFS(testFS, "migrations"),
	)
	require.NoError(t, err)

	env, err := m.Environment("test")
	require.NoError(t, err)
	assert.Equal(t, "app_migrations", env.VersionTable)

	env, err = m.Environment("custom")
	require.NoError(t, err)
	assert.Equal(t, "own_table", env.VersionTable)
}

func TestNew_GoMigrationsAndFS(t *testing.T) {
	reg := registry.New()

	m, err := New(
		WithEnvironment(memoryEnv),
		WithMigrationsFS(testFS, "migrations"),
		WithMigration(20210103000000, "seed",
			source.Statements("INSERT INTO users (name) VALUES ('admin')"), nil),
		WithFactory(reg.Open),
		WithParallelism(2),
		WithLogger(rootpkg.NewSlogLogger(nil)),
	)
	require.NoError(t, err)

	report, err := m.Migrate(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, report.Targets, 1)

	assert.Equal(t,
		[]Version{20210101000000, 20210102000000, 20210103000000},
		reg.Memory(memoryEnv, "").Versions())
}

func TestNew_CustomRunner(t *testing.T) {
	runner := executor.NewMockRunner()

	m, err := New(
		WithEnvironment(memoryEnv),
		WithMigrationsFS(testFS, "migrations"),
		WithRunner(runner),
	)
	require.NoError(t, err)

	_, err = m.Migrate(context.Background(), Options{})
	require.NoError(t, err)
	assert.Len(t, runner.RunCalls, 1)
}

func TestWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "db"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db", "1_init.sql"), []byte("CREATE TABLE t (id INTEGER);"), 0o600))

	configPath := filepath.Join(dir, "migrator.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
paths:
  migrations: [db]
settings:
  default_environment: development
  parallelism: 3
environments:
  development:
    adapter: memory
    databases: [a, b]
`), 0o600))

	reg := registry.New()
	m, err := New(WithConfigFile(configPath), WithFactory(reg.Open))
	require.NoError(t, err)
	assert.Equal(t, "development", m.DefaultEnvironment())

	report, err := m.Migrate(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, report.Targets, 2)

	env, err := m.Environment("development")
	require.NoError(t, err)
	assert.Equal(t, []Version{1}, reg.Memory(env, "a").Versions())
	assert.Equal(t, []Version{1}, reg.Memory(env, "b").Versions())
}

func TestWithConfigFile_Missing(t *testing.T) {
	_, err := New(WithConfigFile(filepath.Join(t.TempDir(), "missing.toml")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunMigrations(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	report, err := RunMigrations(ctx, db, "sqlite",
		WithMigrationsFS(testFS, "migrations"),
		WithVersionTable("app_migrations"),
		WithMetricsEnabled(false),
	)
	require.NoError(t, err)
	require.Len(t, report.Targets, 1)
	assert.Equal(t, []Version{20210101000000, 20210102000000}, report.Targets[0].Execution.Succeeded())

	// The connection stays usable and the ledger is in the custom table.
	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM app_migrations").Scan(&count))
	assert.Equal(t, 2, count)

	_, err = db.ExecContext(ctx, "INSERT INTO users (name) VALUES ('x')")
	assert.NoError(t, err)

	// Nothing is pending on a second run.
	report, err = RunMigrations(ctx, db, "sqlite", WithMigrationsFS(testFS, "migrations"), WithVersionTable("app_migrations"))
	require.NoError(t, err)
	assert.Empty(t, report.Targets[0].Plan.Steps)
}

func TestRunMigrations_UnsupportedAdapter(t *testing.T) {
	_, err := RunMigrations(context.Background(), &sql.DB{}, "oracle", WithMigrationsFS(testFS, "migrations"))
	assert.Error(t, err)
}
