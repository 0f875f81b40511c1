package cli_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/adapter/registry"
	"github.com/getpup/pupsourcing-migrator/internal/cli"
	"github.com/getpup/pupsourcing-migrator/source"
)

type project struct {
	dir        string
	configPath string
	migrations string
}

func newProject(t *testing.T) project {
	t.Helper()
	dir := t.TempDir()

	p := project{
		dir:        dir,
		configPath: filepath.Join(dir, "migrator.toml"),
		migrations: filepath.Join(dir, "migrations"),
	}
	require.NoError(t, os.MkdirAll(p.migrations, 0o755))

	content := fmt.Sprintf(`
[paths]
migrations = ["migrations"]

[settings]
default_environment = "development"

[environments.development]
adapter = "sqlite"
dsn = %q
databases = ["m1", "m2"]
default_database = "app"

[environments.testing]
adapter = "memory"
`, filepath.Join(dir, "{database}.db"))
	require.NoError(t, os.WriteFile(p.configPath, []byte(content), 0o600))

	p.write(t, "20210101000000_create_users.up.sql", "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);")
	p.write(t, "20210101000000_create_users.down.sql", "DROP TABLE users;")
	p.write(t, "20210102000000_create_posts.up.sql", "CREATE TABLE posts (id INTEGER PRIMARY KEY);")
	p.write(t, "20210102000000_create_posts.down.sql", "DROP TABLE posts;")

	return p
}

func (p project) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.migrations, name), []byte(content), 0o600))
}

func (p project) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return p.runWith(t, nil, args...)
}

func (p project) runWith(t *testing.T, opts []cli.Option, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	args = append([]string{"--config", p.configPath, "--no-color"}, args...)
	cmd := cli.NewRootCommand(cli.IOStreams{Out: &out, ErrOut: &errOut}, args, opts...)
	err := cmd.ExecuteContext(context.Background())

	return out.String(), errOut.String(), err
}

func TestMigrate(t *testing.T) {
	p := newProject(t)

	out, _, err := p.run(t, "migrate")
	require.NoError(t, err)

	assert.Contains(t, out, "warning no environment specified, defaulting to: development")
	assert.Contains(t, out, "using adapter sqlite")
	assert.Contains(t, out, "using databases m1, m2")
	assert.Contains(t, out, "database: m1")
	assert.Contains(t, out, "database: m2")
	assert.Contains(t, out, " == 20210101000000 create_users: migrating")
	assert.Contains(t, out, " == 20210101000000 create_users: migrated ")
	assert.Contains(t, out, " == 20210102000000 create_posts: migrated ")
	assert.Regexp(t, `All Done\. Took \d+\.\d{4}s`, out)

	// Nothing left to do on a second run.
	out, _, err = p.run(t, "migrate", "-e", "development")
	require.NoError(t, err)
	assert.Contains(t, out, "using environment development")
	assert.NotContains(t, out, "migrating")
}

func TestMigrate_TargetAndDatabases(t *testing.T) {
	p := newProject(t)

	out, _, err := p.run(t, "migrate", "-t", "20210101000000", "-d", "m1 nope")
	require.NoError(t, err)

	assert.Contains(t, out, "warning")
	assert.Contains(t, out, "nope")
	assert.Contains(t, out, "using database m1")
	assert.NotContains(t, out, "database: m2")
	assert.Contains(t, out, "create_users: migrated")
	assert.NotContains(t, out, "create_posts")

	out, _, err = p.run(t, "status", "-d", "m1")
	require.NoError(t, err)
	assert.Regexp(t, `up\s+20210101000000\s+\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\s+create_users`, out)
	assert.Regexp(t, `down\s+20210102000000\s+create_posts`, out)
	assert.Contains(t, out, "pending 1 migration(s) not applied")
}

func TestMigrate_DatabasePattern(t *testing.T) {
	p := newProject(t)

	out, _, err := p.run(t, "migrate", "-d", "m*")
	require.NoError(t, err)
	assert.Contains(t, out, "using databases m1, m2")
}

func TestMigrate_DefaultDatabaseFallback(t *testing.T) {
	p := newProject(t)

	out, _, err := p.run(t, "migrate", "-d", "unknown")
	require.NoError(t, err)
	assert.Contains(t, out, "database was not found")
	assert.Contains(t, out, "create_users: migrated")

	_, err = os.Stat(filepath.Join(p.dir, "app.db"))
	assert.NoError(t, err, "the default database should have been migrated")
}

func TestMigrate_InvalidTarget(t *testing.T) {
	p := newProject(t)

	_, _, err := p.run(t, "migrate", "-t", "yesterday")
	assert.ErrorIs(t, err, migrator.ErrInvalidVersion)
}

func TestMigrate_UnknownEnvironment(t *testing.T) {
	p := newProject(t)

	_, _, err := p.run(t, "migrate", "-e", "production")
	assert.ErrorIs(t, err, migrator.ErrUnknownEnvironment)
}

func TestMigrate_Failure(t *testing.T) {
	p := newProject(t)
	p.write(t, "20210103000000_broken.up.sql", "INSERT INTO missing_table VALUES (1);")

	out, errOut, err := p.run(t, "migrate", "-d", "m1")
	require.Error(t, err)
	assert.ErrorIs(t, err, migrator.ErrStepExecutionFailure)
	assert.Contains(t, err.Error(), "migrate failed on 1 of 1 database(s)")

	assert.Contains(t, out, "create_posts: migrated")
	assert.Contains(t, out, " == 20210103000000 broken: migrating")
	assert.NotContains(t, out, "broken: migrated")
	assert.Contains(t, out, "error ")
	assert.Contains(t, out, "All Done.")
	assert.Contains(t, errOut, "database failed")
}

func TestRollback(t *testing.T) {
	p := newProject(t)

	_, _, err := p.run(t, "migrate")
	require.NoError(t, err)

	out, _, err := p.run(t, "rollback", "-d", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, " == 20210102000000 create_posts: reverting")
	assert.Contains(t, out, " == 20210102000000 create_posts: reverted ")
	assert.NotContains(t, out, "create_users: reverting")

	out, _, err = p.run(t, "rollback", "-d", "m1", "-t", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "create_users: reverted")

	out, _, err = p.run(t, "status")
	require.NoError(t, err)
	assert.Regexp(t, `down\s+20210101000000\s+create_users`, out)
	assert.Regexp(t, `up\s+20210101000000\s+\S+ \S+\s+create_users`, out, "m2 is untouched")
}

func TestBreakpoint(t *testing.T) {
	p := newProject(t)

	_, _, err := p.run(t, "migrate", "-d", "m1")
	require.NoError(t, err)

	out, _, err := p.run(t, "breakpoint", "-d", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "breakpoint set m1: 20210102000000")

	out, _, err = p.run(t, "status", "-d", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "create_posts BREAKPOINT SET")

	out, _, err = p.run(t, "rollback", "-d", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "breakpoint rollback stopped at breakpoint on 20210102000000")
	assert.NotContains(t, out, "reverting")

	out, _, err = p.run(t, "breakpoint", "-d", "m1", "--remove-all")
	require.NoError(t, err)
	assert.Contains(t, out, "breakpoints cleared m1: 1")

	out, _, err = p.run(t, "rollback", "-d", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "create_posts: reverted")
}

func TestBreakpoint_FlagConflict(t *testing.T) {
	p := newProject(t)

	_, _, err := p.run(t, "breakpoint", "--remove-all", "--unset")
	assert.Error(t, err)
}

func TestStatus_Missing(t *testing.T) {
	p := newProject(t)

	_, _, err := p.run(t, "migrate", "-d", "m1")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(p.migrations, "20210102000000_create_posts.up.sql")))
	require.NoError(t, os.Remove(filepath.Join(p.migrations, "20210102000000_create_posts.down.sql")))

	out, _, err := p.run(t, "status", "-d", "m1")
	require.NoError(t, err)
	assert.Regexp(t, `up\s+20210102000000\s+\S+ \S+\s+\*\* MISSING \*\*`, out)
}

func TestCreate(t *testing.T) {
	p := newProject(t)

	out, _, err := p.run(t, "create", "add_email")
	require.NoError(t, err)
	assert.Contains(t, out, "created ")

	ups, err := filepath.Glob(filepath.Join(p.migrations, "*_add_email.up.sql"))
	require.NoError(t, err)
	assert.Len(t, ups, 1)

	_, _, err = p.run(t, "create", "add_email")
	assert.Error(t, err, "duplicate names are rejected")
}

func TestWithSource(t *testing.T) {
	p := newProject(t)

	reg := source.NewRegistry()
	reg.MustRegister(20210105000000, "seed_users",
		source.Statements("INSERT INTO users (name) VALUES ('admin')"),
		source.Statements("DELETE FROM users WHERE name = 'admin'"))

	out, _, err := p.runWith(t, []cli.Option{cli.WithSource(reg)}, "migrate", "-d", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "seed_users: migrated")
}

func TestWithRegistry_Memory(t *testing.T) {
	p := newProject(t)
	reg := registry.New()
	opts := []cli.Option{cli.WithRegistry(reg)}

	out, _, err := p.runWith(t, opts, "migrate", "-e", "testing")
	require.NoError(t, err)
	assert.Contains(t, out, "using adapter memory")
	assert.Contains(t, out, "database was not found")

	env := migrator.Environment{Name: "testing"}
	assert.Equal(t, []migrator.Version{20210101000000, 20210102000000}, reg.Memory(env, "").Versions())
}

func TestEnvironmentVariables(t *testing.T) {
	p := newProject(t)
	t.Setenv("MIGRATOR_ENVIRONMENT", "testing")

	out, _, err := p.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "using environment testing")
}

func TestMissingConfig(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCommand(cli.IOStreams{Out: &out, ErrOut: &errOut},
		[]string{"--config", filepath.Join(t.TempDir(), "none.toml"), "migrate"})

	err := cmd.Execute()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
