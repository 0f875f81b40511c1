// Package migrator is the programmatic entry point: it assembles a
// manager.Manager from functional options, or runs the pending migrations
// against an existing *sql.DB in one call.
package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	rootpkg "github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/adapter"
	"github.com/getpup/pupsourcing-migrator/adapter/registry"
	"github.com/getpup/pupsourcing-migrator/adapter/sqldb"
	"github.com/getpup/pupsourcing-migrator/config"
	"github.com/getpup/pupsourcing-migrator/executor"
	"github.com/getpup/pupsourcing-migrator/manager"
	"github.com/getpup/pupsourcing-migrator/pkg/migrations"
	"github.com/getpup/pupsourcing-migrator/source"
)

// Re-export core types from root package
type (
	// Version identifies and orders a migration.
	Version = rootpkg.Version

	// Migration is a single versioned schema change.
	Migration = rootpkg.Migration

	// MigrateFunc performs one direction of a migration.
	MigrateFunc = rootpkg.MigrateFunc

	// Conn executes statements on the migration's connection.
	Conn = rootpkg.Conn

	// Environment resolves to one or more target databases.
	Environment = rootpkg.Environment

	// Logger is the logging interface used by all components.
	Logger = rootpkg.Logger

	// Manager runs migrate, rollback, status and breakpoint operations.
	Manager = manager.Manager

	// Options selects what a Manager operation acts on.
	Options = manager.Options
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	configPath         string
	environments       []rootpkg.Environment
	defaultEnvironment string
	versionTable       string
	sources            []source.Source
	migrations         *source.Registry
	factory            adapter.Factory
	runner             executor.Runner
	parallelism        int
	logger             rootpkg.Logger
	metricsEnabled     *bool
	errs               []error
}

// New creates a Manager with the given options.
//
// Required (directly or through WithConfigFile):
//   - at least one environment: WithEnvironment
//   - at least one migration: WithMigrationsFS, WithMigration or WithSource
//
// Optional configuration (with defaults):
//   - WithConfigFile: load environments, settings and migration paths from a config file
//   - WithDefaultEnvironment: environment used when an operation names none
//   - WithVersionTable: ledger table for environments without one (default: schema_migrations)
//   - WithFactory: how adapters are opened (default: registry.New().Open)
//   - WithRunner: custom execution engine (default: executor.New)
//   - WithParallelism: databases processed concurrently (default: 1)
//   - WithLogger: logger for observability (default: nil)
//   - WithMetricsEnabled: enable Prometheus metrics (default: true)
//
// Example:
//
//	m, err := migrator.New(
//	    migrator.WithEnvironment(migrator.Environment{
//	        Name:    "production",
//	        Adapter: "postgres",
//	        DSN:     os.Getenv("DATABASE_URL"),
//	    }),
//	    migrator.WithMigrationsFS(migrationsFS, "migrations"),
//	)
//	report, err := m.Migrate(ctx, migrator.Options{})
func New(opts ...Option) (*manager.Manager, error) {
	o := &options{migrations: source.NewRegistry()}
	for _, opt := range opts {
		opt(o)
	}

	if o.configPath != "" {
		if err := o.applyConfigFile(); err != nil {
			return nil, err
		}
	}

	if err := errors.Join(o.errs...); err != nil {
		return nil, err
	}
	if len(o.environments) == 0 {
		return nil, fmt.Errorf("at least one environment is required: use WithEnvironment or WithConfigFile")
	}

	sources := o.sources
	if o.migrations.Len() > 0 {
		sources = append(sources, o.migrations)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no migrations configured: use WithMigrationsFS, WithMigration or WithSource")
	}

	envs := make([]rootpkg.Environment, len(o.environments))
	for i, env := range o.environments {
		if env.VersionTable == "" {
			env.VersionTable = o.versionTable
		}
		if env.VersionTable == "" {
			env.VersionTable = sqldb.DefaultVersionTable
		}
		envs[i] = env
	}

	if o.factory == nil {
		o.factory = registry.New().Open
	}

	return manager.New(manager.Config{
		Environments:       envs,
		DefaultEnvironment: o.defaultEnvironment,
		Source:             source.Multi(sources...),
		Factory:            o.factory,
		Runner:             o.runner,
		Parallelism:        o.parallelism,
		Logger:             o.logger,
		MetricsEnabled:     o.metricsEnabled,
	})
}

// applyConfigFile merges the config file below the explicit options.
func (o *options) applyConfigFile() error {
	file, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	o.environments = append(file.Environments(), o.environments...)
	if o.defaultEnvironment == "" {
		o.defaultEnvironment = file.DefaultEnvironment()
	}
	if o.parallelism == 0 {
		o.parallelism = file.Settings.Parallelism
	}
	for _, dir := range file.MigrationDirs() {
		o.sources = append(o.sources, source.NewDir(os.DirFS(dir), "."))
	}
	return nil
}

// WithConfigFile loads environments, settings and migration directories from
// a TOML or YAML config file. Explicit options take precedence.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithEnvironment adds an environment.
func WithEnvironment(env Environment) Option {
	return func(o *options) {
		o.environments = append(o.environments, env)
	}
}

// WithDefaultEnvironment sets the environment used when an operation names none.
func WithDefaultEnvironment(name string) Option {
	return func(o *options) {
		o.defaultEnvironment = name
	}
}

// WithVersionTable sets the ledger table for environments that do not set one.
func WithVersionTable(table string) Option {
	return func(o *options) {
		o.versionTable = table
	}
}

// WithMigrationsFS adds the SQL migrations in dir of fsys, typically an
// embed.FS.
func WithMigrationsFS(fsys fs.FS, dir string) Option {
	return func(o *options) {
		o.sources = append(o.sources, source.NewDir(fsys, dir))
	}
}

// WithMigration registers a Go-coded migration. A nil down makes it
// irreversible.
func WithMigration(version Version, name string, up, down MigrateFunc) Option {
	return func(o *options) {
		if err := o.migrations.Register(version, name, up, down); err != nil {
			o.errs = append(o.errs, err)
		}
	}
}

// WithSource adds a custom migration source.
func WithSource(src source.Source) Option {
	return func(o *options) {
		o.sources = append(o.sources, src)
	}
}

// WithFactory sets how adapters are opened for a target database.
func WithFactory(factory adapter.Factory) Option {
	return func(o *options) {
		o.factory = factory
	}
}

// WithRunner sets a custom execution engine.
func WithRunner(runner executor.Runner) Option {
	return func(o *options) {
		o.runner = runner
	}
}

// WithParallelism sets how many databases are processed concurrently.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithLogger sets the logger for observability.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsEnabled enables or disables Prometheus metrics collection.
func WithMetricsEnabled(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = &enabled
	}
}

// RunMigrations applies every pending migration to db, an open connection
// to a database of the given adapter kind (postgres, mysql or sqlite). It
// is meant for applications that migrate their own database at startup.
//
// db is not closed. To use a custom ledger table, pass WithVersionTable.
func RunMigrations(ctx context.Context, db *sql.DB, kind string, opts ...Option) (*manager.AggregateReport, error) {
	dialect, err := migrations.Dialect(kind)
	if err != nil {
		return nil, err
	}

	opts = append(slices.Clip(opts),
		WithEnvironment(Environment{Name: "default", Adapter: dialect.Name()}),
		WithDefaultEnvironment("default"),
		WithFactory(func(_ context.Context, env rootpkg.Environment, _ string) (adapter.Adapter, error) {
			a, err := sqldb.New(db, dialect, env.VersionTable)
			if err != nil {
				return nil, err
			}
			return borrowed{a}, nil
		}),
	)

	m, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return m.Migrate(ctx, Options{})
}

// borrowed is an adapter over a connection owned by the caller.
type borrowed struct {
	*sqldb.Adapter
}

func (borrowed) Close() error { return nil }
