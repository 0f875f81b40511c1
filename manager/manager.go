// Package manager drives migrate and rollback operations across the
// databases of an environment.
package manager

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/adapter"
	"github.com/getpup/pupsourcing-migrator/executor"
	"github.com/getpup/pupsourcing-migrator/metrics"
	"github.com/getpup/pupsourcing-migrator/plan"
	"github.com/getpup/pupsourcing-migrator/source"
)

// Config holds configuration for the Manager.
type Config struct {
	// Environments lists the configured environments (required).
	Environments []migrator.Environment

	// DefaultEnvironment is used when an operation names no environment.
	// If empty and exactly one environment is configured, that one is used.
	DefaultEnvironment string

	// Source discovers migrations (required).
	Source source.Source

	// Factory opens the adapter for a target database (required).
	Factory adapter.Factory

	// Runner is an optional custom execution engine.
	// If nil, an executor.Executor is created per operation.
	Runner executor.Runner

	// Parallelism is the number of databases processed concurrently (default: 1).
	// Steps on a single database always run sequentially.
	Parallelism int

	// Logger is for observability (optional).
	Logger migrator.Logger

	// MetricsEnabled enables Prometheus metrics collection (default: true).
	// Set to false explicitly to disable metrics.
	MetricsEnabled *bool

	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// Options selects what an operation acts on.
type Options struct {
	// Environment names the environment; empty selects the default.
	Environment string

	// Databases restricts the operation to the named databases, in order.
	// Names may be path.Match patterns. Empty means all databases.
	Databases []string

	// Target bounds the operation. Nil migrates everything pending, or rolls
	// back one step. For breakpoints it selects the version to change; nil
	// selects the latest applied version.
	Target *migrator.Version
}

// Manager resolves environments to target databases and runs plans on each
// of them independently.
type Manager struct {
	config         Config
	metricsEnabled bool
}

// New creates a new Manager with the given configuration.
// Returns an error if a required field is missing.
func New(cfg Config) (*Manager, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("migration source is required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("adapter factory is required")
	}
	if len(cfg.Environments) == 0 {
		return nil, fmt.Errorf("at least one environment is required")
	}

	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	metricsEnabled := true
	if cfg.MetricsEnabled != nil {
		metricsEnabled = *cfg.MetricsEnabled
	}

	return &Manager{
		config:         cfg,
		metricsEnabled: metricsEnabled,
	}, nil
}

// Environment returns the named environment. An empty name selects the
// default environment.
func (m *Manager) Environment(name string) (migrator.Environment, error) {
	if name == "" {
		name = m.DefaultEnvironment()
	}

	for _, env := range m.config.Environments {
		if env.Name == name {
			return env, nil
		}
	}
	return migrator.Environment{}, fmt.Errorf("%w: %q", migrator.ErrUnknownEnvironment, name)
}

// DefaultEnvironment returns the name of the environment used when none is given.
func (m *Manager) DefaultEnvironment() string {
	if m.config.DefaultEnvironment != "" {
		return m.config.DefaultEnvironment
	}
	if len(m.config.Environments) == 1 {
		return m.config.Environments[0].Name
	}
	return ""
}

// Migrate applies pending migrations, up to opts.Target if set, on every
// selected database.
//
// Every database is attempted even if an earlier one fails. The returned
// error joins the *migrator.TargetError of each failed database; the report
// is returned whenever the environment resolved, including on failure.
func (m *Manager) Migrate(ctx context.Context, opts Options) (*AggregateReport, error) {
	return m.run(ctx, migrator.Up, opts)
}

// Rollback reverts applied migrations down to opts.Target, or the latest one
// if no target is set, on every selected database. Failure semantics are the
// same as for Migrate.
func (m *Manager) Rollback(ctx context.Context, opts Options) (*AggregateReport, error) {
	return m.run(ctx, migrator.Down, opts)
}

func (m *Manager) run(ctx context.Context, direction migrator.Direction, opts Options) (*AggregateReport, error) {
	env, err := m.Environment(opts.Environment)
	if err != nil {
		return nil, err
	}

	report := &AggregateReport{
		RunID:       uuid.NewString(),
		Environment: env.Name,
		Direction:   direction,
		StartedAt:   m.config.Now(),
	}

	scripts, err := m.config.Source.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover migrations: %w", err)
	}

	targets, warnings := resolveTargets(env, opts.Databases)
	report.Warnings = warnings
	m.logWarnings(ctx, report.RunID, warnings)

	if m.config.Logger != nil {
		m.config.Logger.Info(ctx, "starting operation",
			"run_id", report.RunID,
			"environment", env.Name,
			"direction", direction,
			"databases", len(targets),
			"migrations", len(scripts))
	}

	collector := m.collector(env.Name)
	runner := m.runner(collector)

	report.Targets = make([]TargetReport, len(targets))
	m.forEachTarget(ctx, targets, func(ctx context.Context, i int, db string) {
		report.Targets[i] = m.runTarget(ctx, env, db, direction, scripts, opts.Target, runner, collector)
	})

	report.FinishedAt = m.config.Now()
	if collector != nil {
		collector.ObserveRunDuration(direction.String(), report.Elapsed().Seconds())
	}

	if m.config.Logger != nil {
		m.config.Logger.Info(ctx, "operation complete",
			"run_id", report.RunID,
			"environment", env.Name,
			"direction", direction,
			"failed", report.Failed(),
			"elapsed", report.Elapsed())
	}

	return report, report.Err()
}

func (m *Manager) runTarget(
	ctx context.Context,
	env migrator.Environment,
	db string,
	direction migrator.Direction,
	scripts []migrator.Migration,
	target *migrator.Version,
	runner executor.Runner,
	collector *metrics.Collector,
) (tr TargetReport) {
	tr = TargetReport{Database: db, Plan: plan.Plan{Direction: direction}}

	defer func() {
		if collector == nil {
			return
		}
		outcome := metrics.OutcomeSuccess
		if tr.Err != nil {
			outcome = metrics.OutcomeFailed
		}
		collector.IncTargetRun(direction.String(), outcome)
	}()

	fail := func(err error) TargetReport {
		tr.Err = &migrator.TargetError{Database: db, Err: err}
		if m.config.Logger != nil {
			m.config.Logger.Error(ctx, "database failed",
				"environment", env.Name,
				"database", label(db),
				"error", err)
		}
		return tr
	}

	a, err := m.open(ctx, env, db)
	if err != nil {
		return fail(err)
	}
	defer m.close(ctx, a, db)

	entries, err := ensureLedger(ctx, a)
	if err != nil {
		return fail(err)
	}

	p, err := plan.Build(direction, scripts, entries, target)
	if err != nil {
		return fail(err)
	}
	tr.Plan = p

	if p.BlockedBy != 0 && m.config.Logger != nil {
		m.config.Logger.Info(ctx, "rollback stopped at breakpoint",
			"database", label(db),
			"breakpoint", p.BlockedBy)
	}

	pending := len(plan.Pending(scripts, entries))

	exec := runner.Run(ctx, db, p, a)
	tr.Execution = exec

	if collector != nil {
		done := len(exec.Succeeded())
		if direction == migrator.Down {
			done = -done
		}
		collector.SetPending(label(db), pending-done)
	}

	if exec.Err != nil {
		return fail(exec.Err)
	}
	return tr
}

// Status reports, for every selected database, each discovered migration
// and whether it is applied, plus ledger entries without a migration.
// It never creates the ledger table.
func (m *Manager) Status(ctx context.Context, opts Options) (*StatusReport, error) {
	env, err := m.Environment(opts.Environment)
	if err != nil {
		return nil, err
	}

	scripts, err := m.config.Source.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover migrations: %w", err)
	}

	targets, warnings := resolveTargets(env, opts.Databases)
	report := &StatusReport{
		Environment: env.Name,
		Targets:     make([]TargetStatus, len(targets)),
		Warnings:    warnings,
	}

	collector := m.collector(env.Name)
	m.forEachTarget(ctx, targets, func(ctx context.Context, i int, db string) {
		ts := TargetStatus{Database: db}
		entries, err := m.readLedger(ctx, env, db)
		if err != nil {
			ts.Err = &migrator.TargetError{Database: db, Err: err}
		} else {
			ts.Entries = statusEntries(scripts, entries)
			if collector != nil {
				collector.SetPending(label(db), ts.Pending())
			}
		}
		report.Targets[i] = ts
	})

	return report, report.Err()
}

func (m *Manager) readLedger(ctx context.Context, env migrator.Environment, db string) ([]migrator.LedgerEntry, error) {
	a, err := m.open(ctx, env, db)
	if err != nil {
		return nil, err
	}
	defer m.close(ctx, a, db)

	exists, err := a.HasVersionTable(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return a.AppliedVersions(ctx)
}

func statusEntries(scripts []migrator.Migration, ledger []migrator.LedgerEntry) []StatusEntry {
	applied := adapter.AppliedSet(ledger)
	out := make([]StatusEntry, 0, len(scripts)+len(ledger))

	known := make(map[migrator.Version]bool, len(scripts))
	for _, s := range scripts {
		known[s.Version] = true
		e := StatusEntry{
			Version:    s.Version,
			Name:       s.Name,
			Reversible: s.Reversible(),
		}
		if l, ok := applied[s.Version]; ok {
			e.Applied = true
			e.AppliedAt = l.AppliedAt
			e.Breakpoint = l.Breakpoint
		}
		out = append(out, e)
	}

	for _, l := range ledger {
		if known[l.Version] {
			continue
		}
		out = append(out, StatusEntry{
			Version:    l.Version,
			Name:       l.Name,
			Applied:    true,
			AppliedAt:  l.AppliedAt,
			Breakpoint: l.Breakpoint,
			Missing:    true,
		})
	}

	slices.SortFunc(out, func(a, b StatusEntry) int {
		return cmp.Compare(a.Version, b.Version)
	})
	return out
}

// SetBreakpoint sets or clears the breakpoint flag on opts.Target, or on the
// latest applied version if no target is set, on every selected database.
func (m *Manager) SetBreakpoint(ctx context.Context, opts Options, enabled bool) (*BreakpointReport, error) {
	return m.breakpoints(ctx, opts, func(entries []migrator.LedgerEntry) ([]migrator.Version, error) {
		if opts.Target != nil {
			return []migrator.Version{*opts.Target}, nil
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("no migrations applied")
		}
		return []migrator.Version{entries[len(entries)-1].Version}, nil
	}, enabled)
}

// ClearBreakpoints removes every breakpoint on the selected databases.
func (m *Manager) ClearBreakpoints(ctx context.Context, opts Options) (*BreakpointReport, error) {
	return m.breakpoints(ctx, opts, func(entries []migrator.LedgerEntry) ([]migrator.Version, error) {
		var versions []migrator.Version
		for _, e := range entries {
			if e.Breakpoint {
				versions = append(versions, e.Version)
			}
		}
		return versions, nil
	}, false)
}

func (m *Manager) breakpoints(
	ctx context.Context,
	opts Options,
	selectVersions func([]migrator.LedgerEntry) ([]migrator.Version, error),
	enabled bool,
) (*BreakpointReport, error) {
	env, err := m.Environment(opts.Environment)
	if err != nil {
		return nil, err
	}

	targets, warnings := resolveTargets(env, opts.Databases)
	report := &BreakpointReport{
		Environment: env.Name,
		Targets:     make([]BreakpointResult, len(targets)),
		Warnings:    warnings,
	}

	m.forEachTarget(ctx, targets, func(ctx context.Context, i int, db string) {
		res := BreakpointResult{Database: db, Enabled: enabled}
		versions, err := m.setBreakpoints(ctx, env, db, selectVersions, enabled)
		res.Versions = versions
		if err != nil {
			res.Err = &migrator.TargetError{Database: db, Err: err}
		}
		report.Targets[i] = res
	})

	return report, report.Err()
}

func (m *Manager) setBreakpoints(
	ctx context.Context,
	env migrator.Environment,
	db string,
	selectVersions func([]migrator.LedgerEntry) ([]migrator.Version, error),
	enabled bool,
) ([]migrator.Version, error) {
	a, err := m.open(ctx, env, db)
	if err != nil {
		return nil, err
	}
	defer m.close(ctx, a, db)

	entries, err := ensureLedger(ctx, a)
	if err != nil {
		return nil, err
	}

	versions, err := selectVersions(entries)
	if err != nil {
		return nil, err
	}

	changed := make([]migrator.Version, 0, len(versions))
	for _, v := range versions {
		if err := a.SetBreakpoint(ctx, v, enabled); err != nil {
			return changed, err
		}
		changed = append(changed, v)

		if m.config.Logger != nil {
			m.config.Logger.Info(ctx, "breakpoint changed",
				"environment", env.Name,
				"database", label(db),
				"version", v,
				"enabled", enabled)
		}
	}
	return changed, nil
}

func (m *Manager) open(ctx context.Context, env migrator.Environment, db string) (adapter.Adapter, error) {
	a, err := m.config.Factory(ctx, env, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", migrator.ErrAdapterUnavailable, err)
	}
	if a == nil {
		return nil, migrator.ErrAdapterUnavailable
	}
	return a, nil
}

func (m *Manager) close(ctx context.Context, a adapter.Adapter, db string) {
	if err := a.Close(); err != nil && m.config.Logger != nil {
		m.config.Logger.Warn(ctx, "failed to close adapter", "database", label(db), "error", err)
	}
}

func ensureLedger(ctx context.Context, a adapter.Adapter) ([]migrator.LedgerEntry, error) {
	exists, err := a.HasVersionTable(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := a.CreateVersionTable(ctx); err != nil {
			return nil, err
		}
	}

	entries, err := a.AppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return entries, nil
}

// forEachTarget calls fn for every target, sequentially or with bounded
// concurrency. fn must record its own outcome; no error stops other targets.
func (m *Manager) forEachTarget(ctx context.Context, targets []string, fn func(ctx context.Context, i int, db string)) {
	if m.config.Parallelism <= 1 || len(targets) <= 1 {
		for i, db := range targets {
			fn(ctx, i, db)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(m.config.Parallelism)
	for i, db := range targets {
		g.Go(func() error {
			fn(ctx, i, db)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Manager) collector(environment string) *metrics.Collector {
	if !m.metricsEnabled {
		return nil
	}
	return metrics.NewCollector(environment)
}

func (m *Manager) runner(collector *metrics.Collector) executor.Runner {
	if m.config.Runner != nil {
		return m.config.Runner
	}
	return executor.New(executor.Config{
		Logger:  m.config.Logger,
		Metrics: collector,
		Now:     m.config.Now,
	})
}

func (m *Manager) logWarnings(ctx context.Context, runID string, warnings []string) {
	if m.config.Logger == nil {
		return
	}
	for _, w := range warnings {
		m.config.Logger.Warn(ctx, w, "run_id", runID)
	}
}

func label(db string) string {
	if db == "" {
		return "default"
	}
	return db
}

// IsTargetFailure reports whether err came from a single database rather
// than from resolving the operation itself.
func IsTargetFailure(err error) bool {
	var te *migrator.TargetError
	return errors.As(err, &te)
}
