package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/adapter"
	"github.com/getpup/pupsourcing-migrator/metrics"
	"github.com/getpup/pupsourcing-migrator/plan"
)

// Config configures the execution engine.
type Config struct {
	// Logger is an optional logger for observability.
	Logger migrator.Logger

	// Metrics is an optional metrics collector.
	Metrics *metrics.Collector

	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// Executor runs plans step by step against an adapter.
//
// For adapters with transactional DDL each step runs in its own transaction
// together with its ledger write. For other adapters the ledger is checked
// before every step; when it does not match what the plan expects, or when
// the ledger write fails after the migration ran, the run stops with
// ErrLedgerDesync.
//
// Steps are never interrupted: a step runs under a context detached from
// cancellation, and cancellation is only observed between steps.
type Executor struct {
	config Config
}

// Compile-time check that Executor implements Runner.
var _ Runner = (*Executor)(nil)

// New creates a new Executor with the given configuration.
func New(cfg Config) *Executor {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Executor{
		config: cfg,
	}
}

// Run executes p against a. The first failure stops the run; steps that
// already succeeded stay committed.
func (e *Executor) Run(ctx context.Context, database string, p plan.Plan, a adapter.Adapter) *Report {
	start := e.config.Now()
	report := &Report{
		Database:  database,
		Direction: p.Direction,
		Steps:     make([]StepResult, 0, len(p.Steps)),
	}

	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			report.Err = err
			report.Unattempted = remaining(p.Steps[i:])
			if e.config.Logger != nil {
				e.config.Logger.Warn(ctx, "run cancelled between steps",
					"database", database,
					"unattempted", len(report.Unattempted))
			}
			break
		}

		result := e.runStep(ctx, database, a, step)
		report.Steps = append(report.Steps, result)

		if result.Err != nil {
			report.Err = result.Err
			report.Unattempted = remaining(p.Steps[i+1:])
			break
		}
	}

	report.Duration = e.config.Now().Sub(start)
	return report
}

func (e *Executor) runStep(ctx context.Context, database string, a adapter.Adapter, step plan.Step) StepResult {
	m := step.Migration
	direction := step.Direction

	if e.config.Logger != nil {
		e.config.Logger.Info(ctx, "running migration",
			"database", database,
			"version", m.Version,
			"name", m.Name,
			"direction", direction)
	}

	// Migrations are not interruptible once started.
	stepCtx := context.WithoutCancel(ctx)

	start := e.config.Now()
	var err error
	if a.SupportsTransactionalDDL() {
		err = e.runTransactional(stepCtx, a, step)
	} else {
		err = e.runNonTransactional(stepCtx, a, step)
	}
	elapsed := e.config.Now().Sub(start)

	result := StepResult{
		Version:   m.Version,
		Name:      m.Name,
		Direction: direction,
		Outcome:   Success,
		Duration:  elapsed,
	}

	outcome := metrics.OutcomeSuccess
	if err != nil {
		result.Outcome = Failed
		result.Err = err
		outcome = metrics.OutcomeFailed
	}

	if e.config.Metrics != nil {
		dbLabel := database
		if dbLabel == "" {
			dbLabel = "default"
		}
		e.config.Metrics.IncStep(dbLabel, direction.String(), outcome)
		e.config.Metrics.ObserveStepDuration(direction.String(), elapsed.Seconds())
		if errors.Is(err, migrator.ErrLedgerDesync) {
			e.config.Metrics.IncLedgerDesync(dbLabel)
		}
	}

	if e.config.Logger != nil {
		if err != nil {
			e.config.Logger.Error(ctx, "migration failed",
				"database", database,
				"version", m.Version,
				"name", m.Name,
				"direction", direction,
				"error", err)
		} else {
			e.config.Logger.Info(ctx, "migration complete",
				"database", database,
				"version", m.Version,
				"direction", direction,
				"duration", elapsed)
		}
	}

	return result
}

func (e *Executor) runTransactional(ctx context.Context, a adapter.Adapter, step plan.Step) error {
	if err := a.BeginTransaction(ctx); err != nil {
		return stepError(step, fmt.Errorf("failed to begin transaction: %w", err))
	}

	if err := a.ExecuteMigration(ctx, step.Migration, step.Direction); err != nil {
		e.rollback(ctx, a, step)
		return stepError(step, err)
	}

	if err := writeLedger(ctx, a, step); err != nil {
		e.rollback(ctx, a, step)
		return stepError(step, err)
	}

	if err := a.Commit(ctx); err != nil {
		return stepError(step, err)
	}
	return nil
}

func (e *Executor) rollback(ctx context.Context, a adapter.Adapter, step plan.Step) {
	if err := a.RollbackTransaction(ctx); err != nil && e.config.Logger != nil {
		e.config.Logger.Error(ctx, "failed to roll back step transaction",
			"version", step.Migration.Version,
			"error", err)
	}
}

func (e *Executor) runNonTransactional(ctx context.Context, a adapter.Adapter, step plan.Step) error {
	m := step.Migration

	entries, err := a.AppliedVersions(ctx)
	if err != nil {
		return stepError(step, fmt.Errorf("failed to read ledger: %w", err))
	}
	_, applied := adapter.AppliedSet(entries)[m.Version]

	switch {
	case step.Direction == migrator.Up && applied:
		return fmt.Errorf("%w: %s is already recorded as applied", migrator.ErrLedgerDesync, m)
	case step.Direction == migrator.Down && !applied:
		return fmt.Errorf("%w: %s is no longer recorded as applied", migrator.ErrLedgerDesync, m)
	}

	if err := a.ExecuteMigration(ctx, m, step.Direction); err != nil {
		return stepError(step, err)
	}

	if err := writeLedger(ctx, a, step); err != nil {
		return fmt.Errorf("%w: %s ran %s but the ledger write failed: %w",
			migrator.ErrLedgerDesync, m, step.Direction, err)
	}
	return nil
}

func writeLedger(ctx context.Context, a adapter.Adapter, step plan.Step) error {
	if step.Direction == migrator.Down {
		return a.RemoveVersionRecord(ctx, step.Migration.Version)
	}
	return a.InsertVersionRecord(ctx, step.Migration, false)
}

func stepError(step plan.Step, err error) error {
	return &migrator.StepError{
		Version:   step.Migration.Version,
		Name:      step.Migration.Name,
		Direction: step.Direction,
		Err:       err,
	}
}

func remaining(steps []plan.Step) []migrator.Version {
	if len(steps) == 0 {
		return nil
	}
	out := make([]migrator.Version, len(steps))
	for i, s := range steps {
		out[i] = s.Migration.Version
	}
	return out
}
