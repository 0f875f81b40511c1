package manager

import (
	"errors"
	"time"

	"github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/executor"
	"github.com/getpup/pupsourcing-migrator/plan"
)

// TargetReport is the outcome of a migrate or rollback on one database.
type TargetReport struct {
	// Database is the target database; empty means the default connection.
	Database string

	// Plan is the plan built for the target. It is empty when the adapter
	// could not be opened or planning failed.
	Plan plan.Plan

	// Execution is nil when the plan was never run.
	Execution *executor.Report

	// Err is a *migrator.TargetError, or nil on success.
	Err error
}

// Failed reports whether the target failed.
func (t TargetReport) Failed() bool {
	return t.Err != nil
}

// AggregateReport is the outcome of a migrate or rollback across all targets.
type AggregateReport struct {
	// RunID identifies the operation in logs.
	RunID       string
	Environment string
	Direction   migrator.Direction

	// Targets are in resolution order.
	Targets []TargetReport

	// Warnings lists requested databases that did not resolve.
	Warnings []string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns the wall-clock duration of the whole operation.
func (r *AggregateReport) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether any target failed.
func (r *AggregateReport) Failed() bool {
	for _, t := range r.Targets {
		if t.Failed() {
			return true
		}
	}
	return false
}

// Err joins the errors of all failed targets, or returns nil.
func (r *AggregateReport) Err() error {
	var errs []error
	for _, t := range r.Targets {
		if t.Err != nil {
			errs = append(errs, t.Err)
		}
	}
	return errors.Join(errs...)
}

// StatusEntry describes one version on a target.
type StatusEntry struct {
	Version    migrator.Version
	Name       string
	Applied    bool
	AppliedAt  time.Time
	Breakpoint bool
	Reversible bool

	// Missing marks a ledger entry whose migration is no longer discovered.
	Missing bool
}

// TargetStatus lists the versions known to one target, ascending.
type TargetStatus struct {
	Database string
	Entries  []StatusEntry
	Err      error
}

// Pending returns the number of migrations not yet applied.
func (t TargetStatus) Pending() int {
	n := 0
	for _, e := range t.Entries {
		if !e.Applied {
			n++
		}
	}
	return n
}

// StatusReport is the outcome of Status.
type StatusReport struct {
	Environment string
	Targets     []TargetStatus
	Warnings    []string
}

// Err joins the errors of all failed targets, or returns nil.
func (r *StatusReport) Err() error {
	var errs []error
	for _, t := range r.Targets {
		if t.Err != nil {
			errs = append(errs, t.Err)
		}
	}
	return errors.Join(errs...)
}

// BreakpointResult is the outcome of a breakpoint change on one target.
type BreakpointResult struct {
	Database string

	// Versions lists the ledger entries that were changed.
	Versions []migrator.Version
	Enabled  bool
	Err      error
}

// BreakpointReport is the outcome of SetBreakpoint or ClearBreakpoints.
type BreakpointReport struct {
	Environment string
	Targets     []BreakpointResult
	Warnings    []string
}

// Err joins the errors of all failed targets, or returns nil.
func (r *BreakpointReport) Err() error {
	var errs []error
	for _, t := range r.Targets {
		if t.Err != nil {
			errs = append(errs, t.Err)
		}
	}
	return errors.Join(errs...)
}
