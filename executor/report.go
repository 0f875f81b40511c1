package executor

import (
	"time"

	"github.com/getpup/pupsourcing-migrator"
)

// Outcome is the result of a single step.
type Outcome int

const (
	// Success means the migration and its ledger write are durable.
	Success Outcome = iota

	// Failed means the step did not complete. For transactional adapters the
	// step left no trace; otherwise see Report.Err.
	Failed
)

func (o Outcome) String() string {
	if o == Failed {
		return "failed"
	}
	return "success"
}

// StepResult records one attempted step.
type StepResult struct {
	Version   migrator.Version
	Name      string
	Direction migrator.Direction
	Outcome   Outcome
	Duration  time.Duration
	Err       error
}

// Report is the outcome of running a plan against one target.
type Report struct {
	Database  string
	Direction migrator.Direction

	// Steps lists attempted steps in plan order. A failed step, if any, is last.
	Steps []StepResult

	// Unattempted lists the versions of the plan that were not run.
	Unattempted []migrator.Version

	// Err is the error that stopped the run, or nil.
	Err error

	Duration time.Duration
}

// Failed reports whether the run stopped before completing the plan.
func (r *Report) Failed() bool {
	return r.Err != nil
}

// Succeeded returns the versions whose steps succeeded, in plan order.
func (r *Report) Succeeded() []migrator.Version {
	var out []migrator.Version
	for _, s := range r.Steps {
		if s.Outcome == Success {
			out = append(out, s.Version)
		}
	}
	return out
}
