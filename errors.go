package migrator

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTargetVersion indicates the requested target version matches no
	// discovered migration (and, on rollback, no ledger entry).
	ErrUnknownTargetVersion = errors.New("unknown target version")

	// ErrIrreversibleMigration indicates a rollback plan includes a migration
	// without a Down function. It is detected before anything runs.
	ErrIrreversibleMigration = errors.New("irreversible migration")

	// ErrStepExecutionFailure indicates a migration's Up or Down failed.
	// Remaining steps for the target are not attempted.
	ErrStepExecutionFailure = errors.New("migration step failed")

	// ErrLedgerDesync indicates a non-transactional adapter left the schema and
	// the ledger inconsistent. Manual reconciliation is required.
	ErrLedgerDesync = errors.New("ledger out of sync with schema")

	// ErrAdapterUnavailable indicates the adapter for a target could not be
	// created or reached.
	ErrAdapterUnavailable = errors.New("adapter unavailable")

	// ErrDuplicateVersion indicates two discovered migrations share a version.
	ErrDuplicateVersion = errors.New("duplicate migration version")

	// ErrMissingMigration indicates an applied version that must be reverted
	// has no discovered migration.
	ErrMissingMigration = errors.New("applied migration not found")

	// ErrUnknownEnvironment indicates the requested environment is not configured.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrInvalidVersion indicates a version string could not be parsed.
	ErrInvalidVersion = errors.New("invalid migration version")

	// ErrInvalidMigration indicates a discovered migration is malformed.
	ErrInvalidMigration = errors.New("invalid migration")
)

// StepError reports the failure of a single plan step.
type StepError struct {
	Version   Version
	Name      string
	Direction Direction
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("migration %s %s (%s): %v", e.Version, e.Name, e.Direction, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Is matches ErrStepExecutionFailure in addition to the wrapped error.
func (e *StepError) Is(target error) bool {
	return target == ErrStepExecutionFailure
}

// TargetError scopes an error to one target database.
type TargetError struct {
	Database string
	Err      error
}

func (e *TargetError) Error() string {
	db := e.Database
	if db == "" {
		db = "(default)"
	}
	return fmt.Sprintf("database %s: %v", db, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}
