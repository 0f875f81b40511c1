package adapter

import "errors"

var (
	// ErrVersionNotApplied indicates the ledger has no entry for the version.
	ErrVersionNotApplied = errors.New("version not applied")

	// ErrVersionAlreadyApplied indicates the ledger already has an entry for the version.
	ErrVersionAlreadyApplied = errors.New("version already applied")

	// ErrNoTransaction indicates Commit or RollbackTransaction was called without
	// an open transaction.
	ErrNoTransaction = errors.New("no transaction in progress")

	// ErrTransactionInProgress indicates BeginTransaction was called twice.
	ErrTransactionInProgress = errors.New("transaction already in progress")

	// ErrNoMigrationFunc indicates the migration has no function for the requested direction.
	ErrNoMigrationFunc = errors.New("migration has no function for direction")
)
