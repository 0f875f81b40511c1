package adapter

import (
	"context"

	"github.com/getpup/pupsourcing-migrator"
)

// Adapter is the gateway to one target database. It executes migrations,
// controls transactions and persists the version ledger.
//
// Implementations are used by a single operation at a time and need not be
// safe for concurrent use.
type Adapter interface {
	// HasVersionTable reports whether the ledger table exists.
	HasVersionTable(ctx context.Context) (bool, error)

	// CreateVersionTable creates the ledger table.
	CreateVersionTable(ctx context.Context) error

	// AppliedVersions returns all ledger entries ordered by version ascending.
	AppliedVersions(ctx context.Context) ([]migrator.LedgerEntry, error)

	// SupportsTransactionalDDL reports whether schema changes can be rolled back
	// together with the ledger write. When false, the transaction methods are
	// no-ops.
	SupportsTransactionalDDL() bool

	// BeginTransaction starts a transaction. Subsequent calls run inside it
	// until Commit or RollbackTransaction.
	BeginTransaction(ctx context.Context) error

	// Commit commits the current transaction.
	Commit(ctx context.Context) error

	// RollbackTransaction aborts the current transaction.
	RollbackTransaction(ctx context.Context) error

	// InsertVersionRecord appends a ledger entry for m.
	InsertVersionRecord(ctx context.Context, m migrator.Migration, breakpoint bool) error

	// RemoveVersionRecord deletes the ledger entry for version.
	RemoveVersionRecord(ctx context.Context, version migrator.Version) error

	// SetBreakpoint sets or clears the breakpoint flag of a ledger entry.
	// Returns ErrVersionNotApplied if the entry does not exist.
	SetBreakpoint(ctx context.Context, version migrator.Version, enabled bool) error

	// ExecuteMigration runs m's Up or Down against the current connection or
	// transaction.
	ExecuteMigration(ctx context.Context, m migrator.Migration, direction migrator.Direction) error

	// Close releases the connection.
	Close() error
}

// Factory opens the adapter for one database of an environment.
// An empty database selects the environment's default connection.
type Factory func(ctx context.Context, env migrator.Environment, database string) (Adapter, error)

// AppliedSet returns the applied versions of entries as a set.
func AppliedSet(entries []migrator.LedgerEntry) map[migrator.Version]migrator.LedgerEntry {
	set := make(map[migrator.Version]migrator.LedgerEntry, len(entries))
	for _, e := range entries {
		set[e.Version] = e
	}
	return set
}
