package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/adapter"
)

// Statement is a statement recorded by the in-memory connection.
type Statement struct {
	Query string
	Args  []any
}

// Adapter is an in-memory implementation of adapter.Adapter for testing.
// It keeps the ledger in a map and records every executed statement.
// Transactions snapshot both and restore them on rollback.
type Adapter struct {
	mu            sync.RWMutex
	transactional bool
	ledger        map[migrator.Version]migrator.LedgerEntry
	statements    []Statement
	now           func() time.Time

	inTx           bool
	ledgerSnapshot map[migrator.Version]migrator.LedgerEntry
	stmtSnapshot   int

	// ExecFunc, if set, is called for every statement before it is recorded.
	// Returning an error fails the statement.
	ExecFunc func(ctx context.Context, query string, args ...any) error

	closed bool
}

var _ adapter.Adapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithTransactionalDDL sets what SupportsTransactionalDDL reports (default: true).
func WithTransactionalDDL(enabled bool) Option {
	return func(a *Adapter) {
		a.transactional = enabled
	}
}

// WithClock sets the clock used for AppliedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		a.now = now
	}
}

// WithLedger seeds the ledger with entries.
func WithLedger(entries ...migrator.LedgerEntry) Option {
	return func(a *Adapter) {
		for _, e := range entries {
			a.ledger[e.Version] = e
		}
	}
}

// New creates a new in-memory adapter. The version table is considered to
// exist once CreateVersionTable has been called or the ledger is seeded.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		transactional: true,
		ledger:        make(map[migrator.Version]migrator.LedgerEntry),
		statements:    make([]Statement, 0),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// HasVersionTable reports whether CreateVersionTable was called or the ledger
// was seeded.
func (a *Adapter) HasVersionTable(ctx context.Context) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.ledger) > 0 || a.hasTable(), nil
}

func (a *Adapter) hasTable() bool {
	for _, s := range a.statements {
		if s.Query == createTableStatement {
			return true
		}
	}
	return false
}

const createTableStatement = "CREATE TABLE schema_migrations"

// CreateVersionTable records the table creation.
func (a *Adapter) CreateVersionTable(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.hasTable() {
		return nil
	}
	a.statements = append(a.statements, Statement{Query: createTableStatement})
	return nil
}

// AppliedVersions returns the ledger ordered by version ascending.
func (a *Adapter) AppliedVersions(ctx context.Context) ([]migrator.LedgerEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entries := make([]migrator.LedgerEntry, 0, len(a.ledger))
	for _, e := range a.ledger {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(x, y migrator.LedgerEntry) int {
		return cmp.Compare(x.Version, y.Version)
	})

	return entries, nil
}

// SupportsTransactionalDDL reports the configured capability.
func (a *Adapter) SupportsTransactionalDDL() bool {
	return a.transactional
}

// BeginTransaction snapshots the ledger and statement log.
// It is a no-op when the adapter is not transactional.
func (a *Adapter) BeginTransaction(ctx context.Context) error {
	if !a.transactional {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.inTx {
		return adapter.ErrTransactionInProgress
	}

	a.inTx = true
	a.ledgerSnapshot = make(map[migrator.Version]migrator.LedgerEntry, len(a.ledger))
	for v, e := range a.ledger {
		a.ledgerSnapshot[v] = e
	}
	a.stmtSnapshot = len(a.statements)

	return nil
}

// Commit discards the snapshot.
func (a *Adapter) Commit(ctx context.Context) error {
	if !a.transactional {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.inTx {
		return adapter.ErrNoTransaction
	}

	a.inTx = false
	a.ledgerSnapshot = nil
	return nil
}

// RollbackTransaction restores the snapshot taken by BeginTransaction.
func (a *Adapter) RollbackTransaction(ctx context.Context) error {
	if !a.transactional {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.inTx {
		return adapter.ErrNoTransaction
	}

	a.ledger = a.ledgerSnapshot
	a.statements = a.statements[:a.stmtSnapshot]
	a.inTx = false
	a.ledgerSnapshot = nil
	return nil
}

// InsertVersionRecord appends a ledger entry.
// Returns adapter.ErrVersionAlreadyApplied if the version is present.
func (a *Adapter) InsertVersionRecord(ctx context.Context, m migrator.Migration, breakpoint bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.ledger[m.Version]; ok {
		return fmt.Errorf("insert version %s: %w", m.Version, adapter.ErrVersionAlreadyApplied)
	}

	a.ledger[m.Version] = migrator.LedgerEntry{
		Version:    m.Version,
		Name:       m.Name,
		AppliedAt:  a.now().UTC(),
		Breakpoint: breakpoint,
	}
	return nil
}

// RemoveVersionRecord deletes a ledger entry.
// Returns adapter.ErrVersionNotApplied if the version is absent.
func (a *Adapter) RemoveVersionRecord(ctx context.Context, version migrator.Version) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.ledger[version]; !ok {
		return fmt.Errorf("remove version %s: %w", version, adapter.ErrVersionNotApplied)
	}

	delete(a.ledger, version)
	return nil
}

// SetBreakpoint updates the breakpoint flag of a ledger entry.
func (a *Adapter) SetBreakpoint(ctx context.Context, version migrator.Version, enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.ledger[version]
	if !ok {
		return fmt.Errorf("set breakpoint %s: %w", version, adapter.ErrVersionNotApplied)
	}

	e.Breakpoint = enabled
	a.ledger[version] = e
	return nil
}

// ExecuteMigration runs the migration function against the in-memory connection.
func (a *Adapter) ExecuteMigration(ctx context.Context, m migrator.Migration, direction migrator.Direction) error {
	fn := m.Func(direction)
	if fn == nil {
		return fmt.Errorf("migration %s: %w %s", m.Version, adapter.ErrNoMigrationFunc, direction)
	}
	return fn(ctx, conn{a: a})
}

// Statements returns a copy of the recorded statements, excluding the ledger
// table creation.
func (a *Adapter) Statements() []Statement {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Statement, 0, len(a.statements))
	for _, s := range a.statements {
		if s.Query == createTableStatement {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Queries returns the recorded statement texts in execution order.
func (a *Adapter) Queries() []string {
	stmts := a.Statements()
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.Query
	}
	return out
}

// Versions returns the applied versions ascending.
func (a *Adapter) Versions() []migrator.Version {
	entries, _ := a.AppliedVersions(context.Background())
	out := make([]migrator.Version, len(entries))
	for i, e := range entries {
		out[i] = e.Version
	}
	return out
}

// Close marks the adapter closed. The ledger is kept so tests can inspect it.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Closed reports whether Close was called.
func (a *Adapter) Closed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.closed
}

type conn struct {
	a *Adapter
}

func (c conn) Exec(ctx context.Context, query string, args ...any) error {
	if c.a.ExecFunc != nil {
		if err := c.a.ExecFunc(ctx, query, args...); err != nil {
			return err
		}
	}

	c.a.mu.Lock()
	defer c.a.mu.Unlock()
	c.a.statements = append(c.a.statements, Statement{Query: query, Args: args})
	return nil
}
