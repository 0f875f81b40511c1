package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/adapter"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Adapter is a database/sql implementation of adapter.Adapter.
// The engine-specific parts are supplied by a Dialect.
type Adapter struct {
	db      *sql.DB
	dialect Dialect
	table   string
	tx      *sql.Tx
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates an adapter over db. An empty table uses DefaultVersionTable.
// The adapter takes ownership of db and closes it on Close.
func New(db *sql.DB, dialect Dialect, table string) (*Adapter, error) {
	if table == "" {
		table = DefaultVersionTable
	}
	if err := ValidateIdentifier(table); err != nil {
		return nil, fmt.Errorf("invalid version table: %w", err)
	}

	return &Adapter{
		db:      db,
		dialect: dialect,
		table:   table,
	}, nil
}

// Dialect returns the adapter's dialect.
func (a *Adapter) Dialect() Dialect {
	return a.dialect
}

// Table returns the ledger table name.
func (a *Adapter) Table() string {
	return a.table
}

// DB returns the underlying connection pool.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

func (a *Adapter) current() execer {
	if a.tx != nil {
		return a.tx
	}
	return a.db
}

// HasVersionTable reports whether the ledger table exists.
func (a *Adapter) HasVersionTable(ctx context.Context) (bool, error) {
	var count int
	err := a.current().QueryRowContext(ctx, a.dialect.TableExistsQuery(), a.table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check version table: %w", err)
	}
	return count > 0, nil
}

// CreateVersionTable creates the ledger table if it does not exist.
func (a *Adapter) CreateVersionTable(ctx context.Context) error {
	if _, err := a.current().ExecContext(ctx, a.dialect.CreateTableQuery(a.table)); err != nil {
		return fmt.Errorf("failed to create version table %s: %w", a.table, err)
	}
	return nil
}

// AppliedVersions returns the ledger ordered by version ascending.
func (a *Adapter) AppliedVersions(ctx context.Context) ([]migrator.LedgerEntry, error) {
	rows, err := a.current().QueryContext(ctx, selectEntriesQuery(a.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied versions: %w", err)
	}
	defer rows.Close()

	var entries []migrator.LedgerEntry
	for rows.Next() {
		var (
			version    int64
			name       string
			appliedAt  string
			breakpoint bool
		)
		if err := rows.Scan(&version, &name, &appliedAt, &breakpoint); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		entries = append(entries, migrator.LedgerEntry{
			Version:    migrator.Version(version),
			Name:       name,
			AppliedAt:  parseAppliedAt(appliedAt),
			Breakpoint: breakpoint,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}

// SupportsTransactionalDDL reports the dialect's capability.
func (a *Adapter) SupportsTransactionalDDL() bool {
	return a.dialect.TransactionalDDL()
}

// BeginTransaction starts a transaction. It is a no-op for dialects without
// transactional DDL.
func (a *Adapter) BeginTransaction(ctx context.Context) error {
	if !a.dialect.TransactionalDDL() {
		return nil
	}
	if a.tx != nil {
		return adapter.ErrTransactionInProgress
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	a.tx = tx
	return nil
}

// Commit commits the current transaction.
func (a *Adapter) Commit(ctx context.Context) error {
	if !a.dialect.TransactionalDDL() {
		return nil
	}
	if a.tx == nil {
		return adapter.ErrNoTransaction
	}

	tx := a.tx
	a.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction aborts the current transaction.
func (a *Adapter) RollbackTransaction(ctx context.Context) error {
	if !a.dialect.TransactionalDDL() {
		return nil
	}
	if a.tx == nil {
		return adapter.ErrNoTransaction
	}

	tx := a.tx
	a.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// InsertVersionRecord appends a ledger entry for m.
func (a *Adapter) InsertVersionRecord(ctx context.Context, m migrator.Migration, breakpoint bool) error {
	appliedAt := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := a.current().ExecContext(ctx, insertEntryQuery(a.dialect, a.table),
		int64(m.Version), m.Name, appliedAt, breakpoint)
	if err != nil {
		return fmt.Errorf("failed to insert version %s: %w", m.Version, err)
	}
	return nil
}

// RemoveVersionRecord deletes the ledger entry for version.
// Returns adapter.ErrVersionNotApplied if no row was deleted.
func (a *Adapter) RemoveVersionRecord(ctx context.Context, version migrator.Version) error {
	result, err := a.current().ExecContext(ctx, deleteEntryQuery(a.dialect, a.table), int64(version))
	if err != nil {
		return fmt.Errorf("failed to remove version %s: %w", version, err)
	}
	return checkAffected(result, version)
}

// SetBreakpoint sets or clears the breakpoint flag of a ledger entry.
func (a *Adapter) SetBreakpoint(ctx context.Context, version migrator.Version, enabled bool) error {
	result, err := a.current().ExecContext(ctx, updateBreakpointQuery(a.dialect, a.table), enabled, int64(version))
	if err != nil {
		return fmt.Errorf("failed to set breakpoint on %s: %w", version, err)
	}
	return checkAffected(result, version)
}

// ExecuteMigration runs m's function for direction on the current connection
// or transaction.
func (a *Adapter) ExecuteMigration(ctx context.Context, m migrator.Migration, direction migrator.Direction) error {
	fn := m.Func(direction)
	if fn == nil {
		return fmt.Errorf("migration %s: %w %s", m.Version, adapter.ErrNoMigrationFunc, direction)
	}
	return fn(ctx, conn{db: a.current()})
}

// Close rolls back any open transaction and closes the connection pool.
func (a *Adapter) Close() error {
	if a.tx != nil {
		_ = a.tx.Rollback()
		a.tx = nil
	}
	return a.db.Close()
}

func checkAffected(result sql.Result, version migrator.Version) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("version %s: %w", version, adapter.ErrVersionNotApplied)
	}
	return nil
}

func parseAppliedAt(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type conn struct {
	db execer
}

func (c conn) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}
