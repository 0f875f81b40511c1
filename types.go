package migrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Version identifies a migration. Versions are totally ordered by their
// integer value and are conventionally a creation timestamp such as
// 20210103081132.
type Version int64

// ParseVersion parses a decimal version string.
// Returns ErrInvalidVersion if s is not a non-negative integer.
func ParseVersion(s string) (Version, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	return Version(v), nil
}

// String returns the decimal form of the version.
func (v Version) String() string {
	return strconv.FormatInt(int64(v), 10)
}

// Direction is the direction a migration is run in.
type Direction int

const (
	// Up applies a migration (migrate).
	Up Direction = iota

	// Down reverts a migration (rollback).
	Down
)

// String returns "up" or "down".
func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Conn executes statements against the connection (or transaction) a
// migration is currently running on.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// MigrateFunc performs one direction of a migration.
type MigrateFunc func(ctx context.Context, conn Conn) error

// Migration is a single versioned schema change.
// A Migration without a Down function is irreversible.
type Migration struct {
	// Version orders the migration relative to all others.
	Version Version

	// Name is a human-readable description, e.g. "create_users".
	Name string

	// Up applies the change.
	Up MigrateFunc

	// Down reverts the change. Nil marks the migration irreversible.
	Down MigrateFunc

	// Source describes where the migration was discovered (file path or "go").
	Source string
}

// Reversible reports whether the migration defines a Down function.
func (m Migration) Reversible() bool {
	return m.Down != nil
}

// Func returns the function for the given direction, or nil if undefined.
func (m Migration) Func(d Direction) MigrateFunc {
	if d == Down {
		return m.Down
	}
	return m.Up
}

// String returns "<version> <name>".
func (m Migration) String() string {
	return m.Version.String() + " " + m.Name
}

// LedgerEntry records one applied migration in a target's version ledger.
type LedgerEntry struct {
	// Version is the applied migration version.
	Version Version

	// Name is the migration name at the time it was applied.
	Name string

	// AppliedAt is when the migration was applied.
	AppliedAt time.Time

	// Breakpoint freezes the entry: rollbacks never cross it.
	Breakpoint bool
}

// Environment resolves to one or more target databases served by a single
// adapter kind. Each database has its own ledger.
type Environment struct {
	// Name is the environment name, e.g. "development".
	Name string

	// Adapter is the adapter kind, e.g. "postgres", "mysql", "sqlite".
	Adapter string

	// DSN is the connection string. A "{database}" placeholder is replaced by
	// the target database name.
	DSN string

	// Databases is the ordered list of target databases.
	Databases []string

	// DefaultDatabase is used when no target database resolves.
	DefaultDatabase string

	// VersionTable is the ledger table name.
	VersionTable string
}

// HasDatabase reports whether name is one of the environment's databases.
// The comparison is case-sensitive.
func (e Environment) HasDatabase(name string) bool {
	for _, db := range e.Databases {
		if db == name {
			return true
		}
	}
	return false
}
