package sqldb

import (
	"fmt"
	"regexp"
)

// DefaultVersionTable is the ledger table name used when none is configured.
const DefaultVersionTable = "schema_migrations"

// Dialect provides the engine-specific parts of the SQL adapter.
type Dialect interface {
	// Name returns the adapter kind, e.g. "postgres".
	Name() string

	// TransactionalDDL reports whether DDL statements can be rolled back.
	TransactionalDDL() bool

	// Placeholder returns the bind parameter for the n-th argument (1-based).
	Placeholder(n int) string

	// TableExistsQuery returns a query taking the table name as its only
	// argument and returning the number of matching tables.
	TableExistsQuery() string

	// CreateTableQuery returns the DDL creating the ledger table.
	// The table has the columns version, migration_name, applied_at and breakpoint.
	CreateTableQuery(table string) string
}

var identifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// ValidateIdentifier ensures a table name contains only characters that are
// safe to interpolate into SQL.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("table name must start with a letter and contain only letters, numbers, and underscores (got: %s)", name)
	}
	return nil
}

func selectEntriesQuery(table string) string {
	return fmt.Sprintf(`SELECT version, migration_name, applied_at, breakpoint FROM %s ORDER BY version ASC`, table)
}

func insertEntryQuery(d Dialect, table string) string {
	return fmt.Sprintf(`INSERT INTO %s (version, migration_name, applied_at, breakpoint) VALUES (%s, %s, %s, %s)`,
		table, d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4))
}

func deleteEntryQuery(d Dialect, table string) string {
	return fmt.Sprintf(`DELETE FROM %s WHERE version = %s`, table, d.Placeholder(1))
}

func updateBreakpointQuery(d Dialect, table string) string {
	return fmt.Sprintf(`UPDATE %s SET breakpoint = %s WHERE version = %s`, table, d.Placeholder(1), d.Placeholder(2))
}
