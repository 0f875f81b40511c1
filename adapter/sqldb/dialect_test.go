package sqldb

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type dollarDialect struct{}

func (dollarDialect) Name() string                   { return "test" }
func (dollarDialect) TransactionalDDL() bool         { return true }
func (dollarDialect) Placeholder(n int) string       { return fmt.Sprintf("$%d", n) }
func (dollarDialect) TableExistsQuery() string       { return "" }
func (dollarDialect) CreateTableQuery(string) string { return "" }

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "schema_migrations", false},
		{"mixed case", "AppMigrations2", false},
		{"empty", "", true},
		{"leading digit", "1table", true},
		{"leading underscore", "_table", true},
		{"hyphen", "schema-migrations", true},
		{"injection", "t; DROP TABLE users", true},
		{"qualified", "public.schema_migrations", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueryBuilders(t *testing.T) {
	d := dollarDialect{}

	assert.Equal(t,
		"SELECT version, migration_name, applied_at, breakpoint FROM app_migrations ORDER BY version ASC",
		selectEntriesQuery("app_migrations"))
	assert.Equal(t,
		"INSERT INTO app_migrations (version, migration_name, applied_at, breakpoint) VALUES ($1, $2, $3, $4)",
		insertEntryQuery(d, "app_migrations"))
	assert.Equal(t, "DELETE FROM app_migrations WHERE version = $1", deleteEntryQuery(d, "app_migrations"))
	assert.Equal(t, "UPDATE app_migrations SET breakpoint = $1 WHERE version = $2", updateBreakpointQuery(d, "app_migrations"))
}

func TestParseAppliedAt(t *testing.T) {
	assert.Equal(t, 2021, parseAppliedAt("2021-01-03T08:11:32.5Z").Year())
	assert.Equal(t, 8, parseAppliedAt("2021-01-03 08:11:32").Hour())
	assert.True(t, parseAppliedAt("yesterday").IsZero())
}

func TestNew_DefaultsAndValidatesTable(t *testing.T) {
	a, err := New(nil, dollarDialect{}, "")
	assert.NoError(t, err)
	assert.Equal(t, DefaultVersionTable, a.Table())

	_, err = New(nil, dollarDialect{}, "bad-name")
	assert.Error(t, err)
}
