package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect(t *testing.T) {
	d := Dialect{}

	assert.Equal(t, "sqlite", d.Name())
	assert.True(t, d.TransactionalDDL())
	assert.Equal(t, "?", d.Placeholder(1))
	assert.Contains(t, d.CreateTableQuery("schema_migrations"), "version INTEGER PRIMARY KEY")
}

func TestOpen_InMemory(t *testing.T) {
	ctx := context.Background()

	a, err := Open(ctx, ":memory:", "")
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.CreateVersionTable(ctx))
	exists, err := a.HasVersionTable(ctx)
	require.NoError(t, err)
	assert.True(t, exists, "single connection should keep the in-memory database alive")
}
