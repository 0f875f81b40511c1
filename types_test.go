package migrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	t.Run("timestamp version", func(t *testing.T) {
		v, err := ParseVersion("20210103081132")

		require.NoError(t, err)
		assert.Equal(t, Version(20210103081132), v)
		assert.Equal(t, "20210103081132", v.String())
	})

	t.Run("surrounding whitespace is ignored", func(t *testing.T) {
		v, err := ParseVersion(" 42 ")

		require.NoError(t, err)
		assert.Equal(t, Version(42), v)
	})

	t.Run("zero is valid", func(t *testing.T) {
		v, err := ParseVersion("0")

		require.NoError(t, err)
		assert.Equal(t, Version(0), v)
	})

	t.Run("negative is rejected", func(t *testing.T) {
		_, err := ParseVersion("-1")

		assert.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("non numeric is rejected", func(t *testing.T) {
		_, err := ParseVersion("abc")

		assert.ErrorIs(t, err, ErrInvalidVersion)
	})
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "up", Up.String())
	assert.Equal(t, "down", Down.String())
}

func TestMigration_Reversible(t *testing.T) {
	noop := func(context.Context, Conn) error { return nil }

	t.Run("with down is reversible", func(t *testing.T) {
		m := Migration{Version: 1, Name: "a", Up: noop, Down: noop}

		assert.True(t, m.Reversible())
		assert.NotNil(t, m.Func(Down))
	})

	t.Run("without down is irreversible", func(t *testing.T) {
		m := Migration{Version: 1, Name: "a", Up: noop}

		assert.False(t, m.Reversible())
		assert.Nil(t, m.Func(Down))
		assert.NotNil(t, m.Func(Up))
	})

	t.Run("string form", func(t *testing.T) {
		m := Migration{Version: 7, Name: "create_users"}

		assert.Equal(t, "7 create_users", m.String())
	})
}

func TestEnvironment_HasDatabase(t *testing.T) {
	env := Environment{Name: "dev", Databases: []string{"m1", "m7"}}

	assert.True(t, env.HasDatabase("m1"))
	assert.False(t, env.HasDatabase("M1"), "database names are case-sensitive")
	assert.False(t, env.HasDatabase("m2"))
}

func TestStepError(t *testing.T) {
	cause := errors.New("syntax error")
	err := &StepError{Version: 3, Name: "add_index", Direction: Up, Err: cause}

	assert.ErrorIs(t, err, ErrStepExecutionFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "migration 3 add_index (up)")
}

func TestTargetError(t *testing.T) {
	t.Run("named database", func(t *testing.T) {
		err := &TargetError{Database: "m1", Err: ErrUnknownTargetVersion}

		assert.ErrorIs(t, err, ErrUnknownTargetVersion)
		assert.Equal(t, "database m1: unknown target version", err.Error())
	})

	t.Run("default database", func(t *testing.T) {
		err := &TargetError{Err: fmt.Errorf("%w: dial tcp", ErrAdapterUnavailable)}

		assert.ErrorIs(t, err, ErrAdapterUnavailable)
		assert.Contains(t, err.Error(), "(default)")
	})

	t.Run("wrapped step error stays matchable", func(t *testing.T) {
		err := &TargetError{Database: "m1", Err: &StepError{Version: 2, Err: errors.New("boom")}}

		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, Version(2), stepErr.Version)
		assert.ErrorIs(t, err, ErrStepExecutionFailure)
	})
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	ctx := context.Background()

	logger.Debug(ctx, "debug message", "version", 1)
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message", "database", "m9")
	logger.Error(ctx, "error message")

	out := buf.String()
	assert.Contains(t, out, "debug message")
	assert.Contains(t, out, "version=1")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "database=m9")
	assert.Contains(t, out, "level=ERROR")
}

func TestNewSlogLogger_NilUsesDefault(t *testing.T) {
	assert.NotNil(t, NewSlogLogger(nil))
}
