package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/getpup/pupsourcing-migrator/adapter"
	"github.com/getpup/pupsourcing-migrator/plan"
	"github.com/stretchr/testify/assert"
)

func TestMockRunner_RecordsCallsCorrectly(t *testing.T) {
	mock := NewMockRunner()
	a := adapter.NewMockAdapter()
	p := upPlan(1, 2)

	report := mock.Run(context.Background(), "m9", p, a)

	assert.False(t, report.Failed())
	assert.Len(t, mock.RunCalls, 1)
	assert.Equal(t, "m9", mock.RunCalls[0].Database)
	assert.Equal(t, p.Versions(), mock.RunCalls[0].Plan.Versions())
	assert.Same(t, a, mock.RunCalls[0].Adapter)
	assert.Empty(t, a.Calls, "default behaviour does not touch the adapter")
}

func TestMockRunner_DefaultReportsAllStepsSucceeded(t *testing.T) {
	report := NewMockRunner().Run(context.Background(), "", downPlan(3, 2), adapter.NewMockAdapter())

	assert.Len(t, report.Steps, 2)
	assert.Equal(t, Success, report.Steps[0].Outcome)
	assert.Equal(t, "m3", report.Steps[0].Name)
}

func TestMockRunner_UsesRunFunc(t *testing.T) {
	mock := NewMockRunner()
	boom := errors.New("boom")
	mock.RunFunc = func(ctx context.Context, database string, p plan.Plan, a adapter.Adapter) *Report {
		return &Report{Database: database, Err: boom}
	}

	report := mock.Run(context.Background(), "m10", plan.Plan{}, nil)

	assert.True(t, report.Failed())
	assert.ErrorIs(t, report.Err, boom)
}

func TestMockRunner_RecordsMultipleCalls(t *testing.T) {
	mock := NewMockRunner()

	mock.Run(context.Background(), "m9", plan.Plan{}, nil)
	mock.Run(context.Background(), "m10", plan.Plan{}, nil)

	assert.Equal(t, []string{"m9", "m10"}, mock.Databases())
}

func TestMockRunner_Reset(t *testing.T) {
	mock := NewMockRunner()
	mock.Run(context.Background(), "m9", plan.Plan{}, nil)

	mock.Reset()

	assert.Empty(t, mock.RunCalls)
}
