package executor

import (
	"context"
	"sync"

	"github.com/getpup/pupsourcing-migrator/adapter"
	"github.com/getpup/pupsourcing-migrator/plan"
)

// MockRunner is a mock implementation of Runner for testing.
type MockRunner struct {
	mu       sync.Mutex
	RunFunc  func(ctx context.Context, database string, p plan.Plan, a adapter.Adapter) *Report
	RunCalls []RunCall
}

// RunCall records the parameters of a single Run call.
type RunCall struct {
	Database string
	Plan     plan.Plan
	Adapter  adapter.Adapter
}

// NewMockRunner creates a new MockRunner with an empty call history.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		RunCalls: make([]RunCall, 0),
	}
}

// Run implements the Runner interface.
// It records the call parameters, then:
// - If RunFunc is set, calls and returns it
// - Otherwise, reports every step as successful without touching the adapter
func (m *MockRunner) Run(ctx context.Context, database string, p plan.Plan, a adapter.Adapter) *Report {
	m.mu.Lock()
	m.RunCalls = append(m.RunCalls, RunCall{
		Database: database,
		Plan:     p,
		Adapter:  a,
	})
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, database, p, a)
	}

	report := &Report{Database: database, Direction: p.Direction}
	for _, s := range p.Steps {
		report.Steps = append(report.Steps, StepResult{
			Version:   s.Migration.Version,
			Name:      s.Migration.Name,
			Direction: s.Direction,
			Outcome:   Success,
		})
	}
	return report
}

// Databases returns the database of every recorded call in call order.
func (m *MockRunner) Databases() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.RunCalls))
	for i, c := range m.RunCalls {
		out[i] = c.Database
	}
	return out
}

// Reset clears the call history.
func (m *MockRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunCalls = make([]RunCall, 0)
}
