package adapter

import (
	"context"
	"sync"

	"github.com/getpup/pupsourcing-migrator"
)

// MockAdapter is a configurable mock implementation of Adapter for use in
// tests. Each method calls its XxxFunc if set and otherwise returns a zero
// value. All calls are recorded in order in Calls.
type MockAdapter struct {
	mu sync.Mutex

	// Transactional is returned by SupportsTransactionalDDL.
	Transactional bool

	// HasVersionTableFunc is called by HasVersionTable if set.
	HasVersionTableFunc func(ctx context.Context) (bool, error)

	// CreateVersionTableFunc is called by CreateVersionTable if set.
	CreateVersionTableFunc func(ctx context.Context) error

	// AppliedVersionsFunc is called by AppliedVersions if set.
	AppliedVersionsFunc func(ctx context.Context) ([]migrator.LedgerEntry, error)

	// BeginTransactionFunc is called by BeginTransaction if set.
	BeginTransactionFunc func(ctx context.Context) error

	// CommitFunc is called by Commit if set.
	CommitFunc func(ctx context.Context) error

	// RollbackTransactionFunc is called by RollbackTransaction if set.
	RollbackTransactionFunc func(ctx context.Context) error

	// InsertVersionRecordFunc is called by InsertVersionRecord if set.
	InsertVersionRecordFunc func(ctx context.Context, m migrator.Migration, breakpoint bool) error

	// RemoveVersionRecordFunc is called by RemoveVersionRecord if set.
	RemoveVersionRecordFunc func(ctx context.Context, version migrator.Version) error

	// SetBreakpointFunc is called by SetBreakpoint if set.
	SetBreakpointFunc func(ctx context.Context, version migrator.Version, enabled bool) error

	// ExecuteMigrationFunc is called by ExecuteMigration if set.
	ExecuteMigrationFunc func(ctx context.Context, m migrator.Migration, direction migrator.Direction) error

	// CloseFunc is called by Close if set.
	CloseFunc func() error

	// Calls lists the invoked method names in call order.
	Calls []string

	// ExecuteMigrationCalls records the parameters of ExecuteMigration calls.
	ExecuteMigrationCalls []ExecuteMigrationCall
}

// ExecuteMigrationCall records the parameters of a single ExecuteMigration call.
type ExecuteMigrationCall struct {
	Version   migrator.Version
	Direction migrator.Direction
}

var _ Adapter = (*MockAdapter)(nil)

// NewMockAdapter creates a new MockAdapter with an empty call history.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		Calls:                 make([]string, 0),
		ExecuteMigrationCalls: make([]ExecuteMigrationCall, 0),
	}
}

func (m *MockAdapter) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, name)
}

// CallsTo returns how many times the named method was called.
func (m *MockAdapter) CallsTo(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockAdapter) HasVersionTable(ctx context.Context) (bool, error) {
	m.record("HasVersionTable")
	if m.HasVersionTableFunc != nil {
		return m.HasVersionTableFunc(ctx)
	}
	return true, nil
}

func (m *MockAdapter) CreateVersionTable(ctx context.Context) error {
	m.record("CreateVersionTable")
	if m.CreateVersionTableFunc != nil {
		return m.CreateVersionTableFunc(ctx)
	}
	return nil
}

func (m *MockAdapter) AppliedVersions(ctx context.Context) ([]migrator.LedgerEntry, error) {
	m.record("AppliedVersions")
	if m.AppliedVersionsFunc != nil {
		return m.AppliedVersionsFunc(ctx)
	}
	return nil, nil
}

func (m *MockAdapter) SupportsTransactionalDDL() bool {
	return m.Transactional
}

func (m *MockAdapter) BeginTransaction(ctx context.Context) error {
	m.record("BeginTransaction")
	if m.BeginTransactionFunc != nil {
		return m.BeginTransactionFunc(ctx)
	}
	return nil
}

func (m *MockAdapter) Commit(ctx context.Context) error {
	m.record("Commit")
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockAdapter) RollbackTransaction(ctx context.Context) error {
	m.record("RollbackTransaction")
	if m.RollbackTransactionFunc != nil {
		return m.RollbackTransactionFunc(ctx)
	}
	return nil
}

func (m *MockAdapter) InsertVersionRecord(ctx context.Context, mig migrator.Migration, breakpoint bool) error {
	m.record("InsertVersionRecord")
	if m.InsertVersionRecordFunc != nil {
		return m.InsertVersionRecordFunc(ctx, mig, breakpoint)
	}
	return nil
}

func (m *MockAdapter) RemoveVersionRecord(ctx context.Context, version migrator.Version) error {
	m.record("RemoveVersionRecord")
	if m.RemoveVersionRecordFunc != nil {
		return m.RemoveVersionRecordFunc(ctx, version)
	}
	return nil
}

func (m *MockAdapter) SetBreakpoint(ctx context.Context, version migrator.Version, enabled bool) error {
	m.record("SetBreakpoint")
	if m.SetBreakpointFunc != nil {
		return m.SetBreakpointFunc(ctx, version, enabled)
	}
	return nil
}

func (m *MockAdapter) ExecuteMigration(ctx context.Context, mig migrator.Migration, direction migrator.Direction) error {
	m.record("ExecuteMigration")
	m.mu.Lock()
	m.ExecuteMigrationCalls = append(m.ExecuteMigrationCalls, ExecuteMigrationCall{
		Version:   mig.Version,
		Direction: direction,
	})
	m.mu.Unlock()

	if m.ExecuteMigrationFunc != nil {
		return m.ExecuteMigrationFunc(ctx, mig, direction)
	}
	return nil
}

func (m *MockAdapter) Close() error {
	m.record("Close")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Reset clears the call history.
func (m *MockAdapter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = make([]string, 0)
	m.ExecuteMigrationCalls = make([]ExecuteMigrationCall, 0)
}
