// Package migrator evolves database schemas forward and backward through an
// ordered set of versioned migrations, tracking applied versions per target
// database in a version ledger.
//
// The root package holds the shared domain types and errors. The work is done
// by the sub-packages:
//
//   - source: discovers migrations (Go-coded or SQL files)
//   - plan: computes the ordered steps for a migrate or rollback
//   - executor: runs a plan against one adapter, one step per transaction
//   - manager: resolves an environment's targets and drives the rest
//   - adapter: the database capability interface and its implementations
package migrator

import (
	"context"
	"log/slog"
)

// Logger is used by all components for observability. Components accept a nil
// Logger and stay silent in that case.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

var _ Logger = (*SlogLogger)(nil)

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	s.l.DebugContext(ctx, msg, keyvals...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	s.l.InfoContext(ctx, msg, keyvals...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	s.l.WarnContext(ctx, msg, keyvals...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	s.l.ErrorContext(ctx, msg, keyvals...)
}
