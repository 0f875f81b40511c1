// Package registry maps adapter kinds from environment configuration to
// concrete adapters.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/adapter"
	"github.com/getpup/pupsourcing-migrator/adapter/memory"
	"github.com/getpup/pupsourcing-migrator/adapter/mysql"
	"github.com/getpup/pupsourcing-migrator/adapter/postgres"
	"github.com/getpup/pupsourcing-migrator/adapter/sqlite"
)

// ErrUnknownAdapter is returned when an environment names an adapter kind
// that has not been registered.
var ErrUnknownAdapter = errors.New("unknown adapter")

// DatabasePlaceholder is replaced in DSN templates by the target database name.
const DatabasePlaceholder = "{database}"

// OpenFunc opens an adapter for a resolved DSN and version table.
type OpenFunc func(ctx context.Context, dsn, table string) (adapter.Adapter, error)

// Registry resolves Environment.Adapter to an OpenFunc.
// Memory adapters are kept per environment and database so that successive
// operations within a process observe the same ledger.
type Registry struct {
	mu      sync.Mutex
	openers map[string]OpenFunc
	memory  map[string]*memory.Adapter
}

// New creates a registry with the built-in adapters registered:
// postgres (alias pgsql), mysql, sqlite (alias sqlite3) and memory.
func New() *Registry {
	r := &Registry{
		openers: make(map[string]OpenFunc),
		memory:  make(map[string]*memory.Adapter),
	}

	r.Register("postgres", func(ctx context.Context, dsn, table string) (adapter.Adapter, error) {
		return postgres.Open(ctx, dsn, table)
	}, "pgsql")
	r.Register("mysql", func(ctx context.Context, dsn, table string) (adapter.Adapter, error) {
		return mysql.Open(ctx, dsn, table)
	})
	r.Register("sqlite", func(ctx context.Context, dsn, table string) (adapter.Adapter, error) {
		return sqlite.Open(ctx, dsn, table)
	}, "sqlite3")

	return r
}

// Register adds an adapter kind and its aliases. Kinds are case-insensitive.
// Registering an existing kind replaces it.
func (r *Registry) Register(kind string, fn OpenFunc, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range append([]string{kind}, aliases...) {
		r.openers[strings.ToLower(k)] = fn
	}
}

// Kinds returns the registered adapter kinds, sorted, including "memory".
func (r *Registry) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]string, 0, len(r.openers)+1)
	for k := range r.openers {
		kinds = append(kinds, k)
	}
	kinds = append(kinds, "memory")
	slices.Sort(kinds)
	return kinds
}

// Open returns the adapter for database in env. It has the signature of
// adapter.Factory, so r.Open can be passed wherever a Factory is expected.
func (r *Registry) Open(ctx context.Context, env migrator.Environment, database string) (adapter.Adapter, error) {
	kind := strings.ToLower(env.Adapter)
	if kind == "memory" {
		return r.memoryAdapter(env, database), nil
	}

	r.mu.Lock()
	fn, ok := r.openers[kind]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, env.Adapter)
	}

	dsn := ResolveDSN(env, database)
	if dsn == "" {
		return nil, fmt.Errorf("environment %s: no dsn configured", env.Name)
	}

	return fn(ctx, dsn, env.VersionTable)
}

// Memory returns the in-memory adapter backing database in env, creating it
// on first use.
func (r *Registry) Memory(env migrator.Environment, database string) *memory.Adapter {
	return r.memoryAdapter(env, database)
}

func (r *Registry) memoryAdapter(env migrator.Environment, database string) *memory.Adapter {
	if database == "" {
		database = env.DefaultDatabase
	}
	key := env.Name + "/" + database

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.memory[key]
	if !ok {
		a = memory.New()
		r.memory[key] = a
	}
	return a
}

// ResolveDSN expands environment variables in env.DSN and substitutes the
// database name for DatabasePlaceholder. An empty database selects
// env.DefaultDatabase.
func ResolveDSN(env migrator.Environment, database string) string {
	if database == "" {
		database = env.DefaultDatabase
	}
	dsn := os.ExpandEnv(env.DSN)
	return strings.ReplaceAll(dsn, DatabasePlaceholder, database)
}
