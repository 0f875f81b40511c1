package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/getpup/pupsourcing-migrator"
)

// Registry is a Source of migrations written in Go.
type Registry struct {
	mu         sync.RWMutex
	migrations map[migrator.Version]migrator.Migration
}

var _ Source = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		migrations: make(map[migrator.Version]migrator.Migration),
	}
}

// Register adds a migration. A nil down marks it irreversible.
// Returns ErrDuplicateVersion if the version is already registered.
func (r *Registry) Register(version migrator.Version, name string, up, down migrator.MigrateFunc) error {
	if up == nil {
		return fmt.Errorf("%w: %s %s has no up migration", migrator.ErrInvalidMigration, version, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.migrations[version]; ok {
		return fmt.Errorf("%w: %s registered as both %q and %q",
			migrator.ErrDuplicateVersion, version, existing.Name, name)
	}

	r.migrations[version] = migrator.Migration{
		Version: version,
		Name:    name,
		Up:      up,
		Down:    down,
		Source:  "go",
	}
	return nil
}

// MustRegister is like Register but panics on error. It is intended for
// package-level registration in init functions.
func (r *Registry) MustRegister(version migrator.Version, name string, up, down migrator.MigrateFunc) {
	if err := r.Register(version, name, up, down); err != nil {
		panic(err)
	}
}

// Len returns the number of registered migrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.migrations)
}

func (r *Registry) Discover(ctx context.Context) ([]migrator.Migration, error) {
	r.mu.RLock()
	all := make([]migrator.Migration, 0, len(r.migrations))
	for _, m := range r.migrations {
		all = append(all, m)
	}
	r.mu.RUnlock()

	return Sort(all)
}
