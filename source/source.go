// Package source discovers migrations. Sources return migrations sorted by
// version ascending and reject duplicate versions.
package source

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/getpup/pupsourcing-migrator"
)

// Source discovers the available migrations.
type Source interface {
	// Discover returns all migrations ordered by version ascending.
	// It is called once per operation and must not mutate the returned set
	// afterwards.
	Discover(ctx context.Context) ([]migrator.Migration, error)
}

// Sort validates migrations and returns them ordered by version ascending.
// It returns ErrDuplicateVersion if two migrations share a version and
// ErrInvalidMigration if a migration has no Up function.
func Sort(migrations []migrator.Migration) ([]migrator.Migration, error) {
	sorted := slices.Clone(migrations)
	slices.SortStableFunc(sorted, func(a, b migrator.Migration) int {
		return cmp.Compare(a.Version, b.Version)
	})

	for i, m := range sorted {
		if m.Up == nil {
			return nil, fmt.Errorf("%w: %s has no up migration", migrator.ErrInvalidMigration, describe(m))
		}
		if i > 0 && sorted[i-1].Version == m.Version {
			return nil, fmt.Errorf("%w: %s found in both %s and %s",
				migrator.ErrDuplicateVersion, m.Version, describe(sorted[i-1]), describe(m))
		}
	}

	return sorted, nil
}

func describe(m migrator.Migration) string {
	if m.Source != "" {
		return m.Source
	}
	return m.String()
}

type multi []Source

// Multi returns a Source that discovers from every source in turn and merges
// the results. Versions must be unique across all sources.
func Multi(sources ...Source) Source {
	return multi(sources)
}

func (s multi) Discover(ctx context.Context) ([]migrator.Migration, error) {
	var all []migrator.Migration
	for _, src := range s {
		found, err := src.Discover(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	return Sort(all)
}
