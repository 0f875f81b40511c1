// Package plan computes the ordered steps of a migrate or rollback operation
// for one target from the discovered migrations and the target's ledger.
package plan

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/getpup/pupsourcing-migrator"
)

// Step is a single migration to run in a direction.
type Step struct {
	Migration migrator.Migration
	Direction migrator.Direction
}

func (s Step) String() string {
	return fmt.Sprintf("%s %s", s.Direction, s.Migration)
}

// Plan is the ordered list of steps for one target. It is recomputed on every
// operation and never persisted.
type Plan struct {
	Direction migrator.Direction
	Steps     []Step

	// BlockedBy is the breakpoint version that stopped a rollback, or 0.
	BlockedBy migrator.Version
}

// Empty reports whether the plan has no steps.
func (p Plan) Empty() bool {
	return len(p.Steps) == 0
}

// Versions returns the step versions in plan order.
func (p Plan) Versions() []migrator.Version {
	out := make([]migrator.Version, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Migration.Version
	}
	return out
}

// Build computes the plan for direction.
//
// scripts are the discovered migrations in any order; applied is the target's
// ledger. A nil target means "all pending" when migrating and "one step" when
// rolling back.
//
// Build validates the whole plan before returning it: a rollback that would
// revert an irreversible migration, or an applied version whose migration is
// no longer discovered, fails here so that nothing is executed.
func Build(direction migrator.Direction, scripts []migrator.Migration, applied []migrator.LedgerEntry, target *migrator.Version) (Plan, error) {
	index := make(map[migrator.Version]migrator.Migration, len(scripts))
	for _, s := range scripts {
		if _, ok := index[s.Version]; ok {
			return Plan{}, fmt.Errorf("%w: %s", migrator.ErrDuplicateVersion, s.Version)
		}
		index[s.Version] = s
	}

	if direction == migrator.Down {
		return buildRollback(index, applied, target)
	}
	return buildMigrate(index, applied, target)
}

func buildMigrate(index map[migrator.Version]migrator.Migration, applied []migrator.LedgerEntry, target *migrator.Version) (Plan, error) {
	p := Plan{Direction: migrator.Up}

	if target != nil && *target != 0 {
		if _, ok := index[*target]; !ok {
			return Plan{}, fmt.Errorf("%w: %s", migrator.ErrUnknownTargetVersion, *target)
		}
	}

	done := make(map[migrator.Version]bool, len(applied))
	for _, e := range applied {
		done[e.Version] = true
	}

	for v, m := range index {
		if v <= 0 || done[v] {
			continue
		}
		if target != nil && v > *target {
			continue
		}
		p.Steps = append(p.Steps, Step{Migration: m, Direction: migrator.Up})
	}

	slices.SortFunc(p.Steps, func(a, b Step) int {
		return cmp.Compare(a.Migration.Version, b.Migration.Version)
	})
	return p, nil
}

func buildRollback(index map[migrator.Version]migrator.Migration, applied []migrator.LedgerEntry, target *migrator.Version) (Plan, error) {
	p := Plan{Direction: migrator.Down}

	ledger := slices.Clone(applied)
	slices.SortFunc(ledger, func(a, b migrator.LedgerEntry) int {
		return cmp.Compare(b.Version, a.Version)
	})

	if target != nil && *target != 0 {
		_, inScripts := index[*target]
		inLedger := slices.ContainsFunc(ledger, func(e migrator.LedgerEntry) bool {
			return e.Version == *target
		})
		if !inScripts && !inLedger {
			return Plan{}, fmt.Errorf("%w: %s", migrator.ErrUnknownTargetVersion, *target)
		}
	}

	if len(ledger) == 0 {
		return p, nil
	}

	var to migrator.Version
	switch {
	case target != nil:
		to = *target
	case len(ledger) > 1:
		to = ledger[1].Version
	}
	if to >= ledger[0].Version {
		return p, nil
	}

	for _, e := range ledger {
		if e.Version <= to {
			break
		}
		if e.Breakpoint {
			p.BlockedBy = e.Version
			break
		}

		m, ok := index[e.Version]
		if !ok {
			return Plan{}, fmt.Errorf("%w: %s %s", migrator.ErrMissingMigration, e.Version, e.Name)
		}
		if !m.Reversible() {
			return Plan{}, fmt.Errorf("%w: %s", migrator.ErrIrreversibleMigration, m)
		}
		p.Steps = append(p.Steps, Step{Migration: m, Direction: migrator.Down})
	}

	return p, nil
}

// Pending returns the discovered migrations not yet in the ledger, ascending.
func Pending(scripts []migrator.Migration, applied []migrator.LedgerEntry) []migrator.Migration {
	p, _ := buildMigrate(indexOf(scripts), applied, nil)
	out := make([]migrator.Migration, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Migration
	}
	return out
}

func indexOf(scripts []migrator.Migration) map[migrator.Version]migrator.Migration {
	index := make(map[migrator.Version]migrator.Migration, len(scripts))
	for _, s := range scripts {
		index[s.Version] = s
	}
	return index
}
