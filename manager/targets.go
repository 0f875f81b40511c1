package manager

import (
	"fmt"
	"path"
	"strings"

	"github.com/getpup/pupsourcing-migrator"
)

// resolveTargets selects the databases of env to operate on.
//
// With no requested names every configured database is used. Requested names
// are matched case-sensitively in the order given; a name may be a
// path.Match pattern such as "m*". Duplicates are collapsed and names that
// match nothing produce a warning. When nothing resolves, a single empty name
// is returned, which selects the environment's default connection.
func resolveTargets(env migrator.Environment, requested []string) ([]string, []string) {
	var (
		targets  []string
		warnings []string
		seen     = make(map[string]bool)
	)

	add := func(db string) {
		if !seen[db] {
			seen[db] = true
			targets = append(targets, db)
		}
	}

	if len(requested) == 0 {
		for _, db := range env.Databases {
			add(db)
		}
	}

	for _, name := range requested {
		if name == "" {
			continue
		}

		if !isPattern(name) {
			if env.HasDatabase(name) {
				add(name)
			} else {
				warnings = append(warnings, fmt.Sprintf("database %s was not found in environment %s", name, env.Name))
			}
			continue
		}

		matched := false
		for _, db := range env.Databases {
			if ok, err := path.Match(name, db); err == nil && ok {
				add(db)
				matched = true
			}
		}
		if !matched {
			warnings = append(warnings, fmt.Sprintf("no database matching %s in environment %s", name, env.Name))
		}
	}

	if len(targets) == 0 {
		targets = []string{""}
	}
	return targets, warnings
}

func isPattern(name string) bool {
	return strings.ContainsAny(name, "*?[")
}

// SplitDatabases splits a space separated list of database names.
func SplitDatabases(s string) []string {
	return strings.Fields(s)
}
