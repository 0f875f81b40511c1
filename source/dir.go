package source

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"

	"github.com/getpup/pupsourcing-migrator"
)

// fileNamePattern matches {version}_{name}.sql, {version}_{name}.up.sql and
// {version}_{name}.down.sql.
var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+?)(\.up|\.down)?\.sql$`)

// Dir is a Source reading SQL migration files from a directory.
//
// A version may be defined by a pair of "<version>_<name>.up.sql" and
// "<version>_<name>.down.sql" files, or by a single "<version>_<name>.sql"
// file which is applied on migrate and cannot be rolled back. Files not ending
// in ".sql" and subdirectories are ignored.
type Dir struct {
	fsys fs.FS
	root string
}

var _ Source = (*Dir)(nil)

// NewDir creates a source for the directory root within fsys.
// Use os.DirFS to read from disk.
func NewDir(fsys fs.FS, root string) *Dir {
	if root == "" {
		root = "."
	}
	return &Dir{fsys: fsys, root: root}
}

type sqlFile struct {
	name      string
	up        string
	down      string
	upStmts   []string
	downStmts []string
	// plain is set when the version came from a "<version>_<name>.sql" file.
	plain bool
}

func (d *Dir) Discover(ctx context.Context) ([]migrator.Migration, error) {
	entries, err := fs.ReadDir(d.fsys, d.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory %s: %w", d.root, err)
	}

	files := make(map[migrator.Version]*sqlFile)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := d.addFile(files, entry.Name()); err != nil {
			return nil, err
		}
	}

	migrations := make([]migrator.Migration, 0, len(files))
	for version, f := range files {
		if f.up == "" {
			return nil, fmt.Errorf("%w: %s has a down file but no up file", migrator.ErrInvalidMigration, version)
		}

		m := migrator.Migration{
			Version: version,
			Name:    f.name,
			Up:      Statements(f.upStmts...),
			Source:  f.up,
		}
		if f.down != "" {
			m.Down = Statements(f.downStmts...)
		}
		migrations = append(migrations, m)
	}

	return Sort(migrations)
}

func (d *Dir) addFile(files map[migrator.Version]*sqlFile, name string) error {
	matches := fileNamePattern.FindStringSubmatch(name)
	if matches == nil {
		return fmt.Errorf("%w: filename %q does not match pattern {version}_{name}[.up|.down].sql",
			migrator.ErrInvalidMigration, name)
	}

	version, err := migrator.ParseVersion(matches[1])
	if err != nil {
		return fmt.Errorf("file %s: %w", name, err)
	}

	p := path.Join(d.root, name)
	content, err := fs.ReadFile(d.fsys, p)
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", p, err)
	}
	statements := SplitStatements(string(content))
	if len(statements) == 0 {
		return fmt.Errorf("%w: %s contains no statements", migrator.ErrInvalidMigration, p)
	}

	f, ok := files[version]
	if !ok {
		f = &sqlFile{name: matches[2]}
		files[version] = f
	}
	if f.name != matches[2] {
		return fmt.Errorf("%w: %s used by %q and %q", migrator.ErrDuplicateVersion, version, f.name, matches[2])
	}

	switch matches[3] {
	case ".down":
		if f.down != "" || f.plain {
			return fmt.Errorf("%w: %s defined twice by %s", migrator.ErrDuplicateVersion, version, p)
		}
		f.down, f.downStmts = p, statements
	case ".up":
		if f.up != "" {
			return fmt.Errorf("%w: %s defined twice by %s", migrator.ErrDuplicateVersion, version, p)
		}
		f.up, f.upStmts = p, statements
	default:
		if f.up != "" || f.down != "" {
			return fmt.Errorf("%w: %s defined twice by %s", migrator.ErrDuplicateVersion, version, p)
		}
		f.up, f.upStmts = p, statements
		f.plain = true
	}

	return nil
}
