package migrations

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/getpup/pupsourcing-migrator/adapter/mysql"
	"github.com/getpup/pupsourcing-migrator/adapter/postgres"
	"github.com/getpup/pupsourcing-migrator/adapter/sqldb"
	"github.com/getpup/pupsourcing-migrator/adapter/sqlite"
)

// VersionLayout formats a time as a migration version.
const VersionLayout = "20060102150405"

// ErrUnsupportedAdapter is returned for an adapter kind without a dialect.
var ErrUnsupportedAdapter = errors.New("unsupported adapter")

// ErrMigrationExists is returned when a migration with the same name already
// exists in the target folder.
var ErrMigrationExists = errors.New("migration already exists")

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Config configures ledger DDL generation.
type Config struct {
	// OutputFolder is the directory where the file will be written
	OutputFolder string

	// OutputFilename is the name of the generated file
	OutputFilename string

	// VersionTable is the ledger table name
	VersionTable string
}

// DefaultConfig returns the default configuration for ledger generation.
func DefaultConfig() Config {
	timestamp := time.Now().UTC().Format(VersionLayout)
	return Config{
		OutputFolder:   "migrations",
		OutputFilename: fmt.Sprintf("%s_create_version_table.sql", timestamp),
		VersionTable:   sqldb.DefaultVersionTable,
	}
}

// Dialect returns the SQL dialect for an adapter kind.
func Dialect(kind string) (sqldb.Dialect, error) {
	switch strings.ToLower(kind) {
	case "postgres", "pgsql":
		return postgres.Dialect{}, nil
	case "mysql":
		return mysql.Dialect{}, nil
	case "sqlite", "sqlite3":
		return sqlite.Dialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: postgres, mysql, sqlite)", ErrUnsupportedAdapter, kind)
	}
}

// Generate writes the ledger DDL for the adapter kind and returns the file path.
func Generate(kind string, config *Config) (string, error) {
	d, err := Dialect(kind)
	if err != nil {
		return "", err
	}
	return write(d, config)
}

// GeneratePostgres generates a PostgreSQL ledger file.
func GeneratePostgres(config *Config) error {
	_, err := write(postgres.Dialect{}, config)
	return err
}

// GenerateMySQL generates a MySQL/MariaDB ledger file.
func GenerateMySQL(config *Config) error {
	_, err := write(mysql.Dialect{}, config)
	return err
}

// GenerateSQLite generates a SQLite ledger file.
func GenerateSQLite(config *Config) error {
	_, err := write(sqlite.Dialect{}, config)
	return err
}

func write(d sqldb.Dialect, config *Config) (string, error) {
	if err := sqldb.ValidateIdentifier(config.VersionTable); err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}
	if config.OutputFilename == "" {
		return "", errors.New("invalid configuration: output filename cannot be empty")
	}

	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(ledgerSQL(d, config.VersionTable)), 0o600); err != nil {
		return "", fmt.Errorf("failed to write migration file: %w", err)
	}

	return outputPath, nil
}

func ledgerSQL(d sqldb.Dialect, table string) string {
	txNote := "DDL is transactional: each migration commits together with its ledger row"
	if !d.TransactionalDDL() {
		txNote = "DDL is not transactional: a failed ledger write leaves the schema ahead of the ledger"
	}

	return fmt.Sprintf(`-- Migration Version Ledger
-- Generated: %s
-- Database: %s
-- %s

-- One row per applied migration. Rows with breakpoint set are never rolled back.
%s;
`, time.Now().UTC().Format(time.RFC3339), d.Name(), txNote, d.CreateTableQuery(table))
}

// CreateOptions configures CreateMigration.
type CreateOptions struct {
	// Folder receives the new files (default: "migrations").
	Folder string

	// Irreversible writes a single up-only <version>_<name>.sql file.
	Irreversible bool

	// Now supplies the version timestamp (default: time.Now).
	Now func() time.Time
}

// CreateMigration writes an empty migration named name and returns the paths
// written. Names may contain letters, digits, '_' and '-'. A migration with
// the same name in the folder is rejected.
func CreateMigration(name string, opts CreateOptions) ([]string, error) {
	if !nameRegex.MatchString(name) {
		return nil, fmt.Errorf("invalid migration name %q: use letters, numbers, '_' and '-'", name)
	}
	if opts.Folder == "" {
		opts.Folder = "migrations"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := os.MkdirAll(opts.Folder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	existing, err := filepath.Glob(filepath.Join(opts.Folder, "*_"+name+"*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan output folder: %w", err)
	}
	for _, path := range existing {
		base := filepath.Base(path)
		if stem := migrationStem(base); stem == name {
			return nil, fmt.Errorf("%w: %s", ErrMigrationExists, base)
		}
	}

	version := opts.Now().UTC().Format(VersionLayout)
	header := fmt.Sprintf("-- %s %s\n", version, name)

	type file struct{ name, body string }
	files := []file{
		{fmt.Sprintf("%s_%s.up.sql", version, name), header + "-- Write the statements applying this migration.\n"},
		{fmt.Sprintf("%s_%s.down.sql", version, name), header + "-- Write the statements reverting this migration.\n"},
	}
	if opts.Irreversible {
		files = []file{{fmt.Sprintf("%s_%s.sql", version, name), header + "-- Irreversible: no down migration.\n"}}
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		filename := file.name
		path := filepath.Join(opts.Folder, filename)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return paths, fmt.Errorf("failed to create %s: %w", filename, err)
		}
		_, werr := f.WriteString(file.body)
		cerr := f.Close()
		if err := errors.Join(werr, cerr); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", filename, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// migrationStem returns the name part of "<version>_<name>[.up|.down].sql".
func migrationStem(filename string) string {
	s := strings.TrimSuffix(filename, ".sql")
	s = strings.TrimSuffix(strings.TrimSuffix(s, ".up"), ".down")
	_, stem, ok := strings.Cut(s, "_")
	if !ok {
		return ""
	}
	return stem
}
