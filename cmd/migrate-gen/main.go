// Command migrate-gen generates SQL files for the migrator.
//
// Generate the version ledger DDL, for databases where the migrator may not
// create tables itself:
//
//	go run github.com/getpup/pupsourcing-migrator/cmd/migrate-gen -adapter postgres -output migrations
//	go run github.com/getpup/pupsourcing-migrator/cmd/migrate-gen -adapter mysql -table app_migrations
//
// Scaffold a new migration pair <timestamp>_<name>.up.sql / .down.sql:
//
//	go run github.com/getpup/pupsourcing-migrator/cmd/migrate-gen -new create_users -output db/migrations
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/getpup/pupsourcing-migrator/pkg/migrations"
)

func main() {
	var (
		adapter        = flag.String("adapter", "postgres", "Database adapter: postgres, mysql, or sqlite")
		outputFolder   = flag.String("output", "migrations", "Output folder")
		outputFilename = flag.String("filename", "", "Output filename (default: timestamp-based)")
		versionTable   = flag.String("table", "schema_migrations", "Name of the version ledger table")
		newMigration   = flag.String("new", "", "Create an empty migration with this name instead of the ledger DDL")
		irreversible   = flag.Bool("irreversible", false, "With -new, create a single up-only file")
	)

	flag.Parse()

	if *newMigration != "" {
		paths, err := migrations.CreateMigration(*newMigration, migrations.CreateOptions{
			Folder:       *outputFolder,
			Irreversible: *irreversible,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating migration: %v\n", err)
			os.Exit(1)
		}
		for _, p := range paths {
			fmt.Printf("Created %s\n", p)
		}
		return
	}

	config := migrations.DefaultConfig()
	config.OutputFolder = *outputFolder
	config.VersionTable = *versionTable
	if *outputFilename != "" {
		config.OutputFilename = *outputFilename
	}

	path, err := migrations.Generate(*adapter, &config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s version ledger: %s\n", *adapter, path)
}
