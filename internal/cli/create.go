package cli

import (
	"github.com/spf13/cobra"

	"github.com/getpup/pupsourcing-migrator/pkg/migrations"
)

type createOptions struct {
	*rootOptions
	path         string
	irreversible bool
}

func newCreateCommand(root *rootOptions) *cobra.Command {
	o := &createOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new migration",
		Long: `The create command writes an empty <timestamp>_<name>.up.sql and
<timestamp>_<name>.down.sql pair into the first migrations path of the config
file, or into --path. Fill both files in before running migrate.

  migrator create create_users
  migrator create seed_countries --irreversible
  migrator create add_index --path db/migrations`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			folder := o.path
			if folder == "" {
				file, err := o.loadConfig()
				if err != nil {
					return err
				}
				folder = file.MigrationDirs()[0]
			}

			paths, err := migrations.CreateMigration(args[0], migrations.CreateOptions{
				Folder:       folder,
				Irreversible: o.irreversible,
			})
			p := o.printer()
			for _, path := range paths {
				p.info("created", path)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&o.path, "path", "p", "", "the directory to create the migration in")
	cmd.Flags().BoolVar(&o.irreversible, "irreversible", false, "create a single up-only file")

	return cmd
}
