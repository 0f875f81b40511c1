package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/getpup/pupsourcing-migrator/manager"
)

type statusOptions struct {
	*rootOptions
	databases string
}

func newStatusCommand(root *rootOptions) *cobra.Command {
	o := &statusOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long: `The status command prints, for each database, every known migration with
its applied state. Applied versions whose migration file is gone are marked missing.

  migrator status -e development
  migrator status -e development -d "m1 m7"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.open()
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			e, err := o.environmentFor(s)
			if err != nil {
				return err
			}

			report, err := s.manager.Status(cmd.Context(), manager.Options{
				Environment: e.Name,
				Databases:   manager.SplitDatabases(o.databases),
			})
			if report == nil {
				return err
			}

			s.printer.warnings(report.Warnings)
			for _, t := range report.Targets {
				s.printer.blank()
				if t.Database != "" {
					s.printer.info("database:", t.Database)
				}
				if t.Err != nil {
					s.printer.failure("error", unwrapTarget(t.Err).Error())
					continue
				}
				s.printer.status(t)
			}

			return err
		},
	}

	cmd.Flags().StringVarP(&o.databases, "databases", "d", "", "the name of database(s) to show (separate multiple names with a space)")

	return cmd
}

// status prints one database's migrations as a table.
func (p *printer) status(t manager.TargetStatus) {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " Status\tMigration ID\tApplied At\tMigration Name\t")
	fmt.Fprintln(tw, "--------\t--------------\t---------------------\t----------------\t")

	for _, e := range t.Entries {
		state := p.errorC.Sprint("   down")
		if e.Applied {
			state = p.infoC.Sprint("     up")
		}

		appliedAt := ""
		if e.Applied && !e.AppliedAt.IsZero() {
			appliedAt = e.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}

		name := e.Name
		if e.Missing {
			name = p.errorC.Sprint("** MISSING **")
		}
		if e.Breakpoint {
			name += " " + p.commentC.Sprint("BREAKPOINT SET")
		}
		if !e.Reversible && !e.Missing {
			name += " (irreversible)"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", state, e.Version, appliedAt, name)
	}
	tw.Flush()

	if n := t.Pending(); n > 0 {
		p.comment("pending", fmt.Sprintf("%d migration(s) not applied", n))
	}
}
