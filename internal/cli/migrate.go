package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/manager"
)

type moveOptions struct {
	*rootOptions
	direction migrator.Direction
	target    string
	databases string
}

// newMoveCommand creates the migrate (Up) or rollback (Down) command.
func newMoveCommand(root *rootOptions, direction migrator.Direction) *cobra.Command {
	o := &moveOptions{rootOptions: root, direction: direction}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database",
		Long: `The migrate command runs all available migrations, optionally up to a specific version.

  migrator migrate -e development
  migrator migrate -e development -t 20110103081132
  migrator migrate -e development -t 20110103081132 -d "m*"
  migrator migrate -e development -t 20110103081132 -d "m1 m7 m18"
  migrator migrate -e development -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd)
		},
	}

	targetHelp := "the version number to migrate to"
	if direction == migrator.Down {
		cmd.Use = "rollback"
		cmd.Short = "Rollback the last or to a specific migration"
		cmd.Long = `The rollback command reverts the last migration, or optionally up to a specific version.
Migrations with a breakpoint set are never reverted. Use -t 0 to revert everything.

  migrator rollback -e development
  migrator rollback -e development -t 20111018185412
  migrator rollback -e development -t 20111018185412 -d "m*"
  migrator rollback -e development -t 20111018185412 -d "m1 m7 m18"
  migrator rollback -e development -v`
		targetHelp = "the version number to rollback to"
	}

	cmd.Flags().StringVarP(&o.target, "target", "t", "", targetHelp)
	cmd.Flags().StringVarP(&o.databases, "databases", "d", "",
		"the name of database(s) to use (separate multiple names with a space; patterns such as m* are allowed)")

	return cmd
}

func (o *moveOptions) run(cmd *cobra.Command) error {
	target, err := parseTarget(o.target)
	if err != nil {
		return err
	}

	s, err := o.open()
	if err != nil {
		return err
	}
	defer s.close(cmd.Context())

	e, err := o.environmentFor(s)
	if err != nil {
		return err
	}

	opts := manager.Options{
		Environment: e.Name,
		Databases:   manager.SplitDatabases(o.databases),
		Target:      target,
	}

	start := time.Now()

	var report *manager.AggregateReport
	if o.direction == migrator.Down {
		report, err = s.manager.Rollback(cmd.Context(), opts)
	} else {
		report, err = s.manager.Migrate(cmd.Context(), opts)
	}
	if report == nil {
		return err
	}

	s.printer.warnings(report.Warnings)

	names := make([]string, len(report.Targets))
	for i, t := range report.Targets {
		names[i] = t.Database
	}
	s.printer.databases(names)

	for _, t := range report.Targets {
		if t.Database != "" {
			s.printer.blank()
			s.printer.info("database:", t.Database)
		}
		s.printer.target(t, o.direction)
	}

	s.printer.done(time.Since(start))

	if err != nil {
		failed := 0
		for _, t := range report.Targets {
			if t.Failed() {
				failed++
			}
		}
		return fmt.Errorf("%s failed on %d of %d database(s): %w", operation(o.direction), failed, len(report.Targets), err)
	}
	return nil
}

func operation(d migrator.Direction) string {
	if d == migrator.Down {
		return "rollback"
	}
	return "migrate"
}
