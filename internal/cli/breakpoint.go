package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getpup/pupsourcing-migrator/manager"
)

type breakpointOptions struct {
	*rootOptions
	target    string
	databases string
	unset     bool
	removeAll bool
}

func newBreakpointCommand(root *rootOptions) *cobra.Command {
	o := &breakpointOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "breakpoint",
		Short: "Manage breakpoints",
		Long: `The breakpoint command sets or clears the breakpoint flag on an applied
migration. A rollback never reverts a migration with a breakpoint set.

  migrator breakpoint -e development
  migrator breakpoint -e development -t 20110103081132
  migrator breakpoint -e development -t 20110103081132 --unset
  migrator breakpoint -e development --remove-all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.removeAll && (o.target != "" || o.unset) {
				return errors.New("--remove-all cannot be combined with --target or --unset")
			}

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

			var report *manager.BreakpointReport
			if o.removeAll {
				report, err = s.manager.ClearBreakpoints(cmd.Context(), opts)
			} else {
				report, err = s.manager.SetBreakpoint(cmd.Context(), opts, !o.unset)
			}
			if report == nil {
				return err
			}

			s.printer.warnings(report.Warnings)
			for _, t := range report.Targets {
				db := t.Database
				if db == "" {
					db = "(default)"
				}

				switch {
				case t.Err != nil:
					s.printer.failure("error", fmt.Sprintf("%s: %v", db, unwrapTarget(t.Err)))
				case o.removeAll:
					s.printer.info("breakpoints cleared", fmt.Sprintf("%s: %d", db, len(t.Versions)))
				case t.Enabled:
					s.printer.info("breakpoint set", fmt.Sprintf("%s: %s", db, joinVersions(t.Versions)))
				default:
					s.printer.info("breakpoint cleared", fmt.Sprintf("%s: %s", db, joinVersions(t.Versions)))
				}
			}

			return err
		},
	}

	cmd.Flags().StringVarP(&o.target, "target", "t", "", "the version number to change (default: the latest applied)")
	cmd.Flags().StringVarP(&o.databases, "databases", "d", "", "the name of database(s) to use (separate multiple names with a space)")
	cmd.Flags().BoolVar(&o.unset, "unset", false, "clear the breakpoint instead of setting it")
	cmd.Flags().BoolVarP(&o.removeAll, "remove-all", "r", false, "clear every breakpoint")

	return cmd
}
