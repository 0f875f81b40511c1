package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/getpup/pupsourcing-migrator"
	"github.com/getpup/pupsourcing-migrator/executor"
	"github.com/getpup/pupsourcing-migrator/manager"
)

// printer writes the human-readable command output. Labels are colored the
// way the original console output tags them: info green, comment yellow,
// error red.
type printer struct {
	w        io.Writer
	infoC    *color.Color
	commentC *color.Color
	errorC   *color.Color
}

func newPrinter(w io.Writer, noColor bool) *printer {
	p := &printer{
		w:        w,
		infoC:    color.New(color.FgGreen),
		commentC: color.New(color.FgYellow),
		errorC:   color.New(color.FgRed),
	}
	if noColor {
		p.infoC.DisableColor()
		p.commentC.DisableColor()
		p.errorC.DisableColor()
	}
	return p
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) blank() {
	fmt.Fprintln(p.w)
}

func (p *printer) labelled(c *color.Color, label, text string) {
	if text == "" {
		fmt.Fprintln(p.w, c.Sprint(label))
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", c.Sprint(label), text)
}

func (p *printer) info(label, text string)    { p.labelled(p.infoC, label, text) }
func (p *printer) comment(label, text string) { p.labelled(p.commentC, label, text) }
func (p *printer) failure(label, text string) { p.labelled(p.errorC, label, text) }

func (p *printer) warnings(warnings []string) {
	for _, w := range warnings {
		p.comment("warning", w)
	}
}

// databases prints the resolved target list, or the fallback notice when the
// operation ran against the default connection.
func (p *printer) databases(names []string) {
	if len(names) == 1 && names[0] == "" {
		p.failure("database was not found", "")
		return
	}

	label := "using database"
	if len(names) > 1 {
		label = "using databases"
	}
	p.info(label, strings.Join(names, ", "))
}

func (p *printer) done(elapsed time.Duration) {
	p.blank()
	p.comment(fmt.Sprintf("All Done. Took %.4fs", elapsed.Seconds()), "")
}

func verbs(d migrator.Direction) (running, finished string) {
	if d == migrator.Down {
		return "reverting", "reverted"
	}
	return "migrating", "migrated"
}

// target prints the steps run on one database.
func (p *printer) target(t manager.TargetReport, direction migrator.Direction) {
	running, finished := verbs(direction)

	if t.Execution != nil {
		for _, step := range t.Execution.Steps {
			p.line(" == %s %s: %s", step.Version, step.Name, p.commentC.Sprint(running))
			if step.Outcome == executor.Success {
				p.line(" == %s %s: %s %.4fs", step.Version, step.Name,
					p.commentC.Sprint(finished), step.Duration.Seconds())
			}
		}
	}

	if t.Plan.BlockedBy != 0 {
		p.comment("breakpoint", fmt.Sprintf("rollback stopped at breakpoint on %s", t.Plan.BlockedBy))
	}

	if t.Err != nil {
		p.failure("error", unwrapTarget(t.Err).Error())
		if t.Execution != nil && len(t.Execution.Unattempted) > 0 {
			p.comment("skipped", joinVersions(t.Execution.Unattempted))
		}
	}
}

func unwrapTarget(err error) error {
	var te *migrator.TargetError
	if errors.As(err, &te) {
		return te.Err
	}
	return err
}

func joinVersions(vs []migrator.Version) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
