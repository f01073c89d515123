package commands

import (
	"fmt"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	"git.home.luguber.info/inful/mdconvert/internal/deps"
)

// DoctorCmd implements the 'doctor' command.
type DoctorCmd struct {
	Format string `short:"f" help:"Output format to check (defaults to the configured one)"`
}

// Run executes the command.
func (c *DoctorCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g, config.Overrides{Format: c.Format})
	if err != nil {
		return err
	}
	report := deps.Check(cfg.Format, cfg.Tools)
	printReport(g, report)
	return report.Err()
}

func printReport(g *Global, report deps.Report) {
	_, _ = fmt.Fprintf(g.Out, "Tools for %s:\n", report.Format)
	for _, t := range report.Tools {
		if t.Found {
			_, _ = fmt.Fprintf(g.Out, "  [OK]      %-5s %s (%s)\n", t.Stage, t.Command, t.Path)
			continue
		}
		_, _ = fmt.Fprintf(g.Out, "  [MISSING] %-5s %s\n            %s\n", t.Stage, t.Command, t.Hint)
	}
	for _, t := range report.Diagrams {
		if t.Found {
			_, _ = fmt.Fprintf(g.Out, "  [OK]      %-8s %s (%s)\n", t.Stage, t.Command, t.Path)
			continue
		}
		_, _ = fmt.Fprintf(g.Out, "  [OPTIONAL] %-8s %s not found, %s diagrams stay as code\n             %s\n",
			t.Stage, t.Command, t.Stage, t.Hint)
	}
	if report.OK() {
		_, _ = fmt.Fprintln(g.Out, "All dependencies are available")
	}
}
