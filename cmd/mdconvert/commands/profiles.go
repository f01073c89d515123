package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/mdconvert/internal/config"
)

// ProfilesCmd implements the 'profiles' command.
type ProfilesCmd struct {
	Format string `short:"f" help:"Only list profiles supporting this format"`
}

// Run executes the command.
func (c *ProfilesCmd) Run(g *Global) error {
	var filter config.Format
	if c.Format != "" {
		f, err := config.ParseFormat(c.Format)
		if err != nil {
			return err
		}
		filter = f
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tFORMATS\tDESCRIPTION")
	for _, p := range config.Profiles() {
		if filter != "" && !p.Supports(filter) {
			continue
		}
		formats := make([]string, len(p.Formats))
		for i, f := range p.Formats {
			formats[i] = string(f)
		}
		name := p.Name
		if name == config.DefaultProfile {
			name += " (default)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", name, strings.Join(formats, ","), p.Description)
	}
	return tw.Flush()
}
