package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	"git.home.luguber.info/inful/mdconvert/internal/docstate"
	"git.home.luguber.info/inful/mdconvert/internal/fingerprint"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

// StateCmd groups the document state commands.
type StateCmd struct {
	DBPath string `name:"db-path" help:"Document state database"`

	List   StateListCmd   `cmd:"" help:"List every record, most recently updated first"`
	Show   StateShowCmd   `cmd:"" help:"Show one record"`
	Accept StateAcceptCmd `cmd:"" help:"Record the current artifact of a document as its confirmed output"`
	Remove StateRemoveCmd `cmd:"" help:"Forget one document so it is converted again"`
	Clear  StateClearCmd  `cmd:"" help:"Forget every document"`
}

func (c *StateCmd) open(g *Global, root *CLI) (*docstate.Store, error) {
	_, store, err := c.openWithConfig(g, root)
	return store, err
}

func (c *StateCmd) openWithConfig(g *Global, root *CLI) (*config.Config, *docstate.Store, error) {
	cfg, err := root.loadConfig(g, config.Overrides{DBPath: c.DBPath})
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(g, cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

// StateListCmd implements 'state list'.
type StateListCmd struct{}

// Run executes the command.
func (c *StateListCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	store, err := root.State.open(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		_, _ = fmt.Fprintln(g.Out, "No documents recorded")
		return nil
	}
	records, err := store.ListAll(ctx)
	if err != nil {
		return err
	}
	schema, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DOCUMENT\tPROFILE\tOUTPUT\tUPDATED")
	for _, r := range records {
		output := "unconfirmed"
		if r.HasOutput() {
			output = shortFingerprint(r.OutputFingerprint)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.Identifier, r.Config.StyleProfile, output, r.UpdatedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "\n%d documents, schema version %d\n", len(records), schema)
	return nil
}

// StateShowCmd implements 'state show'.
type StateShowCmd struct {
	ID string `arg:"" name:"id" help:"Document identifier, e.g. pdf/guide.md"`
}

// Run executes the command.
func (c *StateShowCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	store, err := root.State.open(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rec, err := store.Get(ctx, c.ID)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.NotFoundError("no record for document").WithContext("identifier", c.ID).Build()
	}
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Document", rec.Identifier},
		{"Source fingerprint", rec.SourceFingerprint},
		{"Output fingerprint", orNone(rec.OutputFingerprint)},
		{"Configuration", rec.Config.String()},
		{"Created", rec.CreatedAt.Local().Format(time.RFC3339)},
		{"Updated", rec.UpdatedAt.Local().Format(time.RFC3339)},
	}
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

// StateAcceptCmd implements 'state accept'. It fingerprints the artifact as it
// is on disk now, so a hand-edited output stops triggering regeneration.
type StateAcceptCmd struct {
	ID string `arg:"" name:"id" help:"Document identifier, e.g. pdf/guide.md"`
}

// Run executes the command.
func (c *StateAcceptCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	prefix, name, ok := strings.Cut(c.ID, "/")
	if !ok || name == "" {
		return errors.ValidationError("identifier must look like <format>/<file>").
			WithContext("identifier", c.ID).
			Build()
	}
	format, err := config.ParseFormat(prefix)
	if err != nil {
		return err
	}

	cfg, store, err := root.State.openWithConfig(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	output := cfg.ArtifactPath(format, name)
	fp, err := fingerprint.File(output)
	if err != nil {
		return err
	}
	updated, err := store.UpdateOutputFingerprint(ctx, c.ID, fp)
	if err != nil {
		return err
	}
	if !updated {
		return errors.NotFoundError("no record for document").WithContext("identifier", c.ID).Build()
	}
	_, _ = fmt.Fprintf(g.Out, "Accepted %s (%s)\n", output, shortFingerprint(fp))
	return nil
}

// StateRemoveCmd implements 'state remove'.
type StateRemoveCmd struct {
	ID string `arg:"" name:"id" help:"Document identifier, e.g. pdf/guide.md"`
}

// Run executes the command.
func (c *StateRemoveCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	store, err := root.State.open(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Remove(ctx, c.ID); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Removed %s\n", c.ID)
	return nil
}

// StateClearCmd implements 'state clear'.
type StateClearCmd struct{}

// Run executes the command.
func (c *StateClearCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	store, err := root.State.open(g, root)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	n, err := store.Clear(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Cleared %d document records\n", n)
	return nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
