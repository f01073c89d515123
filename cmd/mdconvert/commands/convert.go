package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	"git.home.luguber.info/inful/mdconvert/internal/converter"
	"git.home.luguber.info/inful/mdconvert/internal/deps"
	"git.home.luguber.info/inful/mdconvert/internal/docstate"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/logfields"
	"git.home.luguber.info/inful/mdconvert/internal/metrics"
	"git.home.luguber.info/inful/mdconvert/internal/render"
)

// ConvertFlags are shared by convert and watch.
type ConvertFlags struct {
	Source           string `short:"s" name:"source" help:"Directory with the markdown sources"`
	OutputDir        string `short:"o" name:"output-dir" help:"Output directory; documents go to <dir>/<format>"`
	TempDir          string `name:"temp-dir" help:"Directory for intermediate files"`
	DBPath           string `name:"db-path" help:"Document state database"`
	Format           string `short:"f" help:"Output format: pdf, epub or mobi"`
	Profile          string `short:"p" help:"Style profile (see 'mdconvert profiles')"`
	Margins          string `help:"PDF page margins, CSS shorthand with in, cm or mm (e.g. '1in 0.75in')"`
	NoPageNumbers    bool   `name:"no-page-numbers" help:"Do not number PDF pages"`
	MaxDiagramWidth  string `name:"max-diagram-width" help:"Diagram width bound in pixels or percent"`
	MaxDiagramHeight string `name:"max-diagram-height" help:"Diagram height bound in pixels or percent"`
	MaxWorkers       int    `name:"max-workers" help:"Parallel conversions"`
	NoParallel       bool   `name:"no-parallel" help:"Convert one document at a time"`
	NoCleanup        bool   `name:"no-cleanup" help:"Keep intermediate files"`
	Author           string `help:"Ebook author metadata"`
	Language         string `help:"Document language"`
}

// Overrides maps the flags onto configuration overrides. Unset flags keep the
// file and environment values.
func (f ConvertFlags) Overrides() config.Overrides {
	o := config.Overrides{
		SourceDir:        f.Source,
		OutputDir:        f.OutputDir,
		TempDir:          f.TempDir,
		DBPath:           f.DBPath,
		Format:           f.Format,
		Profile:          f.Profile,
		Margins:          f.Margins,
		MaxDiagramWidth:  f.MaxDiagramWidth,
		MaxDiagramHeight: f.MaxDiagramHeight,
		MaxWorkers:       f.MaxWorkers,
		Author:           f.Author,
		Language:         f.Language,
	}
	off := false
	if f.NoPageNumbers {
		o.PageNumbers = &off
	}
	if f.NoParallel {
		o.Parallel = &off
	}
	if f.NoCleanup {
		o.Cleanup = &off
	}
	return o
}

// ConvertCmd implements the 'convert' command.
type ConvertCmd struct {
	ConvertFlags `embed:""`

	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics of the run to this textfile"`
}

// session holds what convert and watch build from the configuration.
type session struct {
	cfg      *config.Config
	store    *docstate.Store
	registry *prom.Registry
	conv     *converter.Converter
}

func newSession(g *Global, cfg *config.Config, renderer render.Renderer) (*session, error) {
	if renderer == nil {
		report := deps.Check(cfg.Format, cfg.Tools)
		if !report.OK() {
			for _, t := range report.Missing() {
				g.Logger.Error("Converter tool missing",
					logfields.Tool(t.Command),
					slog.String("stage", t.Stage),
					slog.String("install", t.Hint))
			}
			return nil, report.Err()
		}
		renderer = render.NewToolRenderer(cfg.Tools, render.WithToolLogger(g.Logger))
	}

	store, err := openStore(g, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	reg := prom.NewRegistry()
	conv, err := converter.New(cfg, store, renderer,
		converter.WithLogger(g.Logger),
		converter.WithRecorder(metrics.NewPrometheusRecorder(reg)))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &session{cfg: cfg, store: store, registry: reg, conv: conv}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// Run executes the command.
func (c *ConvertCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	o := c.Overrides()
	o.MetricsTextfile = c.MetricsFile
	cfg, err := root.loadConfig(g, o)
	if err != nil {
		return err
	}
	return runConvert(ctx, g, cfg, nil)
}

// runConvert converts once. renderer replaces the external tools when set.
func runConvert(ctx context.Context, g *Global, cfg *config.Config, renderer render.Renderer) error {
	s, err := newSession(g, cfg, renderer)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	summary, runErr := s.conv.ConvertAll(ctx)
	printSummary(g, summary)

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile, s.registry); err != nil {
			g.Logger.Warn("Cannot write metrics textfile", logfields.Path(cfg.Metrics.Textfile), logfields.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		return errors.RenderError("some documents could not be converted").
			WithContext("failed", strconv.Itoa(summary.Failed)).
			Build()
	}
	return nil
}

func printSummary(g *Global, s converter.Summary) {
	_, _ = fmt.Fprintf(g.Out, "Converted %d, skipped %d, failed %d of %d documents\n",
		s.Converted, s.Skipped, s.Failed, s.Total)
	for _, f := range s.Failures {
		_, _ = fmt.Fprintf(g.Out, "  FAILED %s: %v\n", f.Path, f.Err)
	}
}
