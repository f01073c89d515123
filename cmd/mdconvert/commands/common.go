// Package commands implements the mdconvert command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	"git.home.luguber.info/inful/mdconvert/internal/docstate"
)

// Global is shared by every command.
type Global struct {
	Logger *slog.Logger
	// Out receives user-facing output.
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"mdconvert.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Convert  ConvertCmd  `cmd:"" default:"withargs" help:"Convert changed markdown files (default command)"`
	Watch    WatchCmd    `cmd:"" help:"Convert on every change to the source directory"`
	State    StateCmd    `cmd:"" help:"Inspect or reset the document state database"`
	Profiles ProfilesCmd `cmd:"" help:"List the style profiles"`
	Doctor   DoctorCmd   `cmd:"" help:"Check that the converter tools are installed"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := config.LogLevelInfo
	if c.Verbose {
		level = config.LogLevelDebug
	}
	slog.SetDefault(newLogger(os.Stderr, config.LoggingConfig{Level: level, Format: config.LogFormatText}))
	return nil
}

func newLogger(w io.Writer, lc config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.Level.SlogLevel()}
	if lc.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig loads the configuration and switches the default logger to the
// configured level and format. --verbose always wins.
func (c *CLI) loadConfig(g *Global, o config.Overrides) (*config.Config, error) {
	if c.Verbose {
		o.LogLevel = string(config.LogLevelDebug)
	}
	cfg, err := config.Load(c.Config, o)
	if err != nil {
		return nil, err
	}
	g.Logger = newLogger(os.Stderr, cfg.Logging)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

func openStore(g *Global, path string) (*docstate.Store, error) {
	return docstate.Open(path, docstate.WithLogger(g.Logger))
}
