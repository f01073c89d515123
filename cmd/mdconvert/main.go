package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mdconvert/cmd/mdconvert/commands"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("mdconvert"),
		kong.Description("Convert markdown documents to PDF, EPUB or MOBI, rendering only what changed."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	parser.BindTo(ctx, (*context.Context)(nil))
	err := parser.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, cli)
	stop()

	os.Exit(errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).WithOutput(os.Stderr).Report(err))
}
