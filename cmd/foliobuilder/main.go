package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/foliobuilder/cmd/foliobuilder/commands"
	ferrors "git.home.luguber.info/inful/foliobuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/foliobuilder/internal/version"
)

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("foliobuilder"),
		kong.Description("Prebuild portfolio projects into a published tree and manifest."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	err := parser.Run(&commands.Global{Logger: slog.Default()}, &cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
