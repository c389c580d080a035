package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"tradecal/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&showCmd{}, "calendar")
	commander.Register(&latestCmd{}, "calendar")
	commander.Register(&importCmd{}, "data")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
