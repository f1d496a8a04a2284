package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&fetchCmd{}, "data")
	commander.Register(&pricesCmd{}, "data")
	commander.Register(&backtestCmd{}, "analysis")
	commander.Register(&serveCmd{}, "analysis")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// databaseURL resolves the Postgres DSN from the flag or the DATABASE_URL
// environment variable. Empty means the CSV directory store is used.
func databaseURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("DATABASE_URL")
}
