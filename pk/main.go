// Command pk manages a multi-currency portfolio: it records transactions,
// values positions with end-of-day market data, and reports time-weighted
// performance.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"

	"github.com/tamaki-fs/portfolio/cmd"
)

func main() {
	// shell completion short-circuits the process when invoked by the shell
	completion := &complete.Command{Sub: map[string]*complete.Command{}}
	for _, c := range cmd.Commands {
		completion.Sub[c.Name()] = &complete.Command{}
	}
	complete.Complete("pk", completion)

	cmd.Setup()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
