package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/tamaki-fs/portfolio"
)

type initCmd struct {
	code     string
	currency string
	base     string
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create a new portfolio definition" }
func (*initCmd) Usage() string {
	return `pk init -code <code> [-c <currency>] [-b <base>]

  Creates the portfolio definition file with a fresh identity. The reporting
  currency is what reports are denominated in; the base currency is the
  holder's home currency.
`
}

func (c *initCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.code, "code", "MAIN", "Short code naming the portfolio")
	f.StringVar(&c.currency, "c", "USD", "Reporting currency")
	f.StringVar(&c.base, "b", "USD", "Base currency")
}

func (c *initCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if _, err := os.Stat(*portfolioFile); err == nil {
		fmt.Fprintf(os.Stderr, "Error: portfolio file %q already exists\n", *portfolioFile)
		return subcommands.ExitFailure
	}

	p, err := portfolio.NewPortfolio(c.code, c.currency, c.base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating portfolio: %v\n", err)
		return subcommands.ExitUsageError
	}
	if err := SavePortfolio(&p); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Created portfolio %s (%s) in %s\n", p.Code, p.ID, *portfolioFile)
	return subcommands.ExitSuccess
}
