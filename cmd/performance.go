package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/tamaki-fs/portfolio"
	"github.com/tamaki-fs/portfolio/renderer"
)

type performanceCmd struct {
	start  string
	date   string
	months int
}

func (*performanceCmd) Name() string     { return "performance" }
func (*performanceCmd) Synopsis() string { return "compute the time-weighted return over a period" }
func (*performanceCmd) Usage() string {
	return `pk performance [-s <start_date> | -m <months>] [-d <end_date>]

  Computes the time-weighted return, valuing the portfolio at every month
  start and cash-flow date in the period. Deposits and withdrawals are stripped out, so the
  figure measures the investments, not the saving habits.
`
}

func (c *performanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "s", "", "Start date of the period")
	f.StringVar(&c.date, "d", portfolio.Today().String(), "End date of the period")
	f.IntVar(&c.months, "m", 12, "Number of months when no start date is given")
}

func (c *performanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	end, err := portfolio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
		return subcommands.ExitUsageError
	}
	var r portfolio.Range
	if c.start != "" {
		start, err := portfolio.ParseDate(c.start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
			return subcommands.ExitUsageError
		}
		r = portfolio.NewRange(start, end)
	} else {
		r = portfolio.LastMonths(end, c.months)
	}

	p, err := LoadPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	market, err := MarketData()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	service := portfolio.NewPerformanceService(Ledger(), market, market, Logger())
	perf, err := service.Performance(ctx, p, r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing performance: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.PerformanceMarkdown(perf))
	return subcommands.ExitSuccess
}
