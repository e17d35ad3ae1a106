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

type valueCmd struct {
	date string
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "value the portfolio on a specific date" }
func (*valueCmd) Usage() string {
	return `pk value [-d <date>]

  Replays the ledger up to the given date and prices every position with
  end-of-day quotes, falling back to the nearest prior trading day.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", portfolio.Today().String(), "Valuation date")
}

func (c *valueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := portfolio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	p, err := LoadPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	trns, err := Ledger().Trns(ctx, p.ID, portfolio.Range{To: on})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	acc := portfolio.NewAccumulator(p)
	if err := acc.AccumulateAll(trns); err != nil {
		fmt.Fprintf(os.Stderr, "Error replaying ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	market, err := MarketData()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	service := portfolio.NewPositionValuationService(market, market, Logger())
	v, err := service.Value(ctx, acc.Positions(), on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error valuing portfolio: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.PositionsMarkdown(v))
	return subcommands.ExitSuccess
}
