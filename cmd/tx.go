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

type txCmd struct {
	start string
	date  string
	head  int
	tail  int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list transactions in the ledger" }
func (*txCmd) Usage() string {
	return `pk tx [-s <start_date>] [-d <end_date>] [-head <n>] [-tail <n>]

  Lists the ledger's transactions, with options for filtering and limiting
  the output.
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "s", "", "Start date of the range")
	f.StringVar(&c.date, "d", "", "End date of the range, defaults to today")
	f.IntVar(&c.head, "head", 0, "Show only the first N transactions")
	f.IntVar(&c.tail, "tail", 0, "Show only the last N transactions")
}

func (c *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.head > 0 && c.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
		return subcommands.ExitUsageError
	}

	p, err := LoadPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	r := portfolio.Range{To: portfolio.Today()}
	if c.date != "" {
		if r.To, err = portfolio.ParseDate(c.date); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	if c.start != "" {
		from, err := portfolio.ParseDate(c.start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
			return subcommands.ExitUsageError
		}
		r = portfolio.NewRange(from, r.To)
	}

	trns, err := Ledger().Trns(ctx, p.ID, r)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	portfolio.SortTrns(trns)

	if c.head > 0 && len(trns) > c.head {
		trns = trns[:c.head]
	}
	if c.tail > 0 && len(trns) > c.tail {
		trns = trns[len(trns)-c.tail:]
	}

	printMarkdown(renderer.TrnsMarkdown(trns))
	return subcommands.ExitSuccess
}
