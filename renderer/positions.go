// Package renderer turns valuation and performance results into markdown
// reports.
package renderer

import (
	"fmt"
	"strings"

	"github.com/tamaki-fs/portfolio"
)

// PositionsMarkdown renders a priced book as a markdown report: the
// securities with their valuation figures, the cash ladders, and the
// portfolio totals, all in the portfolio's reporting currency.
func PositionsMarkdown(v *portfolio.Valuation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio Valuation on %s\n\n", v.Date)

	securities := v.Positions.Securities()
	if len(securities) > 0 {
		fmt.Fprint(&b, "## Securities\n\n")
		fmt.Fprintln(&b, "| Asset | Quantity | Price | Market Value | Cost Basis | Unrealized | Day | Weight |")
		fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|---:|---:|")
		for _, pos := range securities {
			mv := pos.Portfolio
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				pos.Asset.Key(),
				pos.Qty.Total,
				mv.Price,
				mv.MarketValue,
				mv.CostBasis,
				mv.UnrealizedGain.SignedString(),
				mv.GainOnDay.SignedString(),
				mv.Weight,
			)
		}
		fmt.Fprintln(&b)
	}

	ladders := v.Positions.CashLadders()
	if len(ladders) > 0 {
		fmt.Fprint(&b, "## Cash\n\n")
		fmt.Fprintln(&b, "| Currency | Balance | Value | Realized FX | Weight |")
		fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|")
		for _, pos := range ladders {
			if pos.IsClosed() && pos.Portfolio.RealizedGain.IsZero() {
				continue
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				pos.Asset.Currency(),
				pos.Qty.Total,
				pos.Portfolio.MarketValue,
				pos.Portfolio.RealizedGain.SignedString(),
				pos.Portfolio.Weight,
			)
		}
		fmt.Fprintln(&b)
	}

	t := v.Portfolio
	fmt.Fprint(&b, "## Totals\n\n")
	fmt.Fprintln(&b, "| | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Securities | %s |\n", t.MarketValue)
	fmt.Fprintf(&b, "| Cash | %s |\n", t.Cash)
	fmt.Fprintf(&b, "| **Total** | **%s** |\n", t.Total)
	fmt.Fprintf(&b, "| Unrealized | %s |\n", t.UnrealizedGain.SignedString())
	fmt.Fprintf(&b, "| Realized | %s |\n", t.RealizedGain.SignedString())
	fmt.Fprintf(&b, "| Dividends | %s |\n", t.Dividends.SignedString())
	fmt.Fprintf(&b, "| Day | %s |\n", t.GainOnDay.SignedString())
	fmt.Fprintf(&b, "| Total Gain | %s |\n", t.TotalGain.SignedString())

	return b.String()
}
