package renderer

import (
	"fmt"
	"strings"

	"github.com/tamaki-fs/portfolio"
)

// PerformanceMarkdown renders a time-weighted return result: one row per
// valuation snapshot and the linked total.
func PerformanceMarkdown(p *portfolio.Performance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Performance from %s to %s\n\n", p.Range.From, p.Range.To)

	if len(p.Snapshots) == 0 {
		fmt.Fprintln(&b, "No activity in this period.")
		return b.String()
	}

	fmt.Fprintln(&b, "| Date | Value | Net Flow | Contributions | Return | Cumulative | Growth of 1000 |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|---:|")
	for _, snap := range p.Snapshots {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			snap.Date,
			snap.MarketValue,
			snap.NetFlow.SignedString(),
			snap.NetContributions.SignedString(),
			snap.Return.SignedString(),
			snap.CumulativeReturn.SignedString(),
			snap.Growth.Round(2),
		)
	}
	fmt.Fprintf(&b, "\nTime-weighted return: **%s**\n", p.TotalReturn.SignedString())
	return b.String()
}
