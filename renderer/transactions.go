package renderer

import (
	"fmt"
	"strings"

	"github.com/tamaki-fs/portfolio"
)

// TrnsMarkdown renders a transaction list in chronological order.
func TrnsMarkdown(trns []portfolio.Trn) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Transactions\n\n")
	if len(trns) == 0 {
		fmt.Fprintln(&b, "No transactions.")
		return b.String()
	}

	sorted := make([]portfolio.Trn, len(trns))
	copy(sorted, trns)
	portfolio.SortTrns(sorted)

	fmt.Fprintln(&b, "| Date | Type | Asset | Quantity | Amount | Memo |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|:---|")
	for _, trn := range sorted {
		asset := ""
		if !trn.Asset.IsZero() {
			asset = trn.Asset.Key()
		}
		qty := ""
		if !trn.Quantity.IsZero() {
			qty = trn.Quantity.String()
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			trn.TradeDate, trn.Type, asset, qty, trn.TradeAmount, trn.Memo)
	}
	return b.String()
}
