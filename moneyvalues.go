package portfolio

import "github.com/shopspring/decimal"

// In names a currency context. Every monetary figure of a position exists in
// all three simultaneously: the security's native (trade) currency, the
// portfolio holder's base currency, and the portfolio's reporting currency.
type In int

const (
	InTrade In = iota
	InBase
	InPortfolio
)

// contexts is the iteration order used when a figure is updated in all three.
var contexts = []In{InTrade, InBase, InPortfolio}

func (in In) String() string {
	switch in {
	case InTrade:
		return "trade"
	case InBase:
		return "base"
	case InPortfolio:
		return "portfolio"
	}
	return "unknown"
}

// MoneyValues is the monetary state of a position in one currency context.
// Purchases and Sells accumulate gross trade amounts; Dividends accumulates
// income; the valuation figures are overwritten on each pricing pass.
type MoneyValues struct {
	Currency string `json:"currency"`

	Purchases Money `json:"purchases"`
	Sells     Money `json:"sells"`
	Dividends Money `json:"dividends"`

	// CostBasis and CostValue move in lockstep under weighted-average
	// costing: both grow by the purchase amount and shrink proportionally
	// on disposal. They are carried separately because valuation reads
	// CostValue while disposal accounting consumes CostBasis.
	CostBasis      Money `json:"costBasis"`
	CostValue      Money `json:"costValue"`
	RealizedGain   Money `json:"realizedGain"`
	UnrealizedGain Money `json:"unrealizedGain"`
	MarketValue    Money `json:"marketValue"`
	GainOnDay      Money `json:"gainOnDay"`
	TotalGain      Money `json:"totalGain"`

	Price         Money           `json:"price"`
	AverageCost   Money           `json:"averageCost"`
	PreviousClose Money           `json:"previousClose"`
	Weight        Percent         `json:"weight"` // share of this context's total value
	FxRate        decimal.Decimal `json:"fxRate"` // trade ccy -> this context's ccy
}

// newMoneyValues seeds every figure with an explicit zero in the context's
// currency so additions never trip the mixed-currency guard.
func newMoneyValues(currency string) *MoneyValues {
	z := M(0, currency)
	return &MoneyValues{
		Currency:       currency,
		Purchases:      z,
		Sells:          z,
		Dividends:      z,
		CostBasis:      z,
		CostValue:      z,
		RealizedGain:   z,
		UnrealizedGain: z,
		MarketValue:    z,
		GainOnDay:      z,
		TotalGain:      z,
		Price:          z,
		AverageCost:    z,
		PreviousClose:  z,
		FxRate:         decimal.NewFromInt(1),
	}
}

// QuantityValues is the unit state of a position, identical across currency
// contexts. Precision carries source fidelity so fractional holdings render
// without noise.
type QuantityValues struct {
	Total      Quantity `json:"total"`
	Purchased  Quantity `json:"purchased"`
	Sold       Quantity `json:"sold"`
	Adjustment Quantity `json:"adjustment"`
	Precision  int32    `json:"precision"`
}

// DateValues tracks the temporal footprint of a position.
type DateValues struct {
	Opened      Date `json:"opened"`
	LastTraded  Date `json:"lastTraded"`
	LastActivity Date `json:"lastActivity"`
}

// update widens the footprint to include d.
func (dv *DateValues) update(d Date, traded bool) {
	if dv.Opened.IsZero() || d.Before(dv.Opened) {
		dv.Opened = d
	}
	if dv.LastActivity.IsZero() || dv.LastActivity.Before(d) {
		dv.LastActivity = d
	}
	if traded && (dv.LastTraded.IsZero() || dv.LastTraded.Before(d)) {
		dv.LastTraded = d
	}
}

// PriceData is one close observation for an asset.
type PriceData struct {
	Date          Date            `json:"date"`
	Close         decimal.Decimal `json:"close"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	Currency      string          `json:"currency"`
}
