package portfolio

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ValidateCurrency checks that the given code is a known ISO-4217 currency.
func ValidateCurrency(code string) error {
	if code == "" {
		return fmt.Errorf("currency code is empty")
	}
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("unknown currency code %q", code)
	}
	return nil
}

// IsoCurrencyPair identifies a pair of currencies regardless of direction:
// NZD/USD and USD/NZD share the same pair key.
type IsoCurrencyPair struct {
	from, to string
}

// NewCurrencyPair builds the canonical pair for two currency codes. The
// canonical form orders the codes lexically so that both directions map to
// the same key.
func NewCurrencyPair(from, to string) IsoCurrencyPair {
	if to < from {
		from, to = to, from
	}
	return IsoCurrencyPair{from: from, to: to}
}

func (p IsoCurrencyPair) From() string { return p.from }
func (p IsoCurrencyPair) To() string   { return p.to }

func (p IsoCurrencyPair) String() string { return p.from + ":" + p.to }

// FxRate is the price of one unit of From expressed in To, on some date.
type FxRate struct {
	From string
	To   string
	Rate decimal.Decimal
}

// RateTable is a point-in-time lookup of exchange rates keyed by unordered
// currency pair. It is built externally (by an FX source) and passed into
// valuation as an opaque lookup.
type RateTable struct {
	rates map[IsoCurrencyPair]FxRate
}

// NewRateTable creates an empty rate table.
func NewRateTable() *RateTable {
	return &RateTable{rates: make(map[IsoCurrencyPair]FxRate)}
}

// Add records a rate. The last rate added for a pair wins.
func (t *RateTable) Add(rate FxRate) *RateTable {
	t.rates[NewCurrencyPair(rate.From, rate.To)] = rate
	return t
}

// Len returns the number of pairs in the table.
func (t *RateTable) Len() int { return len(t.rates) }

// Rate returns the multiplier converting an amount in 'from' into 'to'.
// A same-currency lookup is always 1. When the table holds the reciprocal
// direction the rate is inverted. The boolean reports whether the pair was
// known at all.
func (t *RateTable) Rate(from, to string) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	fx, ok := t.rates[NewCurrencyPair(from, to)]
	if !ok {
		return decimal.Decimal{}, false
	}
	if fx.From == from {
		return fx.Rate, true
	}
	if fx.Rate.IsZero() {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromInt(1).Div(fx.Rate), true
}
