package portfolio

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceSource delivers close observations for assets. Implementations resolve
// a quote for the nearest available date at or before the requested one, so a
// weekend or holiday valuation still prices against the last trading day.
type PriceSource interface {
	// Price returns the close for an asset as of a date.
	Price(ctx context.Context, asset Asset, on Date) (PriceData, error)

	// Prices returns the closes for an asset over a range, ascending.
	Prices(ctx context.Context, asset Asset, r Range) ([]PriceData, error)
}

// FxObservation is one dated rate for a currency pair.
type FxObservation struct {
	Pair IsoCurrencyPair
	Date Date
	Rate decimal.Decimal
}

// FxSource delivers currency conversion rates, either as of a single date or
// as an observation series over a range.
type FxSource interface {
	// Rates resolves a set of currency pairs into a rate table. Pairs with
	// no known rate are simply absent from the table.
	Rates(ctx context.Context, on Date, pairs ...IsoCurrencyPair) (*RateTable, error)

	// RateHistory returns every observation for the pairs inside the range,
	// one bulk query per pair at most. Pairs with no observations are simply
	// absent from the result.
	RateHistory(ctx context.Context, r Range, pairs ...IsoCurrencyPair) ([]FxObservation, error)
}

// TrnSource streams the transactions of one portfolio, unordered.
type TrnSource interface {
	Trns(ctx context.Context, portfolioID uuid.UUID, r Range) ([]Trn, error)
}
