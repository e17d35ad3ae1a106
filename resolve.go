package portfolio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RateResolver stamps transactions with their conversion rates at ingestion
// time. Once stamped, a transaction is self-contained: replaying the ledger
// never consults an FX source again, so the book is reproducible even after
// the rate history moves.
type RateResolver struct {
	fx  FxSource
	log zerolog.Logger
}

// NewRateResolver wires a resolver to an FX source.
func NewRateResolver(fx FxSource, log zerolog.Logger) *RateResolver {
	return &RateResolver{fx: fx, log: log.With().Str("service", "rates").Logger()}
}

// Resolve fills the trade/base, trade/cash and trade/portfolio rates of a
// transaction as of its trade date. A rate the source cannot deliver defaults
// to the identity with a warning.
func (r *RateResolver) Resolve(ctx context.Context, p *Portfolio, trn *Trn) error {
	tradeCurrency := trn.TradeAmount.Currency()
	if tradeCurrency == "" {
		tradeCurrency = trn.Asset.Currency()
	}
	cashCurrency := trn.cashCurrency()
	if cashCurrency == "" {
		cashCurrency = tradeCurrency
	}

	seen := make(map[IsoCurrencyPair]bool)
	var pairs []IsoCurrencyPair
	for _, to := range []string{p.Base, cashCurrency, p.Currency} {
		if to == tradeCurrency {
			continue
		}
		pair := NewCurrencyPair(tradeCurrency, to)
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}

	table := NewRateTable()
	if len(pairs) > 0 {
		var err error
		table, err = r.fx.Rates(ctx, trn.TradeDate, pairs...)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFxFetch, err)
		}
	}

	trn.TradeBaseRate = r.lookup(table, tradeCurrency, p.Base, trn.TradeDate)
	trn.TradeCashRate = r.lookup(table, tradeCurrency, cashCurrency, trn.TradeDate)
	trn.TradePortfolioRate = r.lookup(table, tradeCurrency, p.Currency, trn.TradeDate)
	return nil
}

func (r *RateResolver) lookup(table *RateTable, from, to string, on Date) decimal.Decimal {
	v, ok := table.Rate(from, to)
	if !ok {
		r.log.Warn().Str("from", from).Str("to", to).Stringer("on", on).
			Msg("missing fx rate, defaulting to 1.0")
		return decimal.NewFromInt(1)
	}
	return v
}
