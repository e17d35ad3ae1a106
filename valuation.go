package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Default fetch deadlines. Price providers run slow upstream batches, so the
// price leg gets a minutes-scale budget; FX answers within seconds.
const (
	DefaultPriceTimeout = 2 * time.Minute
	DefaultFxTimeout    = 30 * time.Second
)

// PositionValuationService prices an accumulated book as of a date. Prices
// and FX rates are fetched concurrently, each leg on its own deadline, then
// joined before any position is touched, so a partially priced book is never
// observable.
//
// Revaluation overwrites the valuation figures in place: running the same
// valuation twice yields the same book.
type PositionValuationService struct {
	prices PriceSource
	fx     FxSource

	priceTimeout time.Duration
	fxTimeout    time.Duration
	log          zerolog.Logger
}

// NewPositionValuationService wires a valuation service to its market data
// sources.
func NewPositionValuationService(prices PriceSource, fx FxSource, log zerolog.Logger) *PositionValuationService {
	return &PositionValuationService{
		prices:       prices,
		fx:           fx,
		priceTimeout: DefaultPriceTimeout,
		fxTimeout:    DefaultFxTimeout,
		log:          log.With().Str("service", "valuation").Logger(),
	}
}

// WithTimeouts overrides the per-leg fetch deadlines.
func (s *PositionValuationService) WithTimeouts(price, fx time.Duration) *PositionValuationService {
	s.priceTimeout, s.fxTimeout = price, fx
	return s
}

// Valuation is one fully priced snapshot of a book.
type Valuation struct {
	Date      Date       `json:"date"`
	Positions *Positions `json:"-"`
	Base      Totals     `json:"base"`
	Portfolio Totals     `json:"portfolio"`
}

// Value prices every position of the book as of a date and computes totals
// and portfolio weights. A price feed failure aborts the run; a missing FX
// rate degrades to the identity rate with a warning, biasing the report
// towards showing the position rather than hiding it.
func (s *PositionValuationService) Value(ctx context.Context, positions *Positions, on Date) (*Valuation, error) {
	securities := positions.Securities()

	quotes, table, err := s.fetch(ctx, positions, on)
	if err != nil {
		return nil, err
	}

	for _, pos := range securities {
		pos.Revalue(quotes[pos.Asset.Key()], s.contextRates(positions, pos.Asset.Currency(), table))
	}
	for _, pos := range positions.CashLadders() {
		pos.RevalueCash(s.contextRates(positions, pos.Asset.Currency(), table))
	}

	v := &Valuation{
		Date:      on,
		Positions: positions,
		Base:      positions.Totals(InBase),
		Portfolio: positions.Totals(InPortfolio),
	}
	weigh(positions, InBase, v.Base)
	weigh(positions, InPortfolio, v.Portfolio)
	return v, nil
}

// fetch runs the price leg and the FX leg concurrently and joins them.
func (s *PositionValuationService) fetch(ctx context.Context, positions *Positions, on Date) (map[string]PriceData, *RateTable, error) {
	var (
		wg       sync.WaitGroup
		quotes   map[string]PriceData
		priceErr error
		table    *RateTable
		fxErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		pctx, cancel := context.WithTimeout(ctx, s.priceTimeout)
		defer cancel()
		quotes, priceErr = s.fetchPrices(pctx, positions.Securities(), on)
	}()
	go func() {
		defer wg.Done()
		fctx, cancel := context.WithTimeout(ctx, s.fxTimeout)
		defer cancel()
		table, fxErr = s.fetchRates(fctx, positions, on)
	}()
	wg.Wait()

	if priceErr != nil {
		return nil, nil, priceErr
	}
	if fxErr != nil {
		return nil, nil, fxErr
	}
	return quotes, table, nil
}

func (s *PositionValuationService) fetchPrices(ctx context.Context, securities []*Position, on Date) (map[string]PriceData, error) {
	quotes := make(map[string]PriceData, len(securities))
	for _, pos := range securities {
		p, err := s.prices.Price(ctx, pos.Asset, on)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPriceFetch, pos.Asset.Key(), err)
		}
		quotes[pos.Asset.Key()] = p
	}
	return quotes, nil
}

func (s *PositionValuationService) fetchRates(ctx context.Context, positions *Positions, on Date) (*RateTable, error) {
	pairs := neededPairs(positions)
	if len(pairs) == 0 {
		return NewRateTable(), nil
	}
	table, err := s.fx.Rates(ctx, on, pairs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFxFetch, err)
	}
	if table == nil {
		// showing unconverted figures would be worse than failing
		return nil, fmt.Errorf("%w: on %s", ErrNoFxRates, on)
	}
	return table, nil
}

// neededPairs lists the distinct conversions the book requires: every trade
// currency into the base and portfolio currencies.
func neededPairs(positions *Positions) []IsoCurrencyPair {
	seen := make(map[IsoCurrencyPair]bool)
	var pairs []IsoCurrencyPair
	add := func(from, to string) {
		if from == to {
			return
		}
		pair := NewCurrencyPair(from, to)
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	for _, pos := range positions.Sorted() {
		add(pos.Asset.Currency(), positions.baseCurrency)
		add(pos.Asset.Currency(), positions.portfolioCurrency)
	}
	return pairs
}

// contextRates resolves trade currency multipliers for one asset, defaulting
// a missing rate to the identity with a warning.
func (s *PositionValuationService) contextRates(positions *Positions, tradeCurrency string, table *RateTable) ContextRates {
	rates := IdentityRates()
	rates.Base = rateOrIdentity(s.log, table, tradeCurrency, positions.baseCurrency)
	rates.Portfolio = rateOrIdentity(s.log, table, tradeCurrency, positions.portfolioCurrency)
	return rates
}

// rateOrIdentity resolves a conversion from a table, defaulting a missing
// rate to the identity with a warning.
func rateOrIdentity(log zerolog.Logger, table *RateTable, from, to string) decimal.Decimal {
	rate, ok := table.Rate(from, to)
	if !ok {
		log.Warn().Str("from", from).Str("to", to).
			Msg("missing fx rate, defaulting to 1.0")
		return decimal.NewFromInt(1)
	}
	return rate
}

// weigh assigns each position its share of one context's total value.
func weigh(positions *Positions, in In, totals Totals) {
	for _, pos := range positions.Sorted() {
		mv := pos.MoneyValues(in)
		if totals.Total.IsZero() {
			mv.Weight = 0
			continue
		}
		share := mv.MarketValue.Amount().Div(totals.Total.Amount())
		f, _ := share.Mul(decimal.NewFromInt(100)).Float64()
		mv.Weight = Percent(f)
	}
}
