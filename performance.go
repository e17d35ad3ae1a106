package portfolio

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PerformanceService computes the time-weighted return of a portfolio over a
// range. The range is cut into sub-periods at every month start and at every
// external-flow date, the book is valued at each cut, and the sub-period
// returns are geometrically linked.
// External cash flows are stripped from each sub-period, so depositing money
// never looks like performance.
type PerformanceService struct {
	trns   TrnSource
	prices PriceSource
	fx     FxSource
	log    zerolog.Logger
}

// NewPerformanceService wires a performance service to its sources.
func NewPerformanceService(trns TrnSource, prices PriceSource, fx FxSource, log zerolog.Logger) *PerformanceService {
	return &PerformanceService{
		trns:   trns,
		prices: prices,
		fx:     fx,
		log:    log.With().Str("service", "performance").Logger(),
	}
}

// ValuationSnapshot is the state of the portfolio at one grid date.
type ValuationSnapshot struct {
	Date             Date            `json:"date"`
	MarketValue      Money           `json:"marketValue"`      // securities plus cash, portfolio currency
	NetFlow          Money           `json:"netFlow"`          // external flows since the previous snapshot
	NetContributions Money           `json:"netContributions"` // signed external flows since inception
	Dividends        Money           `json:"dividends"`        // dividends received since inception
	Return           Percent         `json:"return"`           // sub-period return, flows stripped
	CumulativeReturn Percent         `json:"cumulativeReturn"` // linked return since the range start
	Growth           decimal.Decimal `json:"growth"`           // growth of 1000 since the range start
}

// Performance is the linked result over a range.
type Performance struct {
	Range       Range               `json:"range"`
	Currency    string              `json:"currency"`
	Snapshots   []ValuationSnapshot `json:"snapshots"`
	TotalReturn Percent             `json:"totalReturn"`
}

// Growth1000 is the index base: performance is reported as the growth of a
// notional 1000 invested at the range start.
var Growth1000 = decimal.NewFromInt(1000)

// Performance values the book at the range start, at every month start and
// external-flow date inside the range, and at the range end, then links the
// sub-period returns.
//
// The transaction history is loaded once from inception and replayed
// incrementally across the grid; prices and FX rates are prefetched in two
// bulk passes into an in-memory working set, so the grid walk itself issues
// no remote calls.
func (s *PerformanceService) Performance(ctx context.Context, p *Portfolio, r Range) (*Performance, error) {
	trns, err := s.trns.Trns(ctx, p.ID, Range{To: r.To})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	SortTrns(trns)

	perf := &Performance{Range: r, Currency: p.Currency}
	if len(trns) == 0 {
		return perf, nil
	}

	md, err := s.prefetch(ctx, p, trns, r)
	if err != nil {
		return nil, err
	}

	grid := valuationGrid(r, trns)
	acc := NewAccumulator(p)

	next := 0 // index of the first unapplied transaction
	var prev ValuationSnapshot
	growth := Growth1000
	contrib := M(0, p.Currency)
	divs := M(0, p.Currency)

	for i, on := range grid {
		flow := M(0, p.Currency)
		for next < len(trns) && !trns[next].TradeDate.After(on) {
			trn := trns[next]
			if err := acc.Accumulate(trn); err != nil {
				return nil, err
			}
			switch {
			case trn.Type == Dividend:
				divs = divs.Add(trn.TradeAmount.Abs().Convert(trn.contextRate(InPortfolio), p.Currency))
			case trn.Type.IsExternalFlow():
				f := externalFlow(trn, p.Currency)
				contrib = contrib.Add(f)
				if i > 0 {
					flow = flow.Add(f)
				}
			}
			next++
		}

		snap := ValuationSnapshot{
			Date:             on,
			MarketValue:      s.marketValueAsOf(ctx, md, acc.Positions(), p.Currency, on),
			NetFlow:          flow,
			NetContributions: contrib,
			Dividends:        divs,
			Growth:           growth,
		}
		if i > 0 && !prev.MarketValue.IsZero() {
			// Flows are treated as arriving at the end of the sub-period:
			// they sit in the closing value but earned nothing, so they are
			// subtracted before comparing against the opening value.
			ret := snap.MarketValue.Sub(snap.NetFlow).Sub(prev.MarketValue).Amount().
				Div(prev.MarketValue.Amount())
			growth = growth.Mul(decimal.NewFromInt(1).Add(ret))
			snap.Growth = growth
			f, _ := ret.Mul(decimal.NewFromInt(100)).Float64()
			snap.Return = Percent(f)
		}
		cum, _ := growth.Sub(Growth1000).Div(Growth1000).Mul(decimal.NewFromInt(100)).Float64()
		snap.CumulativeReturn = Percent(cum)
		perf.Snapshots = append(perf.Snapshots, snap)
		prev = snap
	}

	total, _ := growth.Sub(Growth1000).Div(Growth1000).Mul(decimal.NewFromInt(100)).Float64()
	perf.TotalReturn = Percent(total)
	return perf, nil
}

// prefetch loads every security's quotes and every required FX pair for the
// range into a working set, widened backwards so the range start can price
// against the nearest prior observation. These are the only remote calls of a
// performance run; the grid walk reads exclusively from the working set.
func (s *PerformanceService) prefetch(ctx context.Context, p *Portfolio, trns []Trn, r Range) (*MarketData, error) {
	md := NewMarketData()
	seen := make(map[string]bool)
	wide := Range{From: r.From.AddMonth(-1), To: r.To}
	for _, trn := range trns {
		if trn.Asset.IsZero() || trn.Asset.IsCash() || seen[trn.Asset.Key()] {
			continue
		}
		seen[trn.Asset.Key()] = true
		quotes, err := s.prices.Prices(ctx, trn.Asset, wide)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPriceFetch, trn.Asset.Key(), err)
		}
		for _, q := range quotes {
			md.AddPrice(trn.Asset, q)
		}
	}

	if pairs := fxPairs(trns, p.Base, p.Currency); len(pairs) > 0 {
		obs, err := s.fx.RateHistory(ctx, wide, pairs...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFxFetch, err)
		}
		for _, o := range obs {
			md.AddRate(o.Date, o.Pair.From(), o.Pair.To(), o.Rate)
		}
	}
	return md, nil
}

// fxPairs lists the conversions a replayed book can require: every currency
// a transaction touches, into the base and the portfolio currencies.
func fxPairs(trns []Trn, baseCurrency, portfolioCurrency string) []IsoCurrencyPair {
	seen := make(map[IsoCurrencyPair]bool)
	var pairs []IsoCurrencyPair
	add := func(from, to string) {
		if from == "" || from == to {
			return
		}
		pair := NewCurrencyPair(from, to)
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	for _, trn := range trns {
		for _, ccy := range []string{trn.Asset.Currency(), trn.CashAsset.Currency(), trn.TradeAmount.Currency()} {
			add(ccy, baseCurrency)
			add(ccy, portfolioCurrency)
		}
	}
	return pairs
}

// marketValueAsOf prices the replayed book from the working set in the
// portfolio currency. A position with no usable quote on or before the date
// is left out of that date's value rather than sinking the whole series.
func (s *PerformanceService) marketValueAsOf(ctx context.Context, md *MarketData, positions *Positions, currency string, on Date) Money {
	table, _ := md.Rates(ctx, on, neededPairs(positions)...)
	total := M(0, currency)
	for _, pos := range positions.Sorted() {
		if pos.IsClosed() {
			continue
		}
		if pos.IsCash() {
			rate := rateOrIdentity(s.log, table, pos.Asset.Currency(), currency)
			total = total.Add(M(1, pos.Asset.Currency()).Convert(rate, currency).Mul(pos.Qty.Total))
			continue
		}
		price, err := md.Price(ctx, pos.Asset, on)
		if err != nil {
			s.log.Warn().Str("asset", pos.Asset.Key()).Stringer("on", on).
				Msg("no quote in working set, omitting position")
			continue
		}
		rate := rateOrIdentity(s.log, table, price.Currency, currency)
		total = total.Add(M(price.Close, price.Currency).Convert(rate, currency).Mul(pos.Qty.Total))
	}
	return total
}

// valuationGrid is the range start, every month start and external-flow date
// strictly inside the range, and the range end, deduplicated and sorted. Flow
// dates cut their own sub-period, so cash arriving mid-month is priced from
// the day it arrives instead of being backdated to the month start.
func valuationGrid(r Range, trns []Trn) []Date {
	seen := map[Date]bool{r.From: true}
	grid := []Date{r.From}
	add := func(d Date) {
		if !seen[d] {
			seen[d] = true
			grid = append(grid, d)
		}
	}
	for _, d := range r.MonthStarts() {
		add(d)
	}
	for _, trn := range trns {
		if trn.Type.IsExternalFlow() && trn.TradeDate.After(r.From) && r.To.After(trn.TradeDate) {
			add(trn.TradeDate)
		}
	}
	if r.To.After(r.From) {
		add(r.To)
	}
	sort.Slice(grid, func(i, j int) bool { return grid[i].Before(grid[j]) })
	return grid
}

// externalFlow is the signed portfolio-currency value of a transaction's
// movement across the portfolio boundary; internal movements are zero.
func externalFlow(trn Trn, currency string) Money {
	sign := trn.Type.flowSign()
	if sign == 0 {
		return M(0, currency)
	}
	amt := trn.TradeAmount.Abs().Convert(trn.contextRate(InPortfolio), currency)
	if sign < 0 {
		return amt.Neg()
	}
	return amt
}
