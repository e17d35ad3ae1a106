package portfolio

import "sort"

// Position is the accumulated state of one asset inside a portfolio, carried
// in the three currency contexts at once. The cash ladder of each settlement
// currency is itself a Position whose asset is a cash asset.
type Position struct {
	Asset Asset          `json:"asset"`
	Qty   QuantityValues `json:"quantityValues"`
	Dates DateValues     `json:"dateValues"`

	Trade     *MoneyValues `json:"moneyValuesTradeCurrency"`
	Base      *MoneyValues `json:"moneyValuesBaseCurrency"`
	Portfolio *MoneyValues `json:"moneyValuesPortfolioCurrency"`
}

// NewPosition creates an empty position. The trade context is denominated in
// the asset's own currency, the other two in the owning portfolio's.
func NewPosition(asset Asset, baseCurrency, portfolioCurrency string) *Position {
	return &Position{
		Asset:     asset,
		Trade:     newMoneyValues(asset.Currency()),
		Base:      newMoneyValues(baseCurrency),
		Portfolio: newMoneyValues(portfolioCurrency),
	}
}

// MoneyValues returns the bucket for one currency context.
func (p *Position) MoneyValues(in In) *MoneyValues {
	switch in {
	case InBase:
		return p.Base
	case InPortfolio:
		return p.Portfolio
	default:
		return p.Trade
	}
}

// IsCash reports whether the position is a settlement-currency ladder.
func (p *Position) IsCash() bool { return p.Asset.IsCash() }

// IsClosed reports a fully disposed position.
func (p *Position) IsClosed() bool { return p.Qty.Total.IsZero() }

// Positions is the keyed set of positions of one portfolio.
type Positions struct {
	byKey             map[string]*Position
	baseCurrency      string
	portfolioCurrency string
}

// NewPositions creates an empty set whose base and portfolio currency
// contexts are fixed for every position it will ever hold.
func NewPositions(baseCurrency, portfolioCurrency string) *Positions {
	return &Positions{
		byKey:             make(map[string]*Position),
		baseCurrency:      baseCurrency,
		portfolioCurrency: portfolioCurrency,
	}
}

// GetOrCreate returns the position for an asset, creating it on first use.
func (ps *Positions) GetOrCreate(asset Asset) *Position {
	key := asset.Key()
	if p, ok := ps.byKey[key]; ok {
		return p
	}
	p := NewPosition(asset, ps.baseCurrency, ps.portfolioCurrency)
	ps.byKey[key] = p
	return p
}

// Get returns the position for an asset key, or nil.
func (ps *Positions) Get(key string) *Position { return ps.byKey[key] }

// Len is the number of positions, cash ladders included.
func (ps *Positions) Len() int { return len(ps.byKey) }

// Sorted returns positions ordered by asset key, cash ladders last. Stable
// output keeps reports and snapshots diffable.
func (ps *Positions) Sorted() []*Position {
	out := make([]*Position, 0, len(ps.byKey))
	for _, p := range ps.byKey {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsCash() != out[j].IsCash() {
			return !out[i].IsCash()
		}
		return out[i].Asset.Key() < out[j].Asset.Key()
	})
	return out
}

// Securities returns the non-cash positions, sorted.
func (ps *Positions) Securities() []*Position {
	var out []*Position
	for _, p := range ps.Sorted() {
		if !p.IsCash() {
			out = append(out, p)
		}
	}
	return out
}

// CashLadders returns the cash positions, sorted by currency.
func (ps *Positions) CashLadders() []*Position {
	var out []*Position
	for _, p := range ps.Sorted() {
		if p.IsCash() {
			out = append(out, p)
		}
	}
	return out
}

// Totals aggregates the valuation figures of every position in one currency
// context. Only the base and portfolio contexts are uniform enough to sum;
// summing the trade context of a multi-currency book is the caller's mistake.
type Totals struct {
	Currency       string  `json:"currency"`
	MarketValue    Money   `json:"marketValue"`
	Cash           Money   `json:"cash"`
	CostBasis      Money   `json:"costBasis"`
	RealizedGain   Money   `json:"realizedGain"`
	UnrealizedGain Money   `json:"unrealizedGain"`
	GainOnDay      Money   `json:"gainOnDay"`
	Dividends      Money   `json:"dividends"`
	TotalGain      Money   `json:"totalGain"`
	Total          Money   `json:"total"` // securities market value plus cash
}

// Totals sums the set in one context.
func (ps *Positions) Totals(in In) Totals {
	currency := ps.portfolioCurrency
	if in == InBase {
		currency = ps.baseCurrency
	}
	t := Totals{
		Currency:       currency,
		MarketValue:    M(0, currency),
		Cash:           M(0, currency),
		CostBasis:      M(0, currency),
		RealizedGain:   M(0, currency),
		UnrealizedGain: M(0, currency),
		GainOnDay:      M(0, currency),
		Dividends:      M(0, currency),
		TotalGain:      M(0, currency),
	}
	for _, p := range ps.Sorted() {
		mv := p.MoneyValues(in)
		if p.IsCash() {
			t.Cash = t.Cash.Add(mv.MarketValue)
		} else {
			t.MarketValue = t.MarketValue.Add(mv.MarketValue)
			t.CostBasis = t.CostBasis.Add(mv.CostBasis)
			t.UnrealizedGain = t.UnrealizedGain.Add(mv.UnrealizedGain)
		}
		t.RealizedGain = t.RealizedGain.Add(mv.RealizedGain)
		t.GainOnDay = t.GainOnDay.Add(mv.GainOnDay)
		t.Dividends = t.Dividends.Add(mv.Dividends)
		t.TotalGain = t.TotalGain.Add(mv.TotalGain)
	}
	t.Total = t.MarketValue.Add(t.Cash)
	return t
}
