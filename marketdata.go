package portfolio

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MarketData is an in-memory PriceSource and FxSource backed by per-asset
// histories. It serves as the working set for valuation runs: remote sources
// fill it once, valuations then read as-of quotes without further I/O.
//
// Safe for concurrent use.
type MarketData struct {
	mu     sync.RWMutex
	prices map[string]*History[PriceData]        // by asset key
	rates  map[IsoCurrencyPair]*History[decimal.Decimal]
}

// NewMarketData creates an empty market data set.
func NewMarketData() *MarketData {
	return &MarketData{
		prices: make(map[string]*History[PriceData]),
		rates:  make(map[IsoCurrencyPair]*History[decimal.Decimal]),
	}
}

// AddPrice records a close observation for an asset.
func (m *MarketData) AddPrice(asset Asset, p PriceData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.prices[asset.Key()]
	if !ok {
		h = &History[PriceData]{}
		m.prices[asset.Key()] = h
	}
	if p.Currency == "" {
		p.Currency = asset.Currency()
	}
	h.Append(p.Date, p)
}

// AddRate records an FX observation. The pair is canonical: the reciprocal
// direction is derived on lookup.
func (m *MarketData) AddRate(on Date, from, to string, rate decimal.Decimal) {
	pair := NewCurrencyPair(from, to)
	r := rate
	// store in canonical direction
	if pair.From() != from && !rate.IsZero() {
		r = decimal.NewFromInt(1).Div(rate)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.rates[pair]
	if !ok {
		h = &History[decimal.Decimal]{}
		m.rates[pair] = h
	}
	h.Append(on, r)
}

// Price returns the close for an asset as of a date, falling back to the
// nearest prior observation.
func (m *MarketData) Price(_ context.Context, asset Asset, on Date) (PriceData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.prices[asset.Key()]
	if !ok {
		return PriceData{}, fmt.Errorf("%w: no quotes for %s", ErrPriceFetch, asset.Key())
	}
	p, ok := h.ValueAsOf(on)
	if !ok {
		return PriceData{}, fmt.Errorf("%w: no quote for %s on or before %s", ErrPriceFetch, asset.Key(), on)
	}
	return p, nil
}

// Prices returns the closes for an asset inside a range, ascending.
func (m *MarketData) Prices(_ context.Context, asset Asset, r Range) ([]PriceData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.prices[asset.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: no quotes for %s", ErrPriceFetch, asset.Key())
	}
	var out []PriceData
	for on, p := range h.Values() {
		if r.Contains(on) {
			out = append(out, p)
		}
	}
	return out, nil
}

// RateHistory returns the recorded observations for pairs inside a range.
func (m *MarketData) RateHistory(_ context.Context, r Range, pairs ...IsoCurrencyPair) ([]FxObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []FxObservation
	for _, pair := range pairs {
		h, ok := m.rates[pair]
		if !ok {
			continue
		}
		for on, rate := range h.Values() {
			if r.Contains(on) {
				out = append(out, FxObservation{Pair: pair, Date: on, Rate: rate})
			}
		}
	}
	return out, nil
}

// Rates resolves pairs into a table as of a date. Unknown pairs are omitted.
func (m *MarketData) Rates(_ context.Context, on Date, pairs ...IsoCurrencyPair) (*RateTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	table := NewRateTable()
	for _, pair := range pairs {
		h, ok := m.rates[pair]
		if !ok {
			continue
		}
		rate, ok := h.ValueAsOf(on)
		if !ok {
			continue
		}
		table.Add(FxRate{From: pair.From(), To: pair.To(), Rate: rate})
	}
	return table, nil
}
