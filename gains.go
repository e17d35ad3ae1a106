package portfolio

import "github.com/shopspring/decimal"

// Revalue applies a close observation to every currency context of a
// security position. The fx rates convert the trade currency into the base
// and portfolio contexts; a missing rate must be substituted by the caller
// before the call.
//
// A zero close is treated as an absent quote: the market value and the day's
// movement recompute to zero. Cost figures and quantity are never touched by
// pricing, only by accumulation, so a later pass with a real quote recovers
// the position intact.
func (p *Position) Revalue(price PriceData, rates ContextRates) {
	for _, in := range contexts {
		mv := p.MoneyValues(in)
		fx := rates.For(in)
		mv.FxRate = fx

		if price.Close.IsZero() {
			mv.Price = M(0, mv.Currency)
			mv.PreviousClose = M(0, mv.Currency)
			mv.MarketValue = M(0, mv.Currency)
			mv.UnrealizedGain = M(0, mv.Currency)
			mv.GainOnDay = M(0, mv.Currency)
		} else {
			mv.Price = M(price.Close, price.Currency).Convert(fx, mv.Currency)
			mv.PreviousClose = M(price.PreviousClose, price.Currency).Convert(fx, mv.Currency)
			mv.MarketValue = mv.Price.Mul(p.Qty.Total)
			mv.UnrealizedGain = mv.MarketValue.Sub(mv.CostValue)
			if price.PreviousClose.IsZero() {
				mv.GainOnDay = M(0, mv.Currency)
			} else {
				mv.GainOnDay = mv.Price.Sub(mv.PreviousClose).Mul(p.Qty.Total)
			}
		}
		mv.TotalGain = mv.RealizedGain.Add(mv.UnrealizedGain).Add(mv.Dividends)
	}
}

// RevalueCash marks a cash ladder to market. One unit of a cash asset is
// always worth one unit of its currency, so only the FX conversion into the
// base and portfolio contexts moves.
func (p *Position) RevalueCash(rates ContextRates) {
	for _, in := range contexts {
		mv := p.MoneyValues(in)
		fx := rates.For(in)
		mv.FxRate = fx
		mv.Price = M(1, p.Asset.Currency()).Convert(fx, mv.Currency)
		mv.MarketValue = mv.Price.Mul(p.Qty.Total)
		mv.UnrealizedGain = mv.MarketValue.Sub(mv.CostValue)
		mv.TotalGain = mv.RealizedGain.Add(mv.UnrealizedGain).Add(mv.Dividends)
	}
}

// ContextRates holds the multipliers from an asset's trade currency into the
// base and portfolio currencies. The trade context is the identity.
type ContextRates struct {
	Base      decimal.Decimal
	Portfolio decimal.Decimal
}

// IdentityRates is used when the trade currency already matches both targets.
func IdentityRates() ContextRates {
	return ContextRates{Base: decimal.NewFromInt(1), Portfolio: decimal.NewFromInt(1)}
}

// For returns the multiplier for a context; an unset rate is the identity.
func (r ContextRates) For(in In) decimal.Decimal {
	switch in {
	case InBase:
		return one(r.Base)
	case InPortfolio:
		return one(r.Portfolio)
	default:
		return decimal.NewFromInt(1)
	}
}
