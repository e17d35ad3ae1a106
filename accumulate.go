package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Accumulator replays transactions into positions using the weighted average
// cost method. It is a pure fold over the transaction sequence: every
// conversion uses the rates recorded on the transaction itself, so replaying
// the same sequence always yields the same book, with no market data access.
//
// Replay order matters. Use AccumulateAll for an unsorted batch.
type Accumulator struct {
	positions *Positions
}

// NewAccumulator creates an accumulator producing positions denominated in
// the portfolio's base and reporting currencies.
func NewAccumulator(p *Portfolio) *Accumulator {
	return &Accumulator{positions: NewPositions(p.Base, p.Currency)}
}

// Positions exposes the accumulated book.
func (a *Accumulator) Positions() *Positions { return a.positions }

// AccumulateAll sorts a batch chronologically and replays it.
func (a *Accumulator) AccumulateAll(trns []Trn) error {
	SortTrns(trns)
	for _, trn := range trns {
		if err := a.Accumulate(trn); err != nil {
			return err
		}
	}
	return nil
}

// Accumulate applies one transaction to the book.
func (a *Accumulator) Accumulate(trn Trn) error {
	if trn.IsNoOp() {
		return nil
	}
	switch trn.Type {
	case Buy:
		a.buy(trn)
	case Sell:
		a.sell(trn)
	case Dividend:
		a.dividend(trn)
	case FxBuy:
		return a.fxBuy(trn)
	case Deposit, Withdrawal, Income, Deduction, Expense:
		a.cashFlow(trn)
	default:
		return fmt.Errorf("accumulate %s on %s: %w", trn.Type, trn.TradeDate, ErrUnsupportedTrnType)
	}
	return nil
}

func (a *Accumulator) buy(trn Trn) {
	pos := a.positions.GetOrCreate(trn.Asset)
	qty := trn.Quantity.Abs()
	newTotal := pos.Qty.Total.Add(qty)

	for _, in := range contexts {
		mv := pos.MoneyValues(in)
		amt := trn.TradeAmount.Abs().Convert(trn.contextRate(in), mv.Currency)
		mv.Purchases = mv.Purchases.Add(amt)
		mv.CostBasis = mv.CostBasis.Add(amt)
		mv.CostValue = mv.CostValue.Add(amt)
		mv.AverageCost = averageCost(mv.CostBasis, newTotal)
	}

	pos.Qty.Total = newTotal
	pos.Qty.Purchased = pos.Qty.Purchased.Add(qty)
	pos.Qty.Precision = widen(pos.Qty.Precision, qty)
	pos.Dates.update(trn.TradeDate, true)

	a.settle(trn, false)
}

func (a *Accumulator) sell(trn Trn) {
	pos := a.positions.GetOrCreate(trn.Asset)
	qty := trn.Quantity.Abs()
	proportion := disposalProportion(qty, pos.Qty.Total)
	newTotal := pos.Qty.Total.Sub(qty)

	for _, in := range contexts {
		mv := pos.MoneyValues(in)
		proceeds := trn.TradeAmount.Abs().Convert(trn.contextRate(in), mv.Currency)
		costOfSold := mv.CostBasis.Scale(proportion)
		mv.Sells = mv.Sells.Add(proceeds)
		mv.RealizedGain = mv.RealizedGain.Add(proceeds.Sub(costOfSold))
		mv.CostBasis = mv.CostBasis.Sub(costOfSold)
		mv.CostValue = mv.CostValue.Sub(costOfSold)
		mv.AverageCost = averageCost(mv.CostBasis, newTotal)
	}

	pos.Qty.Total = newTotal
	pos.Qty.Sold = pos.Qty.Sold.Add(qty)
	pos.Qty.Precision = widen(pos.Qty.Precision, qty)
	pos.Dates.update(trn.TradeDate, true)

	a.settle(trn, true)
}

func (a *Accumulator) dividend(trn Trn) {
	pos := a.positions.GetOrCreate(trn.Asset)
	for _, in := range contexts {
		mv := pos.MoneyValues(in)
		amt := trn.TradeAmount.Abs().Convert(trn.contextRate(in), mv.Currency)
		mv.Dividends = mv.Dividends.Add(amt)
	}
	pos.Dates.update(trn.TradeDate, false)

	a.settle(trn, true)
}

// fxBuy converts settlement cash into another currency: the source ladder is
// debited at proportional cost, the bought ladder is credited at the
// transaction's own rates.
func (a *Accumulator) fxBuy(trn Trn) error {
	if !trn.Asset.IsCash() {
		return fmt.Errorf("%s into non-cash asset %s on %s: %w",
			trn.Type, trn.Asset.Key(), trn.TradeDate, ErrUnsupportedTrnType)
	}
	a.creditCash(trn.Asset, trn.TradeAmount.Abs(), trn)
	if !trn.CashAsset.IsZero() {
		a.debitCash(trn.CashAsset, trn.cashMovement(), trn)
	}
	return nil
}

// cashFlow moves external money in or out of a single cash ladder.
func (a *Accumulator) cashFlow(trn Trn) {
	ladder := trn.CashAsset
	if ladder.IsZero() {
		ladder = NewCashAsset(trn.cashCurrency())
	}
	if trn.Type.creditsCash() {
		a.creditCash(ladder, trn.cashMovement(), trn)
	} else {
		a.debitCash(ladder, trn.cashMovement(), trn)
	}
}

// settle applies the settlement leg of a security transaction to its cash
// ladder. Transactions with no settlement information leave cash untouched.
func (a *Accumulator) settle(trn Trn, credit bool) {
	if trn.CashAsset.IsZero() && trn.CashAmount.IsZero() {
		return
	}
	ladder := trn.CashAsset
	if ladder.IsZero() {
		ladder = NewCashAsset(trn.cashCurrency())
	}
	if credit {
		a.creditCash(ladder, trn.cashMovement(), trn)
	} else {
		a.debitCash(ladder, trn.cashMovement(), trn)
	}
}

// creditCash adds settlement currency units to a ladder. A credit is a
// purchase of currency units at par, so the ladder's average cost in its own
// currency stays exactly 1.
func (a *Accumulator) creditCash(asset Asset, amount Money, trn Trn) {
	pos := a.positions.GetOrCreate(asset)
	units := Q(amount.Amount())
	newTotal := pos.Qty.Total.Add(units)

	for _, in := range contexts {
		mv := pos.MoneyValues(in)
		amt := amount.Convert(ladderRate(trn, amount, in), mv.Currency)
		mv.CostBasis = mv.CostBasis.Add(amt)
		mv.CostValue = mv.CostValue.Add(amt)
		mv.AverageCost = averageCost(mv.CostBasis, newTotal)
	}

	pos.Qty.Total = newTotal
	pos.Qty.Purchased = pos.Qty.Purchased.Add(units)
	pos.Qty.Precision = widen(pos.Qty.Precision, units)
	pos.Dates.update(trn.TradeDate, false)
}

// debitCash removes settlement currency units at proportional cost. The
// difference between the outgoing value and the removed cost surfaces as
// realized gain, which on a foreign-currency ladder is the realized FX
// movement. A full debit removes the entire cost basis, leaving the closed
// ladder with an average cost of exactly zero.
func (a *Accumulator) debitCash(asset Asset, amount Money, trn Trn) {
	pos := a.positions.GetOrCreate(asset)
	units := Q(amount.Amount())
	proportion := disposalProportion(units, pos.Qty.Total)
	newTotal := pos.Qty.Total.Sub(units)

	for _, in := range contexts {
		mv := pos.MoneyValues(in)
		amt := amount.Convert(ladderRate(trn, amount, in), mv.Currency)
		costOut := mv.CostBasis.Scale(proportion)
		mv.RealizedGain = mv.RealizedGain.Add(amt.Sub(costOut))
		mv.CostBasis = mv.CostBasis.Sub(costOut)
		mv.CostValue = mv.CostValue.Sub(costOut)
		mv.AverageCost = averageCost(mv.CostBasis, newTotal)
	}

	pos.Qty.Total = newTotal
	pos.Qty.Sold = pos.Qty.Sold.Add(units)
	pos.Qty.Precision = widen(pos.Qty.Precision, units)
	pos.Dates.update(trn.TradeDate, false)
}

// ladderRate converts a ladder movement into a position context. The amount
// is denominated either in the transaction's trade currency (an FX purchase
// credits what was bought) or in its settlement currency (everything else),
// and the recorded trade rates are composed accordingly. In the trade context
// of a cash ladder the amount is already in the ladder currency.
func ladderRate(trn Trn, amount Money, in In) decimal.Decimal {
	if in == InTrade {
		return decimal.NewFromInt(1)
	}
	if amount.Currency() == trn.TradeAmount.Currency() {
		return trn.contextRate(in)
	}
	return trn.contextRate(in).Div(one(trn.TradeCashRate))
}

// averageCost is costBasis over total units; a closed position costs nothing.
func averageCost(costBasis Money, total Quantity) Money {
	if total.IsZero() {
		return M(0, costBasis.Currency())
	}
	return costBasis.Div(total)
}

// disposalProportion is the fraction of the held cost being disposed,
// clamped to [0, 1]. Disposing from an empty position removes no cost.
func disposalProportion(qty, total Quantity) decimal.Decimal {
	if total.IsZero() || !total.IsPositive() {
		return decimal.Zero
	}
	p := qty.Amount().Div(total.Amount())
	if p.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return p
}

// widen grows the decimal precision to cover a quantity's exponent.
func widen(p int32, q Quantity) int32 {
	if e := -q.Amount().Exponent(); e > p {
		return e
	}
	return p
}
