package portfolio

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrnType is the kind of a transaction. Accumulation dispatches on it
// exhaustively: a type outside this set is a business-rule error, never a
// silent no-op.
type TrnType string

const (
	Buy        TrnType = "BUY"
	Sell       TrnType = "SELL"
	FxBuy      TrnType = "FX_BUY" // currency conversion between two cash ladders
	Deposit    TrnType = "DEPOSIT"
	Withdrawal TrnType = "WITHDRAWAL"
	Income     TrnType = "INCOME"
	Deduction  TrnType = "DEDUCTION"
	Expense    TrnType = "EXPENSE"
	Dividend   TrnType = "DIVI"
)

// trnTypes is the closed set of valid types, in declaration order.
var trnTypes = []TrnType{Buy, Sell, FxBuy, Deposit, Withdrawal, Income, Deduction, Expense, Dividend}

// ParseTrnType resolves a string to a known transaction type.
func ParseTrnType(s string) (TrnType, error) {
	for _, t := range trnTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedTrnType, s)
}

// IsExternalFlow reports whether the type moves money across the portfolio
// boundary. Buys and sells merely swap cash for assets and never count.
func (t TrnType) IsExternalFlow() bool {
	switch t {
	case Deposit, Withdrawal, Income, Deduction, Expense:
		return true
	}
	return false
}

// flowSign is +1 for money entering the portfolio, -1 for money leaving it,
// 0 for internal movements.
func (t TrnType) flowSign() int {
	switch t {
	case Deposit, Income:
		return 1
	case Withdrawal, Deduction, Expense:
		return -1
	}
	return 0
}

// creditsCash reports whether the cash leg of the type increases the cash
// ladder balance.
func (t TrnType) creditsCash() bool {
	switch t {
	case Sell, Deposit, Income, Dividend:
		return true
	}
	return false
}

// Trn is one transaction against a portfolio. The three conversion rates are
// resolved once at ingestion time and are immutable: the accumulation layer
// trusts them and never looks rates up again.
type Trn struct {
	ID        uuid.UUID `json:"id,omitempty"`
	Type      TrnType   `json:"trnType"`
	Asset     Asset     `json:"asset"`
	CashAsset Asset     `json:"cashAsset,omitempty"` // settlement currency balance
	TradeDate Date      `json:"tradeDate"`

	Quantity    Quantity `json:"quantity"` // signed
	Price       Money    `json:"price,omitempty"`
	TradeAmount Money    `json:"tradeAmount"`
	CashAmount  Money    `json:"cashAmount,omitempty"`

	TradeBaseRate      decimal.Decimal `json:"tradeBaseRate"`      // trade ccy -> base ccy
	TradeCashRate      decimal.Decimal `json:"tradeCashRate"`      // trade ccy -> settlement ccy
	TradePortfolioRate decimal.Decimal `json:"tradePortfolioRate"` // trade ccy -> portfolio ccy

	Memo string `json:"memo,omitempty"`
}

// one substitutes a missing rate with the identity multiplier.
func one(rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.NewFromInt(1)
	}
	return rate
}

// contextRate returns the recorded trade-currency multiplier for a context.
func (t Trn) contextRate(in In) decimal.Decimal {
	switch in {
	case InBase:
		return one(t.TradeBaseRate)
	case InPortfolio:
		return one(t.TradePortfolioRate)
	default:
		return decimal.NewFromInt(1)
	}
}

// cashCurrency resolves the settlement currency: the cash asset's currency,
// then the cash amount's, then the trade currency.
func (t Trn) cashCurrency() string {
	if !t.CashAsset.IsZero() {
		return t.CashAsset.Currency()
	}
	if t.CashAmount.Currency() != "" {
		return t.CashAmount.Currency()
	}
	return t.TradeAmount.Currency()
}

// cashMovement is the magnitude of the settlement leg: the recorded cash
// amount, or the trade amount converted through the recorded trade/cash rate
// when the cash amount is unset.
func (t Trn) cashMovement() Money {
	if !t.CashAmount.IsZero() {
		return t.CashAmount.Abs()
	}
	return t.TradeAmount.Abs().Convert(one(t.TradeCashRate), t.cashCurrency())
}

// IsNoOp reports whether the transaction carries neither quantity nor money.
// Replaying a no-op must not raise.
func (t Trn) IsNoOp() bool {
	return t.Quantity.IsZero() && t.TradeAmount.IsZero() && t.CashAmount.IsZero()
}

// SortTrns orders transactions by trade date ascending, stable for same-day
// entries. Replay order is load-bearing: accumulation is not commutative.
func SortTrns(trns []Trn) {
	sort.SliceStable(trns, func(i, j int) bool {
		return trns[i].TradeDate.Before(trns[j].TradeDate)
	})
}
