package portfolio

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// testPortfolio creates a portfolio for accumulation tests.
func testPortfolio(t *testing.T, currency, base string) *Portfolio {
	t.Helper()
	p, err := NewPortfolio("TEST", currency, base)
	if err != nil {
		t.Fatalf("NewPortfolio() failed: %v", err)
	}
	return &p
}

// assertAmount compares a Money amount against an expected decimal string.
func assertAmount(t *testing.T, name string, got Money, want string) {
	t.Helper()
	w, err := decimal.NewFromString(want)
	if err != nil {
		t.Fatalf("bad expectation %q: %v", want, err)
	}
	if !got.Amount().Equal(w) {
		t.Errorf("%s = %s, want %s", name, got.Amount(), want)
	}
}

func TestAccumulator_BuySellAverageCost(t *testing.T) {
	p := testPortfolio(t, "USD", "USD")
	acc := NewAccumulator(p)
	nyse := Market{Code: "NYSE", Currency: "USD"}
	aapl := NewAsset("AAPL", nyse)
	one := decimal.NewFromInt(1)

	trns := []Trn{
		{Type: Deposit, TradeDate: NewDate(2025, time.January, 2), CashAsset: NewCashAsset("USD"),
			TradeAmount: M(3000, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one},
		{Type: Buy, TradeDate: NewDate(2025, time.January, 10), Asset: aapl, CashAsset: NewCashAsset("USD"),
			Quantity: Q(10), TradeAmount: M(1000, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one},
		{Type: Buy, TradeDate: NewDate(2025, time.February, 10), Asset: aapl, CashAsset: NewCashAsset("USD"),
			Quantity: Q(10), TradeAmount: M(2000, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one},
	}
	if err := acc.AccumulateAll(trns); err != nil {
		t.Fatalf("AccumulateAll() failed: %v", err)
	}

	pos := acc.Positions().Get(aapl.Key())
	if pos == nil {
		t.Fatal("no position for AAPL")
	}
	if !pos.Qty.Total.Equal(Q(20)) {
		t.Errorf("quantity = %s, want 20", pos.Qty.Total)
	}
	assertAmount(t, "costBasis", pos.Trade.CostBasis, "3000")
	assertAmount(t, "costValue", pos.Trade.CostValue, "3000")
	assertAmount(t, "averageCost", pos.Trade.AverageCost, "150")

	// partial sale at proportional cost
	sell := Trn{Type: Sell, TradeDate: NewDate(2025, time.March, 1), Asset: aapl, CashAsset: NewCashAsset("USD"),
		Quantity: Q(5), TradeAmount: M(900, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one}
	if err := acc.Accumulate(sell); err != nil {
		t.Fatalf("Accumulate(sell) failed: %v", err)
	}
	assertAmount(t, "realizedGain", pos.Trade.RealizedGain, "150")
	assertAmount(t, "costBasis", pos.Trade.CostBasis, "2250")
	if !pos.Qty.Total.Equal(Q(15)) {
		t.Errorf("quantity = %s, want 15", pos.Qty.Total)
	}

	// full close leaves the cost state exactly empty
	close := Trn{Type: Sell, TradeDate: NewDate(2025, time.April, 1), Asset: aapl, CashAsset: NewCashAsset("USD"),
		Quantity: Q(15), TradeAmount: M(3000, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one}
	if err := acc.Accumulate(close); err != nil {
		t.Fatalf("Accumulate(close) failed: %v", err)
	}
	if !pos.IsClosed() {
		t.Error("position should be closed")
	}
	assertAmount(t, "costBasis", pos.Trade.CostBasis, "0")
	assertAmount(t, "costValue", pos.Trade.CostValue, "0")
	assertAmount(t, "averageCost", pos.Trade.AverageCost, "0")
	assertAmount(t, "realizedGain", pos.Trade.RealizedGain, "900")
	assertAmount(t, "purchases", pos.Trade.Purchases, "3000")
	assertAmount(t, "sells", pos.Trade.Sells, "3900")

	// settlement cash tracks every leg
	usd := acc.Positions().Get(NewCashAsset("USD").Key())
	if usd == nil {
		t.Fatal("no USD cash ladder")
	}
	if !usd.Qty.Total.Equal(Q(3900)) {
		t.Errorf("cash balance = %s, want 3900", usd.Qty.Total)
	}
}

func TestAccumulator_MultiCurrencyContexts(t *testing.T) {
	p := testPortfolio(t, "USD", "CHF")
	acc := NewAccumulator(p)
	xetra := Market{Code: "XETRA", Currency: "EUR"}
	sap := NewAsset("SAP", xetra)

	buy := Trn{
		Type: Buy, TradeDate: NewDate(2025, time.May, 5),
		Asset: sap, CashAsset: NewCashAsset("EUR"),
		Quantity:           Q(10),
		TradeAmount:        M(1000, "EUR"),
		TradeBaseRate:      decimal.NewFromFloat(0.95), // EUR -> CHF
		TradeCashRate:      decimal.NewFromInt(1),
		TradePortfolioRate: decimal.NewFromFloat(1.10), // EUR -> USD
	}
	if err := acc.Accumulate(buy); err != nil {
		t.Fatalf("Accumulate() failed: %v", err)
	}

	pos := acc.Positions().Get(sap.Key())
	assertAmount(t, "trade costBasis", pos.Trade.CostBasis, "1000")
	assertAmount(t, "base costBasis", pos.Base.CostBasis, "950")
	assertAmount(t, "portfolio costBasis", pos.Portfolio.CostBasis, "1100")
	if got := pos.Trade.CostBasis.Currency(); got != "EUR" {
		t.Errorf("trade currency = %s, want EUR", got)
	}
	if got := pos.Portfolio.CostBasis.Currency(); got != "USD" {
		t.Errorf("portfolio currency = %s, want USD", got)
	}
}

// A chain of full conversions across three currencies must leave every closed
// ladder with exactly zero cost, not a rounding residue.
func TestAccumulator_CashLadderFullConversion(t *testing.T) {
	p := testPortfolio(t, "USD", "USD")
	acc := NewAccumulator(p)
	one := decimal.NewFromInt(1)

	nzd := decimal.RequireFromString("12000")
	sgd := decimal.RequireFromString("11365.32")
	usd := decimal.RequireFromString("8359.43")

	trns := []Trn{
		{
			Type: Deposit, TradeDate: NewDate(2025, time.June, 2),
			CashAsset:   NewCashAsset("NZD"),
			TradeAmount: M(nzd, "NZD"),
			TradeBaseRate: decimal.NewFromFloat(0.60), TradeCashRate: one,
			TradePortfolioRate: decimal.NewFromFloat(0.60),
		},
		{
			Type: FxBuy, TradeDate: NewDate(2025, time.June, 3),
			Asset:       NewCashAsset("SGD"),
			CashAsset:   NewCashAsset("NZD"),
			TradeAmount: M(sgd, "SGD"),
			CashAmount:  M(nzd, "NZD"),
			TradeBaseRate:      decimal.NewFromFloat(0.74),
			TradeCashRate:      nzd.Div(sgd),
			TradePortfolioRate: decimal.NewFromFloat(0.74),
		},
		{
			Type: FxBuy, TradeDate: NewDate(2025, time.June, 4),
			Asset:       NewCashAsset("USD"),
			CashAsset:   NewCashAsset("SGD"),
			TradeAmount: M(usd, "USD"),
			CashAmount:  M(sgd, "SGD"),
			TradeBaseRate:      one,
			TradeCashRate:      sgd.Div(usd),
			TradePortfolioRate: one,
		},
	}
	if err := acc.AccumulateAll(trns); err != nil {
		t.Fatalf("AccumulateAll() failed: %v", err)
	}

	for _, currency := range []string{"NZD", "SGD"} {
		ladder := acc.Positions().Get(NewCashAsset(currency).Key())
		if ladder == nil {
			t.Fatalf("no %s ladder", currency)
		}
		if !ladder.Qty.Total.IsZero() {
			t.Errorf("%s balance = %s, want 0", currency, ladder.Qty.Total)
		}
		for _, in := range contexts {
			mv := ladder.MoneyValues(in)
			if !mv.CostBasis.IsZero() {
				t.Errorf("%s %s costBasis = %s, want exactly 0", currency, in, mv.CostBasis.Amount())
			}
			if !mv.CostValue.IsZero() {
				t.Errorf("%s %s costValue = %s, want exactly 0", currency, in, mv.CostValue.Amount())
			}
			if !mv.AverageCost.IsZero() {
				t.Errorf("%s %s averageCost = %s, want exactly 0", currency, in, mv.AverageCost.Amount())
			}
		}
	}

	final := acc.Positions().Get(NewCashAsset("USD").Key())
	if !final.Qty.Total.Equal(Q(usd)) {
		t.Errorf("USD balance = %s, want %s", final.Qty.Total, usd)
	}
	assertAmount(t, "USD costBasis", final.Trade.CostBasis, "8359.43")
}

func TestAccumulator_Dividend(t *testing.T) {
	p := testPortfolio(t, "EUR", "EUR")
	acc := NewAccumulator(p)
	nyse := Market{Code: "NYSE", Currency: "USD"}
	ko := NewAsset("KO", nyse)

	div := Trn{
		Type: Dividend, TradeDate: NewDate(2025, time.July, 1),
		Asset: ko, CashAsset: NewCashAsset("USD"),
		TradeAmount:        M(50, "USD"),
		TradeBaseRate:      decimal.NewFromFloat(0.90),
		TradeCashRate:      decimal.NewFromInt(1),
		TradePortfolioRate: decimal.NewFromFloat(0.90),
	}
	if err := acc.Accumulate(div); err != nil {
		t.Fatalf("Accumulate() failed: %v", err)
	}

	pos := acc.Positions().Get(ko.Key())
	assertAmount(t, "trade dividends", pos.Trade.Dividends, "50")
	assertAmount(t, "portfolio dividends", pos.Portfolio.Dividends, "45")

	ladder := acc.Positions().Get(NewCashAsset("USD").Key())
	if !ladder.Qty.Total.Equal(Q(50)) {
		t.Errorf("cash balance = %s, want 50", ladder.Qty.Total)
	}
}

func TestAccumulator_EdgeCases(t *testing.T) {
	p := testPortfolio(t, "USD", "USD")
	acc := NewAccumulator(p)

	t.Run("unsupported type", func(t *testing.T) {
		err := acc.Accumulate(Trn{Type: "SPLIT", TradeDate: NewDate(2025, time.January, 1), TradeAmount: M(1, "USD")})
		if !errors.Is(err, ErrUnsupportedTrnType) {
			t.Errorf("err = %v, want ErrUnsupportedTrnType", err)
		}
	})

	t.Run("no-op", func(t *testing.T) {
		if err := acc.Accumulate(Trn{Type: "SPLIT", TradeDate: NewDate(2025, time.January, 1)}); err != nil {
			t.Errorf("replaying a no-op should not raise, got %v", err)
		}
	})

	t.Run("sell from empty position removes no cost", func(t *testing.T) {
		one := decimal.NewFromInt(1)
		ghost := NewAsset("GHOST", Market{Code: "NYSE", Currency: "USD"})
		sell := Trn{Type: Sell, TradeDate: NewDate(2025, time.January, 2), Asset: ghost,
			Quantity: Q(5), TradeAmount: M(100, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one}
		if err := acc.Accumulate(sell); err != nil {
			t.Fatalf("Accumulate() failed: %v", err)
		}
		pos := acc.Positions().Get(ghost.Key())
		assertAmount(t, "costBasis", pos.Trade.CostBasis, "0")
		assertAmount(t, "realizedGain", pos.Trade.RealizedGain, "100")
	})
}
