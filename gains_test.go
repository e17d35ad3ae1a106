package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// revalueTestPosition builds a 100-unit position with a 2000 USD cost basis,
// held in a portfolio reporting in EUR.
func revalueTestPosition(t *testing.T) *Position {
	t.Helper()
	p := testPortfolio(t, "EUR", "EUR")
	acc := NewAccumulator(p)
	asset := NewAsset("ACME", Market{Code: "NYSE", Currency: "USD"})
	buy := Trn{
		Type: Buy, TradeDate: NewDate(2025, time.January, 10),
		Asset:              asset,
		Quantity:           Q(100),
		TradeAmount:        M(2000, "USD"),
		TradeBaseRate:      decimal.NewFromFloat(0.20),
		TradeCashRate:      decimal.NewFromInt(1),
		TradePortfolioRate: decimal.NewFromFloat(0.20),
	}
	if err := acc.Accumulate(buy); err != nil {
		t.Fatalf("Accumulate() failed: %v", err)
	}
	return acc.Positions().Get(asset.Key())
}

func TestPosition_Revalue(t *testing.T) {
	pos := revalueTestPosition(t)

	price := PriceData{
		Date:          NewDate(2025, time.February, 3),
		Close:         decimal.NewFromInt(10),
		PreviousClose: decimal.NewFromInt(5),
		Currency:      "USD",
	}
	rates := ContextRates{
		Base:      decimal.NewFromFloat(0.20),
		Portfolio: decimal.NewFromFloat(0.20),
	}
	pos.Revalue(price, rates)

	// trade context, in the asset's own currency
	assertAmount(t, "trade marketValue", pos.Trade.MarketValue, "1000")
	assertAmount(t, "trade unrealizedGain", pos.Trade.UnrealizedGain, "-1000")
	assertAmount(t, "trade gainOnDay", pos.Trade.GainOnDay, "500")
	assertAmount(t, "trade totalGain", pos.Trade.TotalGain, "-1000")

	// portfolio context scales by the fx rate
	assertAmount(t, "portfolio marketValue", pos.Portfolio.MarketValue, "200")
	assertAmount(t, "portfolio unrealizedGain", pos.Portfolio.UnrealizedGain, "-200")
	assertAmount(t, "portfolio gainOnDay", pos.Portfolio.GainOnDay, "100")
	if got := pos.Portfolio.MarketValue.Currency(); got != "EUR" {
		t.Errorf("portfolio currency = %s, want EUR", got)
	}
}

func TestPosition_Revalue_Idempotent(t *testing.T) {
	pos := revalueTestPosition(t)
	price := PriceData{Close: decimal.NewFromInt(10), PreviousClose: decimal.NewFromInt(5), Currency: "USD"}
	rates := ContextRates{Base: decimal.NewFromFloat(0.20), Portfolio: decimal.NewFromFloat(0.20)}

	pos.Revalue(price, rates)
	first := *pos.Portfolio
	pos.Revalue(price, rates)
	if !pos.Portfolio.MarketValue.Equal(first.MarketValue) ||
		!pos.Portfolio.UnrealizedGain.Equal(first.UnrealizedGain) ||
		!pos.Portfolio.GainOnDay.Equal(first.GainOnDay) {
		t.Error("revaluing twice with the same inputs changed the result")
	}
}

// A zero close is corrupt or absent data: the market value goes to zero while
// the cost figures stay put, so the next real quote values the position
// correctly again.
func TestPosition_Revalue_ZeroClose(t *testing.T) {
	pos := revalueTestPosition(t)

	pos.Revalue(PriceData{Currency: "USD"}, IdentityRates())

	assertAmount(t, "trade marketValue", pos.Trade.MarketValue, "0")
	assertAmount(t, "trade unrealizedGain", pos.Trade.UnrealizedGain, "0")
	assertAmount(t, "trade gainOnDay", pos.Trade.GainOnDay, "0")
	assertAmount(t, "trade costBasis", pos.Trade.CostBasis, "2000")
	if !pos.Qty.Total.Equal(Q(100)) {
		t.Errorf("quantity = %s, want 100", pos.Qty.Total)
	}

	// a later pass with a real quote recovers
	pos.Revalue(PriceData{Close: decimal.NewFromInt(10), Currency: "USD"}, IdentityRates())
	assertAmount(t, "recovered marketValue", pos.Trade.MarketValue, "1000")
}

// Without a previous close there is no day-over-day movement to report.
func TestPosition_Revalue_NoPreviousClose(t *testing.T) {
	pos := revalueTestPosition(t)

	pos.Revalue(PriceData{Close: decimal.NewFromInt(10), Currency: "USD"}, IdentityRates())

	assertAmount(t, "trade marketValue", pos.Trade.MarketValue, "1000")
	assertAmount(t, "trade gainOnDay", pos.Trade.GainOnDay, "0")
}

func TestPosition_RevalueCash(t *testing.T) {
	p := testPortfolio(t, "USD", "USD")
	acc := NewAccumulator(p)
	dep := Trn{
		Type: Deposit, TradeDate: NewDate(2025, time.March, 1),
		CashAsset:          NewCashAsset("EUR"),
		TradeAmount:        M(1000, "EUR"),
		TradeBaseRate:      decimal.NewFromFloat(1.05),
		TradeCashRate:      decimal.NewFromInt(1),
		TradePortfolioRate: decimal.NewFromFloat(1.05),
	}
	if err := acc.Accumulate(dep); err != nil {
		t.Fatalf("Accumulate() failed: %v", err)
	}

	ladder := acc.Positions().Get(NewCashAsset("EUR").Key())
	ladder.RevalueCash(ContextRates{
		Base:      decimal.NewFromFloat(1.10),
		Portfolio: decimal.NewFromFloat(1.10),
	})

	assertAmount(t, "trade marketValue", ladder.Trade.MarketValue, "1000")
	assertAmount(t, "portfolio marketValue", ladder.Portfolio.MarketValue, "1100")
	// unrealized FX movement since the deposit
	assertAmount(t, "portfolio unrealizedGain", ladder.Portfolio.UnrealizedGain, "50")
}
