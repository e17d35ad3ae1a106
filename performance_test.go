package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// sliceTrns is an in-memory TrnSource.
type sliceTrns []Trn

func (s sliceTrns) Trns(_ context.Context, _ uuid.UUID, r Range) ([]Trn, error) {
	var out []Trn
	for _, trn := range s {
		if r.Contains(trn.TradeDate) {
			out = append(out, trn)
		}
	}
	return out, nil
}

// performanceFixture: 1000 USD deposited and fully invested on Jan 1, the
// security then gains 10% in each of the two following months.
func performanceFixture(t *testing.T) (*Portfolio, sliceTrns, *MarketData) {
	t.Helper()
	p := testPortfolio(t, "USD", "USD")
	one := decimal.NewFromInt(1)
	acme := NewAsset("ACME", Market{Code: "NYSE", Currency: "USD"})

	trns := sliceTrns{
		{Type: Deposit, TradeDate: NewDate(2025, time.January, 1), CashAsset: NewCashAsset("USD"),
			TradeAmount: M(1000, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one},
		{Type: Buy, TradeDate: NewDate(2025, time.January, 1), Asset: acme, CashAsset: NewCashAsset("USD"),
			Quantity: Q(10), TradeAmount: M(1000, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one},
	}

	md := NewMarketData()
	md.AddPrice(acme, PriceData{Date: NewDate(2025, time.January, 1), Close: decimal.NewFromInt(100), Currency: "USD"})
	md.AddPrice(acme, PriceData{Date: NewDate(2025, time.February, 1), Close: decimal.NewFromInt(110), Currency: "USD"})
	md.AddPrice(acme, PriceData{Date: NewDate(2025, time.March, 1), Close: decimal.NewFromInt(121), Currency: "USD"})
	return p, trns, md
}

func performanceRange() Range {
	return NewRange(NewDate(2025, time.January, 1), NewDate(2025, time.March, 1))
}

func TestPerformance_GeometricLinking(t *testing.T) {
	p, trns, md := performanceFixture(t)
	service := NewPerformanceService(trns, md, &stubFx{}, zerolog.Nop())

	perf, err := service.Performance(context.Background(), p, performanceRange())
	if err != nil {
		t.Fatalf("Performance() failed: %v", err)
	}

	if len(perf.Snapshots) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(perf.Snapshots))
	}
	assertAmount(t, "value at start", perf.Snapshots[0].MarketValue, "1000")
	assertAmount(t, "value at Feb", perf.Snapshots[1].MarketValue, "1100")
	assertAmount(t, "value at end", perf.Snapshots[2].MarketValue, "1210")

	if !perf.Snapshots[1].Return.Equal(Percent(10)) {
		t.Errorf("Feb return = %s, want 10.00%%", perf.Snapshots[1].Return)
	}
	if !perf.Snapshots[2].Return.Equal(Percent(10)) {
		t.Errorf("Mar return = %s, want 10.00%%", perf.Snapshots[2].Return)
	}
	if !perf.Snapshots[2].Growth.Equal(decimal.NewFromInt(1210)) {
		t.Errorf("growth = %s, want 1210", perf.Snapshots[2].Growth)
	}
	if !perf.Snapshots[2].CumulativeReturn.Equal(Percent(21)) {
		t.Errorf("cumulative return = %s, want 21.00%%", perf.Snapshots[2].CumulativeReturn)
	}
	assertAmount(t, "contributions", perf.Snapshots[2].NetContributions, "1000")
	assertAmount(t, "dividends", perf.Snapshots[2].Dividends, "0")
	if !perf.TotalReturn.Equal(Percent(21)) {
		t.Errorf("total return = %s, want 21.00%%", perf.TotalReturn)
	}
}

// A dividend is investment income, not a contribution: it lifts the return
// and the cumulative dividend series, never the net contributions.
func TestPerformance_DividendsAccumulate(t *testing.T) {
	p, trns, md := performanceFixture(t)
	one := decimal.NewFromInt(1)
	acme := NewAsset("ACME", Market{Code: "NYSE", Currency: "USD"})
	trns = append(trns, Trn{
		Type: Dividend, TradeDate: NewDate(2025, time.February, 15), Asset: acme, CashAsset: NewCashAsset("USD"),
		TradeAmount: M(50, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one,
	})
	service := NewPerformanceService(trns, md, &stubFx{}, zerolog.Nop())

	perf, err := service.Performance(context.Background(), p, performanceRange())
	if err != nil {
		t.Fatalf("Performance() failed: %v", err)
	}

	// dividends are internal, so the grid stays at the month starts
	if len(perf.Snapshots) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(perf.Snapshots))
	}
	last := perf.Snapshots[2]
	assertAmount(t, "value at end", last.MarketValue, "1260")
	assertAmount(t, "net flow", last.NetFlow, "0")
	assertAmount(t, "contributions", last.NetContributions, "1000")
	assertAmount(t, "dividends", last.Dividends, "50")
	if !perf.TotalReturn.Equal(Percent(26)) {
		t.Errorf("total return = %s, want 26.00%%", perf.TotalReturn)
	}
}

// A deposit cuts its own sub-period: the flow itself earns 0% on arrival,
// and the following sub-period carries the idle cash in its base.
func TestPerformance_ExternalFlowIsNeutral(t *testing.T) {
	p, trns, md := performanceFixture(t)
	one := decimal.NewFromInt(1)
	trns = append(trns, Trn{
		Type: Deposit, TradeDate: NewDate(2025, time.February, 15), CashAsset: NewCashAsset("USD"),
		TradeAmount: M(500, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one,
	})
	service := NewPerformanceService(trns, md, &stubFx{}, zerolog.Nop())

	perf, err := service.Performance(context.Background(), p, performanceRange())
	if err != nil {
		t.Fatalf("Performance() failed: %v", err)
	}

	if len(perf.Snapshots) != 4 {
		t.Fatalf("got %d snapshots, want 4 (flow date cuts the grid)", len(perf.Snapshots))
	}

	// Feb 15: holdings still at the Feb 1 close, plus the fresh 500 cash.
	flow := perf.Snapshots[2]
	assertAmount(t, "value at flow date", flow.MarketValue, "1600")
	assertAmount(t, "net flow", flow.NetFlow, "500")
	if !flow.Return.Equal(Percent(0)) {
		t.Errorf("flow-date return = %s, want 0.00%%", flow.Return)
	}

	// Mar 1: 110 gained on a 1600 base, the idle cash drags the return.
	last := perf.Snapshots[3]
	assertAmount(t, "value at end", last.MarketValue, "1710")
	if !last.Return.Equal(Percent(6.875)) {
		t.Errorf("Mar return = %s, want 6.875%%", last.Return)
	}
	if !last.Growth.Equal(decimal.RequireFromString("1175.625")) {
		t.Errorf("growth = %s, want 1175.625", last.Growth)
	}
	if !perf.TotalReturn.Equal(Percent(17.5625)) {
		t.Errorf("total return = %s, want 17.5625%%", perf.TotalReturn)
	}
}

// A withdrawal is the mirrored case: money leaves at its own grid date with a
// 0% sub-period, and later sub-periods run on the smaller base.
func TestPerformance_WithdrawalIsNeutral(t *testing.T) {
	p, trns, md := performanceFixture(t)
	one := decimal.NewFromInt(1)
	trns = append(trns, Trn{
		Type: Deposit, TradeDate: NewDate(2025, time.January, 1), CashAsset: NewCashAsset("USD"),
		TradeAmount: M(300, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one,
	}, Trn{
		Type: Withdrawal, TradeDate: NewDate(2025, time.February, 10), CashAsset: NewCashAsset("USD"),
		TradeAmount: M(200, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one,
	})
	service := NewPerformanceService(trns, md, &stubFx{}, zerolog.Nop())

	perf, err := service.Performance(context.Background(), p, performanceRange())
	if err != nil {
		t.Fatalf("Performance() failed: %v", err)
	}

	if len(perf.Snapshots) != 4 {
		t.Fatalf("got %d snapshots, want 4", len(perf.Snapshots))
	}
	flow := perf.Snapshots[2]
	assertAmount(t, "value at flow date", flow.MarketValue, "1200")
	assertAmount(t, "net flow", flow.NetFlow, "-200")
	if !flow.Return.Equal(Percent(0)) {
		t.Errorf("flow-date return = %s, want 0.00%%", flow.Return)
	}
	// idle cash dilutes the later sub-periods but the flows themselves are
	// stripped, so the return stays below the pure security return
	last := perf.Snapshots[3]
	if last.Return >= Percent(10) {
		t.Errorf("Mar return = %s, want below the pure security return", last.Return)
	}
	for _, snap := range perf.Snapshots {
		if snap.MarketValue.IsNegative() {
			t.Errorf("value on %s is negative", snap.Date)
		}
	}
}

func TestPerformance_EmptyLedger(t *testing.T) {
	p := testPortfolio(t, "USD", "USD")
	service := NewPerformanceService(sliceTrns{}, NewMarketData(), &stubFx{}, zerolog.Nop())

	perf, err := service.Performance(context.Background(), p, performanceRange())
	if err != nil {
		t.Fatalf("Performance() failed: %v", err)
	}
	if len(perf.Snapshots) != 0 {
		t.Errorf("got %d snapshots, want none", len(perf.Snapshots))
	}
	if !perf.TotalReturn.Equal(Percent(0)) {
		t.Errorf("total return = %s, want 0", perf.TotalReturn)
	}
}

// An asset whose quotes begin after the range start must not sink the whole
// series: dates before its first observation simply omit it.
func TestPerformance_MissingQuoteOmitsPosition(t *testing.T) {
	p, trns, md := performanceFixture(t)
	one := decimal.NewFromInt(1)
	late := NewAsset("LATE", Market{Code: "NYSE", Currency: "USD"})
	trns = append(trns, Trn{
		Type: Deposit, TradeDate: NewDate(2025, time.January, 1), CashAsset: NewCashAsset("USD"),
		TradeAmount: M(500, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one,
	}, Trn{
		Type: Buy, TradeDate: NewDate(2025, time.January, 1), Asset: late, CashAsset: NewCashAsset("USD"),
		Quantity: Q(10), TradeAmount: M(500, "USD"), TradeBaseRate: one, TradeCashRate: one, TradePortfolioRate: one,
	})
	md.AddPrice(late, PriceData{Date: NewDate(2025, time.February, 10), Close: decimal.NewFromInt(60), Currency: "USD"})

	service := NewPerformanceService(trns, md, &stubFx{}, zerolog.Nop())
	perf, err := service.Performance(context.Background(), p, performanceRange())
	if err != nil {
		t.Fatalf("Performance() failed: %v", err)
	}

	if len(perf.Snapshots) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(perf.Snapshots))
	}
	assertAmount(t, "value at start", perf.Snapshots[0].MarketValue, "1000")
	assertAmount(t, "value at Feb", perf.Snapshots[1].MarketValue, "1100")
	// from Feb 10 the second position is priced: 1210 + 10 x 60
	assertAmount(t, "value at end", perf.Snapshots[2].MarketValue, "1810")
}

// FX conversion during the grid walk reads the prefetched rate history, so a
// source that only answers range queries is enough.
func TestPerformance_PrefetchedFxConversion(t *testing.T) {
	p := testPortfolio(t, "USD", "USD")
	rate := decimal.RequireFromString("1.10")
	one := decimal.NewFromInt(1)
	sap := NewAsset("SAP", Market{Code: "XETRA", Currency: "EUR"})
	trns := sliceTrns{
		{Type: Buy, TradeDate: NewDate(2025, time.January, 1), Asset: sap,
			Quantity: Q(10), TradeAmount: M(1000, "EUR"),
			TradeBaseRate: rate, TradeCashRate: one, TradePortfolioRate: rate},
	}
	md := NewMarketData()
	md.AddPrice(sap, PriceData{Date: NewDate(2025, time.January, 1), Close: decimal.NewFromInt(100), Currency: "EUR"})

	fx := &stubFx{history: []FxObservation{
		{Pair: NewCurrencyPair("EUR", "USD"), Date: NewDate(2025, time.January, 1), Rate: rate},
	}}
	service := NewPerformanceService(trns, md, fx, zerolog.Nop())

	perf, err := service.Performance(context.Background(), p, performanceRange())
	if err != nil {
		t.Fatalf("Performance() failed: %v", err)
	}

	// 10 x 100 EUR at the prefetched 1.10 rate, flat across the range
	assertAmount(t, "value at start", perf.Snapshots[0].MarketValue, "1100")
	assertAmount(t, "value at end", perf.Snapshots[len(perf.Snapshots)-1].MarketValue, "1100")
	if !perf.TotalReturn.Equal(Percent(0)) {
		t.Errorf("total return = %s, want 0", perf.TotalReturn)
	}
}
