package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tamaki-fs/portfolio"
)

// recordTrn resolves the transaction's conversion rates as of its trade date
// and appends it to the ledger.
func recordTrn(ctx context.Context, trn portfolio.Trn) subcommands.ExitStatus {
	p, err := LoadPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	market, err := MarketData()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	trn.ID = uuid.New()
	resolver := portfolio.NewRateResolver(market, Logger())
	if err := resolver.Resolve(ctx, p, &trn); err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving rates: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := Ledger().Append(p.ID, trn); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Recorded %s on %s\n", trn.Type, trn.TradeDate)
	return subcommands.ExitSuccess
}

// tradeFlags are the flags shared by the buy and sell commands.
type tradeFlags struct {
	date     string
	asset    string
	currency string
	quantity string
	amount   string
	cash     string
	memo     string
}

func (c *tradeFlags) register(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", portfolio.Today().String(), "Trade date")
	f.StringVar(&c.asset, "a", "", "Asset key, CODE:MARKET")
	f.StringVar(&c.currency, "c", "USD", "Trade currency of the asset")
	f.StringVar(&c.quantity, "q", "", "Quantity of units")
	f.StringVar(&c.amount, "amount", "", "Gross trade amount in the trade currency")
	f.StringVar(&c.cash, "cash", "", "Settlement currency, defaults to the trade currency")
	f.StringVar(&c.memo, "memo", "", "Free-form note")
}

// trn builds the common parts of a buy or sell transaction.
func (c *tradeFlags) trn(typ portfolio.TrnType) (portfolio.Trn, error) {
	on, err := portfolio.ParseDate(c.date)
	if err != nil {
		return portfolio.Trn{}, fmt.Errorf("invalid date: %w", err)
	}
	code, market, err := portfolio.ParseAssetKey(c.asset)
	if err != nil {
		return portfolio.Trn{}, err
	}
	qty, err := decimal.NewFromString(c.quantity)
	if err != nil {
		return portfolio.Trn{}, fmt.Errorf("invalid quantity %q: %w", c.quantity, err)
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		return portfolio.Trn{}, fmt.Errorf("invalid amount %q: %w", c.amount, err)
	}
	cashCurrency := c.cash
	if cashCurrency == "" {
		cashCurrency = c.currency
	}
	trn := portfolio.Trn{
		Type:        typ,
		TradeDate:   on,
		Asset:       portfolio.NewAsset(code, portfolio.Market{Code: market, Currency: c.currency}),
		CashAsset:   portfolio.NewCashAsset(cashCurrency),
		Quantity:    portfolio.Q(qty),
		TradeAmount: portfolio.M(amount, c.currency),
		Memo:        c.memo,
	}
	if !qty.IsZero() {
		trn.Price = portfolio.M(amount.Div(qty), c.currency)
	}
	return trn, nil
}

type buyCmd struct{ tradeFlags }

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a security purchase" }
func (*buyCmd) Usage() string {
	return `pk buy -a <CODE:MARKET> -q <quantity> -amount <amount> [-c <currency>] [-cash <currency>] [-d <date>]

  Records a purchase. The amount is the gross amount in the trade currency;
  conversion rates are resolved once, at recording time.
`
}
func (c *buyCmd) SetFlags(f *flag.FlagSet) { c.register(f) }
func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	trn, err := c.trn(portfolio.Buy)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return recordTrn(ctx, trn)
}

type sellCmd struct{ tradeFlags }

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a security sale" }
func (*sellCmd) Usage() string {
	return `pk sell -a <CODE:MARKET> -q <quantity> -amount <amount> [-c <currency>] [-cash <currency>] [-d <date>]

  Records a sale. The realized gain is computed against the weighted average
  cost of the position at replay time.
`
}
func (c *sellCmd) SetFlags(f *flag.FlagSet) { c.register(f) }
func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	trn, err := c.trn(portfolio.Sell)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return recordTrn(ctx, trn)
}

type dividendCmd struct{ tradeFlags }

func (*dividendCmd) Name() string     { return "dividend" }
func (*dividendCmd) Synopsis() string { return "record a dividend payment" }
func (*dividendCmd) Usage() string {
	return `pk dividend -a <CODE:MARKET> -amount <amount> [-c <currency>] [-cash <currency>] [-d <date>]

  Records a dividend paid by a held security into the settlement cash.
`
}
func (c *dividendCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
}
func (c *dividendCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.quantity == "" {
		c.quantity = "0"
	}
	trn, err := c.trn(portfolio.Dividend)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	trn.Price = portfolio.Money{}
	return recordTrn(ctx, trn)
}

// cashFlags are the flags shared by the pure cash commands.
type cashFlags struct {
	date     string
	currency string
	amount   string
	memo     string
}

func (c *cashFlags) register(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", portfolio.Today().String(), "Trade date")
	f.StringVar(&c.currency, "c", "USD", "Currency of the movement")
	f.StringVar(&c.amount, "amount", "", "Amount in the given currency")
	f.StringVar(&c.memo, "memo", "", "Free-form note")
}

func (c *cashFlags) trn(typ portfolio.TrnType) (portfolio.Trn, error) {
	on, err := portfolio.ParseDate(c.date)
	if err != nil {
		return portfolio.Trn{}, fmt.Errorf("invalid date: %w", err)
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		return portfolio.Trn{}, fmt.Errorf("invalid amount %q: %w", c.amount, err)
	}
	return portfolio.Trn{
		Type:        typ,
		TradeDate:   on,
		CashAsset:   portfolio.NewCashAsset(c.currency),
		TradeAmount: portfolio.M(amount, c.currency),
		Memo:        c.memo,
	}, nil
}

type depositCmd struct{ cashFlags }

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "record an external cash deposit" }
func (*depositCmd) Usage() string {
	return `pk deposit -amount <amount> [-c <currency>] [-d <date>]

  Records money entering the portfolio from outside. External flows are
  excluded from performance.
`
}
func (c *depositCmd) SetFlags(f *flag.FlagSet) { c.register(f) }
func (c *depositCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	trn, err := c.trn(portfolio.Deposit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return recordTrn(ctx, trn)
}

type withdrawCmd struct{ cashFlags }

func (*withdrawCmd) Name() string     { return "withdraw" }
func (*withdrawCmd) Synopsis() string { return "record an external cash withdrawal" }
func (*withdrawCmd) Usage() string {
	return `pk withdraw -amount <amount> [-c <currency>] [-d <date>]

  Records money leaving the portfolio.
`
}
func (c *withdrawCmd) SetFlags(f *flag.FlagSet) { c.register(f) }
func (c *withdrawCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	trn, err := c.trn(portfolio.Withdrawal)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return recordTrn(ctx, trn)
}

type convertCmd struct {
	date   string
	from   string
	to     string
	amount string // amount spent, in the source currency
	bought string // amount received, in the target currency
	memo   string
}

func (*convertCmd) Name() string     { return "convert" }
func (*convertCmd) Synopsis() string { return "convert cash between two currencies" }
func (*convertCmd) Usage() string {
	return `pk convert -from <currency> -to <currency> -amount <spent> -bought <received> [-d <date>]

  Converts settlement cash from one currency ladder to another. Both legs are
  recorded as executed, so broker FX spreads are preserved.
`
}

func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", portfolio.Today().String(), "Trade date")
	f.StringVar(&c.from, "from", "", "Source currency")
	f.StringVar(&c.to, "to", "", "Target currency")
	f.StringVar(&c.amount, "amount", "", "Amount spent, in the source currency")
	f.StringVar(&c.bought, "bought", "", "Amount received, in the target currency")
	f.StringVar(&c.memo, "memo", "", "Free-form note")
}

func (c *convertCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := portfolio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	spent, err := decimal.NewFromString(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid amount %q: %v\n", c.amount, err)
		return subcommands.ExitUsageError
	}
	received, err := decimal.NewFromString(c.bought)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid bought amount %q: %v\n", c.bought, err)
		return subcommands.ExitUsageError
	}
	trn := portfolio.Trn{
		Type:        portfolio.FxBuy,
		TradeDate:   on,
		Asset:       portfolio.NewCashAsset(c.to),
		CashAsset:   portfolio.NewCashAsset(c.from),
		TradeAmount: portfolio.M(received, c.to),
		CashAmount:  portfolio.M(spent, c.from),
		Memo:        c.memo,
	}
	return recordTrn(ctx, trn)
}
