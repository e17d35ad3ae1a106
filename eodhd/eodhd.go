// Package eodhd implements market data sources backed by the EODHD HTTP API
// (https://eodhd.com). Responses are cached on disk for a day, so repeated
// valuations of the same book hit the network at most once per endpoint.
package eodhd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tamaki-fs/portfolio"
)

// EnvAPIKey is the environment variable holding the API token.
const EnvAPIKey = "EODHD_API_KEY"

// Client fetches end-of-day prices and FX rates. It implements
// portfolio.PriceSource and portfolio.FxSource.
type Client struct {
	apiKey string
	http   httpGetter
	log    zerolog.Logger
}

// NewClient creates a client with a daily disk-caching HTTP transport.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		http:   newDailyCachingClient(),
		log:    log.With().Str("source", "eodhd").Logger(),
	}
}

// NewClientFromEnv reads the API token from the environment.
func NewClientFromEnv(log zerolog.Logger) (*Client, error) {
	key := os.Getenv(EnvAPIKey)
	if key == "" {
		return nil, fmt.Errorf("%s is not set", EnvAPIKey)
	}
	return NewClient(key, log), nil
}

// ticker maps an asset to the EODHD symbol format "CODE.EXCHANGE".
func ticker(asset portfolio.Asset) string {
	return strings.ToUpper(asset.Code) + "." + strings.ToUpper(asset.Market.Code)
}

// eodRow is one row of the /api/eod endpoint.
type eodRow struct {
	Date  portfolio.Date  `json:"date"`
	Open  decimal.Decimal `json:"open"`
	Close decimal.Decimal `json:"close"`
}

// fetchEOD loads the daily rows for a ticker over a range, ascending.
func (c *Client) fetchEOD(ctx context.Context, symbol string, r portfolio.Range) ([]eodRow, error) {
	addr := fmt.Sprintf("https://eodhd.com/api/eod/%s?fmt=json&api_token=%s&from=%s&to=%s",
		symbol, c.apiKey, r.From, r.To)
	rows := make([]eodRow, 0)
	if err := jwget(ctx, c.http, addr, &rows); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// Price returns the close for an asset as of a date, falling back to the
// nearest prior trading day. The previous close is taken from the preceding
// row so day-over-day movement survives weekends.
func (c *Client) Price(ctx context.Context, asset portfolio.Asset, on portfolio.Date) (portfolio.PriceData, error) {
	rows, err := c.fetchEOD(ctx, ticker(asset), portfolio.Range{From: on.Add(-lookback), To: on})
	if err != nil {
		return portfolio.PriceData{}, fmt.Errorf("%w: %s: %v", portfolio.ErrPriceFetch, asset.Key(), err)
	}
	var prev decimal.Decimal
	var last *eodRow
	for i := range rows {
		if rows[i].Date.After(on) {
			break
		}
		if last != nil {
			prev = last.Close
		}
		last = &rows[i]
	}
	if last == nil {
		return portfolio.PriceData{}, fmt.Errorf("%w: no quote for %s on or before %s",
			portfolio.ErrPriceFetch, asset.Key(), on)
	}
	if !last.Date.Equal(on) {
		c.log.Debug().Str("asset", asset.Key()).
			Stringer("requested", on).Stringer("used", last.Date).
			Msg("using nearest prior close")
	}
	return portfolio.PriceData{
		Date:          last.Date,
		Close:         last.Close,
		PreviousClose: prev,
		Currency:      asset.Currency(),
	}, nil
}

// Prices returns the closes inside a range, each row chained to the previous
// one for its previous close.
func (c *Client) Prices(ctx context.Context, asset portfolio.Asset, r portfolio.Range) ([]portfolio.PriceData, error) {
	rows, err := c.fetchEOD(ctx, ticker(asset), portfolio.Range{From: r.From.Add(-lookback), To: r.To})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", portfolio.ErrPriceFetch, asset.Key(), err)
	}
	var out []portfolio.PriceData
	var prev decimal.Decimal
	for _, row := range rows {
		if r.Contains(row.Date) {
			out = append(out, portfolio.PriceData{
				Date:          row.Date,
				Close:         row.Close,
				PreviousClose: prev,
				Currency:      asset.Currency(),
			})
		}
		prev = row.Close
	}
	return out, nil
}

// Rates resolves currency pairs as of a date through the FOREX tickers.
// EODHD's forex close is unreliable, the next day's open tracks reality
// better, so the rate for a day is the open of the following row when one
// exists.
func (c *Client) Rates(ctx context.Context, on portfolio.Date, pairs ...portfolio.IsoCurrencyPair) (*portfolio.RateTable, error) {
	table := portfolio.NewRateTable()
	for _, pair := range pairs {
		symbol := pair.From() + pair.To() + ".FOREX"
		rows, err := c.fetchEOD(ctx, symbol, portfolio.Range{From: on.Add(-lookback), To: on.Add(1)})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", portfolio.ErrFxFetch, pair, err)
		}
		rate, ok := forexRate(rows, on)
		if !ok {
			c.log.Warn().Stringer("pair", pair).Stringer("on", on).Msg("no fx observation")
			continue
		}
		table.Add(portfolio.FxRate{From: pair.From(), To: pair.To(), Rate: rate})
	}
	return table, nil
}

// RateHistory streams dated rates for pairs over a range, one FOREX query
// per pair, with the same next-day-open refinement as Rates.
func (c *Client) RateHistory(ctx context.Context, r portfolio.Range, pairs ...portfolio.IsoCurrencyPair) ([]portfolio.FxObservation, error) {
	var out []portfolio.FxObservation
	for _, pair := range pairs {
		symbol := pair.From() + pair.To() + ".FOREX"
		rows, err := c.fetchEOD(ctx, symbol, portfolio.Range{From: r.From.Add(-lookback), To: r.To.Add(1)})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", portfolio.ErrFxFetch, pair, err)
		}
		for i, row := range rows {
			rate := row.Close
			if i+1 < len(rows) && rows[i+1].Date.Equal(row.Date.Add(1)) && !rows[i+1].Open.IsZero() {
				rate = rows[i+1].Open
			}
			out = append(out, portfolio.FxObservation{Pair: pair, Date: row.Date, Rate: rate})
		}
	}
	return out, nil
}

// forexRate picks the observation for a day from the daily rows.
func forexRate(rows []eodRow, on portfolio.Date) (decimal.Decimal, bool) {
	var rate decimal.Decimal
	var found bool
	for i, row := range rows {
		if row.Date.After(on) {
			break
		}
		rate, found = row.Close, true
		if i+1 < len(rows) && rows[i+1].Date.Equal(row.Date.Add(1)) && !rows[i+1].Open.IsZero() {
			rate = rows[i+1].Open
		}
	}
	return rate, found
}

// Latest returns the most recent intraday quote for an asset from the
// real-time endpoint. The payload shape varies by plan, so the close is
// extracted by path rather than by a typed struct.
func (c *Client) Latest(ctx context.Context, asset portfolio.Asset) (decimal.Decimal, error) {
	addr := fmt.Sprintf("https://eodhd.com/api/real-time/%s?fmt=json&api_token=%s", ticker(asset), c.apiKey)
	var jobj any
	if err := jwget(ctx, newLiveClient(), addr, &jobj); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", portfolio.ErrPriceFetch, asset.Key(), err)
	}
	jval, err := jsonpath.Get("$.close", jobj)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", portfolio.ErrPriceFetch, asset.Key(), err)
	}
	// jsonpath may hand back a single value or a one-element list
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	val, ok := jval.(float64)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s: close is not a number: %v",
			portfolio.ErrPriceFetch, asset.Key(), jval)
	}
	return decimal.NewFromFloat(val), nil
}

// lookback is how far back a point lookup scans for the nearest prior
// trading day.
const lookback = 7
