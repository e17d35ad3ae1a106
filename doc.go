// Package portfolio implements a multi-currency position keeping and
// valuation engine. It replays an ordered stream of transactions into a
// Positions aggregate, values those positions against market prices and
// foreign-exchange rates in three parallel currency contexts (the asset's
// trade currency, the owner's base currency and the portfolio's reporting
// currency), and derives a time-weighted return series that strips out the
// effect of external cash flows.
//
// The engine is a pure computation layer: it consumes transactions, prices
// and FX rates through small source interfaces and produces request-scoped
// aggregates that are never shared between requests. Persistence, transport
// and enrichment live behind those interfaces.
//
// The main entry points are:
//   - Accumulator: replays one transaction into a Positions aggregate.
//   - PositionValuationService: values a Positions aggregate at a date.
//   - PerformanceService: produces the time-weighted return series.
//
// This package is the foundational logic for the `pk` command-line tool.
package portfolio
