package portfolio

import "errors"

// Business-rule violations: surfaced to the caller, never retried.
var (
	// ErrUnsupportedTrnType marks a transaction whose type the accumulator
	// does not know how to replay.
	ErrUnsupportedTrnType = errors.New("unsupported transaction type")

	// ErrInvalidAssetKey marks a malformed CODE:MARKET asset key.
	ErrInvalidAssetKey = errors.New("invalid asset key")

	// ErrNoFxRates marks a valuation for which no FX response could be
	// obtained at all. An unconverted monetary figure is unsafe to display.
	ErrNoFxRates = errors.New("no fx rates available")
)

// Dependency failures: a single request aborts, no state is corrupted.
var (
	// ErrPriceFetch wraps a failed or timed-out bulk price lookup.
	ErrPriceFetch = errors.New("price fetch failed")

	// ErrFxFetch wraps a failed or timed-out bulk FX lookup.
	ErrFxFetch = errors.New("fx fetch failed")
)
