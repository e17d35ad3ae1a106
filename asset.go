package portfolio

import (
	"fmt"
	"strings"
)

// CashMarket is the synthetic market code carrying cash balances. A cash
// asset's code is its currency code, listed on this market.
const CashMarket = "CASH"

// Asset categories.
const (
	CategoryEquity = "Equity"
	CategoryETF    = "ETF"
	CategoryCash   = "Cash"
)

// Market is the trading venue of an asset. It carries the asset's native
// (trade) currency.
type Market struct {
	Code     string `json:"code"`
	Currency string `json:"currency"`
}

// Asset identifies one instrument: an equity on a market, or a cash balance
// on the synthetic CASH market.
type Asset struct {
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
	Market   Market `json:"market"`
	Category string `json:"category,omitempty"`
}

// NewAsset creates an asset for a code traded on a market. The category
// defaults to equity.
func NewAsset(code string, market Market) Asset {
	return Asset{Code: code, Market: market, Category: CategoryEquity}
}

// NewCashAsset creates the asset representing a cash balance in a currency.
func NewCashAsset(currency string) Asset {
	return Asset{
		Code:     currency,
		Market:   Market{Code: CashMarket, Currency: currency},
		Category: CategoryCash,
	}
}

// Currency returns the asset's native trade currency.
func (a Asset) Currency() string { return a.Market.Currency }

// IsCash reports whether the asset is a cash balance.
func (a Asset) IsCash() bool {
	return a.Market.Code == CashMarket || a.Category == CategoryCash
}

// IsZero reports whether the asset is unset.
func (a Asset) IsZero() bool { return a.Code == "" && a.Market.Code == "" }

// Key returns the canonical "CODE:MARKET" identity of the asset, the key of
// its Position within a Positions aggregate.
func (a Asset) Key() string {
	return strings.ToUpper(a.Code) + ":" + strings.ToUpper(a.Market.Code)
}

// ParseAssetKey splits a canonical "CODE:MARKET" key back into its parts.
// A malformed key is a business-rule violation.
func ParseAssetKey(key string) (code, market string, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q want CODE:MARKET", ErrInvalidAssetKey, key)
	}
	return parts[0], parts[1], nil
}
