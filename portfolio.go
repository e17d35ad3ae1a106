package portfolio

import (
	"fmt"

	"github.com/google/uuid"
)

// Portfolio identifies one portfolio and its two reporting viewpoints: the
// reporting currency used for valuation and the owner's home (base)
// currency. It is immutable for the engine's purposes.
type Portfolio struct {
	ID       uuid.UUID `json:"id"`
	Code     string    `json:"code"`
	Name     string    `json:"name,omitempty"`
	Currency string    `json:"currency"` // reporting/valuation currency
	Base     string    `json:"base"`     // owner's home currency
}

// NewPortfolio creates a portfolio with a fresh identity after validating
// both currency codes.
func NewPortfolio(code, currency, base string) (Portfolio, error) {
	if err := ValidateCurrency(currency); err != nil {
		return Portfolio{}, fmt.Errorf("invalid reporting currency: %w", err)
	}
	if err := ValidateCurrency(base); err != nil {
		return Portfolio{}, fmt.Errorf("invalid base currency: %w", err)
	}
	return Portfolio{ID: uuid.New(), Code: code, Currency: currency, Base: base}, nil
}
