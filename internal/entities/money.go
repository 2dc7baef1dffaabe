package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money carries the amount exactly as Shopify sends it ("35.00").
// The amount is kept as a string end to end; decimal is only used to
// reject garbage before it reaches the store.
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) Validate() error {
	d, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return fmt.Errorf("invalid money amount %q: %w", m.Amount, err)
	}
	if d.IsNegative() {
		return fmt.Errorf("negative money amount %q", m.Amount)
	}
	if len(m.Currency) != 3 {
		return fmt.Errorf("invalid currency %q", m.Currency)
	}
	return nil
}

// Decimal parses the amount. Call Validate first when the value comes
// from the outside.
func (m Money) Decimal() decimal.Decimal {
	d, _ := decimal.NewFromString(m.Amount)
	return d
}
