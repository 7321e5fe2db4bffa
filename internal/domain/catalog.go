package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrNegativePrice = errors.New("negative catalog price")

// CatalogEntry is the authoritative view of a product at fetch time.
type CatalogEntry struct {
	ProductID ProductID
	Price     decimal.Decimal
	// EffectivePrice is the price after discounts and flash sales; nil means use Price.
	EffectivePrice *decimal.Decimal
	InStock        bool
}

// ChargePrice returns the unit price a buyer pays right now.
func (c CatalogEntry) ChargePrice() decimal.Decimal {
	if c.EffectivePrice != nil {
		return *c.EffectivePrice
	}
	return c.Price
}

// CheckPrices rejects entries that would put a negative price in the cart.
func (c CatalogEntry) CheckPrices() error {
	if c.Price.IsNegative() {
		return fmt.Errorf("%w: product %s price %s", ErrNegativePrice, c.ProductID, c.Price)
	}
	if c.EffectivePrice != nil && c.EffectivePrice.IsNegative() {
		return fmt.Errorf("%w: product %s effective price %s", ErrNegativePrice, c.ProductID, c.EffectivePrice)
	}
	return nil
}
