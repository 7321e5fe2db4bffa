package domain

import (
	"github.com/shopspring/decimal"
)

// LineItem is one product entry in the cart.
// Name, Price and IsBranding are copies taken from the catalog when the item was added.
type LineItem struct {
	ProductID  ProductID       `json:"product_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Qty        int             `json:"qty"`
	IsBranding bool            `json:"is_branding"`
	InStock    bool            `json:"in_stock"`
}

// Equal compares two line items field by field.
func (l LineItem) Equal(o LineItem) bool {
	return l.ProductID == o.ProductID &&
		l.Name == o.Name &&
		l.Price.Equal(o.Price) &&
		l.Qty == o.Qty &&
		l.IsBranding == o.IsBranding &&
		l.InStock == o.InStock
}

// LineItemInput is what a caller hands to the cart when adding a product.
type LineItemInput struct {
	ProductID  ProductID       `json:"product_id" validate:"required"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Qty        int             `json:"qty" validate:"min=1"`
	IsBranding bool            `json:"is_branding"`
}

// ToLineItem builds the stored form of the input. New items are in stock.
func (in LineItemInput) ToLineItem() LineItem {
	return LineItem{
		ProductID:  in.ProductID,
		Name:       in.Name,
		Price:      in.Price,
		Qty:        in.Qty,
		IsBranding: in.IsBranding,
		InStock:    true,
	}
}

// ItemsEqual reports whether two ordered item lists are structurally equal.
func ItemsEqual(a, b []LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// CloneItems returns a copy of items that never aliases the input.
func CloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// Subtotal is the sum of price × qty over all items.
func Subtotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	return total
}

// IndexOf returns the position of productID in items or -1.
func IndexOf(items []LineItem, productID ProductID) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
