// Package reconcile refreshes cart contents against live catalog data.
//
// Products missing from the catalog or out of stock are dropped. Surviving
// lines take the catalog's charge price and keep the quantity and name the
// shopper already has.
package reconcile

import (
	"github.com/fjod/go_cart/cart-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type PriceChange struct {
	ProductID domain.ProductID `json:"product_id"`
	OldPrice  decimal.Decimal  `json:"old_price"`
	NewPrice  decimal.Decimal  `json:"new_price"`
}

// Report describes what one reconciliation pass did to the cart.
type Report struct {
	PassID       string             `json:"pass_id"`
	Changed      bool               `json:"changed"`
	Stale        bool               `json:"stale"`
	Discontinued []domain.ProductID `json:"discontinued"`
	OutOfStock   []domain.ProductID `json:"out_of_stock"`
	Repriced     []PriceChange      `json:"repriced"`
}

// Reconcile computes the cart that reflects snapshot. items is not modified.
func Reconcile(items []domain.LineItem, snapshot []domain.CatalogEntry) ([]domain.LineItem, Report) {
	byID := make(map[domain.ProductID]domain.CatalogEntry, len(snapshot))
	for _, entry := range snapshot {
		byID[entry.ProductID] = entry
	}

	report := Report{
		Discontinued: []domain.ProductID{},
		OutOfStock:   []domain.ProductID{},
		Repriced:     []PriceChange{},
	}
	next := make([]domain.LineItem, 0, len(items))

	for _, item := range items {
		entry, ok := byID[item.ProductID]
		if !ok {
			report.Discontinued = append(report.Discontinued, item.ProductID)
			continue
		}
		if !entry.InStock {
			report.OutOfStock = append(report.OutOfStock, item.ProductID)
			continue
		}

		price := entry.ChargePrice()
		if price.IsNegative() {
			// unusable price, keep the line as the shopper has it
			next = append(next, item)
			continue
		}
		if !price.Equal(item.Price) {
			report.Repriced = append(report.Repriced, PriceChange{
				ProductID: item.ProductID,
				OldPrice:  item.Price,
				NewPrice:  price,
			})
		}
		item.Price = price
		item.InStock = true
		next = append(next, item)
	}

	report.Changed = !domain.ItemsEqual(items, next)
	return next, report
}
