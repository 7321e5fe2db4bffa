package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fjod/go_cart/cart-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// keys under which an object-wrapped response may carry the product list
var listKeys = []string{"products", "data", "items"}

type productPayload struct {
	ProductID       domain.ProductID `json:"product_id"`
	ID              domain.ProductID `json:"id"`
	Price           *decimal.Decimal `json:"price"`
	EffectivePrice  *decimal.Decimal `json:"effective_price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	InStock         *bool            `json:"in_stock"`
	Stock           *int64           `json:"stock"`
}

// ParseSnapshot reads a catalog response that is either a bare JSON array of
// products or an object holding the array under products, data or items.
func ParseSnapshot(body []byte) ([]domain.CatalogEntry, error) {
	raw, err := productList(bytes.TrimSpace(body))
	if err != nil {
		return nil, err
	}

	entries := make([]domain.CatalogEntry, 0, len(raw))
	for i, item := range raw {
		var p productPayload
		if err := json.Unmarshal(item, &p); err != nil {
			return nil, fmt.Errorf("%w: product %d: %v", ErrMalformedResponse, i, err)
		}
		entry, ok := p.toEntry()
		if !ok {
			continue
		}
		if err := entry.CheckPrices(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func productList(body []byte) ([]json.RawMessage, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	switch body[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return list, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		for _, key := range listKeys {
			v, ok := obj[key]
			if !ok {
				continue
			}
			var list []json.RawMessage
			if err := json.Unmarshal(v, &list); err != nil || list == nil {
				continue
			}
			return list, nil
		}
		return nil, fmt.Errorf("%w: no product list found", ErrMalformedResponse)
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", ErrMalformedResponse)
	}
}

func (p productPayload) toEntry() (domain.CatalogEntry, bool) {
	id := p.ProductID.Normalize()
	if id.IsZero() {
		id = p.ID.Normalize()
	}
	if id.IsZero() {
		return domain.CatalogEntry{}, false
	}

	entry := domain.CatalogEntry{
		ProductID: id,
		Price:     decimal.Zero,
		InStock:   true,
	}
	if p.Price != nil {
		entry.Price = *p.Price
	}
	switch {
	case p.EffectivePrice != nil:
		entry.EffectivePrice = p.EffectivePrice
	case p.DiscountedPrice != nil:
		entry.EffectivePrice = p.DiscountedPrice
	}
	switch {
	case p.InStock != nil:
		entry.InStock = *p.InStock
	case p.Stock != nil:
		entry.InStock = *p.Stock > 0
	}
	return entry, true
}
