// Package codec turns the cart into the storage string and back.
//
// Decoding is tolerant: stored carts can be missing, corrupt, or written by an
// older client with a different shape. None of those are fatal, they decode to
// the best cart that can be recovered.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/cart-engine/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrMalformed = errors.New("codec: malformed cart data")

// Encode serializes items as a JSON array in cart order.
func Encode(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return data, nil
}

// storedItem accepts current and legacy field names.
type storedItem struct {
	ProductID  domain.ProductID `json:"product_id"`
	LegacyID   domain.ProductID `json:"id"`
	Name       string           `json:"name"`
	Price      *decimal.Decimal `json:"price"`
	Qty        *int             `json:"qty"`
	LegacyQty  *int             `json:"quantity"`
	IsBranding bool             `json:"is_branding"`
	InStock    *bool            `json:"in_stock"`
}

type wrappedCart struct {
	Items []json.RawMessage `json:"items"`
}

// Decode parses a stored cart. Empty input is an empty cart with no error.
// Corrupt input is an empty cart and an error wrapping ErrMalformed.
// Entries without a product id or with qty <= 0 are dropped; repeated ids are
// merged into the first occurrence by summing quantities.
func Decode(data []byte) ([]domain.LineItem, error) {
	items, _, err := DecodeLenient(data)
	return items, err
}

// DecodeLenient is Decode that also reports how many entries were unreadable
// or invalid and had to be dropped.
func DecodeLenient(data []byte) (items []domain.LineItem, dropped int, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []domain.LineItem{}, 0, nil
	}

	raw, err := rawEntries(data)
	if err != nil {
		return []domain.LineItem{}, 0, err
	}

	items = make([]domain.LineItem, 0, len(raw))
	for _, entry := range raw {
		var s storedItem
		// a single unreadable entry is skipped, the rest of the cart survives
		if err := json.Unmarshal(entry, &s); err != nil {
			dropped++
			continue
		}
		item, ok := s.toLineItem()
		if !ok {
			dropped++
			continue
		}
		if i := domain.IndexOf(items, item.ProductID); i >= 0 {
			items[i].Qty += item.Qty
			continue
		}
		items = append(items, item)
	}
	return items, dropped, nil
}

func rawEntries(data []byte) ([]json.RawMessage, error) {
	switch data[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return raw, nil
	case '{':
		var w wrappedCart
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if w.Items == nil {
			return nil, fmt.Errorf("%w: object has no items list", ErrMalformed)
		}
		return w.Items, nil
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", ErrMalformed)
	}
}

func (s storedItem) toLineItem() (domain.LineItem, bool) {
	id := s.ProductID
	if id.IsZero() {
		id = s.LegacyID
	}
	if id.IsZero() {
		return domain.LineItem{}, false
	}

	qty := s.Qty
	if qty == nil {
		qty = s.LegacyQty
	}
	if qty == nil || *qty <= 0 {
		return domain.LineItem{}, false
	}

	price := decimal.Zero
	if s.Price != nil {
		price = *s.Price
	}
	if price.IsNegative() {
		return domain.LineItem{}, false
	}

	inStock := true
	if s.InStock != nil {
		inStock = *s.InStock
	}

	return domain.LineItem{
		ProductID:  id,
		Name:       s.Name,
		Price:      price,
		Qty:        *qty,
		IsBranding: s.IsBranding,
		InStock:    inStock,
	}, true
}
