package cart

import (
	"fmt"

	"github.com/fjod/go_cart/cart-engine/internal/domain"
)

// Reduce applies cmd to items and returns the next state.
// items is never modified. changed is false when cmd was a no-op, in which case
// next is items itself.
func Reduce(items []domain.LineItem, cmd Command) (next []domain.LineItem, changed bool) {
	switch c := cmd.(type) {
	case AddItem:
		return reduceAdd(items, c)
	case UpdateQty:
		return reduceUpdateQty(items, c)
	case RemoveItem:
		return reduceRemove(items, c)
	case Clear:
		if len(items) == 0 {
			return items, false
		}
		return []domain.LineItem{}, true
	default:
		panic(fmt.Sprintf("cart: unknown command %T", cmd))
	}
}

// Existing lines only get their quantity bumped, price and name stay as first added.
func reduceAdd(items []domain.LineItem, c AddItem) ([]domain.LineItem, bool) {
	if i := domain.IndexOf(items, c.Item.ProductID); i >= 0 {
		next := domain.CloneItems(items)
		next[i].Qty += c.Item.Qty
		return next, true
	}

	next := make([]domain.LineItem, len(items), len(items)+1)
	copy(next, items)
	return append(next, c.Item.ToLineItem()), true
}

func reduceUpdateQty(items []domain.LineItem, c UpdateQty) ([]domain.LineItem, bool) {
	i := domain.IndexOf(items, c.ProductID)
	if i < 0 {
		return items, false
	}
	if c.Qty <= 0 {
		return removeAt(items, i), true
	}
	if items[i].Qty == c.Qty {
		return items, false
	}

	next := domain.CloneItems(items)
	next[i].Qty = c.Qty
	return next, true
}

func reduceRemove(items []domain.LineItem, c RemoveItem) ([]domain.LineItem, bool) {
	i := domain.IndexOf(items, c.ProductID)
	if i < 0 {
		return items, false
	}
	return removeAt(items, i), true
}

func removeAt(items []domain.LineItem, i int) []domain.LineItem {
	next := make([]domain.LineItem, 0, len(items)-1)
	next = append(next, items[:i]...)
	return append(next, items[i+1:]...)
}
