package reconcile

import (
	"testing"

	"github.com/fjod/go_cart/cart-engine/internal/codec"
	"github.com/fjod/go_cart/cart-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, qty int, price int64) domain.LineItem {
	return domain.LineItem{
		ProductID: domain.ProductID(id),
		Name:      "product " + id,
		Price:     decimal.NewFromInt(price),
		Qty:       qty,
		InStock:   true,
	}
}

func entry(id string, price int64, inStock bool) domain.CatalogEntry {
	return domain.CatalogEntry{
		ProductID: domain.ProductID(id),
		Price:     decimal.NewFromInt(price),
		InStock:   inStock,
	}
}

func withEffective(e domain.CatalogEntry, price int64) domain.CatalogEntry {
	p := decimal.NewFromInt(price)
	e.EffectivePrice = &p
	return e
}

func TestReconcile_AppliesEffectivePrice(t *testing.T) {
	items := []domain.LineItem{item("1", 1, 100)}

	next, report := Reconcile(items, []domain.CatalogEntry{withEffective(entry("1", 100, true), 80)})

	require.Len(t, next, 1)
	assert.True(t, decimal.NewFromInt(80).Equal(next[0].Price))
	assert.Equal(t, 1, next[0].Qty)
	assert.True(t, next[0].InStock)
	assert.Equal(t, "product 1", next[0].Name)

	assert.True(t, report.Changed)
	require.Len(t, report.Repriced, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(report.Repriced[0].OldPrice))
	assert.True(t, decimal.NewFromInt(80).Equal(report.Repriced[0].NewPrice))

	// input untouched
	assert.True(t, decimal.NewFromInt(100).Equal(items[0].Price))
}

func TestReconcile_FallsBackToBasePrice(t *testing.T) {
	next, report := Reconcile([]domain.LineItem{item("1", 2, 100)}, []domain.CatalogEntry{entry("1", 120, true)})

	require.Len(t, next, 1)
	assert.True(t, decimal.NewFromInt(120).Equal(next[0].Price))
	assert.Equal(t, 2, next[0].Qty)
	assert.True(t, report.Changed)
}

func TestReconcile_DropsOutOfStock(t *testing.T) {
	items := []domain.LineItem{item("1", 1, 100), item("2", 1, 50)}

	next, report := Reconcile(items, []domain.CatalogEntry{entry("1", 100, true), entry("2", 50, false)})

	require.Len(t, next, 1)
	assert.Equal(t, domain.ProductID("1"), next[0].ProductID)
	assert.True(t, next[0].InStock)
	assert.Equal(t, []domain.ProductID{"2"}, report.OutOfStock)
	assert.True(t, report.Changed)
}

func TestReconcile_DropsDiscontinued(t *testing.T) {
	items := []domain.LineItem{item("1", 1, 100), item("2", 1, 50), item("3", 4, 10)}

	next, report := Reconcile(items, []domain.CatalogEntry{entry("1", 100, true), entry("3", 10, true)})

	require.Len(t, next, 2)
	assert.Equal(t, domain.ProductID("1"), next[0].ProductID)
	assert.Equal(t, domain.ProductID("3"), next[1].ProductID, "survivors keep their order")
	assert.Equal(t, []domain.ProductID{"2"}, report.Discontinued)
}

func TestReconcile_NoChange(t *testing.T) {
	items := []domain.LineItem{item("1", 1, 100)}

	next, report := Reconcile(items, []domain.CatalogEntry{entry("1", 100, true)})

	assert.False(t, report.Changed)
	assert.True(t, domain.ItemsEqual(items, next))
	assert.Empty(t, report.Repriced)
}

func TestReconcile_RestoresInStockFlag(t *testing.T) {
	stale := item("1", 1, 100)
	stale.InStock = false

	next, report := Reconcile([]domain.LineItem{stale}, []domain.CatalogEntry{entry("1", 100, true)})

	require.Len(t, next, 1)
	assert.True(t, next[0].InStock)
	assert.True(t, report.Changed)
}

func TestReconcile_DuplicateCatalogEntriesLastWins(t *testing.T) {
	next, _ := Reconcile([]domain.LineItem{item("1", 1, 100)}, []domain.CatalogEntry{
		entry("1", 90, true),
		entry("1", 70, true),
	})

	require.Len(t, next, 1)
	assert.True(t, decimal.NewFromInt(70).Equal(next[0].Price))
}

func TestReconcile_IsIdempotent(t *testing.T) {
	catalog := []domain.CatalogEntry{withEffective(entry("1", 100, true), 80), entry("2", 5, false)}
	items := []domain.LineItem{item("1", 3, 100), item("2", 1, 5)}

	first, r1 := Reconcile(items, catalog)
	second, r2 := Reconcile(first, catalog)

	assert.True(t, r1.Changed)
	assert.False(t, r2.Changed)
	assert.True(t, domain.ItemsEqual(first, second))
}

func TestReconcile_IgnoresNegativeChargePrice(t *testing.T) {
	items := []domain.LineItem{item("1", 1, 100), item("2", 1, 40)}
	catalog := []domain.CatalogEntry{withEffective(entry("1", 100, true), -5), entry("2", 30, true)}

	next, report := Reconcile(items, catalog)

	require.Len(t, next, 2)
	assert.True(t, decimal.NewFromInt(100).Equal(next[0].Price))
	assert.True(t, decimal.NewFromInt(30).Equal(next[1].Price))
	require.Len(t, report.Repriced, 1)
	assert.Equal(t, domain.ProductID("2"), report.Repriced[0].ProductID)

	// what the pass produces must survive a save and reload
	data, err := codec.Encode(next)
	require.NoError(t, err)
	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	assert.True(t, domain.ItemsEqual(next, decoded))
}

func TestReconcile_EmptyCart(t *testing.T) {
	next, report := Reconcile(nil, []domain.CatalogEntry{entry("1", 1, true)})
	assert.Empty(t, next)
	assert.False(t, report.Changed)
}
