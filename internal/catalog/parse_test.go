package catalog

import (
	"testing"

	"github.com/fjod/go_cart/cart-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSnapshot_BareArray(t *testing.T) {
	body := `[
		{"product_id": 1, "price": 100, "effective_price": 80, "in_stock": true},
		{"product_id": "2", "price": "15.5", "in_stock": false}
	]`

	entries, err := ParseSnapshot([]byte(body))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, domain.ProductID("1"), entries[0].ProductID)
	assert.True(t, decimal.NewFromInt(100).Equal(entries[0].Price))
	require.NotNil(t, entries[0].EffectivePrice)
	assert.True(t, decimal.NewFromInt(80).Equal(entries[0].ChargePrice()))
	assert.True(t, entries[0].InStock)

	assert.Nil(t, entries[1].EffectivePrice)
	assert.False(t, entries[1].InStock)
}

func TestParseSnapshot_WrappedObject(t *testing.T) {
	for _, key := range []string{"products", "data", "items"} {
		body := `{"count": 1, "` + key + `": [{"id": 7, "price": 10}]}`

		entries, err := ParseSnapshot([]byte(body))
		require.NoError(t, err, "key %s", key)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.ProductID("7"), entries[0].ProductID)
	}
}

func TestParseSnapshot_SkipsNonListKeys(t *testing.T) {
	entries, err := ParseSnapshot([]byte(`{"data": {"page": 1}, "products": [{"id": 1, "price": 5}]}`))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestParseSnapshot_DiscountedPriceFallback(t *testing.T) {
	entries, err := ParseSnapshot([]byte(`[{"id": 1, "price": 100, "discounted_price": 90}]`))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, decimal.NewFromInt(90).Equal(entries[0].ChargePrice()))
}

func TestParseSnapshot_StockCountFallback(t *testing.T) {
	entries, err := ParseSnapshot([]byte(`[{"id": 1, "price": 1, "stock": 0}, {"id": 2, "price": 1, "stock": 4}, {"id": 3, "price": 1}]`))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.False(t, entries[0].InStock)
	assert.True(t, entries[1].InStock)
	assert.True(t, entries[2].InStock)
}

func TestParseSnapshot_SkipsEntriesWithoutID(t *testing.T) {
	entries, err := ParseSnapshot([]byte(`[{"price": 1}, {"id": 2, "price": 1}]`))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ProductID("2"), entries[0].ProductID)
}

func TestParseSnapshot_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":        ``,
		"not json":     `<html>oops</html>`,
		"no list":      `{"message": "ok"}`,
		"broken array": `[{"id": 1,`,
		"bad price":    `[{"id": 1, "price": "cheap"}]`,
		"scalar":       `42`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			entries, err := ParseSnapshot([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Nil(t, entries)
		})
	}
}

func TestParseSnapshot_RejectsNegativePrices(t *testing.T) {
	for _, body := range []string{
		`[{"id": 1, "price": 100, "effective_price": -5}]`,
		`[{"id": 1, "price": -1}]`,
		`{"products": [{"id": 1, "price": 10, "discounted_price": "-0.01"}]}`,
	} {
		entries, err := ParseSnapshot([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedResponse, body)
		assert.ErrorIs(t, err, domain.ErrNegativePrice, body)
		assert.Nil(t, entries)
	}
}

func TestParseSnapshot_TrimsIDs(t *testing.T) {
	entries, err := ParseSnapshot([]byte(`[{"product_id": " 7 ", "price": 1}]`))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ProductID("7"), entries[0].ProductID)
}
