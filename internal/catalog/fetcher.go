package catalog

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/cart-engine/internal/domain"
)

var (
	ErrMalformedResponse = errors.New("catalog: malformed products response")
	ErrUnexpectedStatus  = errors.New("catalog: unexpected response status")
	// ErrEmptyCatalog is returned in place of a snapshot with no products.
	ErrEmptyCatalog = errors.New("catalog: no products")
)

// Fetcher returns the current authoritative product list.
type Fetcher interface {
	FetchProducts(ctx context.Context) ([]domain.CatalogEntry, error)
}
