package storage

import (
	"context"
	"errors"
)

// Storage is a durable key-value string store holding the serialized cart.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("storage: key not found")
