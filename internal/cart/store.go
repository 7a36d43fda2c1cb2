package cart

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("cart snapshot not found")

// Store is a key/value backend for serialized cart snapshots.
type Store interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}
