package cache

import (
	"context"
	"time"
)

// Store is a byte-value cache shared by the species data fetcher. Concurrent
// writers for the same key may race; values for a key are idempotent, so the
// last write wins without coordination.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
