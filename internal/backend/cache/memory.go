package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is a fixed-capacity in-process store with least-recently-used
// eviction. Capacity is bounded so a long-lived process cannot grow the
// memoization layer without limit.
type MemoryStore struct {
	items *lru.LRU[string, []byte]
}

// NewMemoryStore creates a store holding at most size entries. Entries also
// expire after ttl; a ttl of zero disables expiry and leaves eviction purely
// capacity-driven.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 1
	}
	return &MemoryStore{
		items: lru.NewLRU[string, []byte](size, nil, ttl),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	v, ok := s.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	_ = ttl // per-entry TTL is fixed at construction for the in-memory store
	v := make([]byte, len(value))
	copy(v, value)
	s.items.Add(key, v)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.items.Remove(key)
	return nil
}

// Len returns the number of cached entries, for tests and diagnostics.
func (s *MemoryStore) Len() int {
	return s.items.Len()
}
