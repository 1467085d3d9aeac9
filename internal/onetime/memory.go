package onetime

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

var _ Store[string] = (*MemoryStore[string])(nil)

// MemoryStore is an in process Store backed by go-cache.
type MemoryStore[T any] struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemoryStore[T any](cleanupInterval time.Duration) *MemoryStore[T] {
	return &MemoryStore[T]{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (s *MemoryStore[T]) Put(ctx context.Context, key string, value T, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	s.cache.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore[T]) Take(ctx context.Context, key string) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, found := s.cache.Get(key)
	if !found {
		return zero, false, nil
	}
	s.cache.Delete(key)
	return v.(T), true, nil
}
