package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryRevocationStore is the in-process RevocationStore, suitable
// for single-instance deployments. Entries expire on their own TTL;
// the cache's janitor goroutine handles cleanup.
type MemoryRevocationStore struct {
	cache *ttlcache.Cache[string, bool]
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	c := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, bool](),
	)
	go c.Start()

	return &MemoryRevocationStore{cache: c}
}

func (s *MemoryRevocationStore) SetRevoked(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil // already expired, nothing to protect
	}
	s.cache.Set(token, true, ttl)
	return nil
}

func (s *MemoryRevocationStore) SetMiss(ctx context.Context, token string) error {
	s.cache.Set(token, false, missTTL)
	return nil
}

func (s *MemoryRevocationStore) Get(ctx context.Context, token string) (bool, bool) {
	item := s.cache.Get(token)
	if item == nil {
		return false, false
	}
	return item.Value(), true
}

// Stop shuts down the janitor goroutine.
func (s *MemoryRevocationStore) Stop() {
	s.cache.Stop()
}

var _ RevocationStore = (*MemoryRevocationStore)(nil)
