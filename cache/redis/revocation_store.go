package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/laundryhub/laundryhub-auth/cache"
)

// RevocationStore implements cache.RevocationStore on a shared redis
// instance, so a logout on one service instance is visible to all of
// them without waiting out the miss window.
type RevocationStore struct {
	client *redis.Client
	prefix string
}

func NewRevocationStore(client *redis.Client, prefix string) *RevocationStore {
	return &RevocationStore{client: client, prefix: prefix}
}

func (s *RevocationStore) key(token string) string {
	return fmt.Sprintf("%s:revoked:%s", s.prefix, token)
}

func (s *RevocationStore) SetRevoked(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.key(token), 1, ttl).Err()
}

func (s *RevocationStore) SetMiss(ctx context.Context, token string) error {
	return s.client.Set(ctx, s.key(token), 0, cache.MissTTL()).Err()
}

func (s *RevocationStore) Get(ctx context.Context, token string) (bool, bool) {
	val, err := s.client.Get(ctx, s.key(token)).Int()
	if err != nil {
		// redis.Nil and transport errors alike fall through to the
		// authoritative store.
		return false, false
	}
	return val == 1, true
}

var _ cache.RevocationStore = (*RevocationStore)(nil)
