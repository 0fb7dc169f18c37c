package cache

import (
	"context"
	"time"
)

// missTTL bounds how long a "not blacklisted" answer may be served
// from cache. Revocations performed by another instance become visible
// within this window when the in-process store is used; the redis
// store sees them immediately because logout writes through.
const missTTL = 30 * time.Second

// MissTTL exposes the miss window to alternate store implementations.
func MissTTL() time.Duration { return missTTL }

// RevocationStore caches blacklist lookups so the verification path
// doesn't hit Mongo on every request. Positive entries (revoked) are
// kept until the token's own expiry, since a revocation is never
// undone; negative entries are short-lived.
type RevocationStore interface {
	// SetRevoked records a blacklisted token until expiresAt.
	SetRevoked(ctx context.Context, token string, expiresAt time.Time) error
	// SetMiss records a confirmed non-blacklisted token briefly.
	SetMiss(ctx context.Context, token string) error
	// Get returns (revoked, found).
	Get(ctx context.Context, token string) (bool, bool)
}
