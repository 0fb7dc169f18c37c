package domain

import "time"

// RefreshToken is one node of a rotation chain in the refresh-token
// ledger. A record transitions Revoked == nil -> non-nil exactly once;
// ReplacedByToken links it to its successor. The store garbage-collects
// records once ExpiryDate passes, regardless of revocation state.
type RefreshToken struct {
	Token           string     `bson:"token"`
	UserID          string     `bson:"user_id"`
	UserType        Role       `bson:"user_type"`
	ExpiryDate      time.Time  `bson:"expiry_date"`
	Revoked         *time.Time `bson:"revoked"`
	RevokedByIP     string     `bson:"revoked_by_ip,omitempty"`
	ReplacedByToken string     `bson:"replaced_by_token,omitempty"`
	CreatedByIP     string     `bson:"created_by_ip,omitempty"`
	CreatedAt       time.Time  `bson:"created_at"`
}

// BlacklistEntry revokes an access token ahead of its natural expiry.
// ExpiresAt always equals the token's own exp claim so the entry never
// outlives what it revokes.
type BlacklistEntry struct {
	Token     string    `bson:"token"`
	UserID    string    `bson:"user_id"`
	Role      Role      `bson:"role"`
	ExpiresAt time.Time `bson:"expires_at"`
	Reason    string    `bson:"reason,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

// MailboxEntry is the ephemeral record bridging an OAuth callback to
// the polling application page. Created once by the callback handler,
// consumed at most once by the poller, otherwise expired by TTL.
type MailboxEntry struct {
	SessionID string    `bson:"session_id"`
	Result    []byte    `bson:"result"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// MailboxTTL is the fixed lifetime of an unconsumed mailbox entry.
const MailboxTTL = 5 * time.Minute
