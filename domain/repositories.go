package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when no document matches.
// Callers translate it into the generic client-facing taxonomy; it is
// never surfaced verbatim.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned on unique-index violations (account
// creation races, duplicate mailbox session ids).
var ErrDuplicate = errors.New("already exists")

// AccountRepository is implemented once per role collection. The four
// instances are assembled into the role strategy table at startup.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// FindByProviderID looks an account up by a linked provider
	// identity (social_accounts.<provider>.provider_id).
	FindByProviderID(ctx context.Context, provider, providerID string) (*Account, error)
	// SetSocialLink writes the sub-document for one provider key,
	// leaving every other provider's sub-document untouched.
	SetSocialLink(ctx context.Context, accountID, provider string, link SocialAccount) error
	// TouchLogin refreshes last_login_at.
	TouchLogin(ctx context.Context, accountID string, at time.Time) error
	UpdatePassword(ctx context.Context, accountID, passwordHash string, clearForceChange bool) error
}

// RefreshTokenRepository persists the rotation ledger.
type RefreshTokenRepository interface {
	Store(ctx context.Context, token *RefreshToken) error
	// Consume atomically claims an active record: it matches
	// {token, revoked: null, expiry_date > now} and stamps
	// {revoked: now, revoked_by_ip: ip} in a single round trip,
	// returning the pre-update document. Exactly one of any number of
	// concurrent callers receives the record; the rest get
	// ErrNotFound.
	Consume(ctx context.Context, token, ip string) (*RefreshToken, error)
	// MarkReplaced stamps replaced_by_token on a consumed record for
	// chain traceability.
	MarkReplaced(ctx context.Context, token, successor string) error
	// Revoke marks a record revoked without rotation (logout). Missing
	// records are not an error: logout revokes speculatively.
	Revoke(ctx context.Context, token, ip string) error
}

// BlacklistRepository stores revoked access tokens until they would
// have expired anyway.
type BlacklistRepository interface {
	// Add is idempotent: re-blacklisting is a no-op, not an error.
	Add(ctx context.Context, entry *BlacklistEntry) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// MailboxRepository is the OAuth handshake relay's storage.
type MailboxRepository interface {
	// Create inserts exactly once; a duplicate session id returns
	// ErrDuplicate and is treated as a hard error upstream.
	Create(ctx context.Context, entry *MailboxEntry) error
	// Consume atomically fetches and deletes an entry. The first
	// caller receives the payload; every later caller gets
	// ErrNotFound.
	Consume(ctx context.Context, sessionID string) (*MailboxEntry, error)
}
