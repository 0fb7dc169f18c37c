package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laundryhub/laundryhub-auth/domain"
)

func TestMailboxConsumeOnce(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo, err := NewMailboxRepository(ctx, db)
	require.NoError(t, err)

	sessionID := uuid.NewString()
	require.NoError(t, repo.Create(ctx, &domain.MailboxEntry{
		SessionID: sessionID,
		Result:    []byte(`{"success":true}`),
	}))

	entry, err := repo.Consume(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, entry.SessionID)
	assert.JSONEq(t, `{"success":true}`, string(entry.Result))

	// The first consume deleted the entry.
	_, err = repo.Consume(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMailboxDuplicateCreate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo, err := NewMailboxRepository(ctx, db)
	require.NoError(t, err)

	sessionID := uuid.NewString()
	require.NoError(t, repo.Create(ctx, &domain.MailboxEntry{
		SessionID: sessionID,
		Result:    []byte(`{"success":true}`),
	}))

	err = repo.Create(ctx, &domain.MailboxEntry{
		SessionID: sessionID,
		Result:    []byte(`{"success":false}`),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestMailboxConsumeExpired(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo, err := NewMailboxRepository(ctx, db)
	require.NoError(t, err)

	// An entry past its expiry is unreachable even before the TTL
	// monitor has reaped the document.
	sessionID := uuid.NewString()
	require.NoError(t, repo.Create(ctx, &domain.MailboxEntry{
		SessionID: sessionID,
		Result:    []byte(`{"success":true}`),
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err = repo.Consume(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMailboxConsumeUnknownSession(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo, err := NewMailboxRepository(context.Background(), db)
	require.NoError(t, err)

	_, err = repo.Consume(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
