package mongodb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/laundryhub/laundryhub-auth/domain"
)

// setupTestDB connects to the Mongo named by TEST_MONGO_URI and hands
// back an isolated database. Tests are skipped when the variable is
// unset so plain `go test` stays hermetic.
func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	t.Helper()
	mongoURI := os.Getenv("TEST_MONGO_URI")
	if mongoURI == "" {
		t.Skip("TEST_MONGO_URI not set, skipping Mongo integration test")
	}
	dbName := fmt.Sprintf("test_auth_%d", time.Now().UnixNano())

	client, err := mongo.Connect(options.Client().ApplyURI(mongoURI).SetConnectTimeout(10 * time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database(dbName)
	cleanup := func() {
		mainCtx := context.Background()
		if err := db.Drop(mainCtx); err != nil {
			t.Logf("Warning: failed to drop database %s during cleanup: %v", dbName, err)
		}
		if err := client.Disconnect(mainCtx); err != nil {
			t.Logf("Warning: failed to disconnect test client during cleanup: %v", err)
		}
	}
	return db, cleanup
}

func storeTestToken(t *testing.T, repo *RefreshTokenRepositoryMongo, token string, expiry time.Time) {
	t.Helper()
	err := repo.Store(context.Background(), &domain.RefreshToken{
		Token:       token,
		UserID:      "user-1",
		UserType:    domain.RoleAffiliate,
		ExpiryDate:  expiry,
		CreatedByIP: "10.0.0.1",
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestRefreshTokenConsume_Sequential(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo, err := NewRefreshTokenRepository(ctx, db)
	require.NoError(t, err)

	storeTestToken(t, repo, "tok-sequential", time.Now().UTC().Add(time.Hour))

	consumed, err := repo.Consume(ctx, "tok-sequential", "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, "user-1", consumed.UserID)
	assert.Equal(t, domain.RoleAffiliate, consumed.UserType)
	assert.Nil(t, consumed.Revoked, "Consume must return the pre-update document")

	// Second consume of the same token must find nothing.
	_, err = repo.Consume(ctx, "tok-sequential", "10.0.0.3")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefreshTokenConsume_ConcurrentSingleWinner(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo, err := NewRefreshTokenRepository(ctx, db)
	require.NoError(t, err)

	storeTestToken(t, repo, "tok-race", time.Now().UTC().Add(time.Hour))

	const callers = 16
	var wins, losses int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := repo.Consume(ctx, "tok-race", fmt.Sprintf("10.0.0.%d", i))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else {
				losses++
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins, "exactly one caller must win the rotation race")
	assert.EqualValues(t, callers-1, losses)
}

func TestRefreshTokenConsume_Expired(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo, err := NewRefreshTokenRepository(ctx, db)
	require.NoError(t, err)

	// Already past expiry_date; the TTL monitor may not have collected
	// it yet, but Consume must refuse it regardless.
	storeTestToken(t, repo, "tok-expired", time.Now().UTC().Add(-time.Minute))

	_, err = repo.Consume(ctx, "tok-expired", "10.0.0.2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefreshTokenMarkReplaced(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo, err := NewRefreshTokenRepository(ctx, db)
	require.NoError(t, err)

	storeTestToken(t, repo, "tok-old", time.Now().UTC().Add(time.Hour))
	_, err = repo.Consume(ctx, "tok-old", "10.0.0.2")
	require.NoError(t, err)
	require.NoError(t, repo.MarkReplaced(ctx, "tok-old", "tok-new"))
}

func TestRefreshTokenRevoke_MissingIsNoop(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo, err := NewRefreshTokenRepository(ctx, db)
	require.NoError(t, err)

	assert.NoError(t, repo.Revoke(ctx, "never-stored", "10.0.0.2"))
}
