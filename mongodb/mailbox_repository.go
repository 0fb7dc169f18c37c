package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/laundryhub/laundryhub-auth/domain"
)

// MailboxRepositoryMongo backs the OAuth handshake relay. Entries are
// created once by the callback handler and consumed at most once by
// the polling page; abandoned entries fall to the 5-minute TTL index
// with no explicit sweep.
type MailboxRepositoryMongo struct {
	coll *mongo.Collection
}

func NewMailboxRepository(ctx context.Context, db *mongo.Database) (*MailboxRepositoryMongo, error) {
	repo := &MailboxRepositoryMongo{coll: db.Collection(OAuthSessionsCollection)}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating oauth_sessions indexes (might already exist)")
	}

	return repo, nil
}

// Create inserts exactly once. Session ids are client-minted random
// values, so a duplicate means either a replayed callback or a
// colliding client; both are hard errors, never overwritten.
func (r *MailboxRepositoryMongo) Create(ctx context.Context, entry *domain.MailboxEntry) error {
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.ExpiresAt.IsZero() {
		entry.ExpiresAt = entry.CreatedAt.Add(domain.MailboxTTL)
	}

	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		log.Error().Err(err).Str("sessionID", entry.SessionID).Msg("Error storing mailbox entry")
		return err
	}
	return nil
}

// Consume is an atomic find-and-delete: the first poll for a session
// id receives the payload and removes the entry in the same storage
// round trip, so a second poll can never replay a stale result. The
// expiry filter keeps a TTL-expired-but-not-yet-reaped entry from
// being served.
func (r *MailboxRepositoryMongo) Consume(ctx context.Context, sessionID string) (*domain.MailboxEntry, error) {
	filter := bson.M{
		"session_id": sessionID,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}

	var entry domain.MailboxEntry
	err := r.coll.FindOneAndDelete(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Str("sessionID", sessionID).Msg("Error consuming mailbox entry")
		return nil, err
	}
	return &entry, nil
}

var _ domain.MailboxRepository = (*MailboxRepositoryMongo)(nil)
