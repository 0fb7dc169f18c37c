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

// BlacklistRepositoryMongo stores revoked access tokens. Each entry's
// expires_at mirrors the token's own exp claim, so the TTL index keeps
// the collection in step with the tokens it protects.
type BlacklistRepositoryMongo struct {
	coll *mongo.Collection
}

func NewBlacklistRepository(ctx context.Context, db *mongo.Database) (*BlacklistRepositoryMongo, error) {
	repo := &BlacklistRepositoryMongo{coll: db.Collection(BlacklistCollection)}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating token_blacklist indexes (might already exist)")
	}

	return repo, nil
}

// Add is an idempotent upsert keyed on the token string. Logout flows
// call it speculatively, so hitting an existing entry is a no-op.
func (r *BlacklistRepositoryMongo) Add(ctx context.Context, entry *domain.BlacklistEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"token": entry.Token},
		bson.M{"$setOnInsert": entry},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Concurrent upsert race on the unique index; the entry
			// exists, which is all Add promises.
			return nil
		}
		log.Error().Err(err).Msg("Error blacklisting token")
		return err
	}
	return nil
}

func (r *BlacklistRepositoryMongo) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"token": token}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		log.Error().Err(err).Msg("Error checking token blacklist")
		return false, err
	}
	return true, nil
}

var _ domain.BlacklistRepository = (*BlacklistRepositoryMongo)(nil)
