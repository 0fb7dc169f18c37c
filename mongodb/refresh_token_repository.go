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

// RefreshTokenRepositoryMongo implements the rotation ledger. The TTL
// index on expiry_date garbage-collects records 30 days after
// creation, revoked or not.
type RefreshTokenRepositoryMongo struct {
	coll *mongo.Collection
}

func NewRefreshTokenRepository(ctx context.Context, db *mongo.Database) (*RefreshTokenRepositoryMongo, error) {
	repo := &RefreshTokenRepositoryMongo{coll: db.Collection(RefreshTokensCollection)}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "expiry_date", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL cleanup
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating refresh_tokens indexes (might already exist)")
	}

	return repo, nil
}

func (r *RefreshTokenRepositoryMongo) Store(ctx context.Context, token *domain.RefreshToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, token); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		log.Error().Err(err).Msg("Error storing refresh token")
		return err
	}
	return nil
}

// Consume claims an active record in a single atomic round trip. The
// filter requires revoked == null and an unexpired record; the update
// stamps revocation. Mongo's single-document atomicity guarantees that
// of N racing callers presenting the same token, exactly one gets the
// pre-update document back and the rest see ErrNotFound. The service
// runs as multiple instances, so this is the only correctness anchor:
// no read-then-write pair, no in-process lock.
func (r *RefreshTokenRepositoryMongo) Consume(ctx context.Context, token, ip string) (*domain.RefreshToken, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"token":       token,
		"revoked":     nil,
		"expiry_date": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{
		"revoked":       now,
		"revoked_by_ip": ip,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var consumed domain.RefreshToken
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&consumed)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Already used, expired, or unknown. Callers must not
			// distinguish these.
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Msg("Error consuming refresh token")
		return nil, err
	}
	return &consumed, nil
}

func (r *RefreshTokenRepositoryMongo) MarkReplaced(ctx context.Context, token, successor string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"token": token},
		bson.M{"$set": bson.M{"replaced_by_token": successor}},
	)
	if err != nil {
		log.Error().Err(err).Msg("Error stamping replaced_by_token")
	}
	return err
}

// Revoke marks a record revoked outside rotation (logout). A missing
// or already-revoked record is a no-op: logout revokes speculatively.
func (r *RefreshTokenRepositoryMongo) Revoke(ctx context.Context, token, ip string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"token": token, "revoked": nil},
		bson.M{"$set": bson.M{"revoked": time.Now().UTC(), "revoked_by_ip": ip}},
	)
	if err != nil {
		log.Error().Err(err).Msg("Error revoking refresh token")
	}
	return err
}

var _ domain.RefreshTokenRepository = (*RefreshTokenRepositoryMongo)(nil)
