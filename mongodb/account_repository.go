package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/laundryhub/laundryhub-auth/domain"
)

// oauthProviders are the provider keys indexed for federated lookup.
var oauthProviders = []string{"google", "facebook", "github"}

// AccountRepositoryMongo implements domain.AccountRepository for one
// role collection. Four instances are constructed at startup, one per
// role, differing only in the backing collection.
type AccountRepositoryMongo struct {
	coll *mongo.Collection
}

// NewAccountRepository creates the repository and ensures its indexes.
func NewAccountRepository(ctx context.Context, db *mongo.Database, collection string) (*AccountRepositoryMongo, error) {
	repo := &AccountRepositoryMongo{coll: db.Collection(collection)}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "public_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	// One sparse index per provider key so federated lookups stay
	// point queries.
	for _, p := range oauthProviders {
		indexModels = append(indexModels, mongo.IndexModel{
			Keys:    bson.D{{Key: "social_accounts." + p + ".provider_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		})
	}

	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Str("collection", collection).Msg("Issue creating account indexes (might already exist)")
	}

	return repo, nil
}

func (r *AccountRepositoryMongo) Create(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	if account.Status == "" {
		account.Status = domain.AccountStatusActive
	}

	if _, err := r.coll.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		log.Error().Err(err).Str("collection", r.coll.Name()).Msg("Error storing account")
		return err
	}
	return nil
}

func (r *AccountRepositoryMongo) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepositoryMongo) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AccountRepositoryMongo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepositoryMongo) FindByProviderID(ctx context.Context, provider, providerID string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"social_accounts." + provider + ".provider_id": providerID})
}

func (r *AccountRepositoryMongo) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var account domain.Account
	err := r.coll.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Str("collection", r.coll.Name()).Msg("Error querying account")
		return nil, err
	}
	return &account, nil
}

// SetSocialLink writes one provider's sub-document. The dotted path
// keeps every other provider key untouched.
func (r *AccountRepositoryMongo) SetSocialLink(ctx context.Context, accountID, provider string, link domain.SocialAccount) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": accountID},
		bson.M{"$set": bson.M{"social_accounts." + provider: link}},
	)
	if err != nil {
		log.Error().Err(err).Str("accountID", accountID).Str("provider", provider).Msg("Error writing social link")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AccountRepositoryMongo) TouchLogin(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": accountID},
		bson.M{"$set": bson.M{"last_login_at": at.UTC()}},
	)
	return err
}

func (r *AccountRepositoryMongo) UpdatePassword(ctx context.Context, accountID, passwordHash string, clearForceChange bool) error {
	set := bson.M{"password_hash": passwordHash}
	if clearForceChange {
		set["require_password_change"] = false
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": accountID}, bson.M{"$set": set})
	if err != nil {
		log.Error().Err(err).Str("accountID", accountID).Msg("Error updating password")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.AccountRepository = (*AccountRepositoryMongo)(nil)
