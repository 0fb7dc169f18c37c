package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/laundryhub/laundryhub-auth/domain"
	autherrors "github.com/laundryhub/laundryhub-auth/errors"
	"github.com/laundryhub/laundryhub-auth/internal/audit"
	"github.com/laundryhub/laundryhub-auth/internal/federation"
)

// OutcomeKind labels the three resolver results a client can receive.
type OutcomeKind string

const (
	OutcomeLogin    OutcomeKind = "login"
	OutcomeConflict OutcomeKind = "conflict"
	OutcomeNewUser  OutcomeKind = "new_user"
)

// Outcome is the resolver's verdict for one provider identity against
// one requested role.
type Outcome struct {
	Kind                 OutcomeKind
	Account              *domain.Account
	Conflict             *domain.PublicProfile
	ConflictRole         domain.Role
	PreRegistrationToken string
	Profile              *federation.UserProfile
}

// FederationService maps a verified provider identity onto the account
// space of one role. Its resolution order is strict: provider-id match
// in the requested role, then email match in the requested role, then
// any match in the counterpart role, then new user.
type FederationService struct {
	roles     RoleRegistry
	tokens    *TokenService
	encryptor Encryptor
}

func NewFederationService(roles RoleRegistry, tokens *TokenService, encryptor Encryptor) *FederationService {
	return &FederationService{roles: roles, tokens: tokens, encryptor: encryptor}
}

// Resolve classifies a provider profile for the requested role. Only
// the first two outcomes write: outcome 1 refreshes the stored token
// snapshot, outcome 2 links the provider to an existing account.
// Conflict and new-user outcomes leave every collection untouched.
func (s *FederationService) Resolve(ctx context.Context, role domain.Role, provider string, profile *federation.UserProfile, token *oauth2.Token) (*Outcome, error) {
	if !role.OAuthCapable() {
		return nil, autherrors.NewValidationFailed("social login is not available for this role")
	}
	strategy, ok := s.roles.Get(role)
	if !ok {
		return nil, autherrors.NewValidationFailed("unknown role")
	}

	// Outcome 1: this provider identity already belongs to an account
	// of the requested role.
	account, err := strategy.Accounts.FindByProviderID(ctx, provider, profile.ProviderID)
	if err == nil {
		if account.Status == domain.AccountStatusLocked {
			return nil, autherrors.NewAccountLocked(strategy.LockedMessage)
		}
		if err := s.refreshLink(ctx, strategy, account, provider, profile, token); err != nil {
			log.Warn().Err(err).Str("provider", provider).Msg("refreshing social link snapshot")
		}
		if err := strategy.Accounts.TouchLogin(ctx, account.ID, time.Now().UTC()); err != nil {
			log.Warn().Err(err).Str("user_id", account.ID).Msg("updating last login time")
		}
		audit.Log("social_login", string(role), account.ID, provider, "", true, nil)
		return &Outcome{Kind: OutcomeLogin, Account: account, Profile: profile}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		log.Error().Err(err).Msg("provider id lookup")
		return nil, autherrors.NewServerError()
	}

	// Outcome 2: same role, same email, provider not yet linked.
	// An account whose slot for this provider is taken by a different
	// provider identity falls through.
	if profile.Email != "" {
		account, err = strategy.Accounts.FindByEmail(ctx, profile.Email)
		if err == nil {
			if _, linked := account.SocialLink(provider); !linked {
				if account.Status == domain.AccountStatusLocked {
					return nil, autherrors.NewAccountLocked(strategy.LockedMessage)
				}
				if err := s.refreshLink(ctx, strategy, account, provider, profile, token); err != nil {
					log.Error().Err(err).Str("provider", provider).Msg("linking social account")
					return nil, autherrors.NewServerError()
				}
				if err := strategy.Accounts.TouchLogin(ctx, account.ID, time.Now().UTC()); err != nil {
					log.Warn().Err(err).Str("user_id", account.ID).Msg("updating last login time")
				}
				audit.Log("social_link", string(role), account.ID, provider, "linked by email match", true, nil)
				return &Outcome{Kind: OutcomeLogin, Account: account, Profile: profile}, nil
			}
		} else if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Msg("email lookup")
			return nil, autherrors.NewServerError()
		}
	}

	// Outcome 3: the identity belongs to the counterpart role. Report
	// the collision without writing anything.
	if counterpart, hasCounterpart := role.Counterpart(); hasCounterpart {
		other, ok := s.roles.Get(counterpart)
		if !ok {
			return nil, autherrors.NewServerError()
		}
		match, err := other.Accounts.FindByProviderID(ctx, provider, profile.ProviderID)
		if errors.Is(err, domain.ErrNotFound) && profile.Email != "" {
			match, err = other.Accounts.FindByEmail(ctx, profile.Email)
		}
		if err == nil {
			audit.Log("social_login", string(role), profile.ProviderID, provider, "counterpart role conflict", false, nil)
			p := match.Profile()
			return &Outcome{Kind: OutcomeConflict, Conflict: &p, ConflictRole: counterpart, Profile: profile}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Msg("counterpart lookup")
			return nil, autherrors.NewServerError()
		}
	}

	// Outcome 4: nobody. Hand the client a signed descriptor it can
	// bring back to the registration finalizer.
	refreshToken := ""
	if token != nil {
		refreshToken = token.RefreshToken
	}
	accessToken := ""
	if token != nil {
		accessToken = token.AccessToken
	}
	preReg, err := s.tokens.IssuePreRegistration(provider, profile.ProviderID, profile.Email, profile.FirstName, profile.LastName, accessToken, refreshToken)
	if err != nil {
		log.Error().Err(err).Msg("issuing pre-registration token")
		return nil, autherrors.NewServerError()
	}
	audit.Log("social_login", string(role), profile.ProviderID, provider, "new user", true, nil)
	return &Outcome{Kind: OutcomeNewUser, PreRegistrationToken: preReg, Profile: profile}, nil
}

// refreshLink writes the current provider snapshot onto the account,
// encrypting the provider tokens and preserving the original link time
// when one exists.
func (s *FederationService) refreshLink(ctx context.Context, strategy *RoleStrategy, account *domain.Account, provider string, profile *federation.UserProfile, token *oauth2.Token) error {
	link := domain.SocialAccount{
		ProviderID: profile.ProviderID,
		Email:      profile.Email,
		Name:       profile.Name,
		LinkedAt:   time.Now().UTC(),
	}
	if existing, ok := account.SocialLink(provider); ok && !existing.LinkedAt.IsZero() {
		link.LinkedAt = existing.LinkedAt
	}
	if token != nil {
		var err error
		if token.AccessToken != "" {
			if link.AccessToken, err = s.encryptor.Encrypt(token.AccessToken); err != nil {
				return err
			}
		}
		if token.RefreshToken != "" {
			if link.RefreshToken, err = s.encryptor.Encrypt(token.RefreshToken); err != nil {
				return err
			}
		}
	}
	return strategy.Accounts.SetSocialLink(ctx, account.ID, provider, link)
}
