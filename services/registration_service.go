package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"github.com/laundryhub/laundryhub-auth/domain"
	autherrors "github.com/laundryhub/laundryhub-auth/errors"
	"github.com/laundryhub/laundryhub-auth/internal/audit"
)

// CompletionInput carries the extra fields the registration form
// collects beyond what the provider profile supplies.
type CompletionInput struct {
	CompanyName string `json:"companyName"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
}

var rolePublicIDPrefix = map[domain.Role]string{
	domain.RoleAffiliate: "AFF",
	domain.RoleCustomer:  "CUS",
	domain.RoleAdmin:     "ADM",
	domain.RoleOperator:  "OPR",
}

// RegistrationService turns a pre-registration claim plus form input
// into a persisted account with a first credential pair.
type RegistrationService struct {
	roles     RoleRegistry
	tokens    *TokenService
	auth      *AuthService
	hasher    PasswordHasher
	encryptor Encryptor
	mailer    EmailSender
	sanitizer *bluemonday.Policy
}

func NewRegistrationService(roles RoleRegistry, tokens *TokenService, auth *AuthService, hasher PasswordHasher, encryptor Encryptor, mailer EmailSender) *RegistrationService {
	return &RegistrationService{
		roles:     roles,
		tokens:    tokens,
		auth:      auth,
		hasher:    hasher,
		encryptor: encryptor,
		mailer:    mailer,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Complete redeems a pre-registration claim and creates the account.
// All duplicate checks run before the single insert, and the unique
// indexes catch whatever races past them.
func (s *RegistrationService) Complete(ctx context.Context, role domain.Role, preRegToken string, input *CompletionInput, ip string) (*LoginResult, error) {
	if !role.OAuthCapable() {
		return nil, autherrors.NewValidationFailed("social registration is not available for this role")
	}
	strategy, ok := s.roles.Get(role)
	if !ok {
		return nil, autherrors.NewValidationFailed("unknown role")
	}

	claims, err := s.tokens.ParsePreRegistration(preRegToken)
	if err != nil {
		return nil, autherrors.NewValidationFailed("invalid or expired registration token")
	}

	email := s.clean(claims.Email)
	firstName := s.clean(claims.FirstName)
	lastName := s.clean(claims.LastName)
	if email == "" || firstName == "" {
		return nil, autherrors.NewValidationFailed("provider profile is missing required fields")
	}
	// A last name may be legitimately absent (single-name profiles),
	// but one that only sanitization emptied is rejected outright.
	if lastName == "" && strings.TrimSpace(claims.LastName) != "" {
		return nil, autherrors.NewValidationFailed("provider profile contains invalid fields")
	}

	if _, err := strategy.Accounts.FindByEmail(ctx, email); err == nil {
		return nil, autherrors.NewValidationFailed("an account with this email already exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Error().Err(err).Msg("registration email lookup")
		return nil, autherrors.NewServerError()
	}
	if _, err := strategy.Accounts.FindByProviderID(ctx, claims.Provider, claims.ProviderID); err == nil {
		return nil, autherrors.NewValidationFailed("this social account is already registered")
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Error().Err(err).Msg("registration provider id lookup")
		return nil, autherrors.NewServerError()
	}

	username, err := s.deriveUsername(ctx, strategy, firstName, lastName)
	if err != nil {
		log.Error().Err(err).Msg("deriving username")
		return nil, autherrors.NewServerError()
	}

	// Social accounts never learn this password. It only exists so the
	// password column is never empty.
	randomPassword, err := randomHex(16)
	if err != nil {
		return nil, autherrors.NewServerError()
	}
	hash, err := s.hasher.Hash(randomPassword)
	if err != nil {
		log.Error().Err(err).Msg("hashing generated password")
		return nil, autherrors.NewServerError()
	}

	link := domain.SocialAccount{
		ProviderID: claims.ProviderID,
		Email:      email,
		Name:       strings.TrimSpace(firstName + " " + lastName),
		LinkedAt:   time.Now().UTC(),
	}
	if claims.AccessToken != "" {
		if link.AccessToken, err = s.encryptor.Encrypt(claims.AccessToken); err != nil {
			log.Error().Err(err).Msg("encrypting provider access token")
			return nil, autherrors.NewServerError()
		}
	}
	if claims.RefreshToken != "" {
		if link.RefreshToken, err = s.encryptor.Encrypt(claims.RefreshToken); err != nil {
			log.Error().Err(err).Msg("encrypting provider refresh token")
			return nil, autherrors.NewServerError()
		}
	}

	publicID, err := newPublicID(role)
	if err != nil {
		return nil, autherrors.NewServerError()
	}
	account := &domain.Account{
		PublicID:     publicID,
		Role:         role,
		Username:     username,
		Email:        email,
		Status:       domain.AccountStatusActive,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		SocialAccounts: map[string]domain.SocialAccount{
			claims.Provider: link,
		},
	}
	if input != nil {
		account.CompanyName = s.clean(input.CompanyName)
		account.Address = s.clean(input.Address)
		account.Phone = s.clean(input.Phone)
	}

	if err := strategy.Accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, autherrors.NewValidationFailed("an account with this email already exists")
		}
		log.Error().Err(err).Msg("creating account")
		return nil, autherrors.NewServerError()
	}

	pair, err := s.auth.IssuePair(ctx, account, ip)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := s.mailer.SendWelcome(context.Background(), account.Email, account.Username); err != nil {
			log.Error().Err(err).Str("email", account.Email).Msg("sending welcome email")
		}
	}()
	audit.Log("social_register", string(role), account.ID, claims.Provider, "", true, nil)
	return &LoginResult{Pair: pair, Account: account}, nil
}

// clean strips markup and surrounding whitespace from form input.
func (s *RegistrationService) clean(v string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(v))
}

// deriveUsername builds a username from the profile name and tries a
// handful of numeric suffixes before falling back to a random one.
func (s *RegistrationService) deriveUsername(ctx context.Context, strategy *RoleStrategy, firstName, lastName string) (string, error) {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, firstName+lastName)
	if base == "" {
		base = "user"
	}

	candidate := base
	for i := 0; i < 10; i++ {
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		_, err := strategy.Accounts.FindByUsername(ctx, candidate)
		if errors.Is(err, domain.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	return base + suffix, nil
}

func newPublicID(role domain.Role) (string, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	return rolePublicIDPrefix[role] + "-" + strings.ToUpper(suffix), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
