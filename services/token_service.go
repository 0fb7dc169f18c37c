package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/laundryhub/laundryhub-auth/domain"
)

// PermissionChangePasswordRequired is the single permission carried by
// a restricted token issued when a role demands a password change
// before full access.
const PermissionChangePasswordRequired = "change_password_required"

const (
	preRegistrationTTL = 15 * time.Minute
	passwordResetTTL   = 15 * time.Minute
)

// AccessClaims is the claim shape of every access token. Exactly one
// of the role-specific public-id fields is populated, chosen by the
// role strategy table.
type AccessClaims struct {
	Role        string   `json:"role"`
	AffiliateID string   `json:"affiliateId,omitempty"`
	CustomerID  string   `json:"customerId,omitempty"`
	AdminID     string   `json:"adminId,omitempty"`
	OperatorID  string   `json:"operatorId,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// PasswordChangeOnly reports whether the token is the restricted
// variant that only authorizes completing a forced password change.
func (c *AccessClaims) PasswordChangeOnly() bool {
	for _, p := range c.Permissions {
		if p == PermissionChangePasswordRequired {
			return true
		}
	}
	return false
}

// PreRegistrationClaims is the signed, short-lived claim produced by a
// federation new-user outcome and consumed by the social registration
// finalizer. It carries the raw provider tokens so the finalizer can
// store them (encrypted) on the account it creates.
type PreRegistrationClaims struct {
	Provider     string `json:"provider"`
	ProviderID   string `json:"providerId"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	jwt.RegisteredClaims
}

// PasswordResetClaims authorizes one password reset for one account.
type PasswordResetClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies the signed tokens: access tokens,
// pre-registration claims, and password-reset claims. Each kind gets
// its own audience so one can never be replayed as another.
type TokenService struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	roles     RoleRegistry
}

func NewTokenService(secret, issuer, audience string, accessTTL time.Duration, roles RoleRegistry) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
		roles:     roles,
	}
}

// AccessTTL returns the configured access-token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// Issue mints a full access token for an account.
func (s *TokenService) Issue(account *domain.Account) (string, *AccessClaims, error) {
	return s.issue(account, nil)
}

// IssueRestricted mints the forced-password-change variant: a token
// whose only permission is completing the password change. Callers
// must not pair it with a refresh token.
func (s *TokenService) IssueRestricted(account *domain.Account) (string, *AccessClaims, error) {
	return s.issue(account, []string{PermissionChangePasswordRequired})
}

func (s *TokenService) issue(account *domain.Account, permissions []string) (string, *AccessClaims, error) {
	now := time.Now().UTC()
	claims := &AccessClaims{
		Role:        string(account.Role),
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			ID:        uuid.NewString(),
		},
	}
	if strategy, ok := s.roles.Get(account.Role); ok {
		strategy.ShapeClaims(claims, account)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing access token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies an access token. Anything unverifiable fails closed:
// wrong algorithm, bad signature, expiry, or issuer/audience mismatch.
func (s *TokenService) Parse(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// IssuePreRegistration signs the new-user descriptor produced by the
// federation resolver.
func (s *TokenService) IssuePreRegistration(provider, providerID, email, firstName, lastName, accessToken, refreshToken string) (string, error) {
	now := time.Now().UTC()
	claims := &PreRegistrationClaims{
		Provider:     provider,
		ProviderID:   providerID,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience + "/social-registration"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(preRegistrationTTL)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParsePreRegistration verifies a pre-registration claim.
func (s *TokenService) ParsePreRegistration(tokenString string) (*PreRegistrationClaims, error) {
	claims := &PreRegistrationClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience+"/social-registration"),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// IssuePasswordReset signs a reset claim for one account.
func (s *TokenService) IssuePasswordReset(account *domain.Account) (string, error) {
	now := time.Now().UTC()
	claims := &PasswordResetClaims{
		Role: string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience + "/password-reset"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(passwordResetTTL)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParsePasswordReset verifies a reset claim.
func (s *TokenService) ParsePasswordReset(tokenString string) (*PasswordResetClaims, error) {
	claims := &PasswordResetClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience+"/password-reset"),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *TokenService) keyFunc(_ *jwt.Token) (interface{}, error) {
	return s.secret, nil
}
