package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/laundryhub/laundryhub-auth/cache"
	"github.com/laundryhub/laundryhub-auth/domain"
	autherrors "github.com/laundryhub/laundryhub-auth/errors"
	"github.com/laundryhub/laundryhub-auth/internal/audit"
)

// TokenPair is the credential bundle returned to a client after a
// successful login, rotation, or registration.
type TokenPair struct {
	AccessToken            string `json:"token"`
	RefreshToken           string `json:"refreshToken,omitempty"`
	ExpiresIn              int64  `json:"expiresIn"`
	PasswordChangeRequired bool   `json:"passwordChangeRequired,omitempty"`
}

// LoginResult pairs the issued credentials with the account they
// belong to so handlers can shape their response payloads.
type LoginResult struct {
	Pair    *TokenPair
	Account *domain.Account
}

// AuthService implements password login, refresh rotation, logout,
// token verification, and the password lifecycle for every role.
type AuthService struct {
	roles      RoleRegistry
	tokens     *TokenService
	refresh    domain.RefreshTokenRepository
	blacklist  domain.BlacklistRepository
	revoked    cache.RevocationStore
	hasher     PasswordHasher
	mailer     EmailSender
	refreshTTL time.Duration
	appOrigin  string
}

func NewAuthService(
	roles RoleRegistry,
	tokens *TokenService,
	refresh domain.RefreshTokenRepository,
	blacklist domain.BlacklistRepository,
	revoked cache.RevocationStore,
	hasher PasswordHasher,
	mailer EmailSender,
	refreshTTL time.Duration,
	appOrigin string,
) *AuthService {
	return &AuthService{
		roles:      roles,
		tokens:     tokens,
		refresh:    refresh,
		blacklist:  blacklist,
		revoked:    revoked,
		hasher:     hasher,
		mailer:     mailer,
		refreshTTL: refreshTTL,
		appOrigin:  appOrigin,
	}
}

// Login authenticates a username or email plus password for one role.
// Every failure mode short of a locked account collapses into the same
// generic error so callers cannot probe which accounts exist.
func (s *AuthService) Login(ctx context.Context, role domain.Role, identifier, password, ip string) (*LoginResult, error) {
	strategy, ok := s.roles.Get(role)
	if !ok {
		return nil, autherrors.NewValidationFailed("unknown role")
	}

	account, err := strategy.Accounts.FindByUsername(ctx, identifier)
	if errors.Is(err, domain.ErrNotFound) {
		account, err = strategy.Accounts.FindByEmail(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			audit.Log("login", string(role), identifier, "", "unknown identifier", false, nil)
			return nil, autherrors.NewAuthenticationFailed()
		}
		log.Error().Err(err).Str("role", string(role)).Msg("login lookup failed")
		return nil, autherrors.NewServerError()
	}

	if err := s.hasher.Verify(account.PasswordHash, password); err != nil {
		audit.Log("login", string(role), account.ID, "", "password mismatch", false, nil)
		return nil, autherrors.NewAuthenticationFailed()
	}
	if account.Status == domain.AccountStatusLocked {
		audit.Log("login", string(role), account.ID, "", "account locked", false, nil)
		return nil, autherrors.NewAccountLocked(strategy.LockedMessage)
	}

	if account.RequirePasswordChange {
		token, _, err := s.tokens.IssueRestricted(account)
		if err != nil {
			log.Error().Err(err).Msg("issuing restricted token")
			return nil, autherrors.NewServerError()
		}
		audit.Log("login", string(role), account.ID, "", "restricted: password change required", true, nil)
		return &LoginResult{
			Pair: &TokenPair{
				AccessToken:            token,
				ExpiresIn:              int64(s.tokens.AccessTTL().Seconds()),
				PasswordChangeRequired: true,
			},
			Account: account,
		}, nil
	}

	pair, err := s.IssuePair(ctx, account, ip)
	if err != nil {
		return nil, err
	}
	if err := strategy.Accounts.TouchLogin(ctx, account.ID, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Str("user_id", account.ID).Msg("updating last login time")
	}
	audit.Log("login", string(role), account.ID, "", "", true, nil)
	return &LoginResult{Pair: pair, Account: account}, nil
}

// IssuePair mints a full access token plus a fresh refresh token and
// persists the refresh token in the rotation ledger.
func (s *AuthService) IssuePair(ctx context.Context, account *domain.Account, ip string) (*TokenPair, error) {
	access, _, err := s.tokens.Issue(account)
	if err != nil {
		log.Error().Err(err).Msg("issuing access token")
		return nil, autherrors.NewServerError()
	}

	refreshToken, err := newRefreshToken()
	if err != nil {
		log.Error().Err(err).Msg("generating refresh token")
		return nil, autherrors.NewServerError()
	}
	record := &domain.RefreshToken{
		Token:       refreshToken,
		UserID:      account.ID,
		UserType:    account.Role,
		ExpiryDate:  time.Now().UTC().Add(s.refreshTTL),
		CreatedByIP: ip,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.refresh.Store(ctx, record); err != nil {
		log.Error().Err(err).Msg("storing refresh token")
		return nil, autherrors.NewServerError()
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Rotate consumes a refresh token and, when this caller wins the
// single-use race, issues a replacement pair. Losers and holders of
// expired or unknown tokens all see the same generic error.
func (s *AuthService) Rotate(ctx context.Context, refreshToken, ip string) (*LoginResult, error) {
	consumed, err := s.refresh.Consume(ctx, refreshToken, ip)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			audit.Log("refresh", "", "", "", "token not consumable", false, nil)
			return nil, autherrors.NewRefreshTokenInvalid()
		}
		log.Error().Err(err).Msg("consuming refresh token")
		return nil, autherrors.NewServerError()
	}

	strategy, ok := s.roles.Get(consumed.UserType)
	if !ok {
		log.Error().Str("user_type", string(consumed.UserType)).Msg("refresh token carries unknown role")
		return nil, autherrors.NewRefreshTokenInvalid()
	}
	account, err := strategy.Accounts.FindByID(ctx, consumed.UserID)
	if err != nil {
		// The ledger outlived the account. Surface nothing specific.
		log.Error().Err(err).Str("user_id", consumed.UserID).Msg("refresh token references missing account")
		return nil, autherrors.NewRefreshTokenInvalid()
	}
	if account.Status == domain.AccountStatusLocked {
		audit.Log("refresh", string(account.Role), account.ID, "", "account locked", false, nil)
		return nil, autherrors.NewRefreshTokenInvalid()
	}

	pair, err := s.IssuePair(ctx, account, ip)
	if err != nil {
		return nil, err
	}
	if err := s.refresh.MarkReplaced(ctx, refreshToken, pair.RefreshToken); err != nil {
		log.Warn().Err(err).Msg("linking rotated refresh token")
	}
	audit.Log("refresh", string(account.Role), account.ID, "", "", true, nil)
	return &LoginResult{Pair: pair, Account: account}, nil
}

// Logout blacklists the presented access token until its natural
// expiry and best-effort revokes the optional refresh token.
func (s *AuthService) Logout(ctx context.Context, claims *AccessClaims, rawToken, refreshToken, ip string) error {
	expiresAt := time.Now().UTC().Add(s.tokens.AccessTTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	entry := &domain.BlacklistEntry{
		Token:     rawToken,
		UserID:    claims.Subject,
		Role:      domain.Role(claims.Role),
		ExpiresAt: expiresAt,
		Reason:    "logout",
	}
	if err := s.blacklist.Add(ctx, entry); err != nil {
		log.Error().Err(err).Msg("blacklisting access token")
		return autherrors.NewServerError()
	}
	if err := s.revoked.SetRevoked(ctx, rawToken, expiresAt); err != nil {
		log.Warn().Err(err).Msg("caching token revocation")
	}

	if refreshToken != "" {
		if err := s.refresh.Revoke(ctx, refreshToken, ip); err != nil {
			log.Warn().Err(err).Msg("revoking refresh token on logout")
		}
	}
	audit.Log("logout", claims.Role, claims.Subject, "", "", true, nil)
	return nil
}

// IsRevoked checks the revocation cache first and falls back to the
// blacklist collection, caching the result either way.
func (s *AuthService) IsRevoked(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	if revoked, found := s.revoked.Get(ctx, token); found {
		return revoked, nil
	}
	revoked, err := s.blacklist.IsBlacklisted(ctx, token)
	if err != nil {
		return false, err
	}
	if revoked {
		if err := s.revoked.SetRevoked(ctx, token, expiresAt); err != nil {
			log.Warn().Err(err).Msg("caching token revocation")
		}
	} else if err := s.revoked.SetMiss(ctx, token); err != nil {
		log.Warn().Err(err).Msg("caching blacklist miss")
	}
	return revoked, nil
}

// ForgotPassword issues a reset claim and emails it, answering
// identically whether or not the address matches an account.
func (s *AuthService) ForgotPassword(ctx context.Context, role domain.Role, email string) error {
	if !role.PasswordResetAllowed() {
		return autherrors.NewValidationFailed("password reset is not available for this role, contact your supervisor")
	}
	strategy, ok := s.roles.Get(role)
	if !ok {
		return autherrors.NewValidationFailed("unknown role")
	}

	account, err := strategy.Accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			audit.Log("forgot_password", string(role), email, "", "unknown email", false, nil)
			return nil
		}
		log.Error().Err(err).Msg("forgot password lookup")
		return autherrors.NewServerError()
	}

	token, err := s.tokens.IssuePasswordReset(account)
	if err != nil {
		log.Error().Err(err).Msg("issuing password reset token")
		return autherrors.NewServerError()
	}
	resetURL := fmt.Sprintf("%s/%s/reset-password?token=%s", s.appOrigin, role, token)
	go func() {
		if err := s.mailer.SendPasswordReset(context.Background(), account.Email, resetURL); err != nil {
			log.Error().Err(err).Str("email", account.Email).Msg("sending password reset email")
		}
	}()
	audit.Log("forgot_password", string(role), account.ID, "", "", true, nil)
	return nil
}

// ResetPassword redeems a reset claim and replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.ParsePasswordReset(token)
	if err != nil {
		return autherrors.NewTokenInvalid()
	}
	role := domain.Role(claims.Role)
	strategy, ok := s.roles.Get(role)
	if !ok {
		return autherrors.NewTokenInvalid()
	}
	account, err := strategy.Accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		return autherrors.NewTokenInvalid()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		log.Error().Err(err).Msg("hashing new password")
		return autherrors.NewServerError()
	}
	if err := strategy.Accounts.UpdatePassword(ctx, account.ID, hash, true); err != nil {
		log.Error().Err(err).Msg("updating password")
		return autherrors.NewServerError()
	}
	audit.Log("reset_password", claims.Role, account.ID, "", "", true, nil)
	return nil
}

// ChangePassword verifies the current password, stores the new hash,
// retires the presented token, and issues a full credential pair. This
// is also the only exit from a restricted token.
func (s *AuthService) ChangePassword(ctx context.Context, claims *AccessClaims, rawToken, currentPassword, newPassword, ip string) (*LoginResult, error) {
	role := domain.Role(claims.Role)
	strategy, ok := s.roles.Get(role)
	if !ok {
		return nil, autherrors.NewTokenInvalid()
	}
	account, err := strategy.Accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, autherrors.NewTokenInvalid()
	}
	if err := s.hasher.Verify(account.PasswordHash, currentPassword); err != nil {
		audit.Log("change_password", claims.Role, account.ID, "", "current password mismatch", false, nil)
		return nil, autherrors.NewAuthenticationFailed()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		log.Error().Err(err).Msg("hashing new password")
		return nil, autherrors.NewServerError()
	}
	if err := strategy.Accounts.UpdatePassword(ctx, account.ID, hash, true); err != nil {
		log.Error().Err(err).Msg("updating password")
		return nil, autherrors.NewServerError()
	}

	// The old token must not outlive the password it was issued under.
	if err := s.Logout(ctx, claims, rawToken, "", ip); err != nil {
		log.Warn().Err(err).Msg("retiring token after password change")
	}

	account.RequirePasswordChange = false
	pair, err := s.IssuePair(ctx, account, ip)
	if err != nil {
		return nil, err
	}
	audit.Log("change_password", claims.Role, account.ID, "", "", true, nil)
	return &LoginResult{Pair: pair, Account: account}, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 40)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
