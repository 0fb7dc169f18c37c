package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laundryhub/laundryhub-auth/domain"
	autherrors "github.com/laundryhub/laundryhub-auth/errors"
)

type registrationFixture struct {
	svc        *RegistrationService
	tokens     *TokenService
	affiliates *fakeAccountRepo
	mailer     *fakeMailer
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()
	affiliates := newFakeAccountRepo()
	customers := newFakeAccountRepo()
	roles := NewRoleRegistry(affiliates, customers, newFakeAccountRepo(), newFakeAccountRepo())
	tokens := NewTokenService("test-secret", "laundryhub-auth", "laundryhub-api", time.Hour, roles)
	mailer := &fakeMailer{}
	auth := NewAuthService(roles, tokens, newFakeRefreshRepo(), newFakeBlacklist(), fakeRevocationStore{}, fakeHasher{}, mailer, 30*24*time.Hour, "https://app.example.com")
	svc := NewRegistrationService(roles, tokens, auth, fakeHasher{}, fakeEncryptor{}, mailer)
	return &registrationFixture{svc: svc, tokens: tokens, affiliates: affiliates, mailer: mailer}
}

func (f *registrationFixture) preRegToken(t *testing.T, email, first, last string) string {
	t.Helper()
	token, err := f.tokens.IssuePreRegistration("google", "g-77", email, first, last, "prov-access", "prov-refresh")
	require.NoError(t, err)
	return token
}

func TestCompleteCreatesAccount(t *testing.T) {
	f := newRegistrationFixture(t)
	ctx := context.Background()

	result, err := f.svc.Complete(ctx, domain.RoleAffiliate, f.preRegToken(t, "new@example.com", "Sam", "Rivera"), &CompletionInput{
		CompanyName: "Rivera Laundry",
		Phone:       "555-0100",
	}, "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, result.Account)
	assert.NotEmpty(t, result.Pair.AccessToken)
	assert.NotEmpty(t, result.Pair.RefreshToken)

	account := result.Account
	assert.Equal(t, domain.RoleAffiliate, account.Role)
	assert.Equal(t, "new@example.com", account.Email)
	assert.Equal(t, "samrivera", account.Username)
	assert.Equal(t, "Rivera Laundry", account.CompanyName)
	assert.Regexp(t, `^AFF-[0-9A-F]{8}$`, account.PublicID)
	assert.NotEmpty(t, account.PasswordHash)

	link, ok := account.SocialLink("google")
	require.True(t, ok)
	assert.Equal(t, "g-77", link.ProviderID)
	assert.Equal(t, "enc:prov-access", link.AccessToken, "provider tokens are stored encrypted")
	assert.Equal(t, "enc:prov-refresh", link.RefreshToken)
}

func TestCompleteSanitizesProfileFields(t *testing.T) {
	f := newRegistrationFixture(t)

	result, err := f.svc.Complete(context.Background(), domain.RoleAffiliate,
		f.preRegToken(t, "new@example.com", "<b>Sam</b>", "Rivera<script>alert(1)</script>"),
		&CompletionInput{CompanyName: "<i>Shiny</i> Laundry"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "Sam", result.Account.FirstName)
	assert.Equal(t, "Rivera", result.Account.LastName)
	assert.Equal(t, "Shiny Laundry", result.Account.CompanyName)
}

func TestCompleteRejectsEmptiedRequiredField(t *testing.T) {
	f := newRegistrationFixture(t)

	// Sanitization strips the whole first name, which must fail hard
	// rather than register a blank profile.
	_, err := f.svc.Complete(context.Background(), domain.RoleAffiliate,
		f.preRegToken(t, "new@example.com", "<script>x</script>", "Rivera"), nil, "10.0.0.1")
	var authErr *autherrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 400, authErr.Status)
}

func TestCompleteRejectsEmptiedLastName(t *testing.T) {
	f := newRegistrationFixture(t)

	// A markup-only last name sanitizes to nothing; that must be a
	// hard failure, not a blank field on the new account.
	_, err := f.svc.Complete(context.Background(), domain.RoleAffiliate,
		f.preRegToken(t, "new@example.com", "Sam", "<script>x</script>"), nil, "10.0.0.1")
	var authErr *autherrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 400, authErr.Status)
	assert.Equal(t, 0, f.affiliates.createCalls)
}

func TestCompleteAllowsAbsentLastName(t *testing.T) {
	f := newRegistrationFixture(t)

	// Single-name provider profiles carry no last name at all; those
	// stay registrable.
	res, err := f.svc.Complete(context.Background(), domain.RoleAffiliate,
		f.preRegToken(t, "new@example.com", "Sam", ""), nil, "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, f.affiliates.createCalls)
}

func TestCompleteDuplicateEmail(t *testing.T) {
	f := newRegistrationFixture(t)
	f.affiliates.accounts["aff-1"] = &domain.Account{
		ID:    "aff-1",
		Role:  domain.RoleAffiliate,
		Email: "new@example.com",
	}

	_, err := f.svc.Complete(context.Background(), domain.RoleAffiliate,
		f.preRegToken(t, "new@example.com", "Sam", "Rivera"), nil, "10.0.0.1")
	var authErr *autherrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 400, authErr.Status)
	assert.Equal(t, 0, f.affiliates.createCalls, "duplicate check happens before any write")
}

func TestCompleteDuplicateProviderIdentity(t *testing.T) {
	f := newRegistrationFixture(t)
	f.affiliates.accounts["aff-1"] = &domain.Account{
		ID:    "aff-1",
		Role:  domain.RoleAffiliate,
		Email: "other@example.com",
		SocialAccounts: map[string]domain.SocialAccount{
			"google": {ProviderID: "g-77"},
		},
	}

	_, err := f.svc.Complete(context.Background(), domain.RoleAffiliate,
		f.preRegToken(t, "new@example.com", "Sam", "Rivera"), nil, "10.0.0.1")
	var authErr *autherrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 400, authErr.Status)
	assert.Equal(t, 0, f.affiliates.createCalls)
}

func TestCompleteUsernameCollisionGetsSuffix(t *testing.T) {
	f := newRegistrationFixture(t)
	f.affiliates.accounts["aff-1"] = &domain.Account{
		ID:       "aff-1",
		Role:     domain.RoleAffiliate,
		Email:    "taken@example.com",
		Username: "samrivera",
	}

	result, err := f.svc.Complete(context.Background(), domain.RoleAffiliate,
		f.preRegToken(t, "new@example.com", "Sam", "Rivera"), nil, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "samrivera1", result.Account.Username)
}

func TestCompleteRejectsGarbageToken(t *testing.T) {
	f := newRegistrationFixture(t)

	_, err := f.svc.Complete(context.Background(), domain.RoleAffiliate, "not-a-token", nil, "10.0.0.1")
	var authErr *autherrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 400, authErr.Status)
}

func TestCompleteRejectsPasswordOnlyRoles(t *testing.T) {
	f := newRegistrationFixture(t)

	_, err := f.svc.Complete(context.Background(), domain.RoleAdmin,
		f.preRegToken(t, "new@example.com", "Sam", "Rivera"), nil, "10.0.0.1")
	var authErr *autherrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 400, authErr.Status)
}
