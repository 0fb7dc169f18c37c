package federation

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// UserProfile is the standardized identity extracted from a provider's
// userinfo response. Each provider adapter maps its own profile shape
// onto these fields; everything downstream is provider-agnostic.
type UserProfile struct {
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
	Name       string
	PictureURL string
}

// Credentials is the configuration a provider adapter needs.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Configured reports whether the provider can be registered at all.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Provider is one external OAuth2 identity provider. Implementations
// differ only in endpoints, scopes and userinfo parsing.
type Provider interface {
	// Name is the unique provider key ("google", "facebook", "github").
	Name() string

	// AuthCodeURL builds the authorization URL the user is redirected
	// to. state is echoed back verbatim by the provider (OAuth
	// contract) and carries the handshake session id.
	AuthCodeURL(state string) string

	// Exchange swaps an authorization code for a provider token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchProfile retrieves and normalizes the user's profile.
	FetchProfile(ctx context.Context, token *oauth2.Token) (*UserProfile, error)
}

// baseProvider holds the pieces shared by every adapter.
type baseProvider struct {
	name   string
	config *oauth2.Config
}

func (b *baseProvider) Name() string {
	return b.name
}

func (b *baseProvider) AuthCodeURL(state string) string {
	return b.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (b *baseProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := b.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", b.name, ErrExchangeCodeFailed, err)
	}
	return token, nil
}

func (b *baseProvider) httpClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return b.config.Client(ctx, token)
}
