package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	googleOAuth2 "golang.org/x/oauth2/google"
)

var googleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider adapts Google's OIDC userinfo shape.
type GoogleProvider struct {
	baseProvider
}

func NewGoogleProvider(creds Credentials) *GoogleProvider {
	return &GoogleProvider{baseProvider{
		name: "google",
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     googleOAuth2.Endpoint,
		},
	}}
}

func (g *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*UserProfile, error) {
	resp, err := g.httpClient(ctx, token).Get(googleUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("google: %w: %v", ErrFetchProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google: %w: status %d, body: %s", ErrFetchProfileFailed, resp.StatusCode, string(body))
	}

	var raw struct {
		Sub        string `json:"sub"`
		Name       string `json:"name"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
		Email      string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("google: failed to decode user info: %w", err)
	}

	return &UserProfile{
		ProviderID: raw.Sub,
		Email:      raw.Email,
		FirstName:  raw.GivenName,
		LastName:   raw.FamilyName,
		Name:       raw.Name,
		PictureURL: raw.Picture,
	}, nil
}

var _ Provider = (*GoogleProvider)(nil)
