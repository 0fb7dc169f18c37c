package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	facebookOAuth2 "golang.org/x/oauth2/facebook"
)

var facebookUserInfoEndpoint = "https://graph.facebook.com/me?fields=id,name,first_name,last_name,email,picture"

// FacebookProvider adapts the Graph API /me shape.
type FacebookProvider struct {
	baseProvider
}

func NewFacebookProvider(creds Credentials) *FacebookProvider {
	return &FacebookProvider{baseProvider{
		name: "facebook",
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebookOAuth2.Endpoint,
		},
	}}
}

func (f *FacebookProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*UserProfile, error) {
	resp, err := f.httpClient(ctx, token).Get(facebookUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("facebook: %w: %v", ErrFetchProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("facebook: %w: status %d, body: %s", ErrFetchProfileFailed, resp.StatusCode, string(body))
	}

	var raw struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"` // empty if the user declined the email permission
		Picture   struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("facebook: failed to decode user info: %w", err)
	}

	return &UserProfile{
		ProviderID: raw.ID,
		Email:      raw.Email,
		FirstName:  raw.FirstName,
		LastName:   raw.LastName,
		Name:       raw.Name,
		PictureURL: raw.Picture.Data.URL,
	}, nil
}

var _ Provider = (*FacebookProvider)(nil)
