package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	githubOAuth2 "golang.org/x/oauth2/github"
)

var (
	githubUserInfoEndpoint   = "https://api.github.com/user"
	githubUserEmailsEndpoint = "https://api.github.com/user/emails"
)

// GitHubProvider adapts GitHub's user shape. GitHub needs a second
// call for the primary email when the profile email is private, and
// carries a single display name that has to be split.
type GitHubProvider struct {
	baseProvider
}

func NewGitHubProvider(creds Credentials) *GitHubProvider {
	return &GitHubProvider{baseProvider{
		name: "github",
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     githubOAuth2.Endpoint,
		},
	}}
}

func (g *GitHubProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*UserProfile, error) {
	client := g.httpClient(ctx, token)

	resp, err := client.Get(githubUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("github: %w: %v", ErrFetchProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github: %w: status %d, body: %s", ErrFetchProfileFailed, resp.StatusCode, string(body))
	}

	var raw struct {
		ID        json.Number `json:"id"`
		Login     string      `json:"login"`
		Name      string      `json:"name"`
		Email     string      `json:"email"` // may be null when set to private
		AvatarURL string      `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("github: failed to decode user info: %w", err)
	}

	email := raw.Email
	if email == "" {
		email, err = g.fetchPrimaryEmail(ctx, client)
		if err != nil {
			return nil, err
		}
	}

	firstName, lastName := splitName(raw.Name)
	if firstName == "" {
		firstName = raw.Login
	}

	return &UserProfile{
		ProviderID: raw.ID.String(),
		Email:      email,
		FirstName:  firstName,
		LastName:   lastName,
		Name:       raw.Name,
		PictureURL: raw.AvatarURL,
	}, nil
}

func (g *GitHubProvider) fetchPrimaryEmail(ctx context.Context, client *http.Client) (string, error) {
	resp, err := client.Get(githubUserEmailsEndpoint)
	if err != nil {
		return "", fmt.Errorf("github: %w: %v", ErrFetchProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil // email scope not granted, proceed without
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", fmt.Errorf("github: failed to decode user emails: %w", err)
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

// splitName breaks a single display name into first/last on the final
// space, the best available mapping for GitHub profiles.
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

var _ Provider = (*GitHubProvider)(nil)
