package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOnlyRegistersConfiguredProviders(t *testing.T) {
	registry := NewRegistry(RegistryConfig{
		Google: Credentials{
			ClientID:     "id",
			ClientSecret: "secret",
			RedirectURL:  "https://example.com/cb",
		},
		// Facebook and GitHub left unconfigured.
	})

	assert.Equal(t, []string{"google"}, registry.Names())

	p, err := registry.Get("google")
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())

	_, err = registry.Get("facebook")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
	_, err = registry.Get("twitter")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestRegistryAuthCodeURLCarriesState(t *testing.T) {
	registry := NewRegistry(RegistryConfig{
		GitHub: Credentials{
			ClientID:     "gh-id",
			ClientSecret: "gh-secret",
			RedirectURL:  "https://example.com/cb",
		},
	})

	p, err := registry.Get("github")
	require.NoError(t, err)
	url := p.AuthCodeURL("affiliate:sess-1")
	assert.Contains(t, url, "client_id=gh-id")
	assert.Contains(t, url, "state=affiliate%3Asess-1")
}

func TestCredentialsConfigured(t *testing.T) {
	assert.False(t, Credentials{}.Configured())
	assert.False(t, Credentials{ClientID: "id"}.Configured())
	assert.True(t, Credentials{ClientID: "id", ClientSecret: "s"}.Configured())
}
