package federation

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// Registry is the startup-time capability table: only providers with
// complete credentials are registered, and the route layer rejects
// everything else with a 404 instead of silently no-oping.
type Registry struct {
	providers map[string]Provider
}

// RegistryConfig carries credentials for the three supported providers.
// RedirectURL is shared: providers redirect back to the single
// callback endpoint, and the state parameter carries the rest.
type RegistryConfig struct {
	Google   Credentials
	Facebook Credentials
	GitHub   Credentials
}

// NewRegistry builds the capability table from configuration.
func NewRegistry(cfg RegistryConfig) *Registry {
	r := &Registry{providers: make(map[string]Provider)}

	if cfg.Google.Configured() {
		r.providers["google"] = NewGoogleProvider(cfg.Google)
	}
	if cfg.Facebook.Configured() {
		r.providers["facebook"] = NewFacebookProvider(cfg.Facebook)
	}
	if cfg.GitHub.Configured() {
		r.providers["github"] = NewGitHubProvider(cfg.GitHub)
	}

	log.Info().Strs("providers", r.Names()).Msg("OAuth provider registry initialized")
	return r
}

// Get returns a configured provider, or ErrProviderNotConfigured.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotConfigured
	}
	return p, nil
}

// Names lists the configured provider keys.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
