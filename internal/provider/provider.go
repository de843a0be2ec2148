package provider

import "context"

// Profile is the normalized identity a provider yields after a successful
// consent flow. It is the only thing the broker consumes from a provider.
type Profile struct {
	Subject       string
	Email         string
	EmailVerified bool
	DisplayName   string
}

// OAuthProvider defines the contract an external auth provider must
// implement. Implementations return identity facts only and must not perform
// user creation, linking, or session management.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "google").
	Name() string

	// AuthCodeURL returns the OAuth authorization URL. The state parameter
	// carries the handshake handle through the redirect chain.
	AuthCodeURL(state string) string

	// Exchange trades the authorization code for provider credentials and
	// returns a normalized profile. No auth decisions are made here.
	Exchange(ctx context.Context, code string) (*Profile, error)
}
