package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// IdentityAPI is the slice of the backend boundary the orchestrator
// drives. Every network failure surfaces as an error, never as a value.
type IdentityAPI interface {
	// SingleUserMode reports whether multi-user auth is disabled
	SingleUserMode(ctx context.Context) (bool, error)

	// AuthorizationURL builds the provider redirect carrying the
	// anti-forgery state value
	AuthorizationURL(ctx context.Context, provider, redirectURI, state string) (string, error)

	// ExchangeCode redeems an authorization code for an access token
	ExchangeCode(ctx context.Context, code, provider string) (*oauth2.Token, error)

	// Subject resolves the principal behind an explicit token
	Subject(ctx context.Context, token, provider string) (string, error)

	// ValidateToken pings the backend with the ambient credential
	ValidateToken(ctx context.Context) error

	// SetCredentials installs the ambient credential pair for all
	// subsequent requests
	SetCredentials(token, provider string)

	// ClearCredentials removes the ambient credential pair
	ClearCredentials()
}

// Navigator receives the orchestrator's terminal navigation actions.
type Navigator interface {
	// ToLogin sends the user to the login surface
	ToLogin()

	// ToProvider hands the user off to the identity provider's
	// authorization URL. Control leaves the application until the
	// provider redirects back.
	ToProvider(url string)
}
