package api

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// SingleUserMode reports whether the deployment has disabled multi-user
// authentication. A transport failure is returned as an error, never
// silently treated as "false".
func (c *Client) SingleUserMode(ctx context.Context) (bool, error) {
	var data struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.get(ctx, "/api/auth/single-user", nil, &data); err != nil {
		return false, errors.Wrap(err, "[Client.SingleUserMode]")
	}
	return data.Enabled, nil
}

// Providers lists the enabled identity providers in backend order.
func (c *Client) Providers(ctx context.Context) ([]string, error) {
	var data struct {
		Providers []string `json:"providers"`
	}
	if err := c.get(ctx, "/api/auth/providers", nil, &data); err != nil {
		return nil, errors.Wrap(err, "[Client.Providers]")
	}
	return data.Providers, nil
}

// AuthorizationURL asks the backend to build the provider's
// authorization redirect URL carrying the given anti-forgery state.
func (c *Client) AuthorizationURL(ctx context.Context, provider, redirectURI, state string) (string, error) {
	query := url.Values{
		"provider":     {provider},
		"redirect_uri": {redirectURI},
		"state":        {state},
	}
	var data struct {
		URL string `json:"url"`
	}
	if err := c.get(ctx, "/api/auth/url", query, &data); err != nil {
		return "", errors.Wrap(err, "[Client.AuthorizationURL]")
	}
	return data.URL, nil
}

// ExchangeCode redeems an authorization code for an access token. The
// backend proxies the provider's token endpoint, so only the access
// token comes back; it is wrapped as a bearer oauth2.Token.
func (c *Client) ExchangeCode(ctx context.Context, code, provider string) (*oauth2.Token, error) {
	query := url.Values{
		"code":     {code},
		"provider": {provider},
	}
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.get(ctx, "/api/auth/token", query, &data); err != nil {
		return nil, errors.Wrap(err, "[Client.ExchangeCode]")
	}
	if data.AccessToken == "" {
		return nil, errors.New("[Client.ExchangeCode] empty access token in response")
	}
	return &oauth2.Token{AccessToken: data.AccessToken, TokenType: "bearer"}, nil
}

// Subject resolves the authenticated principal behind token. The token
// is passed explicitly rather than through the ambient credential, so
// the caller can resolve a subject mid-login before the credential pair
// has been installed.
func (c *Client) Subject(ctx context.Context, token, provider string) (string, error) {
	query := url.Values{"provider": {provider}}
	var data struct {
		Subject string `json:"subject"`
	}
	if err := c.get(ctx, "/api/user/subject", query, &data, withBearer(token)); err != nil {
		return "", errors.Wrap(err, "[Client.Subject]")
	}
	return data.Subject, nil
}

// ValidateToken pings the backend with the ambient credential. Any
// non-success response or transport failure is an error; the caller
// decides what invalidation means.
func (c *Client) ValidateToken(ctx context.Context) error {
	if err := c.get(ctx, "/api/ping/auth", nil, nil); err != nil {
		return errors.Wrap(err, "[Client.ValidateToken]")
	}
	return nil
}
