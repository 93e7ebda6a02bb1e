package tokensource

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNoRefreshToken is returned by RefreshTokenGrant sources that hold no refresh token.
var ErrNoRefreshToken = errors.New("tokensource: no refresh token available")

// ClientCredentials fetches tokens with the OAuth2 client credentials grant.
func ClientCredentials(cfg *clientcredentials.Config, opts ...Option) *Source {
	return New(cfg.Token, opts...)
}

// RefreshTokenGrant redeems the cached refresh token for a new access token.
// Rotated refresh tokens replace the old one.
func RefreshTokenGrant(cfg *oauth2.Config, initial *oauth2.Token, opts ...Option) *Source {
	s := New(nil, append([]Option{WithInitialToken(initial)}, opts...)...)
	s.fetch = func(ctx context.Context) (*oauth2.Token, error) {
		// Runs under s.mu, so s.token is stable here.
		if s.token == nil || s.token.RefreshToken == "" {
			return nil, ErrNoRefreshToken
		}
		return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: s.token.RefreshToken}).Token()
	}
	return s
}

// FromTokenSource adapts an existing oauth2.TokenSource. ts should not cache,
// otherwise RefreshToken returns the same token again.
func FromTokenSource(ts oauth2.TokenSource, opts ...Option) *Source {
	return New(func(context.Context) (*oauth2.Token, error) {
		return ts.Token()
	}, opts...)
}
