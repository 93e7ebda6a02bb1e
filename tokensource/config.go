package tokensource

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/gaborage/go-authclient/config"
	"github.com/gaborage/go-authclient/httpclient"
)

// Static always returns token. It cannot refresh, so 401s are returned as is.
func Static(token string) httpclient.AuthTokenProvider {
	return httpclient.TokenFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// FromConfig builds the provider cfg selects. It returns nil for type "none".
func FromConfig(cfg config.AuthConfig, opts ...Option) (httpclient.AuthTokenProvider, error) {
	switch cfg.Type {
	case "", config.AuthNone:
		return nil, nil
	case config.AuthStatic:
		return Static(cfg.Token), nil
	case config.AuthClientCredentials:
		return ClientCredentials(&clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}, opts...), nil
	default:
		return nil, fmt.Errorf("tokensource: unknown auth type %q", cfg.Type)
	}
}
