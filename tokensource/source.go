// Package tokensource provides credential providers for httpclient.
//
// A Source caches an OAuth2 token, serves it until it nears expiry and
// fetches a new one when the client asks for a refresh:
//
//	src := tokensource.ClientCredentials(&clientcredentials.Config{...})
//	c := httpclient.NewBuilder(log).WithTokenProvider(src).Build()
package tokensource

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/gaborage/go-authclient/httpclient"
)

const defaultExpiryDelta = 10 * time.Second

// ErrNoToken is returned when a fetch yields no access token.
var ErrNoToken = errors.New("tokensource: no access token returned")

// Fetcher obtains a new token. It must not serve a cached value.
type Fetcher func(ctx context.Context) (*oauth2.Token, error)

// Source is a refreshable, expiry-aware credential provider.
type Source struct {
	fetch       Fetcher
	classify    Classifier
	expiryDelta time.Duration
	httpClient  *nethttp.Client
	now         func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

var (
	_ httpclient.AuthTokenProvider = (*Source)(nil)
	_ httpclient.TokenRefresher    = (*Source)(nil)
	_ httpclient.ExpiryDetector    = (*Source)(nil)
)

// Option configures a Source.
type Option func(*Source)

// WithClassifier replaces OnUnauthorized as the expiry classifier.
func WithClassifier(c Classifier) Option {
	return func(s *Source) {
		if c != nil {
			s.classify = c
		}
	}
}

// WithJWTExpiryCheck classifies a 401 as expiry only when the cached token
// is a JWT whose exp has passed. Opaque tokens fall back to OnUnauthorized.
func WithJWTExpiryCheck() Option {
	return func(s *Source) { s.classify = s.jwtExpired }
}

// WithExpiryDelta sets how long before expiry a token stops being served.
func WithExpiryDelta(d time.Duration) Option {
	return func(s *Source) {
		if d >= 0 {
			s.expiryDelta = d
		}
	}
}

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *nethttp.Client) Option {
	return func(s *Source) { s.httpClient = c }
}

// WithInitialToken seeds the cache.
func WithInitialToken(tok *oauth2.Token) Option {
	return func(s *Source) { s.token = tok }
}

// New creates a Source around fetch.
func New(fetch Fetcher, opts ...Option) *Source {
	s := &Source{
		fetch:       fetch,
		classify:    OnUnauthorized,
		expiryDelta: defaultExpiryDelta,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetToken returns the cached access token, fetching when it is missing or
// about to expire.
func (s *Source) GetToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.freshLocked() {
		return s.token.AccessToken, nil
	}
	return s.fetchLocked(ctx)
}

// RefreshToken fetches a new token regardless of the cache. When the fetch
// fails the cached access token is dropped anyway, so GetToken will not hand
// out a credential the server rejected. A refresh token survives for the
// next attempt.
func (s *Source) RefreshToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, err := s.fetchLocked(ctx)
	if err != nil && s.token != nil {
		s.token = &oauth2.Token{RefreshToken: s.token.RefreshToken}
	}
	return tok, err
}

// IsTokenExpired reports whether err should trigger a refresh.
func (s *Source) IsTokenExpired(err error) bool {
	return s.classify(err)
}

// Token returns a copy of the cached token, or nil.
func (s *Source) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil
	}
	tok := *s.token
	return &tok
}

func (s *Source) freshLocked() bool {
	if s.token == nil || s.token.AccessToken == "" {
		return false
	}
	exp := tokenExpiry(s.token)
	return exp.IsZero() || s.now().Add(s.expiryDelta).Before(exp)
}

func (s *Source) fetchLocked(ctx context.Context) (string, error) {
	if s.fetch == nil {
		return "", ErrNoToken
	}
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	tok, err := s.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("tokensource: fetch failed: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		s.token = nil
		return "", ErrNoToken
	}
	s.token = tok
	return tok.AccessToken, nil
}

func (s *Source) jwtExpired(err error) bool {
	if !httpclient.IsUnauthorized(err) {
		return false
	}
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()
	if tok == nil {
		return true
	}
	exp, perr := Expiry(tok.AccessToken)
	if perr != nil {
		return true
	}
	return !s.now().Add(s.expiryDelta).Before(exp)
}

// tokenExpiry prefers the endpoint's expires_in and falls back to a JWT exp claim.
func tokenExpiry(tok *oauth2.Token) time.Time {
	if !tok.Expiry.IsZero() {
		return tok.Expiry
	}
	if exp, err := Expiry(tok.AccessToken); err == nil {
		return exp
	}
	return time.Time{}
}
