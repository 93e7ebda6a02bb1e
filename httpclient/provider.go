package httpclient

import "context"

// AuthTokenProvider supplies the bearer credential for outgoing requests.
// An empty token means "send without Authorization".
type AuthTokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// TokenRefresher is implemented by providers that can obtain a new credential.
type TokenRefresher interface {
	RefreshToken(ctx context.Context) (string, error)
}

// ExpiryDetector is implemented by providers that can tell whether a failed
// request was caused by an expired credential.
type ExpiryDetector interface {
	IsTokenExpired(err error) bool
}

// TokenFunc adapts a function to AuthTokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// GetToken calls f(ctx).
func (f TokenFunc) GetToken(ctx context.Context) (string, error) { return f(ctx) }

type refreshableFuncs struct {
	TokenFunc
	refresh TokenFunc
	expired func(error) bool
}

func (p refreshableFuncs) RefreshToken(ctx context.Context) (string, error) { return p.refresh(ctx) }
func (p refreshableFuncs) IsTokenExpired(err error) bool                    { return p.expired(err) }

// ProviderFuncs builds a provider from plain functions. Refresh handling is
// only advertised when both refresh and expired are non-nil.
func ProviderFuncs(get, refresh TokenFunc, expired func(error) bool) AuthTokenProvider {
	if get == nil {
		get = func(context.Context) (string, error) { return "", nil }
	}
	if refresh == nil || expired == nil {
		return get
	}
	return refreshableFuncs{TokenFunc: get, refresh: refresh, expired: expired}
}

// refreshCapabilities returns the optional refresh halves of p, or ok=false
// when either is missing.
func refreshCapabilities(p AuthTokenProvider) (TokenRefresher, ExpiryDetector, bool) {
	if p == nil {
		return nil, nil, false
	}
	r, okR := p.(TokenRefresher)
	d, okD := p.(ExpiryDetector)
	if !okR || !okD {
		return nil, nil, false
	}
	return r, d, true
}
