package tokensource

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by Expiry for JWTs without an exp claim.
var ErrNoExpiry = errors.New("tokensource: token has no exp claim")

// Expiry reads the exp claim of a JWT without verifying its signature.
// The value is only a freshness hint; the API still validates the token.
func Expiry(raw string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
