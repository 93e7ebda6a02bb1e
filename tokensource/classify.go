package tokensource

import (
	"strings"

	"github.com/gaborage/go-authclient/httpclient"
)

// Classifier decides whether a failed request was caused by an expired credential.
type Classifier func(err error) bool

// OnUnauthorized treats every 401 as an expired credential.
func OnUnauthorized(err error) bool {
	return httpclient.IsUnauthorized(err)
}

// InvalidTokenChallenge treats a 401 as expiry unless its WWW-Authenticate
// challenge names an error other than invalid_token (RFC 6750 section 3.1).
func InvalidTokenChallenge(err error) bool {
	se, ok := httpclient.AsStatusError(err)
	if !ok || !httpclient.IsUnauthorized(err) {
		return false
	}
	var challenge string
	if h := se.Header(); h != nil {
		challenge = strings.ToLower(h.Get("WWW-Authenticate"))
	}
	if !strings.Contains(challenge, "error=") {
		return true
	}
	return strings.Contains(challenge, `error="invalid_token"`) || strings.Contains(challenge, "error=invalid_token")
}
