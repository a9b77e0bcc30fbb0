package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/jwk"
)

// ErrKeySource marks failures to reach the key set, as opposed to a token
// naming a key the set does not hold.
var ErrKeySource = errors.New("auth: key set unavailable")

// KeySource resolves a signing key by its key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (any, error)
}

// JWKS serves keys from a remote JSON Web Key Set, refreshed in the
// background for as long as the context passed to NewJWKS lives.
type JWKS struct {
	url string
	ar  *jwk.AutoRefresh
}

func NewJWKS(ctx context.Context, url string, minRefresh time.Duration) *JWKS {
	ar := jwk.NewAutoRefresh(ctx)
	ar.Configure(url, jwk.WithMinRefreshInterval(minRefresh))
	return &JWKS{url: url, ar: ar}
}

// CognitoJWKSURL is the well-known key set of a user pool.
func CognitoJWKSURL(region, userPoolID string) string {
	return CognitoIssuer(region, userPoolID) + "/.well-known/jwks.json"
}

func CognitoIssuer(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}

// Key looks kid up in the cached set and refetches the set once on a miss,
// which covers key rotation.
func (j *JWKS) Key(ctx context.Context, kid string) (any, error) {
	set, err := j.ar.Fetch(ctx, j.url)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch jwks: %w", ErrKeySource, err)
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		if set, err = j.ar.Refresh(ctx, j.url); err != nil {
			return nil, fmt.Errorf("%w: refresh jwks: %w", ErrKeySource, err)
		}
		if key, ok = set.LookupKeyID(kid); !ok {
			return nil, fmt.Errorf("auth: key %q not found", kid)
		}
	}

	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("auth: key %q: %w", kid, err)
	}
	return raw, nil
}
