package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("auth: no credentials")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Principal is the authenticated caller.
type Principal struct {
	Subject  string
	Username string
}

// Verifier validates Cognito access tokens: RS256 signature against the
// pool's key set, issuer, expiry, token_use and client id.
type Verifier struct {
	keys     KeySource
	issuer   string
	clientID string
}

func NewVerifier(keys KeySource, issuer, clientID string) *Verifier {
	return &Verifier{keys: keys, issuer: issuer, clientID: clientID}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (Principal, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("kid header not found")
		}
		return v.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, ErrKeySource) {
		return Principal{}, err
	}
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, ErrInvalidToken
	}
	if use, _ := claims["token_use"].(string); use != "access" {
		return Principal{}, fmt.Errorf("%w: token_use %q", ErrInvalidToken, use)
	}
	if cid, _ := claims["client_id"].(string); cid != v.clientID {
		return Principal{}, fmt.Errorf("%w: client_id %q", ErrInvalidToken, cid)
	}

	sub, _ := claims.GetSubject()
	username, _ := claims["username"].(string)
	return Principal{Subject: sub, Username: username}, nil
}

// TokenFromHeader extracts the token from an Authorization header of the
// form "Bearer <token>" or "Token <token>".
func TokenFromHeader(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return "", ErrNoToken
	}
	if !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
		return "", ErrNoToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
