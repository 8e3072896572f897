package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// AuthProvider supplies authentication headers for the HTTP-family
// transports (SSE, streamable HTTP, WebSocket).
type AuthProvider interface {
	// AuthHeaders returns the headers to attach to every outbound request.
	AuthHeaders() map[string]string
}

// noAuth sends no headers.
type noAuth struct{}

// NewNoAuth creates an AuthProvider that attaches nothing. Useful to
// explicitly opt out where a provider is required.
func NewNoAuth() AuthProvider {
	return noAuth{}
}

func (noAuth) AuthHeaders() map[string]string { return nil }

// bearerAuth attaches a static Bearer token.
type bearerAuth struct {
	token string
}

// NewBearerAuth creates an AuthProvider sending "Authorization: Bearer ...".
func NewBearerAuth(token string) AuthProvider {
	return &bearerAuth{token: token}
}

func (a *bearerAuth) AuthHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.token}
}

// basicAuth attaches HTTP Basic credentials.
type basicAuth struct {
	encoded string
}

// NewBasicAuth creates an AuthProvider sending "Authorization: Basic ...".
func NewBasicAuth(username, password string) AuthProvider {
	return &basicAuth{
		encoded: base64.StdEncoding.EncodeToString([]byte(username + ":" + password)),
	}
}

func (a *basicAuth) AuthHeaders() map[string]string {
	return map[string]string{"Authorization": "Basic " + a.encoded}
}

// headerAuth attaches arbitrary custom headers.
type headerAuth struct {
	headers map[string]string
}

// NewHeaderAuth creates an AuthProvider sending the given headers verbatim.
func NewHeaderAuth(headers map[string]string) AuthProvider {
	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	return &headerAuth{headers: copied}
}

func (a *headerAuth) AuthHeaders() map[string]string { return a.headers }

// TokenRefreshFunc produces a fresh bearer token when the current one is
// expired or about to expire.
type TokenRefreshFunc func() (string, error)

// JWTAuth is a bearer provider for JWT tokens. It inspects the token's exp
// claim (without verifying the signature; the server does that) and invokes
// the refresh callback when the token is within the leeway window of
// expiring. A provider with no refresh callback keeps serving the original
// token.
type JWTAuth struct {
	token   string
	expires time.Time
	refresh TokenRefreshFunc
	leeway  time.Duration
}

// NewJWTAuth creates a JWTAuth from an initial token. An error is returned
// if the token is not a structurally valid JWT.
func NewJWTAuth(token string, refresh TokenRefreshFunc) (*JWTAuth, error) {
	expires, err := jwtExpiry(token)
	if err != nil {
		return nil, fmt.Errorf("invalid jwt: %w", err)
	}
	return &JWTAuth{
		token:   token,
		expires: expires,
		refresh: refresh,
		leeway:  30 * time.Second,
	}, nil
}

// Expired reports whether the token is within the leeway window of its exp
// claim. Tokens without an exp claim never expire.
func (a *JWTAuth) Expired() bool {
	return !a.expires.IsZero() && time.Now().Add(a.leeway).After(a.expires)
}

// AuthHeaders implements AuthProvider, refreshing the token first when it is
// expired and a refresh callback is configured.
func (a *JWTAuth) AuthHeaders() map[string]string {
	if a.Expired() && a.refresh != nil {
		token, err := a.refresh()
		if err == nil {
			if expires, expErr := jwtExpiry(token); expErr == nil {
				a.token = token
				a.expires = expires
			}
		}
	}
	return map[string]string{"Authorization": "Bearer " + a.token}
}

func jwtExpiry(token string) (time.Time, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	// Signature verification is the server's job; we only need the claims.
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// JWKSValidator checks a configured bearer token against the issuer's JSON
// Web Key Set before the first connect, so credential problems surface as a
// fast typed error instead of a confusing 401 later.
type JWKSValidator struct {
	jwksURL string
	cache   *jwk.Cache
}

// NewJWKSValidator creates a validator that fetches and caches the key set
// at jwksURL.
func NewJWKSValidator(ctx context.Context, jwksURL string, refreshInterval time.Duration) (*JWKSValidator, error) {
	if jwksURL == "" {
		return nil, &ConfigError{Field: "jwksURL", Reason: "must not be empty"}
	}
	if refreshInterval <= 0 {
		refreshInterval = time.Hour
	}
	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(refreshInterval)); err != nil {
		return nil, fmt.Errorf("failed to register jwks url %s: %w", jwksURL, err)
	}
	return &JWKSValidator{jwksURL: jwksURL, cache: cache}, nil
}

// Validate verifies the token's signature against the cached key set.
func (v *JWKSValidator) Validate(ctx context.Context, token string) error {
	keySet, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to fetch jwks from %s: %w", v.jwksURL, err)
	}
	if _, err := jws.Verify([]byte(token), jws.WithKeySet(keySet)); err != nil {
		return fmt.Errorf("token rejected by jwks validation: %w", ErrAuthFailure)
	}
	return nil
}
