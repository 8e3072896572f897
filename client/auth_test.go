package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsignedJWT builds a structurally valid JWT with the given claims. The
// signature is fake; only claim parsing is under test.
func unsignedJWT(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	body := base64.RawURLEncoding.EncodeToString(payload)
	return fmt.Sprintf("%s.%s.%s", header, body, base64.RawURLEncoding.EncodeToString([]byte("sig")))
}

func TestBearerAuthHeaders(t *testing.T) {
	auth := NewBearerAuth("tok-123")
	assert.Equal(t, map[string]string{"Authorization": "Bearer tok-123"}, auth.AuthHeaders())
}

func TestBasicAuthHeaders(t *testing.T) {
	auth := NewBasicAuth("user", "pass")
	headers := auth.AuthHeaders()
	require.Contains(t, headers, "Authorization")
	require.True(t, strings.HasPrefix(headers["Authorization"], "Basic "))

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(headers["Authorization"], "Basic "))
	require.NoError(t, err)
	assert.Equal(t, "user:pass", string(decoded))
}

func TestHeaderAuthCopiesInput(t *testing.T) {
	source := map[string]string{"X-Api-Key": "k"}
	auth := NewHeaderAuth(source)
	source["X-Api-Key"] = "mutated"
	assert.Equal(t, "k", auth.AuthHeaders()["X-Api-Key"])
}

func TestJWTAuthRejectsGarbage(t *testing.T) {
	_, err := NewJWTAuth("not-a-jwt", nil)
	assert.Error(t, err)
}

func TestJWTAuthNotExpired(t *testing.T) {
	token := unsignedJWT(t, map[string]interface{}{
		"sub": "svc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	auth, err := NewJWTAuth(token, nil)
	require.NoError(t, err)
	assert.False(t, auth.Expired())
	assert.Equal(t, "Bearer "+token, auth.AuthHeaders()["Authorization"])
}

func TestJWTAuthWithoutExpNeverExpires(t *testing.T) {
	token := unsignedJWT(t, map[string]interface{}{"sub": "svc"})
	auth, err := NewJWTAuth(token, nil)
	require.NoError(t, err)
	assert.False(t, auth.Expired())
}

func TestJWTAuthLeewayWindow(t *testing.T) {
	// Expires in 10s: inside the 30s leeway, so treated as expired.
	token := unsignedJWT(t, map[string]interface{}{
		"exp": time.Now().Add(10 * time.Second).Unix(),
	})
	auth, err := NewJWTAuth(token, nil)
	require.NoError(t, err)
	assert.True(t, auth.Expired())
}

func TestJWTAuthRefreshesExpiredToken(t *testing.T) {
	expired := unsignedJWT(t, map[string]interface{}{
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	fresh := unsignedJWT(t, map[string]interface{}{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	refreshCalls := 0
	auth, err := NewJWTAuth(expired, func() (string, error) {
		refreshCalls++
		return fresh, nil
	})
	require.NoError(t, err)

	headers := auth.AuthHeaders()
	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, "Bearer "+fresh, headers["Authorization"])
	assert.False(t, auth.Expired())

	// Fresh token should not trigger another refresh.
	auth.AuthHeaders()
	assert.Equal(t, 1, refreshCalls)
}

func TestJWTAuthKeepsOldTokenWhenRefreshFails(t *testing.T) {
	expired := unsignedJWT(t, map[string]interface{}{
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	auth, err := NewJWTAuth(expired, func() (string, error) {
		return "", fmt.Errorf("idp down")
	})
	require.NoError(t, err)

	headers := auth.AuthHeaders()
	assert.Equal(t, "Bearer "+expired, headers["Authorization"])
}

func TestJWKSValidatorRequiresURL(t *testing.T) {
	_, err := NewJWKSValidator(context.Background(), "", 0)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
