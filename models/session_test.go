package models

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionEnv(now time.Time) *Env {
	return &Env{
		SessionSecret: []byte("test-secret"),
		Now:           func() time.Time { return now },
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	env := newSessionEnv(time.Now())

	token, err := env.CreateSessionToken("github:42", "Ada")
	require.NoError(t, err)

	claims, err := env.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "github:42", claims.OpenID)
	assert.Equal(t, "Ada", claims.Name)
	assert.WithinDuration(t, env.now().Add(SessionTTL), claims.ExpiresAt.Time, time.Second)
}

func TestSessionTokenExpires(t *testing.T) {
	issued := time.Now().Add(-2 * SessionTTL)
	token, err := newSessionEnv(issued).CreateSessionToken("github:42", "Ada")
	require.NoError(t, err)

	_, err = newSessionEnv(time.Now()).VerifySessionToken(token)
	assert.Error(t, err)
}

func TestSessionTokenRejectsOtherSecrets(t *testing.T) {
	token, err := newSessionEnv(time.Now()).CreateSessionToken("github:42", "Ada")
	require.NoError(t, err)

	other := newSessionEnv(time.Now())
	other.SessionSecret = []byte("another-secret")

	_, err = other.VerifySessionToken(token)
	assert.Error(t, err)
}

func TestSessionTokenRejectsNoneAlgorithm(t *testing.T) {
	env := newSessionEnv(time.Now())

	claims := SessionClaims{
		OpenID: "github:42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = env.VerifySessionToken(token)
	assert.Error(t, err)
}

func TestSessionTokenRequiresSecret(t *testing.T) {
	_, err := (&Env{}).CreateSessionToken("github:42", "Ada")
	assert.Error(t, err)
}

func TestSessionCookieAttributes(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://blog.example/", nil)
	SetSessionCookie(w, r, "tok")

	c := w.Result().Cookies()[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "http://blog.example/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	SetSessionCookie(w, r, "tok")

	c = w.Result().Cookies()[0]
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "https://blog.example/", nil)
	r.TLS = &tls.ConnectionState{}
	ClearSessionCookie(w, r)

	c = w.Result().Cookies()[0]
	assert.Equal(t, "", c.Value)
	assert.True(t, c.MaxAge < 0)
	assert.True(t, c.Secure)
}
