package models

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie holding the signed session token
const SessionCookieName = "app_session_id"

// SessionTTL is how long a session token and its cookie last
const SessionTTL = 365 * 24 * time.Hour

// SessionClaims identify the user a session belongs to
type SessionClaims struct {
	OpenID string `json:"openId"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// CreateSessionToken signs a session token for the user
func (e *Env) CreateSessionToken(openID string, name string) (string, error) {
	if len(e.SessionSecret) == 0 {
		return "", fmt.Errorf("session secret is not configured")
	}

	now := e.now()
	claims := SessionClaims{
		OpenID: openID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   openID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString(e.SessionSecret)
}

// VerifySessionToken checks the signature and expiry of a session token
func (e *Env) VerifySessionToken(token string) (SessionClaims, error) {
	var claims SessionClaims

	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(t *jwt.Token) (interface{}, error) {
			return e.SessionSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(e.now),
	)
	if err != nil {
		return SessionClaims{}, err
	}

	if claims.OpenID == "" {
		return SessionClaims{}, fmt.Errorf("session token has no openId")
	}

	return claims, nil
}

func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}

	proto := r.Header.Get("X-Forwarded-Proto")
	for _, p := range strings.Split(proto, ",") {
		if strings.TrimSpace(strings.ToLower(p)) == "https" {
			return true
		}
	}

	return false
}

func sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	secure := isSecureRequest(r)

	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}

	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}

// SetSessionCookie issues the session cookie on the response
func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, sessionCookie(r, token, int(SessionTTL/time.Second)))
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, sessionCookie(r, "", -1))
}
