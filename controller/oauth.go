package controller

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/lumenblog/lumen/audit"
	e "github.com/lumenblog/lumen/errors"
	h "github.com/lumenblog/lumen/helpers"
	"github.com/lumenblog/lumen/models"
)

// decodeState recovers the redirect URI the login page encoded into the
// OAuth state
func decodeState(state string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(state)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(state)
		if err != nil {
			return "", err
		}
	}

	return string(b), nil
}

// OAuthCallbackHandler completes a sign in through the OAuth server
func OAuthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeEmptyContext(r, w)

	if c.GetHTTPMethod() != "GET" {
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	if c.Env == nil || c.Env.OAuthServer == nil {
		c.RespondWithErrorMessage(
			"OAuth sign in is not configured",
			http.StatusServiceUnavailable,
		)
		return
	}

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		c.RespondWithErrorMessage(
			"code and state are required",
			http.StatusBadRequest,
		)
		return
	}

	redirectURI, err := decodeState(state)
	if err != nil {
		c.RespondWithErrorMessage("Invalid OAuth state", http.StatusBadRequest)
		return
	}

	token, err := c.Env.OAuthServer.ExchangeToken(r.Context(), code, redirectURI)
	if err != nil {
		glog.Errorf("OAuthServer.ExchangeToken() %+v", err)
		c.RespondWithErrorDetail(
			e.New(0, "controller.OAuthCallback", e.OAuthFailed,
				"The OAuth server rejected the sign in"),
			http.StatusBadGateway,
		)
		return
	}

	info, err := c.Env.OAuthServer.GetUserInfo(r.Context(), token.AccessToken)
	if err != nil {
		glog.Errorf("OAuthServer.GetUserInfo() %+v", err)
		c.RespondWithErrorDetail(
			e.New(0, "controller.OAuthCallback", e.OAuthFailed,
				"Could not read the signed in user"),
			http.StatusBadGateway,
		)
		return
	}

	u, sessionToken, status, err := models.SignInOAuthUser(c.Env, info)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Update(
		c.Env.DB,
		h.ItemTypes[h.ItemTypeUser],
		u.ID,
		u.ID,
		time.Now(),
		c.IP,
	)

	models.SetSessionCookie(w, r, sessionToken)
	c.RespondWithRedirect("/")
}

// MockAppAuthHandler stands in for the OAuth server's sign in page. It
// signs everyone in immediately by sending them back with a code.
func MockAppAuthHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeEmptyContext(r, w)

	if c.GetHTTPMethod() != "GET" {
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	redirectURI := query.Get("redirectUri")
	state := query.Get("state")
	if redirectURI == "" || state == "" {
		c.RespondWithErrorMessage(
			"Missing redirectUri or state",
			http.StatusBadRequest,
		)
		return
	}

	callback, err := url.Parse(redirectURI)
	if err != nil || !callback.IsAbs() {
		c.RespondWithErrorMessage("Invalid redirectUri", http.StatusBadRequest)
		return
	}

	now := time.Now()
	if c.Env != nil && c.Env.Now != nil {
		now = c.Env.Now()
	}

	q := callback.Query()
	q.Set("code", models.MockCodePrefix+strconv.FormatInt(now.UnixMilli(), 10))
	q.Set("state", state)
	callback.RawQuery = q.Encode()

	if glog.V(2) {
		glog.Infof("Mock OAuth redirecting to %s", callback.String())
	}

	c.RespondWithRedirect(callback.String())
}

// mockRespond writes v as a bare JSON body, which is how the OAuth server
// answers rather than in the API envelope
func mockRespond(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		glog.Errorf("json.Encode() %+v", err)
	}
}

// MockExchangeTokenHandler issues a mock access token for any code
func MockExchangeTokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	now := time.Now()
	if env := models.EnvFromContext(r.Context()); env != nil && env.Now != nil {
		now = env.Now()
	}

	mockRespond(w, models.MockExchangeToken(now))
}

// MockGetUserInfoHandler resolves every token to the developer user
func MockGetUserInfoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	mockRespond(w, models.MockUserInfo())
}
