package controller

import (
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/sessions"

	"github.com/lumenblog/lumen/audit"
	e "github.com/lumenblog/lumen/errors"
	h "github.com/lumenblog/lumen/helpers"
	"github.com/lumenblog/lumen/models"
)

const (
	oauthStateSession = "lumen_oauth_state"
	oauthStateKey     = "state"
	oauthStateLength  = 32
	oauthStateMaxAge  = 600
)

// stateStore holds the GitHub login state between the redirect and the
// callback in a signed cookie
func stateStore(env *models.Env) *sessions.CookieStore {
	store := sessions.NewCookieStore(env.SessionSecret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// GitHubLoginHandler sends the browser to GitHub to sign in
func GitHubLoginHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeEmptyContext(r, w)

	if c.GetHTTPMethod() != "GET" {
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	if c.Env == nil || c.Env.GitHub == nil {
		c.RespondWithErrorMessage(
			"GitHub sign in is not configured",
			http.StatusServiceUnavailable,
		)
		return
	}

	state, err := h.RandString(oauthStateLength)
	if err != nil {
		glog.Errorf("h.RandString() %+v", err)
		c.RespondWithError(http.StatusInternalServerError)
		return
	}

	sess, _ := stateStore(c.Env).Get(r, oauthStateSession)
	sess.Values[oauthStateKey] = state
	err = sess.Save(r, w)
	if err != nil {
		glog.Errorf("sess.Save() %+v", err)
		c.RespondWithError(http.StatusInternalServerError)
		return
	}

	c.RespondWithRedirect(c.Env.GitHub.AuthCodeURL(state))
}

// GitHubCallbackHandler completes a GitHub sign in
func GitHubCallbackHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeEmptyContext(r, w)

	if c.GetHTTPMethod() != "GET" {
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	if c.Env == nil || c.Env.GitHub == nil {
		c.RespondWithErrorMessage(
			"GitHub sign in is not configured",
			http.StatusServiceUnavailable,
		)
		return
	}

	query := r.URL.Query()

	store := stateStore(c.Env)
	sess, _ := store.Get(r, oauthStateSession)
	expected, _ := sess.Values[oauthStateKey].(string)

	// The state is single use
	sess.Options.MaxAge = -1
	sess.Save(r, w)

	if expected == "" || query.Get("state") != expected {
		glog.Warningf("GitHub callback state mismatch from %s", c.IP)
		c.RespondWithErrorMessage("Invalid OAuth state", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		c.RespondWithErrorMessage("Missing code", http.StatusBadRequest)
		return
	}

	token, err := c.Env.GitHub.Exchange(r.Context(), code)
	if err != nil {
		glog.Errorf("GitHub.Exchange() %+v", err)
		c.RespondWithErrorDetail(
			e.New(0, "controller.GitHubCallback", e.OAuthFailed,
				"GitHub rejected the sign in"),
			http.StatusBadGateway,
		)
		return
	}

	gh, err := models.FetchGitHubUser(r.Context(), c.Env.GitHub, token)
	if err != nil {
		glog.Errorf("models.FetchGitHubUser() %+v", err)
		c.RespondWithErrorDetail(
			e.New(0, "controller.GitHubCallback", e.OAuthFailed,
				"Could not read the GitHub user"),
			http.StatusBadGateway,
		)
		return
	}

	u, sessionToken, status, err := models.SignInGitHubUser(c.Env, gh)
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
