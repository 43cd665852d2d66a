package controller

import (
	"net/http"

	"github.com/lumenblog/lumen/models"
)

// AuthMeHandler returns the signed in user, or null for guests
func AuthMeHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET"})
		return
	case "GET":
		if c.Auth.UserID < 1 {
			c.RespondWithData(nil)
			return
		}
		c.RespondWithData(c.Auth.User)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// AuthLogoutHandler expires the session cookie
func AuthLogoutHandler(w http.ResponseWriter, r *http.Request) {
	// Signing out must work even when the session no longer resolves
	c := models.MakeEmptyContext(r, w)

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "POST"})
		return
	case "POST":
		models.ClearSessionCookie(w, r)
		c.RespondWithData(map[string]bool{"success": true})
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}
