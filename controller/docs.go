package controller

import (
	"net/http"

	"github.com/lumenblog/lumen/models"
)

// DocTreeHandler returns the documentation navigation tree, optionally for a
// single category given by ?category=
func DocTreeHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET"})
		return
	case "HEAD", "GET":
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	ems, status, err := models.GetDocTree(
		c.Env, c.Request.URL.Query().Get("category"),
	)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(ems)
}
