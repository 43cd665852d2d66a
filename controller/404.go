package controller

import (
	"net/http"

	"github.com/lumenblog/lumen/models"
)

// NotFoundHandler answers any API path that has no route
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	c := models.MakeEmptyContext(r, w)

	if c.GetHTTPMethod() == "OPTIONS" {
		c.RespondWithOptions([]string{"OPTIONS"})
		return
	}

	c.RespondWithNotFound()
}
