package controller

import (
	"net/http"

	"github.com/lumenblog/lumen/models"
)

// ArticleStatsHandler returns site wide counts
func ArticleStatsHandler(w http.ResponseWriter, r *http.Request) {
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
		m, status, err := models.GetStats(c.Env)
		if err != nil {
			c.RespondWithErrorDetail(err, status)
			return
		}
		c.RespondWithData(m)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// ArticleArchiveHandler returns published articles grouped by month
func ArticleArchiveHandler(w http.ResponseWriter, r *http.Request) {
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
		ems, status, err := models.GetArchive(c.Env)
		if err != nil {
			c.RespondWithErrorDetail(err, status)
			return
		}
		c.RespondWithData(ems)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// ArticleCountByCategoryHandler returns the number of published articles in
// each category
func ArticleCountByCategoryHandler(w http.ResponseWriter, r *http.Request) {
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
		ems, status, err := models.GetArticleCountByCategory(c.Env)
		if err != nil {
			c.RespondWithErrorDetail(err, status)
			return
		}
		c.RespondWithData(ems)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}
