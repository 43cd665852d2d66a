package controller

import (
	"net/http"
	"net/url"

	e "github.com/lumenblog/lumen/errors"
	h "github.com/lumenblog/lumen/helpers"
	"github.com/lumenblog/lumen/models"
)

// getEnumParam returns the querystring value for name when it is one of the
// allowed values, or an empty string when it is absent
func getEnumParam(
	c *models.Context,
	query url.Values,
	name string,
	allowed map[string]bool,
) (
	string,
	error,
) {
	v := query.Get(name)
	if v == "" || allowed[v] {
		return v, nil
	}

	return "", e.Newf(
		c.Auth.UserID, "controller.getEnumParam", e.OutOfRange,
		"%s ('%s') is not a valid value", name, v,
	)
}

// getArticleQuery reads the paging and filter parameters shared by the
// article listings
func getArticleQuery(c *models.Context) (models.ArticleQuery, int, error) {
	query := c.Request.URL.Query()

	page, limit, status, err := h.GetPageAndLimit(query)
	if err != nil {
		return models.ArticleQuery{}, status, err
	}

	q := models.ArticleQuery{
		Page:         page,
		Limit:        limit,
		CategorySlug: query.Get("category"),
		Search:       query.Get("search"),
	}

	q.Status, err = getEnumParam(c, query, "status", h.Statuses)
	if err != nil {
		return models.ArticleQuery{}, http.StatusBadRequest, err
	}

	q.Type, err = getEnumParam(c, query, "type", h.ContentTypes)
	if err != nil {
		return models.ArticleQuery{}, http.StatusBadRequest, err
	}

	return q, http.StatusOK, nil
}
