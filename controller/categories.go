package controller

import (
	"net/http"
	"time"

	"github.com/lumenblog/lumen/audit"
	h "github.com/lumenblog/lumen/helpers"
	"github.com/lumenblog/lumen/models"
)

// CategoriesController is a web controller
type CategoriesController struct{}

// CategoriesHandler is a web handler
func CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := CategoriesController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET", "POST"})
		return
	case "HEAD":
		ctl.ReadMany(c)
	case "GET":
		ctl.ReadMany(c)
	case "POST":
		ctl.Create(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// ReadMany handles GET, optionally filtered by ?type=
func (ctl *CategoriesController) ReadMany(c *models.Context) {
	contentType, err := getEnumParam(
		c, c.Request.URL.Query(), "type", h.ContentTypes,
	)
	if err != nil {
		c.RespondWithErrorDetail(err, http.StatusBadRequest)
		return
	}

	ems, status, err := models.GetCategories(c.Env, contentType)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(ems)
}

// Create handles POST
func (ctl *CategoriesController) Create(c *models.Context) {
	status, err := c.RequireAdmin()
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	m := models.CategoryType{}
	err = c.Fill(&m)
	if err != nil {
		c.RespondWithErrorDetail(err, http.StatusBadRequest)
		return
	}

	m, status, err = models.CreateCategory(c.Env, m)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		c.Env.DB,
		h.ItemTypes[h.ItemTypeCategory],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithCreated(m)
}

// CategoryDefaultsHandler creates the stock categories that are missing
func CategoryDefaultsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "POST"})
		return
	case "POST":
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	status, err = c.RequireAdmin()
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	report, status, err := models.InitDefaultCategories(c.Env)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(report)
}

// CategoryController is a web controller
type CategoryController struct{}

// CategoryHandler is a web handler
func CategoryHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := CategoryController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "HEAD", "GET", "PUT", "DELETE"})
		return
	case "HEAD":
		ctl.Read(c)
	case "GET":
		ctl.Read(c)
	case "PUT":
		ctl.Update(c)
	case "DELETE":
		ctl.Delete(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// Read handles GET
func (ctl *CategoryController) Read(c *models.Context) {
	id, status, err := c.GetRouteInt64("id")
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	m, status, err := models.GetCategory(c.Env, id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(m)
}

// Update handles PUT
func (ctl *CategoryController) Update(c *models.Context) {
	status, err := c.RequireAdmin()
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	id, status, err := c.GetRouteInt64("id")
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	u := models.CategoryUpdate{}
	err = c.Fill(&u)
	if err != nil {
		c.RespondWithErrorDetail(err, http.StatusBadRequest)
		return
	}

	m, status, err := models.UpdateCategory(c.Env, id, u)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Update(
		c.Env.DB,
		h.ItemTypes[h.ItemTypeCategory],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithData(m)
}

// Delete handles DELETE. Categories that still hold articles are kept.
func (ctl *CategoryController) Delete(c *models.Context) {
	status, err := c.RequireAdmin()
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	id, status, err := c.GetRouteInt64("id")
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	status, err = models.DeleteCategory(c.Env, id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Delete(
		c.Env.DB,
		h.ItemTypes[h.ItemTypeCategory],
		id,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}

// CategorySlugHandler returns a category by slug
func CategorySlugHandler(w http.ResponseWriter, r *http.Request) {
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

	m, status, err := models.GetCategoryBySlug(c.Env, c.RouteVars["slug"])
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(m)
}

// CategoryArticlesHandler returns a category and a page of its published
// articles
func CategoryArticlesHandler(w http.ResponseWriter, r *http.Request) {
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

	page, limit, status, err := h.GetPageAndLimit(c.Request.URL.Query())
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	m, status, err := models.GetCategoryWithArticles(
		c.Env, c.RouteVars["slug"], limit, page, h.StatusPublished,
	)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	m.Links = h.GetPageLinks(*c.Request.URL, m.Page, m.Limit, m.Total)

	c.RespondWithData(m)
}
