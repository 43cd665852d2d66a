package controller

import (
	"net/http"
	"time"

	"github.com/lumenblog/lumen/audit"
	h "github.com/lumenblog/lumen/helpers"
	"github.com/lumenblog/lumen/models"
)

// ArticlesController is a web controller
type ArticlesController struct{}

// ArticlesHandler is a web handler
func ArticlesHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := ArticlesController{}

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

// ReadMany handles GET for the collection
func (ctl *ArticlesController) ReadMany(c *models.Context) {
	q, status, err := getArticleQuery(c)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	// Only admins may list anything other than published articles
	if q.Status == "" || !c.Auth.User.IsAdmin() {
		q.Status = h.StatusPublished
	}

	ems, status, err := models.GetArticles(c.Env, q)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	ems.Links = h.GetPageLinks(*c.Request.URL, ems.Page, ems.Limit, ems.Total)

	c.RespondWithData(ems)
}

// Create handles POST
func (ctl *ArticlesController) Create(c *models.Context) {
	status, err := c.RequireAdmin()
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	m := models.ArticleType{}
	err = c.Fill(&m)
	if err != nil {
		c.RespondWithErrorDetail(err, http.StatusBadRequest)
		return
	}

	m.AuthorID = c.Auth.UserID

	m, status, err = models.CreateArticle(c.Env, m)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Create(
		c.Env.DB,
		h.ItemTypes[h.ItemTypeArticle],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithCreated(m)
}

// ArticlesAdminController lists the signed in author's own articles
type ArticlesAdminController struct{}

// ArticlesAdminHandler is a web handler
func ArticlesAdminHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := ArticlesAdminController{}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET"})
		return
	case "GET":
		ctl.ReadMany(c)
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}
}

// ReadMany handles GET
func (ctl *ArticlesAdminController) ReadMany(c *models.Context) {
	status, err := c.RequireAdmin()
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	q, status, err := getArticleQuery(c)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	q.AuthorID = c.Auth.UserID

	ems, status, err := models.GetArticles(c.Env, q)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}
	ems.Links = h.GetPageLinks(*c.Request.URL, ems.Page, ems.Limit, ems.Total)

	c.RespondWithData(ems)
}

// ArticleController is a web controller
type ArticleController struct{}

// ArticleHandler is a web handler
func ArticleHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	ctl := ArticleController{}

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

// Read handles GET. Articles are read by id only while editing.
func (ctl *ArticleController) Read(c *models.Context) {
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

	m, status, err := models.GetArticleByID(c.Env, id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(m)
}

// Update handles PUT. Only the supplied fields are changed.
func (ctl *ArticleController) Update(c *models.Context) {
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

	u := models.ArticleUpdate{}
	err = c.Fill(&u)
	if err != nil {
		c.RespondWithErrorDetail(err, http.StatusBadRequest)
		return
	}

	m, status, err := models.UpdateArticle(c.Env, id, u)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Update(
		c.Env.DB,
		h.ItemTypes[h.ItemTypeArticle],
		m.ID,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithData(m)
}

// Delete handles DELETE
func (ctl *ArticleController) Delete(c *models.Context) {
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

	status, err = models.DeleteArticle(c.Env, id)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	audit.Delete(
		c.Env.DB,
		h.ItemTypes[h.ItemTypeArticle],
		id,
		c.Auth.UserID,
		time.Now(),
		c.IP,
	)

	c.RespondWithOK()
}

// ArticleRelatedHandler returns published articles alongside the given one
func ArticleRelatedHandler(w http.ResponseWriter, r *http.Request) {
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
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	id, status, err := c.GetRouteInt64("id")
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	query := c.Request.URL.Query()

	limit, status, err := h.GetInt64Param(
		query, "limit", h.DefaultRelatedLimit, 1, h.MaxRelatedLimit,
	)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	var categoryID *int64
	if query.Get("categoryId") != "" {
		cid, status, err := h.GetInt64Param(query, "categoryId", 0, 1, 0)
		if err != nil {
			c.RespondWithErrorDetail(err, status)
			return
		}
		categoryID = &cid
	}

	ems, status, err := models.GetRelatedArticles(c.Env, id, categoryID, limit)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	c.RespondWithData(ems)
}

// ArticleWithHTMLType is a published article ready to be displayed
type ArticleWithHTMLType struct {
	models.ArticleType
	models.RenderedType
}

// ArticleSlugHandler returns an article by slug with its rendered content
func ArticleSlugHandler(w http.ResponseWriter, r *http.Request) {
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

	m, status, err := models.GetArticleBySlug(c.Env, c.RouteVars["slug"])
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	// Drafts and archived articles are only previewed by admins
	if m.Status != h.StatusPublished && !c.Auth.User.IsAdmin() {
		c.RespondWithNotFound()
		return
	}

	rendered, err := models.RenderArticle(m.Content)
	if err != nil {
		c.RespondWithErrorMessage(
			"Could not render the article",
			http.StatusInternalServerError,
		)
		return
	}

	c.RespondWithData(ArticleWithHTMLType{
		ArticleType:  m,
		RenderedType: rendered,
	})
}
