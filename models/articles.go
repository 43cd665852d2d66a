package models

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/lib/pq"

	"github.com/lumenblog/lumen/cache"
	e "github.com/lumenblog/lumen/errors"
	h "github.com/lumenblog/lumen/helpers"
)

const (
	maxArticleTitleLength = 255
	maxArticleSlugLength  = 255
)

// AuthorSummary is the public face of an article's author. Name and avatar
// are null when the user no longer exists.
type AuthorSummary struct {
	ID     int64   `json:"id"`
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

// ArticleType is a blog post or a documentation page
type ArticleType struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary"`
	Content     string     `json:"content"`
	CoverImage  string     `json:"coverImage"`
	AuthorID    int64      `json:"authorId"`
	CategoryID  *int64     `json:"categoryId"`
	Status      string     `json:"status"`
	Type        string     `json:"type"`
	SortOrder   int64      `json:"order"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Author   *AuthorSummary `json:"author,omitempty"`
	Category *CategoryType  `json:"category"`
}

// ArticleUpdate holds the fields a client wants to change. Nil fields are
// left alone. A CategoryID of 0 removes the article from its category.
type ArticleUpdate struct {
	Title      *string `json:"title"`
	Slug       *string `json:"slug"`
	Summary    *string `json:"summary"`
	Content    *string `json:"content"`
	CoverImage *string `json:"coverImage"`
	CategoryID *int64  `json:"categoryId"`
	Status     *string `json:"status"`
	Type       *string `json:"type"`
	SortOrder  *int64  `json:"order"`
}

// ArticleQuery filters a page of articles. Empty fields do not filter.
type ArticleQuery struct {
	Limit        int64
	Page         int64
	Status       string
	Type         string
	CategorySlug string
	Search       string
	AuthorID     int64
}

// ArticlesType is one page of articles
type ArticlesType struct {
	Articles   []ArticleType `json:"articles"`
	Total      int64         `json:"total"`
	TotalPages int64         `json:"totalPages"`
	Page       int64         `json:"page"`
	Limit      int64         `json:"limit"`
	Links      []h.LinkType  `json:"links,omitempty"`
}

const articleColumns = `
       a.id
      ,a.title
      ,a.slug
      ,COALESCE(a.summary, '')
      ,a.content
      ,COALESCE(a.cover_image, '')
      ,a.author_id
      ,a.category_id
      ,a.status
      ,a.type
      ,a.sort_order
      ,a.published_at
      ,a.created_at
      ,a.updated_at`

func scanArticle(row scanner) (ArticleType, error) {
	var (
		m           ArticleType
		categoryID  sql.NullInt64
		publishedAt pq.NullTime
	)

	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Slug,
		&m.Summary,
		&m.Content,
		&m.CoverImage,
		&m.AuthorID,
		&categoryID,
		&m.Status,
		&m.Type,
		&m.SortOrder,
		&publishedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return ArticleType{}, err
	}

	if categoryID.Valid {
		id := categoryID.Int64
		m.CategoryID = &id
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		m.PublishedAt = &t
	}

	return m, nil
}

func scanArticles(rows *sql.Rows) ([]ArticleType, error) {
	defer rows.Close()

	ems := []ArticleType{}
	for rows.Next() {
		m, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		ems = append(ems, m)
	}

	return ems, rows.Err()
}

// Validate checks an article before it is written, filling in defaults
func (m *ArticleType) Validate() (int, error) {
	if m.Status == "" {
		m.Status = h.StatusDraft
	}
	if m.Type == "" {
		m.Type = h.ContentTypeBlog
	}

	status, err := validateLength(
		"article.Validate", "title", m.Title, 1, maxArticleTitleLength,
	)
	if err != nil {
		return status, err
	}

	status, err = validateSlug("article.Validate", m.Slug, maxArticleSlugLength)
	if err != nil {
		return status, err
	}

	status, err = validateLength("article.Validate", "content", m.Content, 1, 0)
	if err != nil {
		return status, err
	}

	status, err = validateEnum("article.Validate", "status", m.Status, h.Statuses)
	if err != nil {
		return status, err
	}

	return validateEnum("article.Validate", "type", m.Type, h.ContentTypes)
}

// Apply copies the supplied fields onto m
func (u ArticleUpdate) Apply(m *ArticleType) {
	if u.Title != nil {
		m.Title = *u.Title
	}
	if u.Slug != nil {
		m.Slug = *u.Slug
	}
	if u.Summary != nil {
		m.Summary = *u.Summary
	}
	if u.Content != nil {
		m.Content = *u.Content
	}
	if u.CoverImage != nil {
		m.CoverImage = *u.CoverImage
	}
	if u.CategoryID != nil {
		if *u.CategoryID > 0 {
			id := *u.CategoryID
			m.CategoryID = &id
		} else {
			m.CategoryID = nil
		}
	}
	if u.Status != nil {
		m.Status = *u.Status
	}
	if u.Type != nil {
		m.Type = *u.Type
	}
	if u.SortOrder != nil {
		m.SortOrder = *u.SortOrder
	}
}

func nullCategoryID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullTime(t *time.Time) pq.NullTime {
	if t == nil {
		return pq.NullTime{}
	}
	return pq.NullTime{Time: *t, Valid: true}
}

func checkCategoryExists(env *Env, id *int64) (int, error) {
	if id == nil {
		return http.StatusOK, nil
	}

	_, status, err := GetCategory(env, *id)
	if status == http.StatusNotFound {
		return http.StatusBadRequest, e.Newf(
			0, "article.Validate", e.InvalidContent,
			"Category %d does not exist", *id,
		)
	}

	return status, err
}

// CreateArticle saves a new article. Articles created as published are
// stamped with the time of creation.
func CreateArticle(env *Env, m ArticleType) (ArticleType, int, error) {
	status, err := m.Validate()
	if err != nil {
		return ArticleType{}, status, err
	}

	status, err = checkCategoryExists(env, m.CategoryID)
	if err != nil {
		return ArticleType{}, status, err
	}

	if strings.TrimSpace(m.Summary) == "" {
		m.Summary = PlainTextSummary(m.Content)
	}

	m.PublishedAt = nil
	if m.Status == h.StatusPublished {
		now := env.now()
		m.PublishedAt = &now
	}

	tx, err := h.GetTransaction(env.DB)
	if err != nil {
		return ArticleType{}, http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	created, err := scanArticle(tx.QueryRow(`
-- Create Article
INSERT INTO articles AS a (
    title, slug, summary, content, cover_image,
    author_id, category_id, status, type, sort_order,
    published_at
) VALUES (
    $1, $2, NULLIF($3, ''), $4, NULLIF($5, ''),
    $6, $7, $8, $9, $10,
    $11
) RETURNING`+articleColumns,
		m.Title,
		m.Slug,
		m.Summary,
		m.Content,
		m.CoverImage,
		m.AuthorID,
		nullCategoryID(m.CategoryID),
		m.Status,
		m.Type,
		m.SortOrder,
		nullTime(m.PublishedAt),
	))
	if err != nil {
		if h.IsUniqueViolation(err) {
			return ArticleType{}, http.StatusConflict,
				slugTaken("CreateArticle", m.Slug)
		}
		glog.Errorf("CreateArticle(%s) %+v", m.Slug, err)
		return ArticleType{}, http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	err = tx.Commit()
	if err != nil {
		return ArticleType{}, http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	PurgeCache(env, h.ItemTypes[h.ItemTypeArticle])

	return created, http.StatusOK, nil
}

// UpdateArticle changes the supplied fields of an article. The first time an
// article becomes published it is stamped with the current time.
func UpdateArticle(
	env *Env,
	id int64,
	u ArticleUpdate,
) (
	ArticleType,
	int,
	error,
) {
	m, status, err := getArticle(env, id)
	if err != nil {
		return ArticleType{}, status, err
	}

	u.Apply(&m)

	status, err = m.Validate()
	if err != nil {
		return ArticleType{}, status, err
	}

	if u.CategoryID != nil {
		status, err = checkCategoryExists(env, m.CategoryID)
		if err != nil {
			return ArticleType{}, status, err
		}
	}

	if m.Status == h.StatusPublished && m.PublishedAt == nil {
		now := env.now()
		m.PublishedAt = &now
	}

	tx, err := h.GetTransaction(env.DB)
	if err != nil {
		return ArticleType{}, http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	updated, err := scanArticle(tx.QueryRow(`
-- Update Article
UPDATE articles AS a
   SET title = $2
      ,slug = $3
      ,summary = NULLIF($4, '')
      ,content = $5
      ,cover_image = NULLIF($6, '')
      ,category_id = $7
      ,status = $8
      ,type = $9
      ,sort_order = $10
      ,published_at = $11
      ,updated_at = NOW()
 WHERE a.id = $1
RETURNING`+articleColumns,
		m.ID,
		m.Title,
		m.Slug,
		m.Summary,
		m.Content,
		m.CoverImage,
		nullCategoryID(m.CategoryID),
		m.Status,
		m.Type,
		m.SortOrder,
		nullTime(m.PublishedAt),
	))
	if err == sql.ErrNoRows {
		return ArticleType{}, http.StatusNotFound,
			fmt.Errorf("Resource with ID %d not found", id)
	}
	if err != nil {
		if h.IsUniqueViolation(err) {
			return ArticleType{}, http.StatusConflict,
				slugTaken("UpdateArticle", m.Slug)
		}
		glog.Errorf("UpdateArticle(%d) %+v", id, err)
		return ArticleType{}, http.StatusInternalServerError,
			fmt.Errorf("Update failed: %v", err.Error())
	}

	err = tx.Commit()
	if err != nil {
		return ArticleType{}, http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	PurgeCache(env, h.ItemTypes[h.ItemTypeArticle])

	return updated, http.StatusOK, nil
}

// DeleteArticle removes an article
func DeleteArticle(env *Env, id int64) (int, error) {
	tx, err := h.GetTransaction(env.DB)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
-- Delete Article
DELETE FROM articles
 WHERE id = $1`,
		id,
	)
	if err != nil {
		glog.Errorf("DeleteArticle(%d) %+v", id, err)
		return http.StatusInternalServerError,
			fmt.Errorf("Delete failed: %v", err.Error())
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return http.StatusNotFound,
			fmt.Errorf("Resource with ID %d not found", id)
	}

	err = tx.Commit()
	if err != nil {
		return http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	PurgeCache(env, h.ItemTypes[h.ItemTypeArticle])

	return http.StatusOK, nil
}

func getArticle(env *Env, id int64) (ArticleType, int, error) {
	m, err := scanArticle(env.DB.QueryRow(`
-- Get Article
SELECT`+articleColumns+`
  FROM articles a
 WHERE a.id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return ArticleType{}, http.StatusNotFound,
			fmt.Errorf("Resource with ID %d not found", id)
	}
	if err != nil {
		glog.Errorf("getArticle(%d) %+v", id, err)
		return ArticleType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	return m, http.StatusOK, nil
}

// GetArticleByID fetches an article with its author and category
func GetArticleByID(env *Env, id int64) (ArticleType, int, error) {
	m, status, err := getArticle(env, id)
	if err != nil {
		return ArticleType{}, status, err
	}

	return hydrateArticle(env, m)
}

// GetArticleBySlug fetches an article with its author and category
func GetArticleBySlug(env *Env, slug string) (ArticleType, int, error) {
	m, err := scanArticle(env.DB.QueryRow(`
-- Get Article by slug
SELECT`+articleColumns+`
  FROM articles a
 WHERE a.slug = $1`,
		slug,
	))
	if err == sql.ErrNoRows {
		return ArticleType{}, http.StatusNotFound,
			fmt.Errorf("Article %s not found", slug)
	}
	if err != nil {
		glog.Errorf("GetArticleBySlug(%s) %+v", slug, err)
		return ArticleType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	return hydrateArticle(env, m)
}

func hydrateArticle(env *Env, m ArticleType) (ArticleType, int, error) {
	ems := []ArticleType{m}

	status, err := hydrateArticles(env, ems)
	if err != nil {
		return ArticleType{}, status, err
	}

	return ems[0], http.StatusOK, nil
}

// hydrateArticles attaches authors and categories to ems in place, loading
// each with a single query
func hydrateArticles(env *Env, ems []ArticleType) (int, error) {
	if len(ems) == 0 {
		return http.StatusOK, nil
	}

	var (
		authorIDs   []int64
		categoryIDs []int64
		seenAuthor  = map[int64]bool{}
		seenCat     = map[int64]bool{}
	)
	for _, m := range ems {
		if !seenAuthor[m.AuthorID] {
			seenAuthor[m.AuthorID] = true
			authorIDs = append(authorIDs, m.AuthorID)
		}
		if m.CategoryID != nil && !seenCat[*m.CategoryID] {
			seenCat[*m.CategoryID] = true
			categoryIDs = append(categoryIDs, *m.CategoryID)
		}
	}

	authors, err := getAuthorsByID(env, authorIDs)
	if err != nil {
		glog.Errorf("getAuthorsByID(%v) %+v", authorIDs, err)
		return http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	categories, err := getCategoriesByID(env, categoryIDs)
	if err != nil {
		glog.Errorf("getCategoriesByID(%v) %+v", categoryIDs, err)
		return http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	for i := range ems {
		author, ok := authors[ems[i].AuthorID]
		if !ok {
			author = AuthorSummary{ID: ems[i].AuthorID}
		}
		ems[i].Author = &author

		ems[i].Category = nil
		if ems[i].CategoryID != nil {
			if cat, ok := categories[*ems[i].CategoryID]; ok {
				ems[i].Category = &cat
			}
		}
	}

	return http.StatusOK, nil
}

func getAuthorsByID(env *Env, ids []int64) (map[int64]AuthorSummary, error) {
	ems := map[int64]AuthorSummary{}
	if len(ids) == 0 {
		return ems, nil
	}

	rows, err := env.DB.Query(`
-- Get authors by id
SELECT id
      ,name
      ,avatar
  FROM users
 WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m      AuthorSummary
			name   sql.NullString
			avatar sql.NullString
		)
		err = rows.Scan(&m.ID, &name, &avatar)
		if err != nil {
			return nil, err
		}
		if name.Valid {
			m.Name = &name.String
		}
		if avatar.Valid {
			m.Avatar = &avatar.String
		}
		ems[m.ID] = m
	}

	return ems, rows.Err()
}

// escapeLike escapes the LIKE wildcards in s
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetArticles returns one page of articles matching q, newest first. Lists
// that are not scoped to an author are cached.
func GetArticles(env *Env, q ArticleQuery) (ArticlesType, int, error) {
	if q.Limit < 1 {
		q.Limit = h.DefaultQueryLimit
	}
	if q.Page < 1 {
		q.Page = 1
	}
	q.Search = strings.TrimSpace(q.Search)

	if q.AuthorID != 0 {
		return getArticles(env, q)
	}

	key := cache.ArticleListKey(cache.ArticleListParams{
		Page:     q.Page,
		Limit:    q.Limit,
		Status:   q.Status,
		Type:     q.Type,
		Category: q.CategorySlug,
		Search:   q.Search,
	})

	return cachedRead(env, key, articleListTTL, func() (ArticlesType, int, error) {
		return getArticles(env, q)
	})
}

func getArticles(env *Env, q ArticleQuery) (ArticlesType, int, error) {
	var (
		where []string
		args  []interface{}
	)
	addArg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.Status != "" {
		where = append(where, "a.status = "+addArg(q.Status))
	}
	if q.Type != "" {
		where = append(where, "a.type = "+addArg(q.Type))
	}
	if q.AuthorID != 0 {
		where = append(where, "a.author_id = "+addArg(q.AuthorID))
	}

	// An unknown category slug does not filter
	if q.CategorySlug != "" {
		cat, status, err := GetCategoryBySlug(env, q.CategorySlug)
		if err != nil && status != http.StatusNotFound {
			return ArticlesType{}, status, err
		}
		if err == nil {
			where = append(where, "a.category_id = "+addArg(cat.ID))
		}
	}

	if q.Search != "" {
		p := addArg("%" + escapeLike(q.Search) + "%")
		where = append(where, "(a.title ILIKE "+p+" OR a.content ILIKE "+p+")")
	}

	filter := ""
	if len(where) > 0 {
		filter = "\n WHERE " + strings.Join(where, "\n   AND ")
	}

	var total int64
	err := env.DB.QueryRow(`
-- Count Articles
SELECT COUNT(*)
  FROM articles a`+filter,
		args...,
	).Scan(&total)
	if err != nil {
		glog.Errorf("getArticles count %+v", err)
		return ArticlesType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	limit := addArg(q.Limit)
	offset := addArg(h.GetOffset(q.Page, q.Limit))

	rows, err := env.DB.Query(`
-- Get Articles
SELECT`+articleColumns+`
  FROM articles a`+filter+`
 ORDER BY a.published_at DESC NULLS LAST, a.created_at DESC
 LIMIT `+limit+` OFFSET `+offset,
		args...,
	)
	if err != nil {
		glog.Errorf("getArticles %+v", err)
		return ArticlesType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	ems, err := scanArticles(rows)
	if err != nil {
		return ArticlesType{}, http.StatusInternalServerError,
			fmt.Errorf("Row parsing error: %v", err.Error())
	}

	status, err := hydrateArticles(env, ems)
	if err != nil {
		return ArticlesType{}, status, err
	}

	return ArticlesType{
		Articles:   ems,
		Total:      total,
		TotalPages: h.GetPageCount(total, q.Limit),
		Page:       q.Page,
		Limit:      q.Limit,
	}, http.StatusOK, nil
}

// CategoryWithArticlesType is a category and one page of its articles
type CategoryWithArticlesType struct {
	Category CategoryType `json:"category"`
	ArticlesType
}

// GetCategoryWithArticles returns the category with the given slug and one
// page of its articles
func GetCategoryWithArticles(
	env *Env,
	slug string,
	limit int64,
	page int64,
	status string,
) (
	CategoryWithArticlesType,
	int,
	error,
) {
	cat, st, err := GetCategoryBySlug(env, slug)
	if err != nil {
		return CategoryWithArticlesType{}, st, err
	}

	if status == "" {
		status = h.StatusPublished
	}

	articles, st, err := GetArticles(env, ArticleQuery{
		Limit:        limit,
		Page:         page,
		Status:       status,
		CategorySlug: cat.Slug,
	})
	if err != nil {
		return CategoryWithArticlesType{}, st, err
	}

	return CategoryWithArticlesType{
		Category:     cat,
		ArticlesType: articles,
	}, http.StatusOK, nil
}

// GetRelatedArticles returns published articles from the same category as
// the given article, or the latest published articles when it has none
func GetRelatedArticles(
	env *Env,
	articleID int64,
	categoryID *int64,
	limit int64,
) (
	[]ArticleType,
	int,
	error,
) {
	if limit < 1 {
		limit = h.DefaultRelatedLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if categoryID == nil || *categoryID == 0 {
		rows, err = env.DB.Query(`
-- Get latest Articles
SELECT`+articleColumns+`
  FROM articles a
 WHERE a.status = $1
   AND a.id <> $2
 ORDER BY a.published_at DESC NULLS LAST
 LIMIT $3`,
			h.StatusPublished,
			articleID,
			limit,
		)
	} else {
		rows, err = env.DB.Query(`
-- Get related Articles
SELECT`+articleColumns+`
  FROM articles a
 WHERE a.status = $1
   AND a.id <> $2
   AND a.category_id = $3
 ORDER BY a.published_at DESC NULLS LAST
 LIMIT $4`,
			h.StatusPublished,
			articleID,
			*categoryID,
			limit,
		)
	}
	if err != nil {
		glog.Errorf("GetRelatedArticles(%d) %+v", articleID, err)
		return nil, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	ems, err := scanArticles(rows)
	if err != nil {
		return nil, http.StatusInternalServerError,
			fmt.Errorf("Row parsing error: %v", err.Error())
	}

	status, err := hydrateArticles(env, ems)
	if err != nil {
		return nil, status, err
	}

	return ems, http.StatusOK, nil
}
