package models

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/lib/pq"

	"github.com/lumenblog/lumen/cache"
	e "github.com/lumenblog/lumen/errors"
	h "github.com/lumenblog/lumen/helpers"
)

const (
	maxCategoryNameLength = 100
	maxCategorySlugLength = 100
)

// CategoryType groups articles. Doc categories form the documentation tree.
type CategoryType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	SortOrder   int64     `json:"sortOrder"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CategoryUpdate holds the fields a client wants to change. Nil fields are
// left alone.
type CategoryUpdate struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	SortOrder   *int64  `json:"sortOrder"`
	Type        *string `json:"type"`
}

const categoryColumns = `
       c.id
      ,c.name
      ,c.slug
      ,COALESCE(c.description, '')
      ,COALESCE(c.icon, '')
      ,c.sort_order
      ,c.type
      ,c.created_at`

func scanCategory(row scanner) (CategoryType, error) {
	var m CategoryType
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Slug,
		&m.Description,
		&m.Icon,
		&m.SortOrder,
		&m.Type,
		&m.CreatedAt,
	)
	return m, err
}

// Validate checks a category before it is written
func (m *CategoryType) Validate() (int, error) {
	if m.Type == "" {
		m.Type = h.ContentTypeBlog
	}

	status, err := validateLength(
		"category.Validate", "name", m.Name, 1, maxCategoryNameLength,
	)
	if err != nil {
		return status, err
	}

	status, err = validateSlug("category.Validate", m.Slug, maxCategorySlugLength)
	if err != nil {
		return status, err
	}

	return validateEnum("category.Validate", "type", m.Type, h.ContentTypes)
}

// Apply copies the supplied fields onto m
func (u CategoryUpdate) Apply(m *CategoryType) {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Slug != nil {
		m.Slug = *u.Slug
	}
	if u.Description != nil {
		m.Description = *u.Description
	}
	if u.Icon != nil {
		m.Icon = *u.Icon
	}
	if u.SortOrder != nil {
		m.SortOrder = *u.SortOrder
	}
	if u.Type != nil {
		m.Type = *u.Type
	}
}

func slugTaken(function string, slug string) error {
	return e.Newf(0, function, e.SlugTaken,
		"The name or slug (%s) is already in use", slug,
	)
}

// CreateCategory saves a new category
func CreateCategory(env *Env, m CategoryType) (CategoryType, int, error) {
	status, err := m.Validate()
	if err != nil {
		return CategoryType{}, status, err
	}

	tx, err := h.GetTransaction(env.DB)
	if err != nil {
		return CategoryType{}, http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	created, err := scanCategory(tx.QueryRow(`
-- Create Category
INSERT INTO categories AS c (
    name, slug, description, icon, sort_order, type
) VALUES (
    $1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6
) RETURNING`+categoryColumns,
		m.Name,
		m.Slug,
		m.Description,
		m.Icon,
		m.SortOrder,
		m.Type,
	))
	if err != nil {
		if h.IsUniqueViolation(err) {
			return CategoryType{}, http.StatusConflict,
				slugTaken("CreateCategory", m.Slug)
		}
		glog.Errorf("CreateCategory(%s) %+v", m.Slug, err)
		return CategoryType{}, http.StatusInternalServerError,
			fmt.Errorf("Error inserting data and returning ID: %+v", err)
	}

	err = tx.Commit()
	if err != nil {
		return CategoryType{}, http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	PurgeCache(env, h.ItemTypes[h.ItemTypeCategory])

	return created, http.StatusOK, nil
}

// UpdateCategory changes the supplied fields of a category
func UpdateCategory(
	env *Env,
	id int64,
	u CategoryUpdate,
) (
	CategoryType,
	int,
	error,
) {
	m, status, err := GetCategory(env, id)
	if err != nil {
		return CategoryType{}, status, err
	}

	u.Apply(&m)

	status, err = m.Validate()
	if err != nil {
		return CategoryType{}, status, err
	}

	tx, err := h.GetTransaction(env.DB)
	if err != nil {
		return CategoryType{}, http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	updated, err := scanCategory(tx.QueryRow(`
-- Update Category
UPDATE categories AS c
   SET name = $2
      ,slug = $3
      ,description = NULLIF($4, '')
      ,icon = NULLIF($5, '')
      ,sort_order = $6
      ,type = $7
 WHERE c.id = $1
RETURNING`+categoryColumns,
		m.ID,
		m.Name,
		m.Slug,
		m.Description,
		m.Icon,
		m.SortOrder,
		m.Type,
	))
	if err == sql.ErrNoRows {
		return CategoryType{}, http.StatusNotFound,
			fmt.Errorf("Resource with ID %d not found", id)
	}
	if err != nil {
		if h.IsUniqueViolation(err) {
			return CategoryType{}, http.StatusConflict,
				slugTaken("UpdateCategory", m.Slug)
		}
		glog.Errorf("UpdateCategory(%d) %+v", id, err)
		return CategoryType{}, http.StatusInternalServerError,
			fmt.Errorf("Update failed: %v", err.Error())
	}

	err = tx.Commit()
	if err != nil {
		return CategoryType{}, http.StatusInternalServerError,
			fmt.Errorf("Transaction failed: %v", err.Error())
	}

	PurgeCache(env, h.ItemTypes[h.ItemTypeCategory])

	return updated, http.StatusOK, nil
}

// DeleteCategory removes a category that no article belongs to
func DeleteCategory(env *Env, id int64) (int, error) {
	tx, err := h.GetTransaction(env.DB)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	defer tx.Rollback()

	var articles int64
	err = tx.QueryRow(`
-- Count articles in category
SELECT COUNT(*)
  FROM articles
 WHERE category_id = $1`,
		id,
	).Scan(&articles)
	if err != nil {
		glog.Errorf("DeleteCategory(%d) %+v", id, err)
		return http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	if articles > 0 {
		return http.StatusConflict, e.Newf(
			0, "DeleteCategory", e.CategoryInUse,
			"Category still has %d articles", articles,
		)
	}

	res, err := tx.Exec(`
-- Delete Category
DELETE FROM categories
 WHERE id = $1`,
		id,
	)
	if err != nil {
		glog.Errorf("DeleteCategory(%d) %+v", id, err)
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

	PurgeCache(env, h.ItemTypes[h.ItemTypeCategory])

	return http.StatusOK, nil
}

// GetCategory fetches a category by id
func GetCategory(env *Env, id int64) (CategoryType, int, error) {
	m, err := scanCategory(env.DB.QueryRow(`
-- Get Category
SELECT`+categoryColumns+`
  FROM categories c
 WHERE c.id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return CategoryType{}, http.StatusNotFound,
			fmt.Errorf("Resource with ID %d not found", id)
	}
	if err != nil {
		glog.Errorf("GetCategory(%d) %+v", id, err)
		return CategoryType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	return m, http.StatusOK, nil
}

// GetCategoryBySlug fetches a category by slug
func GetCategoryBySlug(env *Env, slug string) (CategoryType, int, error) {
	m, err := scanCategory(env.DB.QueryRow(`
-- Get Category by slug
SELECT`+categoryColumns+`
  FROM categories c
 WHERE c.slug = $1`,
		slug,
	))
	if err == sql.ErrNoRows {
		return CategoryType{}, http.StatusNotFound,
			fmt.Errorf("Category %s not found", slug)
	}
	if err != nil {
		glog.Errorf("GetCategoryBySlug(%s) %+v", slug, err)
		return CategoryType{}, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}

	return m, http.StatusOK, nil
}

// GetCategories lists categories ordered for display, optionally only those
// of one content type
func GetCategories(env *Env, contentType string) ([]CategoryType, int, error) {
	return cachedRead(env, cache.CategoryListKey(contentType), categoryListTTL,
		func() ([]CategoryType, int, error) {
			return getCategories(env, contentType)
		},
	)
}

func getCategories(env *Env, contentType string) ([]CategoryType, int, error) {
	rows, err := env.DB.Query(`
-- Get Categories
SELECT`+categoryColumns+`
  FROM categories c
 WHERE ($1 = '' OR c.type = $1)
 ORDER BY c.sort_order, c.name`,
		contentType,
	)
	if err != nil {
		glog.Errorf("getCategories(%s) %+v", contentType, err)
		return nil, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows.Close()

	ems := []CategoryType{}
	for rows.Next() {
		m, err := scanCategory(rows)
		if err != nil {
			return nil, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		ems = append(ems, m)
	}
	err = rows.Err()
	if err != nil {
		return nil, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}

	return ems, http.StatusOK, nil
}

// getCategoriesByID loads every category in ids with one query
func getCategoriesByID(env *Env, ids []int64) (map[int64]CategoryType, error) {
	ems := map[int64]CategoryType{}
	if len(ids) == 0 {
		return ems, nil
	}

	rows, err := env.DB.Query(`
-- Get Categories by id
SELECT`+categoryColumns+`
  FROM categories c
 WHERE c.id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		ems[m.ID] = m
	}

	return ems, rows.Err()
}
