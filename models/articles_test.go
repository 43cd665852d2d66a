package models

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenblog/lumen/cache"
	e "github.com/lumenblog/lumen/errors"
	h "github.com/lumenblog/lumen/helpers"
)

var (
	articleCols = []string{
		"id", "title", "slug", "summary", "content", "cover_image",
		"author_id", "category_id", "status", "type", "sort_order",
		"published_at", "created_at", "updated_at",
	}
	categoryCols = []string{
		"id", "name", "slug", "description", "icon", "sort_order", "type",
		"created_at",
	}
	rowTime = time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
)

func newMockEnv(t *testing.T) (*Env, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := newTestEnv()
	env.DB = db
	return env, mock
}

func articleRows() *sqlmock.Rows {
	return sqlmock.NewRows(articleCols)
}

func addArticle(rows *sqlmock.Rows, id int64, authorID int64, categoryID interface{}) *sqlmock.Rows {
	return rows.AddRow(
		id, "Hello", "hello", "", "# Hello", "",
		authorID, categoryID, h.StatusPublished, h.ContentTypeBlog, int64(0),
		rowTime, rowTime, rowTime,
	)
}

func categoryRow(id int64, slug string) *sqlmock.Rows {
	return sqlmock.NewRows(categoryCols).AddRow(
		id, "ROS", slug, "", "", int64(0), h.ContentTypeBlog, rowTime,
	)
}

func countRow(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

var (
	errDB      = errors.New("connection reset")
	errSlugDup = &pq.Error{Code: "23505"}
)

func newArticle() ArticleType {
	return ArticleType{
		Title:    "Hello",
		Slug:     "hello",
		Content:  "# Hello\n\nFirst post.",
		AuthorID: 1,
	}
}

func TestArticleWritesInvalidateOnlyAfterCommit(t *testing.T) {
	listKey := cache.ArticleListKey(cache.ArticleListParams{Page: 1, Limit: 10, Status: h.StatusPublished})
	title := "Renamed"

	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
		write  func(env *Env) (int, error)
		status int
		purged bool
	}{
		{
			name: "create",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO articles`).WillReturnRows(addArticle(articleRows(), 1, 1, nil))
				mock.ExpectCommit()
			},
			write: func(env *Env) (int, error) {
				_, status, err := CreateArticle(env, newArticle())
				return status, err
			},
			status: http.StatusOK,
			purged: true,
		},
		{
			name: "create insert fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO articles`).WillReturnError(errDB)
				mock.ExpectRollback()
			},
			write: func(env *Env) (int, error) {
				_, status, err := CreateArticle(env, newArticle())
				return status, err
			},
			status: http.StatusInternalServerError,
		},
		{
			name: "create commit fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO articles`).WillReturnRows(addArticle(articleRows(), 1, 1, nil))
				mock.ExpectCommit().WillReturnError(errDB)
			},
			write: func(env *Env) (int, error) {
				_, status, err := CreateArticle(env, newArticle())
				return status, err
			},
			status: http.StatusInternalServerError,
		},
		{
			name: "create duplicate slug",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO articles`).WillReturnError(errSlugDup)
				mock.ExpectRollback()
			},
			write: func(env *Env) (int, error) {
				_, status, err := CreateArticle(env, newArticle())
				return status, err
			},
			status: http.StatusConflict,
		},
		{
			name: "update",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM articles a\s+WHERE a\.id = \$1`).WithArgs(int64(1)).
					WillReturnRows(addArticle(articleRows(), 1, 1, nil))
				mock.ExpectBegin()
				mock.ExpectQuery(`UPDATE articles`).WillReturnRows(addArticle(articleRows(), 1, 1, nil))
				mock.ExpectCommit()
			},
			write: func(env *Env) (int, error) {
				_, status, err := UpdateArticle(env, 1, ArticleUpdate{Title: &title})
				return status, err
			},
			status: http.StatusOK,
			purged: true,
		},
		{
			name: "update duplicate slug",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM articles a\s+WHERE a\.id = \$1`).WithArgs(int64(1)).
					WillReturnRows(addArticle(articleRows(), 1, 1, nil))
				mock.ExpectBegin()
				mock.ExpectQuery(`UPDATE articles`).WillReturnError(errSlugDup)
				mock.ExpectRollback()
			},
			write: func(env *Env) (int, error) {
				_, status, err := UpdateArticle(env, 1, ArticleUpdate{Title: &title})
				return status, err
			},
			status: http.StatusConflict,
		},
		{
			name: "delete",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM articles`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			write:  func(env *Env) (int, error) { return DeleteArticle(env, 1) },
			status: http.StatusOK,
			purged: true,
		},
		{
			name: "delete missing",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM articles`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			write:  func(env *Env) (int, error) { return DeleteArticle(env, 1) },
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, mock := newMockEnv(t)
			env.Cache.Set(listKey, ArticlesType{}, 0)
			env.Cache.Set(cache.DocTreeKey(""), []DocTreeNodeType{}, 0)
			env.Cache.Set(cache.CategoryListKey(""), []CategoryType{}, 0)

			tt.expect(mock)
			status, err := tt.write(env)

			assert.Equal(t, tt.status, status)
			if tt.status == http.StatusOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
			assert.Equal(t, !tt.purged, env.Cache.Has(listKey))
			assert.Equal(t, !tt.purged, env.Cache.Has(cache.DocTreeKey("")))
			assert.True(t, env.Cache.Has(cache.CategoryListKey("")))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateArticleDuplicateSlugIsSlugTaken(t *testing.T) {
	env, mock := newMockEnv(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO articles`).WillReturnError(errSlugDup)
	mock.ExpectRollback()

	_, status, err := CreateArticle(env, newArticle())
	assert.Equal(t, http.StatusConflict, status)

	var le *e.LumenError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, e.SlugTaken, le.ErrorCode)
}

func TestGetArticlesCategoryFilter(t *testing.T) {
	t.Run("unknown slug does not filter", func(t *testing.T) {
		env, mock := newMockEnv(t)
		mock.ExpectQuery(`FROM categories c\s+WHERE c\.slug = \$1`).WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(categoryCols))
		mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM articles a`).WithArgs(h.StatusPublished).
			WillReturnRows(countRow(0))
		mock.ExpectQuery(`ORDER BY a\.published_at DESC`).
			WithArgs(h.StatusPublished, int64(10), int64(0)).
			WillReturnRows(articleRows())

		q := ArticleQuery{Limit: 10, Page: 1, Status: h.StatusPublished, CategorySlug: "nope"}
		m, status, err := GetArticles(env, q)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Empty(t, m.Articles)

		// The second read is served from the cache
		_, _, err = GetArticles(env, q)
		require.NoError(t, err)
		assert.Equal(t, int64(1), env.Perf.Stats().CacheHits)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("known slug filters by id", func(t *testing.T) {
		env, mock := newMockEnv(t)
		mock.ExpectQuery(`FROM categories c\s+WHERE c\.slug = \$1`).WithArgs("ros").
			WillReturnRows(categoryRow(3, "ros"))
		mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM articles a`).WithArgs(h.StatusPublished, int64(3)).
			WillReturnRows(countRow(0))
		mock.ExpectQuery(`ORDER BY a\.published_at DESC`).
			WithArgs(h.StatusPublished, int64(3), int64(10), int64(0)).
			WillReturnRows(articleRows())

		_, _, err := GetArticles(env, ArticleQuery{Limit: 10, Page: 1, Status: h.StatusPublished, CategorySlug: "ros"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetArticlesTrimsSearch(t *testing.T) {
	env, mock := newMockEnv(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM articles a`).WithArgs("%slam%").
		WillReturnRows(countRow(0))
	mock.ExpectQuery(`ORDER BY a\.published_at DESC`).
		WithArgs("%slam%", int64(10), int64(0)).
		WillReturnRows(articleRows())

	_, _, err := GetArticles(env, ArticleQuery{Limit: 10, Page: 1, Search: "slam"})
	require.NoError(t, err)

	// Same query, same cache entry
	_, _, err = GetArticles(env, ArticleQuery{Limit: 10, Page: 1, Search: " slam "})
	require.NoError(t, err)

	assert.Equal(t, 1, env.Cache.Size())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelatedArticlesLoadAuthorsAndCategoriesOnce(t *testing.T) {
	env, mock := newMockEnv(t)

	rows := articleRows()
	addArticle(rows, 2, 7, int64(2))
	addArticle(rows, 3, 8, int64(2))
	addArticle(rows, 4, 7, nil)

	mock.ExpectQuery(`Get latest Articles`).
		WithArgs(h.StatusPublished, int64(1), int64(4)).
		WillReturnRows(rows)
	mock.ExpectQuery(`FROM users\s+WHERE id = ANY\(\$1\)`).WithArgs("{7,8}").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "avatar"}).AddRow(int64(7), "Ada", nil))
	mock.ExpectQuery(`FROM categories c\s+WHERE c\.id = ANY\(\$1\)`).WithArgs("{2}").
		WillReturnRows(categoryRow(2, "ros"))

	ems, status, err := GetRelatedArticles(env, 1, nil, 4)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, ems, 3)

	require.NotNil(t, ems[0].Author.Name)
	assert.Equal(t, "Ada", *ems[0].Author.Name)
	assert.Nil(t, ems[0].Author.Avatar)

	// A missing author still has an id but no name
	assert.Equal(t, int64(8), ems[1].Author.ID)
	assert.Nil(t, ems[1].Author.Name)

	require.NotNil(t, ems[1].Category)
	assert.Equal(t, "ros", ems[1].Category.Slug)
	assert.Nil(t, ems[2].Category)

	assert.NoError(t, mock.ExpectationsWereMet())
}
