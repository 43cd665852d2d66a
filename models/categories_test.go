package models

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenblog/lumen/cache"
	e "github.com/lumenblog/lumen/errors"
	h "github.com/lumenblog/lumen/helpers"
)

func newCategory() CategoryType {
	return CategoryType{Name: "ROS", Slug: "ros"}
}

func TestCategoryWritesInvalidateOnlyAfterCommit(t *testing.T) {
	listKey := cache.ArticleListKey(cache.ArticleListParams{Page: 1, Limit: 10})
	name := "Robotics"

	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
		write  func(env *Env) (int, error)
		status int
		code   e.ErrCode
		purged bool
	}{
		{
			name: "create",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO categories`).WillReturnRows(categoryRow(1, "ros"))
				mock.ExpectCommit()
			},
			write: func(env *Env) (int, error) {
				_, status, err := CreateCategory(env, newCategory())
				return status, err
			},
			status: http.StatusOK,
			purged: true,
		},
		{
			name: "create duplicate slug",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`INSERT INTO categories`).WillReturnError(errSlugDup)
				mock.ExpectRollback()
			},
			write: func(env *Env) (int, error) {
				_, status, err := CreateCategory(env, newCategory())
				return status, err
			},
			status: http.StatusConflict,
			code:   e.SlugTaken,
		},
		{
			name: "update commit fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM categories c\s+WHERE c\.id = \$1`).WithArgs(int64(1)).
					WillReturnRows(categoryRow(1, "ros"))
				mock.ExpectBegin()
				mock.ExpectQuery(`UPDATE categories`).WillReturnRows(categoryRow(1, "ros"))
				mock.ExpectCommit().WillReturnError(errDB)
			},
			write: func(env *Env) (int, error) {
				_, status, err := UpdateCategory(env, 1, CategoryUpdate{Name: &name})
				return status, err
			},
			status: http.StatusInternalServerError,
		},
		{
			name: "update duplicate slug",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM categories c\s+WHERE c\.id = \$1`).WithArgs(int64(1)).
					WillReturnRows(categoryRow(1, "ros"))
				mock.ExpectBegin()
				mock.ExpectQuery(`UPDATE categories`).WillReturnError(errSlugDup)
				mock.ExpectRollback()
			},
			write: func(env *Env) (int, error) {
				_, status, err := UpdateCategory(env, 1, CategoryUpdate{Name: &name})
				return status, err
			},
			status: http.StatusConflict,
			code:   e.SlugTaken,
		},
		{
			name: "delete",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM articles\s+WHERE category_id = \$1`).
					WithArgs(int64(2)).WillReturnRows(countRow(0))
				mock.ExpectExec(`DELETE FROM categories`).WithArgs(int64(2)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			write:  func(env *Env) (int, error) { return DeleteCategory(env, 2) },
			status: http.StatusOK,
			purged: true,
		},
		{
			name: "delete while in use",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM articles\s+WHERE category_id = \$1`).
					WithArgs(int64(2)).WillReturnRows(countRow(3))
				mock.ExpectRollback()
			},
			write:  func(env *Env) (int, error) { return DeleteCategory(env, 2) },
			status: http.StatusConflict,
			code:   e.CategoryInUse,
		},
		{
			name: "delete fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM articles\s+WHERE category_id = \$1`).
					WithArgs(int64(2)).WillReturnRows(countRow(0))
				mock.ExpectExec(`DELETE FROM categories`).WithArgs(int64(2)).WillReturnError(errDB)
				mock.ExpectRollback()
			},
			write:  func(env *Env) (int, error) { return DeleteCategory(env, 2) },
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, mock := newMockEnv(t)
			env.Cache.Set(cache.CategoryListKey(""), []CategoryType{}, 0)
			env.Cache.Set(cache.CategoryListKey(h.ContentTypeDoc), []CategoryType{}, 0)
			env.Cache.Set(listKey, ArticlesType{}, 0)
			env.Cache.Set(cache.DocTreeKey("ros"), []DocTreeNodeType{}, 0)

			tt.expect(mock)
			status, err := tt.write(env)

			assert.Equal(t, tt.status, status)
			if tt.status == http.StatusOK {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
			}
			if tt.code != 0 {
				var le *e.LumenError
				require.ErrorAs(t, err, &le)
				assert.Equal(t, tt.code, le.ErrorCode)
			}

			// Category writes purge articles too as they embed their category
			want := 4
			if tt.purged {
				want = 0
			}
			assert.Equal(t, want, env.Cache.Size())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCategoryListIsCachedUntilWrite(t *testing.T) {
	env, mock := newMockEnv(t)
	mock.ExpectQuery(`FROM categories c\s+WHERE \(\$1 = '' OR c\.type = \$1\)`).WithArgs("").
		WillReturnRows(categoryRow(1, "ros"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO categories`).WillReturnRows(categoryRow(2, "go"))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM categories c\s+WHERE \(\$1 = '' OR c\.type = \$1\)`).WithArgs("").
		WillReturnRows(categoryRow(1, "ros").AddRow(int64(2), "Go", "go", "", "", int64(1), h.ContentTypeBlog, rowTime))

	ems, _, err := GetCategories(env, "")
	require.NoError(t, err)
	assert.Len(t, ems, 1)

	ems, _, err = GetCategories(env, "")
	require.NoError(t, err)
	assert.Len(t, ems, 1)

	_, _, err = CreateCategory(env, CategoryType{Name: "Go", Slug: "go"})
	require.NoError(t, err)

	ems, _, err = GetCategories(env, "")
	require.NoError(t, err)
	assert.Len(t, ems, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}
