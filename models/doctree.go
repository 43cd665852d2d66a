package models

import (
	"fmt"
	"net/http"

	"github.com/golang/glog"
	"github.com/lib/pq"

	"github.com/lumenblog/lumen/cache"
	h "github.com/lumenblog/lumen/helpers"
)

// DocLinkType is a document as shown in the documentation navigation
type DocLinkType struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	SortOrder int64  `json:"order"`
}

// DocTreeNodeType is a documentation category and its documents
type DocTreeNodeType struct {
	CategoryType
	Articles []DocLinkType `json:"articles"`
}

// GetDocTree returns every doc category, or just the one with categorySlug,
// each with its published documents in reading order
func GetDocTree(env *Env, categorySlug string) ([]DocTreeNodeType, int, error) {
	return cachedRead(env, cache.DocTreeKey(categorySlug), docTreeTTL,
		func() ([]DocTreeNodeType, int, error) {
			return getDocTree(env, categorySlug)
		},
	)
}

func getDocTree(env *Env, categorySlug string) ([]DocTreeNodeType, int, error) {
	rows, err := env.DB.Query(`
-- Get doc Categories
SELECT`+categoryColumns+`
  FROM categories c
 WHERE c.type = $1
   AND ($2 = '' OR c.slug = $2)
 ORDER BY c.sort_order, c.name`,
		h.ContentTypeDoc,
		categorySlug,
	)
	if err != nil {
		glog.Errorf("getDocTree(%s) %+v", categorySlug, err)
		return nil, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows.Close()

	nodes := []DocTreeNodeType{}
	index := map[int64]int{}
	var ids []int64
	for rows.Next() {
		m, err := scanCategory(rows)
		if err != nil {
			return nil, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		index[m.ID] = len(nodes)
		ids = append(ids, m.ID)
		nodes = append(nodes, DocTreeNodeType{
			CategoryType: m,
			Articles:     []DocLinkType{},
		})
	}
	err = rows.Err()
	if err != nil {
		return nil, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}
	rows.Close()

	if len(ids) == 0 {
		return nodes, http.StatusOK, nil
	}

	rows2, err := env.DB.Query(`
-- Get doc Articles
SELECT a.id
      ,a.title
      ,a.slug
      ,a.sort_order
      ,a.category_id
  FROM articles a
 WHERE a.category_id = ANY($1)
   AND a.type = $2
   AND a.status = $3
 ORDER BY a.sort_order, a.id`,
		pq.Array(ids),
		h.ContentTypeDoc,
		h.StatusPublished,
	)
	if err != nil {
		glog.Errorf("getDocTree(%s) %+v", categorySlug, err)
		return nil, http.StatusInternalServerError,
			fmt.Errorf("Database query failed: %v", err.Error())
	}
	defer rows2.Close()

	for rows2.Next() {
		var (
			m          DocLinkType
			categoryID int64
		)
		err = rows2.Scan(&m.ID, &m.Title, &m.Slug, &m.SortOrder, &categoryID)
		if err != nil {
			return nil, http.StatusInternalServerError,
				fmt.Errorf("Row parsing error: %v", err.Error())
		}
		i := index[categoryID]
		nodes[i].Articles = append(nodes[i].Articles, m)
	}
	err = rows2.Err()
	if err != nil {
		return nil, http.StatusInternalServerError,
			fmt.Errorf("Error fetching rows: %v", err.Error())
	}

	return nodes, http.StatusOK, nil
}
