package cache

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Keys for single-valued article aggregates. They live in the article
// namespace so that any article or category write purges them.
const (
	ArticleStatsKey           = "article:stats"
	ArticleArchiveKey         = "article:archive"
	ArticleCountByCategoryKey = "article:count-by-category"
)

// Keys are grouped by namespace prefix so that a write can purge everything
// that may embed the data it changed
var (
	articlePrefix  = regexp.MustCompile(`^article:`)
	categoryPrefix = regexp.MustCompile(`^category:`)
	docTreePrefix  = regexp.MustCompile(`^doc:tree:`)
)

// ArticleListParams are the query parameters that distinguish one cached
// article list from another
type ArticleListParams struct {
	Page     int64
	Limit    int64
	Status   string
	Type     string
	Category string
	Search   string
}

// ArticleListKey builds the key for an article list query. Parameters are
// appended in a fixed order and only when set, so equal queries always share
// a key. Values are query-escaped so a ':' in visitor input cannot forge
// another parameter.
func ArticleListKey(p ArticleListParams) string {
	parts := []string{"article:list"}

	if p.Page != 0 {
		parts = append(parts, "page:"+strconv.FormatInt(p.Page, 10))
	}
	if p.Limit != 0 {
		parts = append(parts, "limit:"+strconv.FormatInt(p.Limit, 10))
	}
	if p.Status != "" {
		parts = append(parts, "status:"+url.QueryEscape(p.Status))
	}
	if p.Type != "" {
		parts = append(parts, "type:"+url.QueryEscape(p.Type))
	}
	if p.Category != "" {
		parts = append(parts, "category:"+url.QueryEscape(p.Category))
	}
	if p.Search != "" {
		parts = append(parts, "search:"+url.QueryEscape(p.Search))
	}

	return strings.Join(parts, ":")
}

// CategoryListKey builds the key for a category list, optionally filtered by
// content type
func CategoryListKey(contentType string) string {
	if contentType != "" {
		return "category:list:type:" + contentType
	}
	return "category:list:all"
}

// DocTreeKey builds the key for the documentation tree, optionally for a
// single category
func DocTreeKey(categorySlug string) string {
	if categorySlug != "" {
		return "doc:tree:category:" + url.QueryEscape(categorySlug)
	}
	return "doc:tree:all"
}

// InvalidateArticles purges everything derived from articles
func InvalidateArticles(s *Store) {
	s.DeleteMatching(articlePrefix)
	s.DeleteMatching(docTreePrefix)
}

// InvalidateCategories purges everything derived from categories. Articles
// embed their category so they go too.
func InvalidateCategories(s *Store) {
	s.DeleteMatching(categoryPrefix)
	s.DeleteMatching(articlePrefix)
	s.DeleteMatching(docTreePrefix)
}
