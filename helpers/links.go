package helpers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const (
	// DefaultQueryLimit defines the default number of items per page for APIs
	DefaultQueryLimit int64 = 10

	// MaxQueryLimit is the largest page size a client may ask for
	MaxQueryLimit int64 = 50

	// DefaultRelatedLimit is the default number of related articles
	DefaultRelatedLimit int64 = 4

	// MaxRelatedLimit is the most related articles a client may ask for
	MaxRelatedLimit int64 = 10
)

// LinkType is a link
type LinkType struct {
	Rel   string `json:"rel,omitempty"` // REST
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// GetInt64Param parses an optional integer querystring value, returning
// defaultValue when it is absent and a 400 when it is out of [min, max]
func GetInt64Param(
	query url.Values,
	name string,
	defaultValue int64,
	min int64,
	max int64,
) (int64, int, error) {
	if query.Get(name) == "" {
		return defaultValue, http.StatusOK, nil
	}

	v, err := strconv.ParseInt(query.Get(name), 10, 64)
	if err != nil {
		return 0, http.StatusBadRequest,
			fmt.Errorf("%s (%s) is not a number", name, query.Get(name))
	}

	if v < min {
		return 0, http.StatusBadRequest,
			fmt.Errorf("%s (%d) cannot be less than %d", name, v, min)
	}

	if max > 0 && v > max {
		return 0, http.StatusBadRequest,
			fmt.Errorf("%s (%d) cannot exceed %d", name, v, max)
	}

	return v, http.StatusOK, nil
}

// GetPageAndLimit returns the page and limit for a given request querystring
func GetPageAndLimit(query url.Values) (int64, int64, int, error) {
	limit, status, err := GetInt64Param(
		query, "limit", DefaultQueryLimit, 1, MaxQueryLimit,
	)
	if err != nil {
		return 0, 0, status, err
	}

	page, status, err := GetInt64Param(query, "page", 1, 1, 0)
	if err != nil {
		return 0, 0, status, err
	}

	return page, limit, http.StatusOK, nil
}

// GetOffset returns the row offset of the first item on a page
func GetOffset(page int64, limit int64) int64 {
	if page < 1 {
		return 0
	}

	return (page - 1) * limit
}

// GetPageCount returns the number of pages for a given total and items per
// page
func GetPageCount(total int64, limit int64) int64 {
	if limit == 0 {
		limit = DefaultQueryLimit
	}

	pages := total / limit

	if total%limit > 0 {
		pages++
	}

	return pages
}

func getLinkToPage(requestURL url.URL, rel string, page int64) LinkType {
	q := requestURL.Query()
	if page > 1 {
		q.Set("page", strconv.FormatInt(page, 10))
	} else {
		q.Del("page")
	}
	requestURL.RawQuery = q.Encode()

	return LinkType{
		Rel:   rel,
		Href:  requestURL.String(),
		Title: strconv.FormatInt(page, 10),
	}
}

// GetPageLinks returns a collection of valid links for navigating a
// paginated collection of items
func GetPageLinks(
	requestURL url.URL,
	page int64,
	limit int64,
	total int64,
) []LinkType {
	pages := GetPageCount(total, limit)

	var links []LinkType

	if page > 2 {
		links = append(links, getLinkToPage(requestURL, "first", 1))
	}

	if page > 1 {
		links = append(links, getLinkToPage(requestURL, "prev", page-1))
	}

	links = append(links, getLinkToPage(requestURL, "self", page))

	if page < pages {
		links = append(links, getLinkToPage(requestURL, "next", page+1))
	}

	if page+1 < pages {
		links = append(links, getLinkToPage(requestURL, "last", pages))
	}

	return links
}
