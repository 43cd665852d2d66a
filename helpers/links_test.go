package helpers

import (
	"net/http"
	"net/url"
	"testing"
)

func TestPageCount(t *testing.T) {
	message := "GetPageCount(%d, %d) = %d should be %d"

	tests := []struct {
		total int64
		limit int64
		want  int64
	}{
		{0, DefaultQueryLimit, 0},
		{1, DefaultQueryLimit, 1},
		{10, DefaultQueryLimit, 1},
		{11, DefaultQueryLimit, 2},
		{20, DefaultQueryLimit, 2},
		{21, DefaultQueryLimit, 3},
		{0, 5, 0},
		{4, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{9, 0, 1},
	}

	for _, tt := range tests {
		result := GetPageCount(tt.total, tt.limit)
		if result != tt.want {
			t.Errorf(message, tt.total, tt.limit, result, tt.want)
		}
	}
}

func TestOffset(t *testing.T) {
	if o := GetOffset(1, 10); o != 0 {
		t.Errorf("GetOffset(1, 10) = %d should be 0", o)
	}
	if o := GetOffset(3, 10); o != 20 {
		t.Errorf("GetOffset(3, 10) = %d should be 20", o)
	}
	if o := GetOffset(0, 10); o != 0 {
		t.Errorf("GetOffset(0, 10) = %d should be 0", o)
	}
}

func TestPageAndLimit(t *testing.T) {
	tests := []struct {
		query  string
		page   int64
		limit  int64
		status int
	}{
		{"", 1, DefaultQueryLimit, http.StatusOK},
		{"page=3&limit=20", 3, 20, http.StatusOK},
		{"limit=50", 1, 50, http.StatusOK},
		{"limit=51", 0, 0, http.StatusBadRequest},
		{"limit=0", 0, 0, http.StatusBadRequest},
		{"limit=abc", 0, 0, http.StatusBadRequest},
		{"page=0", 0, 0, http.StatusBadRequest},
		{"page=-1", 0, 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		page, limit, status, err := GetPageAndLimit(q)

		if status != tt.status {
			t.Errorf("GetPageAndLimit(%q) status = %d should be %d", tt.query, status, tt.status)
			continue
		}
		if status == http.StatusOK && err != nil {
			t.Errorf("GetPageAndLimit(%q) unexpected error %v", tt.query, err)
		}
		if status != http.StatusOK && err == nil {
			t.Errorf("GetPageAndLimit(%q) expected an error", tt.query)
		}
		if page != tt.page || limit != tt.limit {
			t.Errorf("GetPageAndLimit(%q) = %d, %d should be %d, %d",
				tt.query, page, limit, tt.page, tt.limit)
		}
	}
}

func TestRelatedLimit(t *testing.T) {
	q, _ := url.ParseQuery("limit=11")
	_, status, err := GetInt64Param(q, "limit", DefaultRelatedLimit, 1, MaxRelatedLimit)
	if err == nil || status != http.StatusBadRequest {
		t.Errorf("limit=11 should be rejected, got %d %v", status, err)
	}

	v, _, err := GetInt64Param(url.Values{}, "limit", DefaultRelatedLimit, 1, MaxRelatedLimit)
	if err != nil || v != DefaultRelatedLimit {
		t.Errorf("missing limit should default to %d, got %d %v", DefaultRelatedLimit, v, err)
	}
}

func TestPageLinks(t *testing.T) {
	u, _ := url.Parse("/api/v1/articles?limit=10")

	links := GetPageLinks(*u, 1, 10, 35)
	rels := []string{}
	for _, l := range links {
		rels = append(rels, l.Rel)
	}
	if len(rels) != 3 || rels[0] != "self" || rels[1] != "next" || rels[2] != "last" {
		t.Errorf("page 1 of 4 links = %v", rels)
	}
	if links[2].Href != "/api/v1/articles?limit=10&page=4" {
		t.Errorf("last link = %s", links[2].Href)
	}
	if links[0].Href != "/api/v1/articles?limit=10" {
		t.Errorf("self link on page 1 should drop page, got %s", links[0].Href)
	}

	links = GetPageLinks(*u, 4, 10, 35)
	rels = rels[:0]
	for _, l := range links {
		rels = append(rels, l.Rel)
	}
	if len(rels) != 3 || rels[0] != "first" || rels[1] != "prev" || rels[2] != "self" {
		t.Errorf("page 4 of 4 links = %v", rels)
	}
}
