package models

import (
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/golang/glog"
	"github.com/lib/pq"

	"github.com/lumenblog/lumen/cache"
	h "github.com/lumenblog/lumen/helpers"
)

// StatsType summarises the published site
type StatsType struct {
	ArticleCount  int64 `json:"articleCount"`
	CategoryCount int64 `json:"categoryCount"`
}

// ArchiveItemType is an article as listed in the archive
type ArchiveItemType struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	PublishedAt  *time.Time `json:"publishedAt"`
	CategoryName *string    `json:"categoryName"`
}

// ArchiveGroupType holds the articles published in one month
type ArchiveGroupType struct {
	Year     int               `json:"year"`
	Month    int               `json:"month"`
	Count    int64             `json:"count"`
	Articles []ArchiveItemType `json:"articles"`
}

// CategoryCountType is the number of published articles in a category
type CategoryCountType struct {
	CategoryID   int64  `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Count        int64  `json:"count"`
}

// GetStats counts published articles and categories
func GetStats(env *Env) (StatsType, int, error) {
	return cachedRead(env, cache.ArticleStatsKey, statsTTL,
		func() (StatsType, int, error) {
			var m StatsType
			err := env.DB.QueryRow(`
-- Get Stats
SELECT (SELECT COUNT(*) FROM articles WHERE status = $1)
      ,(SELECT COUNT(*) FROM categories)`,
				h.StatusPublished,
			).Scan(
				&m.ArticleCount,
				&m.CategoryCount,
			)
			if err != nil {
				glog.Errorf("GetStats %+v", err)
				return StatsType{}, http.StatusInternalServerError,
					fmt.Errorf("Database query failed: %v", err.Error())
			}

			return m, http.StatusOK, nil
		},
	)
}

// GetArchive groups published articles by the month they were published in,
// newest month first
func GetArchive(env *Env) ([]ArchiveGroupType, int, error) {
	return cachedRead(env, cache.ArticleArchiveKey, archiveTTL,
		func() ([]ArchiveGroupType, int, error) {
			rows, err := env.DB.Query(`
-- Get Archive
SELECT a.id
      ,a.title
      ,a.slug
      ,a.published_at
      ,c.name
  FROM articles a
  LEFT JOIN categories c ON c.id = a.category_id
 WHERE a.status = $1
 ORDER BY a.published_at DESC NULLS FIRST`,
				h.StatusPublished,
			)
			if err != nil {
				glog.Errorf("GetArchive %+v", err)
				return nil, http.StatusInternalServerError,
					fmt.Errorf("Database query failed: %v", err.Error())
			}
			defer rows.Close()

			var items []ArchiveItemType
			for rows.Next() {
				var (
					m            ArchiveItemType
					publishedAt  pq.NullTime
					categoryName sql.NullString
				)
				err = rows.Scan(&m.ID, &m.Title, &m.Slug, &publishedAt, &categoryName)
				if err != nil {
					return nil, http.StatusInternalServerError,
						fmt.Errorf("Row parsing error: %v", err.Error())
				}
				if publishedAt.Valid {
					t := publishedAt.Time
					m.PublishedAt = &t
				}
				if categoryName.Valid {
					name := categoryName.String
					m.CategoryName = &name
				}
				items = append(items, m)
			}
			err = rows.Err()
			if err != nil {
				return nil, http.StatusInternalServerError,
					fmt.Errorf("Error fetching rows: %v", err.Error())
			}

			return groupArchive(items, env.now()), http.StatusOK, nil
		},
	)
}

// groupArchive buckets items by year and month. Items without a publish date
// are placed in the month containing now. Items keep their relative order
// within a month.
func groupArchive(items []ArchiveItemType, now time.Time) []ArchiveGroupType {
	type yearMonth struct {
		year  int
		month int
	}

	index := map[yearMonth]int{}
	groups := []ArchiveGroupType{}

	for _, item := range items {
		date := now
		if item.PublishedAt != nil {
			date = *item.PublishedAt
		}

		k := yearMonth{date.Year(), int(date.Month())}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, ArchiveGroupType{
				Year:     k.year,
				Month:    k.month,
				Articles: []ArchiveItemType{},
			})
		}

		groups[i].Count++
		groups[i].Articles = append(groups[i].Articles, item)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Year != groups[j].Year {
			return groups[i].Year > groups[j].Year
		}
		return groups[i].Month > groups[j].Month
	})

	return groups
}

// GetArticleCountByCategory counts the published articles in every category
func GetArticleCountByCategory(env *Env) ([]CategoryCountType, int, error) {
	return cachedRead(env, cache.ArticleCountByCategoryKey, categoryCountTTL,
		func() ([]CategoryCountType, int, error) {
			rows, err := env.DB.Query(`
-- Get Article count by Category
SELECT c.id
      ,c.name
      ,COUNT(a.id)
  FROM categories c
  LEFT JOIN articles a ON a.category_id = c.id
                      AND a.status = $1
 GROUP BY c.id, c.name, c.sort_order
 ORDER BY c.sort_order, c.id`,
				h.StatusPublished,
			)
			if err != nil {
				glog.Errorf("GetArticleCountByCategory %+v", err)
				return nil, http.StatusInternalServerError,
					fmt.Errorf("Database query failed: %v", err.Error())
			}
			defer rows.Close()

			ems := []CategoryCountType{}
			for rows.Next() {
				var m CategoryCountType
				err = rows.Scan(&m.CategoryID, &m.CategoryName, &m.Count)
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
		},
	)
}
