package models

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lumenblog/lumen/cache"
	h "github.com/lumenblog/lumen/helpers"
)

// This file contains helper functions for caching model objects. The
// in-process Store memoises list and tree queries; memcache holds users so
// that every process resolves a session the same way.

const (
	articleListTTL = 5 * time.Minute
	statsTTL       = 5 * time.Minute
	archiveTTL     = 5 * time.Minute

	categoryListTTL  = 10 * time.Minute
	categoryCountTTL = 10 * time.Minute
	docTreeTTL       = 10 * time.Minute
)

const (
	mcUserByOpenIDKey = "us_o%s"
	mcLastActiveKey   = "la_%d"
)

const (
	mcUserTTL       int32 = 60 * 5
	mcLastActiveTTL int32 = 60
)

// cachedRead returns the value cached under key, or runs load and caches what
// it returns. Errors from load are returned unchanged and never cached.
func cachedRead[T any](
	e *Env,
	key string,
	ttl time.Duration,
	load func() (T, int, error),
) (
	T,
	int,
	error,
) {
	if e.Cache == nil {
		return load()
	}

	if v, ok := e.Cache.Get(key); ok {
		if t, ok := v.(T); ok {
			if e.Perf != nil {
				e.Perf.RecordCacheHit()
			}
			return t, http.StatusOK, nil
		}
	}

	if e.Perf != nil {
		e.Perf.RecordCacheMiss()
	}

	v, status, err := load()
	if err != nil {
		return v, status, err
	}

	e.Cache.Set(key, v, ttl)

	return v, status, nil
}

// PurgeCache removes everything derived from items of the given type. It
// must only be called once the change has been committed.
func PurgeCache(e *Env, itemTypeID int64) {
	if e.Cache == nil {
		return
	}

	switch itemTypeID {
	case h.ItemTypes[h.ItemTypeArticle]:
		cache.InvalidateArticles(e.Cache)

	case h.ItemTypes[h.ItemTypeCategory]:
		cache.InvalidateCategories(e.Cache)

	default:
	}
}

func purgeUser(e *Env, openID string) {
	e.Shared.Delete(fmt.Sprintf(mcUserByOpenIDKey, openID))
}
