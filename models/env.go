package models

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/lumenblog/lumen/cache"
	"github.com/lumenblog/lumen/perf"
	"github.com/lumenblog/lumen/storage"
)

// Env carries the process wide dependencies that models need. One is built in
// main and attached to every request by the server.
type Env struct {
	DB      *sql.DB
	Cache   *cache.Store
	Shared  *cache.Shared
	Perf    *perf.Counter
	Storage storage.Store

	SessionSecret []byte
	OwnerOpenID   string

	// GitHub is nil when GitHub login is not configured
	GitHub *oauth2.Config

	// OAuthServer is nil when no OAuth server is configured
	OAuthServer *OAuthServerClient

	// MockOAuth serves the development OAuth endpoints
	MockOAuth bool

	Now func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

type envContextKey struct{}

// WithEnv returns a copy of ctx carrying e
func WithEnv(ctx context.Context, e *Env) context.Context {
	return context.WithValue(ctx, envContextKey{}, e)
}

// EnvFromContext returns the Env attached by WithEnv, or nil
func EnvFromContext(ctx context.Context) *Env {
	e, _ := ctx.Value(envContextKey{}).(*Env)
	return e
}

// RequestInfo is filled in while a request is handled so that middleware
// wrapping the handler can see who made it
type RequestInfo struct {
	UserID int64
}

type requestInfoContextKey struct{}

// WithRequestInfo attaches an empty RequestInfo to the request and returns both
func WithRequestInfo(r *http.Request) (*http.Request, *RequestInfo) {
	info := &RequestInfo{}
	return r.WithContext(
		context.WithValue(r.Context(), requestInfoContextKey{}, info),
	), info
}

func requestInfoFromContext(ctx context.Context) *RequestInfo {
	info, _ := ctx.Value(requestInfoContextKey{}).(*RequestInfo)
	return info
}
