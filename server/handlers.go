package server

import (
	"net/http"

	"github.com/lumenblog/lumen/controller"
)

var (
	apiHandlers = map[string]func(http.ResponseWriter, *http.Request){
		"/api/v1/articles":                     controller.ArticlesHandler,
		"/api/v1/articles/admin":               controller.ArticlesAdminHandler,
		"/api/v1/articles/archive":             controller.ArticleArchiveHandler,
		"/api/v1/articles/count-by-category":   controller.ArticleCountByCategoryHandler,
		"/api/v1/articles/stats":               controller.ArticleStatsHandler,
		"/api/v1/articles/{id:[0-9]+}":         controller.ArticleHandler,
		"/api/v1/articles/{id:[0-9]+}/related": controller.ArticleRelatedHandler,
		"/api/v1/articles/slug/{slug:[^/]+}":   controller.ArticleSlugHandler,

		"/api/v1/categories":                            controller.CategoriesHandler,
		"/api/v1/categories/defaults":                   controller.CategoryDefaultsHandler,
		"/api/v1/categories/{id:[0-9]+}":                controller.CategoryHandler,
		"/api/v1/categories/slug/{slug:[^/]+}":          controller.CategorySlugHandler,
		"/api/v1/categories/slug/{slug:[^/]+}/articles": controller.CategoryArticlesHandler,

		"/api/v1/docs/tree": controller.DocTreeHandler,

		"/api/v1/auth/me":     controller.AuthMeHandler,
		"/api/v1/auth/logout": controller.AuthLogoutHandler,

		"/api/auth/github/login":    controller.GitHubLoginHandler,
		"/api/auth/github/callback": controller.GitHubCallbackHandler,
		"/api/oauth/callback":       controller.OAuthCallbackHandler,

		"/api/v1/uploads": controller.UploadsHandler,

		"/api/v1/metrics": controller.MetricsHandler,
		"/api/v1/version": controller.VersionHandler,
	}

	rootHandlers = map[string]func(http.ResponseWriter, *http.Request){
		"/uploads/{path:.+}": controller.UploadFileHandler,
	}

	// mockOAuthHandlers stand in for the OAuth server during development
	mockOAuthHandlers = map[string]func(http.ResponseWriter, *http.Request){
		"/app-auth":                                        controller.MockAppAuthHandler,
		"/webdev.v1.WebDevAuthPublicService/ExchangeToken": controller.MockExchangeTokenHandler,
		"/webdev.v1.WebDevAuthPublicService/GetUserInfo":   controller.MockGetUserInfoHandler,
	}
)
