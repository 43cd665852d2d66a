package server

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang/glog"

	"github.com/lumenblog/lumen/cache"
	conf "github.com/lumenblog/lumen/config"
	h "github.com/lumenblog/lumen/helpers"
	"github.com/lumenblog/lumen/models"
	"github.com/lumenblog/lumen/perf"
	"github.com/lumenblog/lumen/storage"
)

// DBConfig returns the database settings from the loaded config
func DBConfig() h.DBConfig {
	return h.DBConfig{
		Host:     conf.ConfigStrings[conf.DatabaseHost],
		Port:     conf.ConfigInt64s[conf.DatabasePort],
		Database: conf.ConfigStrings[conf.DatabaseName],
		Username: conf.ConfigStrings[conf.DatabaseUsername],
		Password: conf.ConfigStrings[conf.DatabasePassword],
		SSLMode:  conf.ConfigStrings[conf.DatabaseSSLMode],
	}
}

// NewStorage returns the S3 compatible store when an endpoint is configured
// and the local uploads directory otherwise
func NewStorage(ctx context.Context) (storage.Store, error) {
	if conf.ConfigStrings[conf.S3Endpoint] == "" {
		if glog.V(2) {
			glog.Infof("Storing uploads in %s", conf.ConfigStrings[conf.UploadsDir])
		}
		return storage.NewLocal(conf.ConfigStrings[conf.UploadsDir])
	}

	if glog.V(2) {
		glog.Infof(
			"Storing uploads in bucket %s at %s",
			conf.ConfigStrings[conf.S3BucketName],
			conf.ConfigStrings[conf.S3Endpoint],
		)
	}
	return storage.NewMinio(ctx, storage.MinioConfig{
		Endpoint:        conf.ConfigStrings[conf.S3Endpoint],
		AccessKeyID:     conf.ConfigStrings[conf.S3AccessKeyID],
		SecretAccessKey: conf.ConfigStrings[conf.S3SecretAccessKey],
		Bucket:          conf.ConfigStrings[conf.S3BucketName],
		UseSSL:          conf.ConfigBool[conf.S3UseSSL],
	})
}

// NewEnv builds the process wide Env from the loaded config
func NewEnv(ctx context.Context, db *sql.DB) (*models.Env, error) {
	store, err := NewStorage(ctx)
	if err != nil {
		return nil, err
	}

	if glog.V(2) {
		glog.Infof(
			"Initialising cache connection to %s:%d",
			conf.ConfigStrings[conf.MemcachedHost],
			conf.ConfigInt64s[conf.MemcachedPort],
		)
	}

	oauthServerURL := conf.ConfigStrings[conf.OAuthServerURL]

	return &models.Env{
		DB:      db,
		Cache:   cache.NewStore(int(conf.ConfigInt64s[conf.CacheMaxEntries])),
		Shared:  cache.NewShared(conf.ConfigStrings[conf.MemcachedHost], conf.ConfigInt64s[conf.MemcachedPort]),
		Perf:    perf.NewCounter(),
		Storage: store,

		SessionSecret: []byte(conf.ConfigStrings[conf.SessionSecret]),
		OwnerOpenID:   conf.ConfigStrings[conf.OwnerOpenID],

		GitHub: models.NewGitHubConfig(
			conf.ConfigStrings[conf.GitHubClientID],
			conf.ConfigStrings[conf.GitHubClientSecret],
			conf.ConfigStrings[conf.GitHubCallbackURL],
		),
		OAuthServer: models.NewOAuthServerClient(
			oauthServerURL, conf.ConfigStrings[conf.AppID],
		),
		MockOAuth: conf.IsDevelopment() || models.IsLocalOAuthServer(oauthServerURL),

		Now: time.Now,
	}, nil
}
