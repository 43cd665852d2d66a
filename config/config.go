package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
	ini "github.com/robfig/config"
)

// ConfigFilePath is the default path to the config file
const ConfigFilePath string = "/etc/lumen/api.conf"

// APISection is the [api] section of the config file
const APISection string = "api"

// EnvPrefix is prepended to the upper-cased key name to form the environment
// variable that overrides a config file value
const EnvPrefix string = "LUMEN_"

// Config file keys
const (
	Environment = "environment"

	ListenPort = "listen_port"

	DatabaseHost     = "database_host"
	DatabasePort     = "database_port"
	DatabaseName     = "database_database"
	DatabaseUsername = "database_username"
	DatabasePassword = "database_password"
	DatabaseSSLMode  = "database_sslmode"

	SessionSecret = "session_secret"
	OwnerOpenID   = "owner_open_id"

	MemcachedHost   = "memcached_host"
	MemcachedPort   = "memcached_port"
	CacheMaxEntries = "cache_max_entries"

	GitHubClientID     = "github_client_id"
	GitHubClientSecret = "github_client_secret"
	GitHubCallbackURL  = "github_callback_url"

	OAuthServerURL = "oauth_server_url"
	AppID          = "app_id"

	UploadsDir = "uploads_dir"

	S3Endpoint        = "s3_endpoint"
	S3AccessKeyID     = "s3_access_key_id"
	S3SecretAccessKey = "s3_secret_access_key"
	S3BucketName      = "s3_bucket"
	S3UseSSL          = "s3_use_ssl"
)

// EnvironmentDevelopment enables the mock OAuth server
const EnvironmentDevelopment = "development"

var configRequiredStrings = []string{
	DatabaseHost,
	DatabaseName,
	DatabasePassword,
	DatabaseUsername,
	Environment,
	SessionSecret,
}

var configRequiredInt64s = []string{
	DatabasePort,
	ListenPort,
}

var configOptionalStrings = map[string]string{
	DatabaseSSLMode:    "disable",
	GitHubCallbackURL:  "",
	GitHubClientID:     "",
	GitHubClientSecret: "",
	MemcachedHost:      "",
	OAuthServerURL:     "",
	AppID:              "",
	OwnerOpenID:        "",
	S3AccessKeyID:      "",
	S3BucketName:       "",
	S3Endpoint:         "",
	S3SecretAccessKey:  "",
	UploadsDir:         "./uploads",
}

var configOptionalInt64s = map[string]int64{
	CacheMaxEntries: 100,
	MemcachedPort:   11211,
}

var configOptionalBools = map[string]bool{
	S3UseSSL: true,
}

// ConfigStrings contains the string values for the given config keys
var ConfigStrings = map[string]string{}

// ConfigInt64s contains the int64 values for the given config keys
var ConfigInt64s = map[string]int64{}

// ConfigBool contains the bool values for the given config keys
var ConfigBool = map[string]bool{}

// source looks a key up in the environment first and the config file second
type source struct {
	file *ini.Config
}

func (s source) lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(key)); ok {
		return v, true
	}

	if s.file != nil && s.file.HasOption(APISection, key) {
		v, err := s.file.String(APISection, key)
		if err == nil {
			return v, true
		}
	}

	return "", false
}

// Load reads the config file at path, a .env file in the working directory if
// there is one, and any LUMEN_* environment variables. A missing config file
// is only an error if the environment does not supply every required key.
func Load(path string) error {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		glog.Warningf("godotenv.Load() %+v", err)
	}

	var src source
	c, err := ini.ReadDefault(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not read config file %s: %v", path, err)
		}
		if glog.V(2) {
			glog.Infof("No config file at %s, using environment only", path)
		}
	} else {
		src.file = c
	}

	for _, key := range configRequiredStrings {
		v, ok := src.lookup(key)
		if !ok || v == "" {
			return fmt.Errorf("config option %s is required", key)
		}
		ConfigStrings[key] = v
	}

	for _, key := range configRequiredInt64s {
		v, ok := src.lookup(key)
		if !ok {
			return fmt.Errorf("config option %s is required", key)
		}
		ii, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("config option %s (%s) is not a number", key, v)
		}
		ConfigInt64s[key] = ii
	}

	for key, def := range configOptionalStrings {
		ConfigStrings[key] = def
		if v, ok := src.lookup(key); ok {
			ConfigStrings[key] = v
		}
	}

	for key, def := range configOptionalInt64s {
		ConfigInt64s[key] = def
		if v, ok := src.lookup(key); ok && v != "" {
			ii, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return fmt.Errorf("config option %s (%s) is not a number", key, v)
			}
			ConfigInt64s[key] = ii
		}
	}

	for key, def := range configOptionalBools {
		ConfigBool[key] = def
		if v, ok := src.lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("config option %s (%s) is not a boolean", key, v)
			}
			ConfigBool[key] = b
		}
	}

	return nil
}

// IsDevelopment reports whether the server runs in the development
// environment
func IsDevelopment() bool {
	return ConfigStrings[Environment] == EnvironmentDevelopment
}
