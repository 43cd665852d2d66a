package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	exchangeTokenPath = "/webdev.v1.WebDevAuthPublicService/ExchangeToken"
	getUserInfoPath   = "/webdev.v1.WebDevAuthPublicService/GetUserInfo"

	// MockOpenID is the user every mock sign in resolves to
	MockOpenID = "mock-user-openid-dev"

	// MockCodePrefix starts every authorization code the mock provider issues
	MockCodePrefix = "mock-auth-code-"

	loginMethodGitHub = "github"
)

// GitHubUserURL is where the signed in GitHub user is read from
var GitHubUserURL = "https://api.github.com/user"

// NewGitHubConfig returns the OAuth2 configuration for GitHub sign in, or nil
// when no client id is configured
func NewGitHubConfig(clientID, clientSecret, callbackURL string) *oauth2.Config {
	if clientID == "" {
		return nil
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  callbackURL,
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}
}

// GitHubUserType is the subset of the GitHub user resource we use
type GitHubUserType struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	AvatarURL string  `json:"avatar_url"`
}

// OpenID is the identifier GitHub users are stored under
func (u GitHubUserType) OpenID() string {
	return "github:" + strconv.FormatInt(u.ID, 10)
}

// DisplayName prefers the profile name and falls back to the login
func (u GitHubUserType) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Login
}

// FetchGitHubUser reads the GitHub profile the token belongs to
func FetchGitHubUser(
	ctx context.Context,
	conf *oauth2.Config,
	token *oauth2.Token,
) (
	GitHubUserType,
	error,
) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, GitHubUserURL, nil)
	if err != nil {
		return GitHubUserType{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := conf.Client(ctx, token).Do(req)
	if err != nil {
		return GitHubUserType{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GitHubUserType{}, fmt.Errorf(
			"GitHub user request returned %d", resp.StatusCode,
		)
	}

	var u GitHubUserType
	err = json.NewDecoder(resp.Body).Decode(&u)
	if err != nil {
		return GitHubUserType{}, err
	}

	if u.ID == 0 {
		return GitHubUserType{}, fmt.Errorf("GitHub user has no id")
	}

	return u, nil
}

// SignInGitHubUser records the GitHub user and returns a session token
func SignInGitHubUser(env *Env, gh GitHubUserType) (UserType, string, int, error) {
	u := UserType{
		OpenID:      gh.OpenID(),
		Name:        gh.DisplayName(),
		Avatar:      gh.AvatarURL,
		LoginMethod: loginMethodGitHub,
	}
	if gh.Email != nil {
		u.Email = *gh.Email
	}

	return SignIn(env, u)
}

// SignIn upserts the user and issues a session token for them
func SignIn(env *Env, u UserType) (UserType, string, int, error) {
	u.LastSignedIn = env.now()

	user, status, err := UpsertUser(env, u)
	if err != nil {
		return UserType{}, "", status, err
	}

	token, err := env.CreateSessionToken(user.OpenID, user.Name)
	if err != nil {
		glog.Errorf("CreateSessionToken(%s) %+v", user.OpenID, err)
		return UserType{}, "", http.StatusInternalServerError,
			fmt.Errorf("Could not create a session")
	}

	return user, token, http.StatusOK, nil
}

// ExchangeTokenRequest asks the OAuth server for a token
type ExchangeTokenRequest struct {
	ClientID    string `json:"clientId"`
	GrantType   string `json:"grantType"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

// ExchangeTokenResponse is the OAuth server's answer to ExchangeTokenRequest
type ExchangeTokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
	Scope       string `json:"scope"`
	IDToken     string `json:"idToken"`
}

// GetUserInfoRequest asks the OAuth server who a token belongs to
type GetUserInfoRequest struct {
	AccessToken string `json:"accessToken"`
}

// OAuthUserInfo is the OAuth server's answer to GetUserInfoRequest
type OAuthUserInfo struct {
	OpenID      string `json:"openId"`
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Platform    string `json:"platform"`
	LoginMethod string `json:"loginMethod"`
}

// MockExchangeToken is what the development OAuth server issues
func MockExchangeToken(now time.Time) ExchangeTokenResponse {
	return ExchangeTokenResponse{
		AccessToken: "mock-access-token-" + strconv.FormatInt(now.UnixMilli(), 10),
		TokenType:   "Bearer",
		ExpiresIn:   3600,
		Scope:       "profile email",
		IDToken:     "mock-id-token",
	}
}

// MockUserInfo is the developer every mock sign in resolves to
func MockUserInfo() OAuthUserInfo {
	return OAuthUserInfo{
		OpenID:      MockOpenID,
		ProjectID:   "mock-project-id",
		Name:        "Developer Admin",
		Email:       "dev@example.com",
		Platform:    "REGISTERED_PLATFORM_GITHUB",
		LoginMethod: loginMethodGitHub,
	}
}

// IsLocalOAuthServer reports whether the OAuth server is this machine, in
// which case the mock endpoints are served
func IsLocalOAuthServer(baseURL string) bool {
	return strings.Contains(baseURL, "localhost") ||
		strings.Contains(baseURL, "127.0.0.1")
}

// OAuthServerClient talks to the OAuth server used for non GitHub sign in
type OAuthServerClient struct {
	BaseURL string
	AppID   string

	client *retryablehttp.Client
}

// NewOAuthServerClient returns a client for baseURL, or nil when it is empty
func NewOAuthServerClient(baseURL string, appID string) *OAuthServerClient {
	if baseURL == "" {
		return nil
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	return &OAuthServerClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		AppID:   appID,
		client:  client,
	}
}

func (c *OAuthServerClient) post(
	ctx context.Context,
	path string,
	in interface{},
	out interface{},
) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(
		ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, msg)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// ExchangeToken trades an authorization code for an access token
func (c *OAuthServerClient) ExchangeToken(
	ctx context.Context,
	code string,
	redirectURI string,
) (
	ExchangeTokenResponse,
	error,
) {
	var m ExchangeTokenResponse
	err := c.post(ctx, exchangeTokenPath, ExchangeTokenRequest{
		ClientID:    c.AppID,
		GrantType:   "authorization_code",
		Code:        code,
		RedirectURI: redirectURI,
	}, &m)
	if err != nil {
		return ExchangeTokenResponse{}, err
	}

	if m.AccessToken == "" {
		return ExchangeTokenResponse{}, fmt.Errorf("no access token was issued")
	}

	return m, nil
}

// GetUserInfo returns the user an access token belongs to
func (c *OAuthServerClient) GetUserInfo(
	ctx context.Context,
	accessToken string,
) (
	OAuthUserInfo,
	error,
) {
	var m OAuthUserInfo
	err := c.post(ctx, getUserInfoPath, GetUserInfoRequest{
		AccessToken: accessToken,
	}, &m)
	if err != nil {
		return OAuthUserInfo{}, err
	}

	if m.OpenID == "" {
		return OAuthUserInfo{}, fmt.Errorf("user info has no openId")
	}

	return m, nil
}

// SignInOAuthUser records the OAuth server user and returns a session token
func SignInOAuthUser(env *Env, info OAuthUserInfo) (UserType, string, int, error) {
	return SignIn(env, UserType{
		OpenID:      info.OpenID,
		Name:        info.Name,
		Email:       info.Email,
		LoginMethod: info.LoginMethod,
	})
}
