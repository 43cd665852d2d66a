package models

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	e "github.com/lumenblog/lumen/errors"
	h "github.com/lumenblog/lumen/helpers"
)

// Context is everything a handler knows about the request it is serving
type Context struct {
	Request        *http.Request
	ResponseWriter http.ResponseWriter
	Env            *Env
	Auth           AuthType
	RouteVars      map[string]string
	StartTime      time.Time
	IP             net.IP
}

// AuthType describes who made the request. UserID is 0 for guests.
type AuthType struct {
	UserID int64
	User   UserType
	Method string
}

// StandardResponse is the envelope every JSON response is wrapped in
type StandardResponse struct {
	Context string      `json:"context"`
	Status  int         `json:"status"`
	Data    interface{} `json:"data"`
	Errors  []string    `json:"error"`
}

// MakeContext builds the Context for a request and resolves its session
func MakeContext(
	request *http.Request,
	responseWriter http.ResponseWriter,
) (
	*Context,
	int,
	error,
) {
	c := MakeEmptyContext(request, responseWriter)

	if c.Env == nil {
		glog.Errorf("No environment attached to request for %s", request.URL.Path)
		return c, http.StatusInternalServerError,
			fmt.Errorf("Server is not configured")
	}

	status, err := c.authenticate()
	if err != nil {
		c.Auth = AuthType{}
		return c, status, err
	}

	if info := requestInfoFromContext(request.Context()); info != nil {
		info.UserID = c.Auth.UserID
	}

	return c, http.StatusOK, nil
}

// MakeEmptyContext builds a Context without looking at the session
func MakeEmptyContext(
	request *http.Request,
	responseWriter http.ResponseWriter,
) *Context {
	return &Context{
		Request:        request,
		ResponseWriter: responseWriter,
		Env:            EnvFromContext(request.Context()),
		RouteVars:      mux.Vars(request),
		StartTime:      time.Now(),
		IP:             GetRequestIP(request),
	}
}

// GetRequestIP returns the address the request came from
func GetRequestIP(request *http.Request) net.IP {
	host, _, _ := net.SplitHostPort(request.RemoteAddr)
	return net.ParseIP(host)
}

func (c *Context) authenticate() (int, error) {
	// Sessions are accepted by header or cookie
	atHeader := c.Request.Header.Get("Authorization")
	var token string

	// Expected header is: "Authorization: Bearer token"
	if atHeader != "" {
		authParts := strings.Split(strings.Trim(atHeader, " "), " ")

		if len(authParts) != 2 {
			glog.Warningf(`Session token must have two parts: %s`, atHeader)
			return http.StatusUnauthorized, e.New(
				0, "context.authenticate", e.InvalidToken, "Invalid session token",
			)
		}

		if authParts[0] != "Bearer" {
			glog.Warningf(`Session token must have Bearer header: %s`, atHeader)
			return http.StatusUnauthorized, e.New(
				0, "context.authenticate", e.InvalidToken,
				"Authorization header must be in the format 'Bearer token'",
			)
		}

		token = authParts[1]
		c.Auth.Method = "header"

	} else if cookie, err := c.Request.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		token = cookie.Value
		c.Auth.Method = "cookie"
	}

	if token == "" {
		return http.StatusOK, nil
	}

	claims, err := c.Env.VerifySessionToken(token)
	if err != nil {
		if c.Auth.Method == "cookie" {
			// A stale cookie makes the visitor a guest rather than locking
			// them out of public pages
			c.Auth = AuthType{}
			return http.StatusOK, nil
		}

		glog.Warningf(`Invalid session token: %+v`, err)
		return http.StatusUnauthorized, e.New(
			0, "context.authenticate", e.ExpiredToken,
			"Invalid (bad or expired) session token",
		)
	}

	user, status, err := GetUserByOpenID(c.Env, claims.OpenID)
	if err != nil {
		if status == http.StatusNotFound {
			c.Auth = AuthType{}
			return http.StatusOK, nil
		}
		return status, err
	}

	c.Auth.UserID = user.ID
	c.Auth.User = user

	// Update entry for user's last activity
	lastActiveKey := fmt.Sprintf(mcLastActiveKey, user.ID)
	if _, ok := c.Env.Shared.GetInt64(lastActiveKey); !ok {
		go UpdateLastSignedIn(c.Env, user.ID, c.StartTime)

		// Only update every 60 seconds at most
		c.Env.Shared.SetInt64(lastActiveKey, 1, mcLastActiveTTL)
	}

	return http.StatusOK, nil
}

// RequireUser returns 401 for guests
func (c *Context) RequireUser() (int, error) {
	if c.Auth.UserID < 1 {
		return http.StatusUnauthorized, e.New(
			0, "context.RequireUser", e.LoginRequired, h.LoginRequiredMessage,
		)
	}

	return http.StatusOK, nil
}

// RequireAdmin returns 401 for guests and 403 for users who are not admins
func (c *Context) RequireAdmin() (int, error) {
	status, err := c.RequireUser()
	if err != nil {
		return status, err
	}

	if !c.Auth.User.IsAdmin() {
		return http.StatusForbidden, e.New(
			c.Auth.UserID, "context.RequireAdmin", e.NotAdmin,
			"Admin access required",
		)
	}

	return http.StatusOK, nil
}

// GetRouteInt64 parses a numeric route variable
func (c *Context) GetRouteInt64(key string) (int64, int, error) {
	v, ok := c.RouteVars[key]
	if !ok {
		return 0, http.StatusBadRequest,
			fmt.Errorf("%s is missing from the URL", key)
	}

	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 1 {
		return 0, http.StatusBadRequest,
			fmt.Errorf("The supplied %s ('%s') is not a number", key, v)
	}

	return id, http.StatusOK, nil
}

// GetHTTPMethod returns the request method, honouring method overrides on
// POST requests
func (c *Context) GetHTTPMethod() string {
	m := c.Request.Method

	if m == "POST" {
		if c.Request.Header.Get("X-HTTP-Method-Override") != "" {
			m = strings.ToUpper(c.Request.Header.Get("X-HTTP-Method-Override"))
		}

		switch m {
		case "DELETE":
		case "GET":
		case "HEAD":
		case "OPTIONS":
		case "PATCH":
		case "POST":
		case "PUT":
		default:
			// If it wasn't one of the above then let's just use what we know
			// is safe
			return c.Request.Method
		}
	}

	return m
}

// Respond writes data wrapped in a StandardResponse
func (c *Context) Respond(
	data interface{},
	statusCode int,
	errors []string,
) error {
	obj := StandardResponse{
		Context: c.Request.URL.Query().Get("context"),
		Status:  statusCode,
		Data:    data,
		Errors:  errors,
	}

	// Prevent content type detection, a.k.a. sniffing
	c.ResponseWriter.Header().Set("Content-Type", "application/json")
	c.ResponseWriter.Header().Set("X-Content-Type-Options", "nosniff")

	// Cache headers
	if c.Auth.UserID == 0 &&
		statusCode == http.StatusOK &&
		c.GetHTTPMethod() == "GET" {
		// Public, cache for a short while
		c.ResponseWriter.Header().Set(`Cache-Control`, `public, max-age=60`)
	} else {
		// Potentially private, do not cache
		c.ResponseWriter.Header().Set(`Cache-Control`, `no-cache, max-age=0`)
	}
	c.ResponseWriter.Header().Set(`Vary`, `Authorization, Cookie`)

	output, err := json.Marshal(obj)
	if err != nil {
		http.Error(c.ResponseWriter, err.Error(), http.StatusInternalServerError)
		return err
	}

	// Prevent chunking
	c.ResponseWriter.Header().Set("Content-Length", strconv.Itoa(len(output)))

	return c.WriteResponse(output, statusCode)
}

// WriteResponse ultimately does the job of writing the response
func (c *Context) WriteResponse(output []byte, statusCode int) error {
	c.ResponseWriter.WriteHeader(statusCode)

	// HEAD requests return no body and are used to check headers for cache
	// invalidation functions
	if c.GetHTTPMethod() == "HEAD" {
		return nil
	}

	_, err := c.ResponseWriter.Write(output)

	// We only log at error severity when an error is not the result of the
	// client disconnecting. "broken pipe" is a syscall.EPIPE error that
	// indicates client disconnection.
	if err != nil {
		opErr, ok := err.(*net.OpError)
		if !ok || opErr.Err != syscall.EPIPE {
			glog.Errorf(
				"Error writing %s response to %s : %+v\n",
				c.GetHTTPMethod(),
				c.Request.URL.String(),
				err,
			)
			return err
		}

		glog.Warningf(
			"Error writing %s response to %s : %+v\n",
			c.GetHTTPMethod(),
			c.Request.URL.String(),
			err,
		)
		return err
	}

	return nil
}

// RespondWithOptions answers an OPTIONS request
func (c *Context) RespondWithOptions(options []string) error {
	c.ResponseWriter.Header().Set("Allow", strings.Join(options, ","))
	c.ResponseWriter.Header().Set("Content-Length", "0")
	c.ResponseWriter.WriteHeader(http.StatusOK)
	return nil
}

// RespondWithStatus responds with custom status code and an empty
// StandardResponse struct
func (c *Context) RespondWithStatus(statusCode int) error {
	return c.Respond(nil, statusCode, nil)
}

// RespondWithError responds with the specified HTTP status code and adds the
// status description to the errors list
func (c *Context) RespondWithError(statusCode int) error {
	return c.RespondWithErrorMessage(http.StatusText(statusCode), statusCode)
}

// RespondWithErrorMessage responds with custom code and an error message
func (c *Context) RespondWithErrorMessage(
	message string,
	statusCode int,
) error {
	return c.Respond(nil, statusCode, []string{message})
}

// RespondWithErrorDetail responds with detailed error code and message in the
// "data" object.
func (c *Context) RespondWithErrorDetail(err error, statusCode int) error {
	if _, ok := err.(*e.LumenError); ok {
		return c.Respond(err, statusCode, []string{err.Error()})
	}

	return c.Respond(nil, statusCode, []string{err.Error()})
}

// RespondWithData responds with the specified data
func (c *Context) RespondWithData(data interface{}) error {
	return c.Respond(data, http.StatusOK, nil)
}

// RespondWithOK responds with 200 and no data
func (c *Context) RespondWithOK() error {
	return c.Respond(nil, http.StatusOK, nil)
}

// RespondWithCreated responds with 201 and the created item
func (c *Context) RespondWithCreated(data interface{}) error {
	return c.Respond(data, http.StatusCreated, nil)
}

// RespondWithRedirect sends a browser to location with 302 Found
func (c *Context) RespondWithRedirect(location string) {
	http.Redirect(c.ResponseWriter, c.Request, location, http.StatusFound)
}

// RespondWithNotFound responds with 404 Not Found
func (c *Context) RespondWithNotFound() error {
	return c.RespondWithError(http.StatusNotFound)
}

// Fill decodes the JSON request body into v
func (c *Context) Fill(v interface{}) error {
	ct := strings.TrimSpace(strings.Split(c.Request.Header.Get("Content-Type"), ";")[0])
	if ct != "" && ct != "application/json" {
		return e.Newf(
			c.Auth.UserID, "context.Fill", e.BadContentType,
			"Cannot decode request for %s data", ct,
		)
	}

	defer c.Request.Body.Close()

	err := json.NewDecoder(c.Request.Body).Decode(v)
	if err != nil {
		return e.Newf(
			c.Auth.UserID, "context.Fill", e.InvalidContent,
			"The post data is invalid: %v", err,
		)
	}

	return nil
}
