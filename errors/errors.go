package errors

import (
	"fmt"
)

/*
* Error codes are intended to convey detailed errors internally and to clients.
* These should be combined with the appropriate HTTP status code, but are not
* intended to supercede correct HTTP responses. Therefore there is no error code
* for "not found" because HTTP 404 is sufficient.
*
* Error codes are grouped under HTTP status code, with some item-specific errors
* defined below these. These should be return with HTTP 400 unless otherwise
* stated.
*
 */

const (

	// HTTP 400 Bad Request.
	// Content-type is not accepted (e.g. text/xml).
	BadContentType ErrCode = 1
	// Content does not match Content-Type or unmarshalling error.
	InvalidContent ErrCode = 2
	// A parameter was not of the expected type.
	UnexpectedType ErrCode = 3
	// A parameter was outside the expected range.
	OutOfRange ErrCode = 4

	// HTTP 401 Unauthorized.
	// Requested an action not permitted for guests.
	LoginRequired ErrCode = 5

	// HTTP 403 Forbidden.
	// Authentication.
	ExpiredToken ErrCode = 6
	InvalidToken ErrCode = 7
	// Authorisation.
	NotAdmin ErrCode = 8

	// HTTP 409 Conflict.
	// Slugs are unique across articles and across categories.
	SlugTaken ErrCode = 9
	// Categories cannot be deleted while articles reference them.
	CategoryInUse ErrCode = 10

	// Uploads.
	// HTTP 413 Request Entity Too Large.
	FileTooLarge ErrCode = 11
	// HTTP 415 Unsupported Media Type.
	UnsupportedMedia ErrCode = 12

	// HTTP 502 Bad Gateway.
	// The OAuth provider rejected or failed the exchange.
	OAuthFailed ErrCode = 13
)

// ErrCode is a machine readable error classification
type ErrCode uint8

// LumenError implements the Error interface.
type LumenError struct {
	UserID       int64   `json:"userId,omitempty"`
	Function     string  `json:"-"`
	ErrorCode    ErrCode `json:"errorCode"`
	ErrorMessage string  `json:"errorDetail"`
}

func (e LumenError) Error() string {
	return e.ErrorMessage
}

// New returns a LumenError
func New(userID int64, function string, errCode ErrCode, errMessage string) error {
	return &LumenError{
		UserID:       userID,
		Function:     function,
		ErrorCode:    errCode,
		ErrorMessage: errMessage,
	}
}

// Newf is New with a formatted message
func Newf(
	userID int64,
	function string,
	errCode ErrCode,
	format string,
	args ...interface{},
) error {
	return New(userID, function, errCode, fmt.Sprintf(format, args...))
}
