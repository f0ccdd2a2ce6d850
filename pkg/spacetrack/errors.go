package spacetrack

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrAuthentication         = errors.New("authentication failed")
	ErrUnknownClass           = errors.New("unknown request class")
	ErrUnknownController      = errors.New("unknown request controller")
	ErrClassNotInController   = errors.New("request class not in controller")
	ErrConflictingStreamModes = errors.New("iter_lines and iter_content cannot both be true")
	ErrParseTypesWithFormat   = errors.New("parse_types can only be used if format is unset")
	ErrIterLinesBinary        = errors.New("iter_lines cannot be used with binary data")
	ErrMissingFile            = errors.New("missing keyword argument: 'file'")
	ErrUnexpectedArgument     = errors.New("unexpected keyword argument")
	ErrInvalidPredicateType   = errors.New("invalid predicate type")
	ErrInvalidEnum            = errors.New("invalid enum predicate type")
	ErrInvalidValue           = errors.New("invalid predicate value")
	ErrUnsupportedFileValue   = errors.New("unsupported file argument type")
	ErrMalformedModeldef      = errors.New("malformed modeldef response")
	ErrClientClosed           = errors.New("client is closed")
	ErrConfigRequired         = errors.New("config is required")
	ErrIdentityRequired       = errors.New("identity is required")
	ErrResultConsumed         = errors.New("result stream already consumed")
	ErrWrongResultKind        = errors.New("wrong result kind")
)

// AuthenticationError is returned when Space-Track rejects the credentials.
type AuthenticationError struct {
	Identity string
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s for identity %q", ErrAuthentication, e.Identity)
}

// Unwrap lets errors.Is match ErrAuthentication.
func (e *AuthenticationError) Unwrap() error {
	return ErrAuthentication
}

// UnexpectedArgumentError names a request argument that is neither a
// predicate of the class nor a meta predicate.
type UnexpectedArgumentError struct {
	Class string
	Key   string
}

// Error implements the error interface.
func (e *UnexpectedArgumentError) Error() string {
	return fmt.Sprintf("'%s' got an %s '%s'", e.Class, ErrUnexpectedArgument, e.Key)
}

// Unwrap lets errors.Is match ErrUnexpectedArgument.
func (e *UnexpectedArgumentError) Unwrap() error {
	return ErrUnexpectedArgument
}

// HTTPError is a non-success HTTP status from Space-Track. ServerMessage holds
// the error text the server returned, if any.
type HTTPError struct {
	StatusCode    int
	Status        string
	Method        string
	URL           string
	ServerMessage string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	kind := "Server error"
	if e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError {
		kind = "Client error"
	}

	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}

	msg := fmt.Sprintf("%s '%s' for url '%s'", kind, status, e.URL)
	if e.ServerMessage != "" {
		msg += constants.ServerMessagePrefix + e.ServerMessage
	}

	return msg
}

// IsRateLimitViolation reports whether err is the HTTP 500 Space-Track
// returns when its query rate limit was exceeded.
func IsRateLimitViolation(err error) bool {
	httpErr := &HTTPError{}
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusInternalServerError &&
			strings.Contains(httpErr.ServerMessage, constants.RateLimitViolationMarker)
	}

	return false
}

// IsAuthenticationError checks if the error is a rejected login.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrAuthentication)
}
