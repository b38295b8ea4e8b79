// Package apperror defines the error kinds the API reports to clients.
//
// Every failure that should reach a client is an *Error carrying a Kind.
// The central error handler switches over the Kind to pick the HTTP status
// and machine-readable code; the wrapped cause is logged but never rendered.
package apperror

import (
	"errors"
	"net/http"
)

// Kind identifies a class of failure
type Kind int

const (
	Internal Kind = iota
	TokenMissing
	TokenInvalid
	TokenExpired
	AuthRequired
	InsufficientPermissions
	Configuration
	InvalidCredentials
	BadRequest
	Validation
	PayloadTooLarge
	NotFound
	Conflict
	RateLimited
	Unavailable
)

type kindInfo struct {
	status  int
	code    string
	message string
}

var kinds = map[Kind]kindInfo{
	Internal:                {http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"},
	TokenMissing:            {http.StatusUnauthorized, "TOKEN_MISSING", "Token is required"},
	TokenInvalid:            {http.StatusUnauthorized, "TOKEN_INVALID", "Invalid token"},
	TokenExpired:            {http.StatusUnauthorized, "TOKEN_EXPIRED", "Token expired"},
	AuthRequired:            {http.StatusUnauthorized, "AUTH_REQUIRED", "Authentication required"},
	InsufficientPermissions: {http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", "Insufficient permissions"},
	Configuration:           {http.StatusInternalServerError, "CONFIGURATION_ERROR", "Server misconfiguration"},
	InvalidCredentials:      {http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"},
	BadRequest:              {http.StatusBadRequest, "BAD_REQUEST", "Bad request"},
	Validation:              {http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Validation failed"},
	PayloadTooLarge:         {http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large"},
	NotFound:                {http.StatusNotFound, "NOT_FOUND", "Resource not found"},
	Conflict:                {http.StatusConflict, "CONFLICT", "Resource conflict"},
	RateLimited:             {http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests"},
	Unavailable:             {http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable"},
}

// Status returns the HTTP status code for the kind
func (k Kind) Status() int {
	if info, ok := kinds[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Code returns the machine-readable code for the kind
func (k Kind) Code() string {
	if info, ok := kinds[k]; ok {
		return info.code
	}
	return kinds[Internal].code
}

func (k Kind) String() string {
	return k.Code()
}

// Error is a typed application error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an error of the given kind. An empty message falls back to the
// kind's default client message.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = kinds[kind].message
	}
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind that keeps cause for logging
func Wrap(kind Kind, message string, cause error) *Error {
	e := New(kind, message)
	e.Err = cause
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so sentinels
// below can be matched with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Status returns the HTTP status code for the error
func (e *Error) Status() int {
	return e.Kind.Status()
}

// Code returns the machine-readable code for the error
func (e *Error) Code() string {
	return e.Kind.Code()
}

// Sentinels for errors.Is comparisons
var (
	ErrTokenMissing            = New(TokenMissing, "")
	ErrTokenInvalid            = New(TokenInvalid, "")
	ErrTokenExpired            = New(TokenExpired, "")
	ErrAuthRequired            = New(AuthRequired, "")
	ErrInsufficientPermissions = New(InsufficientPermissions, "")
	ErrConfiguration           = New(Configuration, "")
	ErrInvalidCredentials      = New(InvalidCredentials, "")
	ErrNotFound                = New(NotFound, "")
	ErrConflict                = New(Conflict, "")
)

// KindOf returns the kind of err, or Internal when err is not an *Error
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// As extracts the *Error from err's chain
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
