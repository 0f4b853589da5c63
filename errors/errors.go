// Package errors defines the service error taxonomy and the JSON shape errors
// take on the wire.
package errors

import (
	"errors"
	"net/http"
)

// Sentinel errors returned by services and repositories. Handlers map these
// to HTTP responses with MapToAPIError; anything unrecognized becomes a
// generic 500 so internals never leak to clients.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidOrExpired   = errors.New("invalid or expired token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrCurrentSession     = errors.New("cannot revoke current session")
)

// ValidationError is a malformed-input error carrying a client-safe message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation creates a ValidationError with the given message.
func NewValidation(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// APIError is the JSON error body sent to clients.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

// MapToAPIError translates a service error into its HTTP representation.
func MapToAPIError(err error) *APIError {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return newAPIError(http.StatusBadRequest, verr.Message)
	case errors.Is(err, ErrEmailTaken):
		return newAPIError(http.StatusConflict, "Email already registered")
	case errors.Is(err, ErrInvalidCredentials):
		return newAPIError(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrEmailNotVerified):
		return newAPIError(http.StatusForbidden, "Please verify your email before logging in")
	case errors.Is(err, ErrInvalidOrExpired):
		return newAPIError(http.StatusBadRequest, "Invalid or expired link")
	case errors.Is(err, ErrInvalidToken):
		return newAPIError(http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, ErrUserNotFound):
		return newAPIError(http.StatusNotFound, "User not found")
	case errors.Is(err, ErrSessionNotFound):
		return newAPIError(http.StatusNotFound, "Session not found")
	case errors.Is(err, ErrCurrentSession):
		return newAPIError(http.StatusBadRequest, "Use logout to end your current session")
	default:
		return newAPIError(http.StatusInternalServerError, "Server error")
	}
}

// Middleware rejection reasons, kept distinct so tests and logs can tell the
// 401 variants apart.
func NewAuthRequired() *APIError {
	return newAPIError(http.StatusUnauthorized, "Authentication required")
}

func NewInvalidToken() *APIError {
	return newAPIError(http.StatusUnauthorized, "Invalid or expired token")
}

func NewSessionRevoked() *APIError {
	return newAPIError(http.StatusUnauthorized, "Session expired or revoked")
}

// Is reports whether err matches target, re-exported so callers don't need
// both this package and the standard library one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
