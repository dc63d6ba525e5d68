package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternal      = errors.New("internal error")
)

// Credential and session sentinel errors. InvalidCredentials and
// AccountDisabled are distinct for audit purposes but share one client-facing
// message so responses never reveal whether an email is registered.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrMalformedHash      = errors.New("malformed password hash")
	ErrLocked             = errors.New("too many failed attempts")
)

// Generic client-facing messages. The server-side distinction lives only in
// the wrapped sentinel and the audit trail.
const (
	msgBadCredentials = "invalid email or password"
	msgBadSession     = "session invalid, please log in again"
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// InvalidCredentials creates a 401 with the generic login failure message.
// Wraps ErrInvalidCredentials so the audit path can tell it apart from a
// disabled account.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: msgBadCredentials,
		Status:  http.StatusUnauthorized,
		Err:     ErrInvalidCredentials,
	}
}

// AccountDisabled creates a 401 carrying the same client-facing message as
// InvalidCredentials. Only errors.Is distinguishes the two.
func AccountDisabled() *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: msgBadCredentials,
		Status:  http.StatusUnauthorized,
		Err:     ErrAccountDisabled,
	}
}

// InvalidToken creates a 401 for a refresh token that has no stored record.
func InvalidToken() *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: msgBadSession,
		Status:  http.StatusUnauthorized,
		Err:     ErrInvalidToken,
	}
}

// TokenExpired creates a 401 for a token past its expiry timestamp.
func TokenExpired() *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: msgBadSession,
		Status:  http.StatusUnauthorized,
		Err:     ErrTokenExpired,
	}
}

// TokenRevoked creates a 401 for an explicitly revoked token.
func TokenRevoked() *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: msgBadSession,
		Status:  http.StatusUnauthorized,
		Err:     ErrTokenRevoked,
	}
}

// TokenReuse creates a 401 for a rotated token presented a second time.
// The client sees the generic session message; the reuse detection lives in
// the audit trail.
func TokenReuse() *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: msgBadSession,
		Status:  http.StatusUnauthorized,
		Err:     ErrTokenReuse,
	}
}

// MalformedHash creates a 500 for a structurally invalid stored password
// hash. This is a data-integrity fault, not a wrong password.
func MalformedHash(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %v", ErrMalformedHash, err),
	}
}

// Locked creates a 429 for a login attempt during an active lockout window.
func Locked(retryAfter string) *AppError {
	return &AppError{
		Code:    "TOO_MANY_REQUESTS",
		Message: "too many failed attempts, try again later",
		Status:  http.StatusTooManyRequests,
		Err:     fmt.Errorf("%w: retry after %s", ErrLocked, retryAfter),
	}
}

// PasswordPolicyViolation creates a 400 listing every violated rule. The
// full list is returned to the client because it is actionable.
func PasswordPolicyViolation(violations []string) *AppError {
	return &AppError{
		Code:    "PASSWORD_POLICY_VIOLATION",
		Message: "password does not meet policy: " + strings.Join(violations, "; "),
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountDisabled),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrTokenReuse):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrLocked):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
