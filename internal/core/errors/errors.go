package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication & Authorization
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("action forbidden")

	// Lookups
	ErrShopNotFound  = errors.New("shop not found")
	ErrOrderNotFound = errors.New("order not found")

	// Realtime
	ErrInvalidEvent        = errors.New("invalid order event")
	ErrInvalidTransition   = errors.New("invalid order transition")
	ErrConnectionNotFound  = errors.New("connection not found")
	ErrConnectionDuplicate = errors.New("connection already registered")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "Authentication required",
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewForbiddenError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "You do not have access to this shop",
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

// NewNotFoundError reports a missing resource under a resource-specific code
// such as SHOP_NOT_FOUND.
func NewNotFoundError(err error, code, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       code,
		StatusCode: 404,
	}
}

// NewInvalidEventError rejects an order event or transition that cannot be
// emitted. The message carries the failed rule.
func NewInvalidEventError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    err.Error(),
		Code:       "INVALID_EVENT",
		StatusCode: 422,
	}
}

func NewRateLimitedError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// FromError maps err onto the AppError the API responds with. An AppError
// anywhere in the chain is returned as is.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return NewUnauthorizedError(err)
	case errors.Is(err, ErrForbidden):
		return NewForbiddenError(err)
	case errors.Is(err, ErrShopNotFound):
		return NewNotFoundError(err, "SHOP_NOT_FOUND", "Shop not found")
	case errors.Is(err, ErrOrderNotFound):
		return NewNotFoundError(err, "ORDER_NOT_FOUND", "Order not found")
	case errors.Is(err, ErrNotFound):
		return NewNotFoundError(err, "NOT_FOUND", "Resource not found")
	case errors.Is(err, ErrInvalidEvent), errors.Is(err, ErrInvalidTransition):
		return NewInvalidEventError(err)
	case errors.Is(err, ErrBadRequest):
		return NewBadRequestError(err, err.Error())
	case errors.Is(err, ErrRateLimited):
		return NewRateLimitedError(err)
	default:
		return NewInternalError(err)
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
