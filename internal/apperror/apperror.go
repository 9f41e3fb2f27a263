// Package apperror defines the typed errors services return so that
// handlers can map them to HTTP status codes in one place.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes an application error.
type ErrorType int

const (
	// UnknownError is for unspecified errors.
	UnknownError ErrorType = iota
	// ValidationError represents bad or missing input.
	ValidationError
	// ConflictError represents a duplicate identity at signup.
	ConflictError
	// AuthError represents failed authentication or an ownership violation.
	AuthError
	// BadRequestError represents a well-formed but unacceptable value.
	BadRequestError
	// NotFoundError represents a missing entity.
	NotFoundError
	// DatabaseError represents a store failure.
	DatabaseError
	// InternalError represents any other internal failure.
	InternalError
)

// AppError carries a user-facing message, an error category, and an
// optional underlying cause which is never surfaced to the client.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error so errors.Is and errors.As work
// across the chain.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code for the error type.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case ValidationError, ConflictError:
		return http.StatusUnprocessableEntity
	case AuthError:
		return http.StatusUnauthorized
	case BadRequestError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case DatabaseError, InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates an AppError of the given type.
func New(errType ErrorType, message string, underlying error) *AppError {
	return &AppError{Type: errType, Message: message, Err: underlying}
}

// NewValidationError creates a ValidationError.
func NewValidationError(message string) *AppError {
	return New(ValidationError, message, nil)
}

// NewConflictError creates a ConflictError.
func NewConflictError(message string) *AppError {
	return New(ConflictError, message, nil)
}

// NewAuthError creates an AuthError.
func NewAuthError(message string) *AppError {
	return New(AuthError, message, nil)
}

// NewBadRequestError creates a BadRequestError.
func NewBadRequestError(message string) *AppError {
	return New(BadRequestError, message, nil)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(message string) *AppError {
	return New(NotFoundError, message, nil)
}

// NewDatabaseError creates a DatabaseError wrapping the store failure.
func NewDatabaseError(message string, underlying error) *AppError {
	return New(DatabaseError, message, underlying)
}

// ErrorResponse is the JSON error payload sent to clients.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToResponse converts an AppError to its client payload. Only Message
// is included, never the underlying error.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message}
}

// FromError extracts an *AppError from an error chain, falling back to
// a generic InternalError so store failures never leak details.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(InternalError, "internal server error", err)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == NotFoundError
}

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == AuthError
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ConflictError
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ValidationError
}
