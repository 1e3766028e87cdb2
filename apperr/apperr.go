// Package apperr defines the coded domain errors returned by the services.
//
// Services return one of the sentinels (or a copy with a custom message);
// handlers match them with errors.Is and use HTTPStatus to pick a response code.
//
//	if errors.Is(err, apperr.ErrAlreadyInLibrary) { ... }
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code sent to clients.
type Code string

const (
	CodeAuthFailed         Code = "AUTH_FAILED"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeSessionNotFound    Code = "SESSION_NOT_FOUND"
	CodeTokenMismatch      Code = "TOKEN_MISMATCH"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeAlreadyInLibrary   Code = "ALREADY_IN_LIBRARY"
	CodeNotInLibrary       Code = "NOT_IN_LIBRARY"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeRegressingProgress Code = "REGRESSING_PROGRESS"
	CodeValidation         Code = "VALIDATION"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeCatalogUnavailable Code = "CATALOG_UNAVAILABLE"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus maps a code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAuthFailed, CodeInvalidToken, CodeSessionNotFound, CodeTokenMismatch:
		return http.StatusUnauthorized
	case CodeAlreadyExists, CodeAlreadyInLibrary, CodeConflict:
		return http.StatusConflict
	case CodeNotFound, CodeNotInLibrary:
		return http.StatusNotFound
	case CodeValidation, CodeRegressingProgress:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeCatalogUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, a client-safe message and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"error"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the response status for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithMessage returns a copy of e with a different client message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg, Details: e.Details, cause: e.cause}
}

// WithCause returns a copy of e wrapping err. The cause is logged, never sent to clients.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinels, one per member of the error taxonomy.
var (
	ErrAuthFailed         = &Error{Code: CodeAuthFailed, Message: "incorrect username or password"}
	ErrInvalidToken       = &Error{Code: CodeInvalidToken, Message: "invalid or expired token"}
	ErrSessionNotFound    = &Error{Code: CodeSessionNotFound, Message: "refresh token not found"}
	ErrTokenMismatch      = &Error{Code: CodeTokenMismatch, Message: "refresh token mismatch"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrAlreadyInLibrary   = &Error{Code: CodeAlreadyInLibrary, Message: "book already in library"}
	ErrNotInLibrary       = &Error{Code: CodeNotInLibrary, Message: "book not in library"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrRegressingProgress = &Error{Code: CodeRegressingProgress, Message: "current page cannot be lower than the saved progress"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrRateLimited        = &Error{Code: CodeRateLimited, Message: "too many requests"}
	ErrCatalogUnavailable = &Error{Code: CodeCatalogUnavailable, Message: "book catalog unavailable"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal server error"}
)

// NotFound returns a not-found error with msg.
func NotFound(msg string) *Error {
	return ErrNotFound.WithMessage(msg)
}

// Validation returns a validation error with msg.
func Validation(msg string) *Error {
	return ErrValidation.WithMessage(msg)
}

// ValidationWithDetails returns a validation error carrying per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}
