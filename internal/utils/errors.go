package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	InternalFailure ErrorKind = iota
	Unauthenticated
	Forbidden
	NotFound
	ValidationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case ValidationFailed:
		return "validation_failed"
	default:
		return "internal_failure"
	}
}

// Status maps the kind to the HTTP status a handler responds with.
func (k ErrorKind) Status() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case ValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AppError carries a client-safe message. Cause is only ever logged.
type AppError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func ErrUnauthenticated() *AppError {
	return &AppError{Kind: Unauthenticated, Message: "Unauthorized"}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Kind: Forbidden, Message: msg}
}

func ErrNotFound(msg string) *AppError {
	return &AppError{Kind: NotFound, Message: msg}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Kind: ValidationFailed, Message: msg}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Kind: InternalFailure, Message: msg, Cause: cause}
}

// AsAppError unwraps err to an *AppError, wrapping anything else as an
// internal failure.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal("Internal server error", err)
}
