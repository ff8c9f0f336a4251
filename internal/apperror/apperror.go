// Package apperror defines the domain error kinds shared by services and handlers.
//
// Services return these; only the HTTP layer translates them into status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel kind, matched with errors.Is
	Message string // human-readable message
	Field   string // optional: input field at fault
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing record. id may be empty for singleton records
// such as the device user.
func NotFound(resource, id string) *AppError {
	msg := fmt.Sprintf("%s not found", resource)
	if id != "" {
		msg = fmt.Sprintf("%s not found with id %s", resource, id)
	}
	return &AppError{
		Err:     ErrNotFound,
		Message: msg,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthorized reports a missing or stale session.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
