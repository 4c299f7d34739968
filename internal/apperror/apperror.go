// Package apperror defines the domain errors shared by every layer.
//
// SENTINELS + WRAPPER:
// Each category has a sentinel (ErrNotFound, ErrValidation, ...) and every
// concrete error is an *AppError that unwraps to one of them. Callers test
// the category with errors.Is and read the human message with Error().
// The HTTP layer is the only place that turns categories into status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrDecode     = errors.New("decode error")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing resource. id is formatted with %v so callers
// can pass list positions as well as string IDs.
func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %v", resource, id),
	}
}

// DecodeFailed reports a persisted record whose required field is missing
// or has the wrong type. Archive loaders log it and drop the record.
func DecodeFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrDecode,
		Message: message,
		Field:   field,
	}
}

// FieldOf returns the offending field of an *AppError anywhere in err's
// chain, or "" when there is none.
func FieldOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
