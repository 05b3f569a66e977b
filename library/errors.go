package library

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeValidation   Code = "VALIDATION"
	CodeDuplicateKey Code = "DUPLICATE_KEY"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidState Code = "INVALID_STATE"
	CodeStorage      Code = "STORAGE"
)

// Error is a domain error with a code, a message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error carrying the same code, so callers can test
// errors.Is(err, ErrNotFound) regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithCause wraps an underlying error without losing the code.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, cause: err}
}

// Sentinel errors for use with errors.Is.
var (
	ErrValidation   = &Error{Code: CodeValidation, Message: "validation error"}
	ErrDuplicateKey = &Error{Code: CodeDuplicateKey, Message: "duplicate key"}
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidState = &Error{Code: CodeInvalidState, Message: "invalid state"}
	ErrStorage      = &Error{Code: CodeStorage, Message: "storage error"}
)

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// DuplicateKeyf creates a duplicate-key error with a formatted message.
func DuplicateKeyf(format string, args ...any) *Error {
	return &Error{Code: CodeDuplicateKey, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf creates a not-found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidStatef creates an invalid-state error with a formatted message.
func InvalidStatef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

// storagef wraps a driver or I/O failure as a storage error.
func storagef(op string, err error) *Error {
	return &Error{Code: CodeStorage, Message: op, cause: err}
}
