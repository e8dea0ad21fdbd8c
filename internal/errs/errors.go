// Package errs defines the coded error kinds shared by the store, the
// scheduling layer and the Telegram handlers.
package errs

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeUnknown      = "UNKNOWN"
	CodeDatabase     = "DATABASE"
	CodeValidation   = "VALIDATION"
	CodeAPI          = "API"
	CodeConfig       = "CONFIG"
	CodeUnauthorized = "UNAUTHORIZED"
)

// ApplicationError is implemented by every error kind in this package.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// coded is the common body of all error kinds.
type coded struct {
	code    string
	message string
	err     error
}

func (e *coded) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

// Code returns the error code.
func (e *coded) Code() string { return e.code }

// Unwrap returns the cause, if any.
func (e *coded) Unwrap() error { return e.err }

// Message returns the message without the wrapped cause. Handlers use it
// for user-facing validation replies.
func (e *coded) Message() string { return e.message }

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return CodeUnknown
}

// DatabaseError reports a persistence failure.
type DatabaseError struct{ coded }

// ValidationError reports bad input rejected at a boundary.
type ValidationError struct{ coded }

// APIError reports a failure of an external service.
type APIError struct{ coded }

// ConfigError reports missing or invalid configuration.
type ConfigError struct{ coded }

// UnauthorizedError reports a command issued by a non-admin user.
type UnauthorizedError struct{ coded }

func NewDatabaseError(message string, cause error) error {
	return &DatabaseError{coded{code: CodeDatabase, message: message, err: cause}}
}

func NewValidationError(message string, cause error) error {
	return &ValidationError{coded{code: CodeValidation, message: message, err: cause}}
}

func NewAPIError(message string, cause error) error {
	return &APIError{coded{code: CodeAPI, message: message, err: cause}}
}

func NewConfigError(message string, cause error) error {
	return &ConfigError{coded{code: CodeConfig, message: message, err: cause}}
}

func NewUnauthorizedError(message string) error {
	return &UnauthorizedError{coded{code: CodeUnauthorized, message: message}}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsDatabase reports whether err carries a DatabaseError.
func IsDatabase(err error) bool {
	var d *DatabaseError
	return errors.As(err, &d)
}

// UserMessage returns the message of the first ValidationError in the chain,
// or fallback when there is none.
func UserMessage(err error, fallback string) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message()
	}
	return fallback
}
