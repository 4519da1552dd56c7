// Package apperror provides loglite's standardized error type, carrying
// enough structure for internal/httpapi to map errors to HTTP status
// codes without string-matching messages.
package apperror

import "fmt"

// Kind classifies an error for HTTP status mapping.
type Kind string

const (
	KindValidation Kind = "validation" // 400
	KindNotFound   Kind = "not_found"  // 404
	KindConflict   Kind = "conflict"   // 409
	KindTransient  Kind = "transient"  // 500, retryable by caller
)

// AppError is a classified, wrapped error. Component/Operation identify
// where it originated for structured logging.
type AppError struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Cause     error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// New builds an AppError of the given kind.
func New(kind Kind, component, operation, message string) *AppError {
	return &AppError{Kind: kind, Component: component, Operation: operation, Message: message}
}

// Wrap classifies an existing error as KindTransient unless it already is
// an *AppError, in which case it passes through unchanged.
func Wrap(err error, component, operation string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return &AppError{Kind: KindTransient, Component: component, Operation: operation, Message: err.Error(), Cause: err}
}

// Validation is a convenience constructor for 400-class errors.
func Validation(component, operation, message string) *AppError {
	return New(KindValidation, component, operation, message)
}

// NotFound is a convenience constructor for 404-class errors.
func NotFound(component, operation, message string) *AppError {
	return New(KindNotFound, component, operation, message)
}

// Conflict is a convenience constructor for 409-class errors.
func Conflict(component, operation, message string) *AppError {
	return New(KindConflict, component, operation, message)
}

// As extracts an *AppError from err, if any.
func As(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}
