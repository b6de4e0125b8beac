// Package errors defines the structured error type shared by the render
// pipeline and the HTTP server, and maps errors to HTTP status codes.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeRedirect   ErrorType = "redirect"
	ErrorTypeStatus     ErrorType = "status"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeRedirect      = "ERR_REDIRECT"
	ErrCodeStatus        = "ERR_STATUS"
	ErrCodeRenderFailed  = "ERR_RENDER_FAILED"
	ErrCodeRoundLimit    = "ERR_ROUND_LIMIT"
	ErrCodeLoaderFailed  = "ERR_LOADER_FAILED"
	ErrCodeConfigInvalid = "ERR_CONFIG_INVALID"
	ErrCodeInternal      = "ERR_INTERNAL"
	ErrCodeValidation    = "ERR_VALIDATION_FAILED"
)

// Error is a structured error carrying an optional HTTP status.
type Error struct {
	Type      ErrorType
	Code      string
	Message   string
	Status    int
	Location  string
	Component string
	Cause     error
	Context   map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same type and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent records the component that produced the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component

	return e
}

// WithCause sets the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause

	return e
}

// NotFound aborts a render with 404.
func NotFound(message string) *Error {
	if message == "" {
		message = http.StatusText(http.StatusNotFound)
	}
	return &Error{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeNotFound,
		Message: message,
		Status:  http.StatusNotFound,
	}
}

// Redirect aborts a render and sends the client to location. Status must be
// a 3xx code; anything else becomes 302.
func Redirect(status int, location string) *Error {
	if status < 300 || status > 399 {
		status = http.StatusFound
	}
	return &Error{
		Type:     ErrorTypeRedirect,
		Code:     ErrCodeRedirect,
		Message:  "redirect to " + location,
		Status:   status,
		Location: location,
	}
}

// Status aborts a render with an arbitrary HTTP status.
func Status(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{
		Type:    ErrorTypeStatus,
		Code:    ErrCodeStatus,
		Message: message,
		Status:  status,
	}
}

// NewRenderError wraps a failure raised while rendering a component.
func NewRenderError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeRender,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
		Status:  http.StatusInternalServerError,
	}
}

// HTTPStatus maps err to the status code a response should carry.
//
// The outermost *Error with a non-zero Status wins. Deadline errors map to
// 504, cancellation to 503, and everything else to 500. A nil error is 200.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if status := statusOf(err); status != 0 {
		return status
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// statusOf walks the wrap tree depth first and returns the first non-zero
// Status it finds.
func statusOf(err error) int {
	if err == nil {
		return 0
	}
	if se, ok := err.(*Error); ok && se.Status != 0 {
		return se.Status
	}

	switch wrapped := err.(type) {
	case interface{ Unwrap() error }:
		return statusOf(wrapped.Unwrap())
	case interface{ Unwrap() []error }:
		for _, e := range wrapped.Unwrap() {
			if status := statusOf(e); status != 0 {
				return status
			}
		}
	}
	return 0
}

// RedirectLocation returns the target of a redirect error.
func RedirectLocation(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Type == ErrorTypeRedirect && e.Location != "" {
		return e.Location, true
	}

	return "", false
}

// IsNotFound reports whether err maps to 404.
func IsNotFound(err error) bool {
	return HTTPStatus(err) == http.StatusNotFound
}

// Is and As re-export the standard library helpers so callers that import
// this package under the name errors keep them.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is errors.As.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// New is errors.New.
func New(text string) error { return errors.New(text) }
