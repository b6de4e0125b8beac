package errors

import (
	"context"
	"errors"
	"net/http"
)

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Debug(ctx context.Context, msg string, fields ...interface{})
}

// ErrorHandler logs request errors at a level matching their severity.
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err and returns the HTTP status it maps to.
func (h *ErrorHandler) Handle(ctx context.Context, err error, fields ...interface{}) int {
	status := HTTPStatus(err)
	if err == nil || h.logger == nil {
		return status
	}

	var e *Error
	if errors.As(err, &e) {
		fields = append(fields, "type", e.Type, "code", e.Code)
		if e.Component != "" {
			fields = append(fields, "component", e.Component)
		}
	}
	fields = append(fields, "status", status)

	switch {
	case status < http.StatusBadRequest:
		h.logger.Debug(ctx, "Render ended early", fields...)
	case status < http.StatusInternalServerError:
		h.logger.Warn(ctx, err, "Request error", fields...)
	default:
		h.logger.Error(ctx, err, "Render failed", fields...)
	}

	return status
}
