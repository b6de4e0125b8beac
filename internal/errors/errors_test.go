package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", NotFound(""), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("loading product: %w", NotFound("no such product")), http.StatusNotFound},
		{"redirect", Redirect(http.StatusMovedPermanently, "/new"), http.StatusMovedPermanently},
		{"bad redirect status", Redirect(200, "/new"), http.StatusFound},
		{"custom status", Status(http.StatusTeapot, ""), http.StatusTeapot},
		{"validation", NewValidationError(ErrCodeValidation, "bad query"), http.StatusBadRequest},
		{"render wrapping status", NewRenderError(ErrCodeRenderFailed, "render", NotFound("")), http.StatusNotFound},
		{"render plain", NewRenderError(ErrCodeRenderFailed, "render", New("boom")), http.StatusInternalServerError},
		{"deadline", fmt.Errorf("round 2: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"canceled", context.Canceled, http.StatusServiceUnavailable},
		{"plain", New("boom"), http.StatusInternalServerError},
		{"multi wrapped", fmt.Errorf("%w: %w", context.DeadlineExceeded, NotFound("")), http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HTTPStatus(tc.err))
		})
	}
}

func TestErrorString(t *testing.T) {
	err := NewRenderError(ErrCodeLoaderFailed, "loader failed", New("connection refused")).
		WithComponent("ProductList")

	assert.Equal(t, "[ERR_LOADER_FAILED] component:ProductList loader failed: connection refused", err.Error())
	assert.Equal(t, "connection refused", err.Unwrap().Error())
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("page: %w", NotFound("missing"))

	assert.True(t, Is(err, NotFound("")))
	assert.False(t, Is(err, Status(http.StatusNotFound, "")))
	assert.True(t, IsNotFound(err))
}

func TestRedirectLocation(t *testing.T) {
	location, ok := RedirectLocation(fmt.Errorf("wrapped: %w", Redirect(http.StatusSeeOther, "/login")))
	assert.True(t, ok)
	assert.Equal(t, "/login", location)

	_, ok = RedirectLocation(NotFound(""))
	assert.False(t, ok)
}

func TestWithContext(t *testing.T) {
	err := NotFound("").WithContext("path", "/products/9").WithContext("round", 2)

	assert.Equal(t, "/products/9", err.Context["path"])
	assert.Equal(t, 2, err.Context["round"])
}

type recordingLogger struct {
	level  string
	fields []interface{}
}

func (r *recordingLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	r.level, r.fields = "error", fields
}

func (r *recordingLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	r.level, r.fields = "warn", fields
}

func (r *recordingLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	r.level, r.fields = "debug", fields
}

func TestErrorHandler(t *testing.T) {
	testCases := []struct {
		err           error
		expectedLevel string
		status        int
	}{
		{Redirect(http.StatusFound, "/"), "debug", http.StatusFound},
		{NotFound(""), "warn", http.StatusNotFound},
		{New("boom"), "error", http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		logger := &recordingLogger{}
		status := NewErrorHandler(logger).Handle(context.Background(), tc.err, "path", "/x")

		assert.Equal(t, tc.status, status)
		assert.Equal(t, tc.expectedLevel, logger.level)
		assert.Contains(t, logger.fields, "path")
	}

	assert.Equal(t, http.StatusOK, NewErrorHandler(nil).Handle(context.Background(), nil))
}
