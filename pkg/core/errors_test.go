package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
	}{
		{http.StatusBadRequest, CodeValidationError},
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusNotFound, CodeNotFound},
		{http.StatusConflict, CodeAlreadyExists},
		{http.StatusInternalServerError, CodeInternalError},
		{http.StatusServiceUnavailable, CodeServiceUnavailable},
		{http.StatusTeapot, CodeInternalError},
		{http.StatusBadGateway, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, CodeFromStatus(tt.status))
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for _, status := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsRetryableStatus(status), "status %d", status)
	}
	for _, status := range []int{400, 401, 403, 404, 409, 501} {
		assert.False(t, IsRetryableStatus(status), "status %d", status)
	}
}

func TestAPIError(t *testing.T) {
	t.Run("message without status", func(t *testing.T) {
		err := NewAPIError(CodeTimeout, "request timeout after 30000ms", true)
		assert.Equal(t, "[TIMEOUT] request timeout after 30000ms", err.Error())
		assert.True(t, err.Retryable)
	})

	t.Run("message with status", func(t *testing.T) {
		err := &APIError{Code: CodeNotFound, Message: "missing", StatusCode: 404}
		assert.Equal(t, "[NOT_FOUND] missing (status 404)", err.Error())
	})

	t.Run("AsAPIError unwraps", func(t *testing.T) {
		inner := NewAPIError(CodeNetworkError, "connection reset", true)
		wrapped := fmt.Errorf("stream: %w", inner)

		got, ok := AsAPIError(wrapped)
		assert.True(t, ok)
		assert.Same(t, inner, got)

		_, ok = AsAPIError(errors.New("plain"))
		assert.False(t, ok)
	})
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "BaseURL", Value: "", Err: ErrInvalidConfig}
	assert.Contains(t, err.Error(), "BaseURL")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
