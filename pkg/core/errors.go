package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrBackendMissing   = errors.New("backend not configured")
	ErrNotAuthenticated = errors.New("user not authenticated")
)

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field %s (value: %v): %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrorCode is a machine-readable API error code.
type ErrorCode string

const (
	// Transport errors
	CodeNetworkError     ErrorCode = "NETWORK_ERROR"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeConnectionFailed ErrorCode = "CONNECTION_FAILED"

	// Authentication errors
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// Validation errors
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	CodeMissingField    ErrorCode = "MISSING_FIELD"

	// Resource errors
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	CodeDeleted       ErrorCode = "DELETED"

	// Server errors
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// APIError is the terminal description of a failed request.
// It is built once by the layer that observed the failure and is not
// modified afterwards. Retryable is set by the producer and is not derived
// from Code.
type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	Retryable  bool      `json:"retryable"`
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewAPIError creates an API error with the given code and message.
func NewAPIError(code ErrorCode, message string, retryable bool) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
	}
}

// CodeFromStatus maps an HTTP status code to an error code.
func CodeFromStatus(status int) ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return CodeValidationError
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeAlreadyExists
	case http.StatusInternalServerError:
		return CodeInternalError
	case http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	default:
		return CodeInternalError
	}
}

// retryableStatuses lists the HTTP statuses that are treated as transient.
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether a failed request with the given status may be retried.
func IsRetryableStatus(status int) bool {
	return retryableStatuses[status]
}

// AsAPIError extracts an *APIError from err, if there is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
