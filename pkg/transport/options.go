package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dataada/go-sdk/pkg/core"
)

// CallOption configures a single request.
type CallOption func(*callConfig)

type callConfig struct {
	method         string
	body           []byte
	header         http.Header
	maxRetries     int
	retryDelay     time.Duration
	timeout        time.Duration
	retryCondition RetryCondition
	err            error
}

// newCallConfig applies per-call options on top of the transport defaults.
func (t *Transport) newCallConfig(opts []CallOption) (*callConfig, *core.APIError) {
	cc := &callConfig{
		method:         http.MethodGet,
		header:         make(http.Header),
		maxRetries:     t.maxRetries,
		retryDelay:     t.retryDelay,
		timeout:        t.timeout,
		retryCondition: t.retryCondition,
	}
	for _, opt := range opts {
		opt(cc)
	}

	if cc.err != nil {
		return nil, &core.APIError{Code: core.CodeInvalidRequest, Message: cc.err.Error()}
	}
	if cc.maxRetries < 0 {
		cc.maxRetries = 0
	}
	if cc.retryCondition == nil {
		cc.retryCondition = RetryIfRetryable
	}
	return cc, nil
}

// WithMethod sets the HTTP method. The default is GET.
func WithMethod(method string) CallOption {
	return func(c *callConfig) {
		c.method = method
	}
}

// WithBody sets a raw request body.
func WithBody(body []byte) CallOption {
	return func(c *callConfig) {
		c.body = body
	}
}

// WithJSON marshals v as the request body.
func WithJSON(v any) CallOption {
	return func(c *callConfig) {
		body, err := json.Marshal(v)
		if err != nil {
			c.err = fmt.Errorf("failed to encode request body: %w", err)
			return
		}
		c.body = body
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) CallOption {
	return func(c *callConfig) {
		c.header.Set(key, value)
	}
}

// WithMaxRetries overrides the number of retries for this call.
func WithMaxRetries(n int) CallOption {
	return func(c *callConfig) {
		c.maxRetries = n
	}
}

// WithRetryDelay overrides the base retry delay for this call.
func WithRetryDelay(d time.Duration) CallOption {
	return func(c *callConfig) {
		c.retryDelay = d
	}
}

// WithTimeout overrides the per-attempt timeout for this call.
func WithTimeout(d time.Duration) CallOption {
	return func(c *callConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryCondition overrides the retry decision for this call.
func WithRetryCondition(cond RetryCondition) CallOption {
	return func(c *callConfig) {
		c.retryCondition = cond
	}
}
