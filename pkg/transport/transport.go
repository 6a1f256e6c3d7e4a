package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"

	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/middleware"
)

// Default retry and timeout settings.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 30 * time.Second
)

// maxErrorBodySize bounds how much of an error response body is read.
const maxErrorBodySize = 64 * 1024

// RetryCondition decides whether a failed attempt may be retried.
type RetryCondition func(err *core.APIError) bool

// RetryIfRetryable is the default retry condition.
func RetryIfRetryable(err *core.APIError) bool {
	return err != nil && err.Retryable
}

// Config holds the transport configuration.
type Config struct {
	// BaseURL is prepended to relative endpoints.
	BaseURL string

	// Timeout bounds a single attempt until response headers arrive.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Zero
	// means DefaultMaxRetries unless NoRetries is set.
	MaxRetries int

	// NoRetries disables retries regardless of MaxRetries.
	NoRetries bool

	// RetryDelay is the base delay; retry n waits RetryDelay*n.
	RetryDelay time.Duration

	// RetryCondition overrides the default retry decision.
	RetryCondition RetryCondition

	// HTTPClient is used to send requests. When nil a client with
	// HTTP/2 enabled is created.
	HTTPClient *http.Client

	// Chain carries request interceptors and response observers.
	Chain *middleware.Chain

	// Logger receives retry and stream diagnostics.
	Logger logrus.FieldLogger
}

// DefaultConfig returns a configuration with the default retry policy.
func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		MaxRetries:     DefaultMaxRetries,
		RetryDelay:     DefaultRetryDelay,
		RetryCondition: RetryIfRetryable,
	}
}

// Transport sends requests with retries, timeouts and middleware.
type Transport struct {
	baseURL        string
	timeout        time.Duration
	maxRetries     int
	retryDelay     time.Duration
	retryCondition RetryCondition
	client         *http.Client
	chain          *middleware.Chain
	logger         logrus.FieldLogger

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new transport.
func New(config Config) (*Transport, error) {
	if config.MaxRetries < 0 {
		return nil, &core.ConfigError{Field: "MaxRetries", Value: config.MaxRetries, Err: core.ErrInvalidConfig}
	}
	if config.Timeout < 0 {
		return nil, &core.ConfigError{Field: "Timeout", Value: config.Timeout, Err: core.ErrInvalidConfig}
	}
	if config.RetryDelay < 0 {
		return nil, &core.ConfigError{Field: "RetryDelay", Value: config.RetryDelay, Err: core.ErrInvalidConfig}
	}

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	switch {
	case config.NoRetries:
		config.MaxRetries = 0
	case config.MaxRetries == 0:
		config.MaxRetries = DefaultMaxRetries
	}
	if config.RetryCondition == nil {
		config.RetryCondition = RetryIfRetryable
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.Chain == nil {
		config.Chain = middleware.NewChain()
	}
	if config.HTTPClient == nil {
		config.HTTPClient = newHTTPClient(config.Logger)
	}

	return &Transport{
		baseURL:        strings.TrimRight(config.BaseURL, "/"),
		timeout:        config.Timeout,
		maxRetries:     config.MaxRetries,
		retryDelay:     config.RetryDelay,
		retryCondition: config.RetryCondition,
		client:         config.HTTPClient,
		chain:          config.Chain,
		logger:         config.Logger,
		sleep:          sleepContext,
	}, nil
}

func newHTTPClient(logger logrus.FieldLogger) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if err := http2.ConfigureTransport(tr); err != nil {
		logger.WithError(err).Warn("failed to enable HTTP/2, falling back to HTTP/1.1")
	}
	return &http.Client{Transport: tr}
}

// Chain returns the middleware chain of the transport.
func (t *Transport) Chain() *middleware.Chain {
	return t.chain
}

// CloseIdleConnections closes idle keep-alive connections.
func (t *Transport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

// BaseURL returns the configured base URL.
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// Do performs a request and returns the raw JSON body on success.
func (t *Transport) Do(ctx context.Context, endpoint string, opts ...CallOption) *core.Response[json.RawMessage] {
	cc, apiErr := t.newCallConfig(opts)
	if apiErr != nil {
		return core.Fail[json.RawMessage](apiErr)
	}

	var data json.RawMessage
	apiErr = t.execute(ctx, t.resolve(endpoint), cc, func(resp *http.Response, release context.CancelFunc) *core.APIError {
		defer release()
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &core.APIError{Code: core.CodeNetworkError, Message: err.Error(), Retryable: true}
		}
		body = bytes.TrimSpace(body)
		if len(body) > 0 && !json.Valid(body) {
			return &core.APIError{Code: core.CodeNetworkError, Message: "invalid JSON in response body", Retryable: true}
		}
		data = body
		return nil
	})
	if apiErr != nil {
		return core.Fail[json.RawMessage](apiErr)
	}

	return core.OK(data)
}

// successHandler consumes a 2xx response. It owns resp and must call release
// once the body is no longer needed, unless it hands both off to its caller.
type successHandler func(resp *http.Response, release context.CancelFunc) *core.APIError

// execute runs the retry loop around single attempts.
func (t *Transport) execute(ctx context.Context, url string, cc *callConfig, onSuccess successHandler) *core.APIError {
	var lastErr *core.APIError

	for attempt := 0; attempt <= cc.maxRetries; {
		resp, release, apiErr := t.attempt(ctx, url, cc)
		if apiErr == nil {
			apiErr = onSuccess(resp, release)
			if apiErr == nil {
				return nil
			}
		}
		lastErr = apiErr

		if ctx.Err() != nil {
			return cancelledError(ctx)
		}

		if attempt >= cc.maxRetries || !cc.retryCondition(apiErr) {
			return apiErr
		}

		attempt++
		delay := cc.retryDelay * time.Duration(attempt)
		t.logger.WithFields(logrus.Fields{
			"url":         url,
			"attempt":     attempt,
			"max_retries": cc.maxRetries,
			"code":        apiErr.Code,
			"delay":       delay,
		}).Warn("request failed, retrying")

		if err := t.sleep(ctx, delay); err != nil {
			return cancelledError(ctx)
		}
	}

	return &core.APIError{Code: core.CodeInternalError, Message: fmt.Sprintf("request failed after retries: %v", lastErr)}
}

// attempt performs a single try. On success the caller owns the response and
// must invoke the returned release function.
func (t *Transport) attempt(ctx context.Context, url string, cc *callConfig) (*http.Response, context.CancelFunc, *core.APIError) {
	outgoing := &middleware.Request{
		URL:    url,
		Method: cc.method,
		Header: cc.header.Clone(),
		Body:   cc.body,
	}
	if outgoing.Header.Get("Content-Type") == "" {
		outgoing.Header.Set("Content-Type", "application/json")
	}

	if err := t.chain.ApplyRequest(ctx, outgoing); err != nil {
		return nil, nil, &core.APIError{
			Code:    core.CodeInvalidRequest,
			Message: fmt.Sprintf("request interceptor failed: %v", err),
		}
	}

	var body io.Reader = http.NoBody
	if len(outgoing.Body) > 0 {
		body = bytes.NewReader(outgoing.Body)
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(attemptCtx, outgoing.Method, outgoing.URL, body)
	if err != nil {
		cancel()
		return nil, nil, &core.APIError{Code: core.CodeInvalidRequest, Message: err.Error()}
	}
	req.Header = outgoing.Header

	// The timeout covers the wait for response headers only.
	var timedOut atomic.Bool
	timer := time.AfterFunc(cc.timeout, func() {
		timedOut.Store(true)
		cancel()
	})

	resp, err := t.client.Do(req)
	timer.Stop()

	if err != nil {
		cancel()
		if timedOut.Load() {
			return nil, nil, timeoutError(cc.timeout)
		}
		return nil, nil, &core.APIError{Code: core.CodeNetworkError, Message: err.Error(), Retryable: true}
	}
	if timedOut.Load() {
		resp.Body.Close()
		cancel()
		return nil, nil, timeoutError(cc.timeout)
	}

	t.chain.NotifyResponse(ctx, resp, outgoing)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := errorFromResponse(resp)
		resp.Body.Close()
		cancel()
		return nil, nil, apiErr
	}

	return resp, cancel, nil
}

func (t *Transport) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return t.baseURL + endpoint
}

func timeoutError(timeout time.Duration) *core.APIError {
	return &core.APIError{
		Code:      core.CodeTimeout,
		Message:   fmt.Sprintf("Request timeout after %dms", timeout.Milliseconds()),
		Retryable: true,
	}
}

func cancelledError(ctx context.Context) *core.APIError {
	return &core.APIError{
		Code:    core.CodeNetworkError,
		Message: "request cancelled",
		Details: context.Cause(ctx).Error(),
	}
}

// errorBody is the error shape returned by the API, either at the top level
// or nested under "error".
type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func errorFromResponse(resp *http.Response) *core.APIError {
	apiErr := &core.APIError{
		Code:       core.CodeFromStatus(resp.StatusCode),
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode: resp.StatusCode,
		Retryable:  core.IsRetryableStatus(resp.StatusCode),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	body, ok := parseErrorBody(raw)
	if !ok {
		return apiErr
	}
	if body.Code != "" {
		apiErr.Code = core.ErrorCode(body.Code)
	}
	if body.Message != "" {
		apiErr.Message = body.Message
	}
	apiErr.Details = detailsString(body.Details)

	return apiErr
}

func parseErrorBody(raw []byte) (errorBody, bool) {
	var wrapped struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return errorBody{}, false
	}

	var body errorBody
	if len(wrapped.Error) > 0 && json.Unmarshal(wrapped.Error, &body) == nil {
		return body, true
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return errorBody{}, false
	}
	return body, true
}

func detailsString(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
