package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/middleware"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// delayRecorder replaces the transport's sleep and records requested delays.
type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *delayRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func newTestTransport(t *testing.T, srv *httptest.Server, mutate func(*Config)) (*Transport, *delayRecorder) {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	config := DefaultConfig()
	config.BaseURL = srv.URL
	config.HTTPClient = srv.Client()
	config.Logger = logger
	config.RetryDelay = 10 * time.Millisecond
	if mutate != nil {
		mutate(&config)
	}

	tr, err := New(config)
	require.NoError(t, err)

	rec := &delayRecorder{}
	tr.sleep = rec.sleep
	return tr, rec
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		tr, err := New(Config{BaseURL: "http://localhost:8080/api/"})
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:8080/api", tr.BaseURL())
		assert.Equal(t, DefaultTimeout, tr.timeout)
		assert.Equal(t, DefaultRetryDelay, tr.retryDelay)
		assert.Equal(t, DefaultMaxRetries, tr.maxRetries)
		assert.NotNil(t, tr.Chain())
		assert.NotNil(t, tr.client)
	})

	t.Run("no retries", func(t *testing.T) {
		tr, err := New(Config{BaseURL: "http://localhost:8080/api", MaxRetries: 5, NoRetries: true})
		require.NoError(t, err)
		assert.Equal(t, 0, tr.maxRetries)
	})

	t.Run("default config", func(t *testing.T) {
		config := DefaultConfig()
		assert.Equal(t, 3, config.MaxRetries)
		assert.Equal(t, time.Second, config.RetryDelay)
		assert.Equal(t, 30*time.Second, config.Timeout)
	})

	tests := []struct {
		name   string
		config Config
		field  string
	}{
		{"negative retries", Config{MaxRetries: -1}, "MaxRetries"},
		{"negative timeout", Config{Timeout: -time.Second}, "Timeout"},
		{"negative delay", Config{RetryDelay: -time.Second}, "RetryDelay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			require.Error(t, err)

			var configErr *core.ConfigError
			require.True(t, errors.As(err, &configErr))
			assert.Equal(t, tt.field, configErr.Field)
			assert.ErrorIs(t, err, core.ErrInvalidConfig)
		})
	}
}

func TestDo_RetriesWithLinearBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tr, rec := newTestTransport(t, srv, nil)

	resp := tr.Do(context.Background(), "/ping")
	require.True(t, resp.Success, "unexpected error: %v", resp.Error)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Data))
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, rec.recorded())
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":"INTERNAL_ERROR","message":"database unavailable","details":"pool exhausted"}}`)
	}))
	defer srv.Close()

	tr, rec := newTestTransport(t, srv, func(c *Config) { c.MaxRetries = 2 })

	resp := tr.Do(context.Background(), "/projects")
	require.False(t, resp.Success)
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, rec.recorded(), 2)

	assert.Equal(t, core.CodeInternalError, resp.Error.Code)
	assert.Equal(t, "database unavailable", resp.Error.Message)
	assert.Equal(t, "pool exhausted", resp.Error.Details)
	assert.Equal(t, http.StatusInternalServerError, resp.Error.StatusCode)
	assert.True(t, resp.Error.Retryable)
}

func TestDo_NonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr, rec := newTestTransport(t, srv, nil)

	resp := tr.Do(context.Background(), "/projects/missing")
	require.False(t, resp.Success)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, rec.recorded())
	assert.Equal(t, core.CodeNotFound, resp.Error.Code)
	assert.Equal(t, "HTTP 404: Not Found", resp.Error.Message)
	assert.False(t, resp.Error.Retryable)
}

func TestDo_ErrorBodyShapes(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    core.ErrorCode
		wantMessage string
		wantDetails string
	}{
		{
			name:        "nested error object",
			status:      http.StatusBadRequest,
			body:        `{"error":{"code":"MISSING_FIELD","message":"name is required"}}`,
			wantCode:    core.CodeMissingField,
			wantMessage: "name is required",
		},
		{
			name:        "top level fields",
			status:      http.StatusConflict,
			body:        `{"code":"ALREADY_EXISTS","message":"project exists","details":{"id":"p1"}}`,
			wantCode:    core.CodeAlreadyExists,
			wantMessage: "project exists",
			wantDetails: `{"id":"p1"}`,
		},
		{
			name:        "non JSON body",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantCode:    core.CodeInternalError,
			wantMessage: "HTTP 502: Bad Gateway",
		},
		{
			name:        "message only",
			status:      http.StatusUnauthorized,
			body:        `{"message":"session expired"}`,
			wantCode:    core.CodeUnauthorized,
			wantMessage: "session expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			tr, _ := newTestTransport(t, srv, func(c *Config) { c.NoRetries = true })

			resp := tr.Do(context.Background(), "/x")
			require.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
			assert.Equal(t, tt.status, resp.Error.StatusCode)
		})
	}
}

func TestDo_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	tr, _ := newTestTransport(t, srv, func(c *Config) {
		c.NoRetries = true
		c.Timeout = 20 * time.Millisecond
	})

	resp := tr.Do(context.Background(), "/slow")
	require.False(t, resp.Success)
	assert.Equal(t, core.CodeTimeout, resp.Error.Code)
	assert.Equal(t, "Request timeout after 20ms", resp.Error.Message)
	assert.True(t, resp.Error.Retryable)
}

func TestDo_TimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			<-r.Context().Done()
			return
		}
		fmt.Fprint(w, `"pong"`)
	}))
	defer srv.Close()

	tr, rec := newTestTransport(t, srv, func(c *Config) {
		c.MaxRetries = 1
		c.Timeout = 50 * time.Millisecond
	})

	resp := Request[string](context.Background(), tr, "/ping")
	require.True(t, resp.Success, "unexpected error: %v", resp.Error)
	assert.Equal(t, "pong", resp.Data)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, rec.recorded())
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	client := srv.Client()
	srv.Close()

	logger, _ := logtest.NewNullLogger()
	tr, err := New(Config{BaseURL: url, HTTPClient: client, Logger: logger, MaxRetries: 1, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	rec := &delayRecorder{}
	tr.sleep = rec.sleep

	resp := tr.Do(context.Background(), "/ping")
	require.False(t, resp.Success)
	assert.Equal(t, core.CodeNetworkError, resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
	assert.Len(t, rec.recorded(), 1)
}

func TestDo_RetryConditionOverride(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr, _ := newTestTransport(t, srv, nil)

	resp := tr.Do(context.Background(), "/ping", WithRetryCondition(func(err *core.APIError) bool {
		return err.Code == core.CodeTimeout
	}))
	require.False(t, resp.Success)
	assert.Equal(t, core.CodeServiceUnavailable, resp.Error.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_CancelStopsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr, _ := newTestTransport(t, srv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	tr.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	resp := tr.Do(ctx, "/ping")
	require.False(t, resp.Success)
	assert.Equal(t, "request cancelled", resp.Error.Message)
	assert.False(t, resp.Error.Retryable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_RequestShape(t *testing.T) {
	type seen struct {
		method      string
		path        string
		contentType string
		body        string
	}
	var (
		mu  sync.Mutex
		got seen
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw, _ := json.Marshal(body)
		mu.Lock()
		got = seen{r.Method, r.URL.Path, r.Header.Get("Content-Type"), string(raw)}
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	tr, _ := newTestTransport(t, srv, func(c *Config) { c.BaseURL = "http://unused.invalid/api" })

	resp := tr.Do(context.Background(), srv.URL+"/projects", WithMethod(http.MethodPost), WithJSON(map[string]string{"name": "demo"}))
	require.True(t, resp.Success, "unexpected error: %v", resp.Error)
	assert.Empty(t, resp.Data)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, seen{http.MethodPost, "/projects", "application/json", `{"name":"demo"}`}, got)
}

func TestDo_InterceptorsRunInOrder(t *testing.T) {
	headers := make(chan []string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Values("X-Trace")
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	tr, _ := newTestTransport(t, srv, nil)
	tr.Chain().UseRequest(func(ctx context.Context, req *middleware.Request) error {
		req.Header.Add("X-Trace", "first")
		return nil
	})
	tr.Chain().UseRequest(func(ctx context.Context, req *middleware.Request) error {
		req.Header.Add("X-Trace", "second")
		return nil
	})

	resp := tr.Do(context.Background(), "/x")
	require.True(t, resp.Success)
	assert.Equal(t, []string{"first", "second"}, <-headers)
}

func TestDo_InterceptorErrorAborts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	tr, rec := newTestTransport(t, srv, nil)
	tr.Chain().UseRequest(func(ctx context.Context, req *middleware.Request) error {
		return errors.New("signing key missing")
	})

	resp := tr.Do(context.Background(), "/x")
	require.False(t, resp.Success)
	assert.Equal(t, core.CodeInvalidRequest, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "signing key missing")
	assert.False(t, resp.Error.Retryable)
	assert.Equal(t, int32(0), calls.Load())
	assert.Empty(t, rec.recorded())
}

func TestDo_UnauthorizedRefreshesWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr, _ := newTestTransport(t, srv, nil)

	var refreshed atomic.Int32
	logger, _ := logtest.NewNullLogger()
	tr.Chain().UseResponse(middleware.RefreshOnUnauthorized(func(ctx context.Context) error {
		refreshed.Add(1)
		return nil
	}, logger))

	resp := tr.Do(context.Background(), "/me")
	require.False(t, resp.Success)
	assert.Equal(t, core.CodeUnauthorized, resp.Error.Code)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), refreshed.Load())
}

func TestDo_LogsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	logger, hook := logtest.NewNullLogger()
	tr, _ := newTestTransport(t, srv, func(c *Config) {
		c.Logger = logger
		c.MaxRetries = 1
	})

	resp := tr.Do(context.Background(), "/x")
	require.False(t, resp.Success)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, 1, entry.Data["attempt"])
	assert.Equal(t, core.CodeInternalError, entry.Data["code"])
}

func TestRequest_DecodesTypedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"p1","name":"Grades","user_id":"u1","created_at":"2024-01-01","updated_at":"2024-01-02"}]`)
	}))
	defer srv.Close()

	tr, _ := newTestTransport(t, srv, nil)

	resp := Request[[]core.Project](context.Background(), tr, "/projects")
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Grades", resp.Data[0].Name)
}

func TestRequest_DecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":42}`)
	}))
	defer srv.Close()

	tr, _ := newTestTransport(t, srv, nil)

	resp := Request[[]core.Project](context.Background(), tr, "/projects")
	require.False(t, resp.Success)
	assert.Equal(t, core.CodeInternalError, resp.Error.Code)
}
