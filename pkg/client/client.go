package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dataada/go-sdk/internal/validation"
	"github.com/dataada/go-sdk/pkg/backend"
	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/middleware"
	"github.com/dataada/go-sdk/pkg/transport"
)

// DefaultUploadConcurrency bounds how many files are uploaded at once.
const DefaultUploadConcurrency = 3

// Client is the entry point to the Data Ada API.
type Client struct {
	transport *transport.Transport
	streamer  transport.ChatStreamer
	mock      *MockStreamer
	backend   backend.Backend

	useMock           bool
	mockConfig        MockConfig
	rules             validation.FileRules
	uploadConcurrency int
	logger            logrus.FieldLogger
	now               func() time.Time
}

// Config contains configuration options for the client.
type Config struct {
	// BaseURL is the base URL of the API, e.g. http://localhost:8080/api.
	// It may be empty in mock mode.
	BaseURL string

	// UseMock serves chat turns and project calls from the built-in simulator.
	UseMock bool

	// UseWebSocket streams chat turns over {base}/chat/ws instead of
	// POST {base}/chat/stream.
	UseWebSocket bool

	// Transport holds retry and timeout settings. BaseURL and Logger are
	// filled in by New; a Chain is copied before the client's own
	// middleware is added, so the caller's chain is left unchanged.
	Transport transport.Config

	// Backend provides auth, storage and file records. Optional; uploads and
	// profile lookups require it outside mock mode.
	Backend backend.Backend

	// Mock controls simulated timings.
	Mock MockConfig

	// FileRules overrides the upload validation rules.
	FileRules *validation.FileRules

	// UploadConcurrency bounds parallel uploads.
	UploadConcurrency int

	Logger logrus.FieldLogger
}

// DefaultConfig returns a configuration with default transport settings and
// mock timings.
func DefaultConfig() Config {
	return Config{
		Transport:         transport.DefaultConfig(),
		Mock:              DefaultMockConfig(),
		UploadConcurrency: DefaultUploadConcurrency,
	}
}

// New creates a new client with the specified configuration.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" && !config.UseMock {
		return nil, &core.ConfigError{
			Field: "BaseURL",
			Value: config.BaseURL,
			Err:   errors.New("base URL cannot be empty"),
		}
	}

	if config.BaseURL != "" {
		if _, err := url.ParseRequestURI(config.BaseURL); err != nil {
			return nil, &core.ConfigError{
				Field: "BaseURL",
				Value: config.BaseURL,
				Err:   fmt.Errorf("invalid base URL: %w", err),
			}
		}
	}

	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.UploadConcurrency <= 0 {
		config.UploadConcurrency = DefaultUploadConcurrency
	}
	rules := validation.DefaultFileRules()
	if config.FileRules != nil {
		rules = *config.FileRules
	}

	c := &Client{
		backend:           config.Backend,
		useMock:           config.UseMock,
		mockConfig:        config.Mock,
		rules:             rules,
		uploadConcurrency: config.UploadConcurrency,
		logger:            config.Logger,
		now:               time.Now,
	}

	chain := middleware.NewChain()
	if config.Transport.Chain != nil {
		chain = config.Transport.Chain.Clone()
	}
	if config.Backend != nil {
		chain.UseRequest(middleware.BearerAuth(c.accessToken, config.Logger))
		chain.UseResponse(middleware.RefreshOnUnauthorized(config.Backend.RefreshSession, config.Logger))
	}
	chain.UseResponse(middleware.LogResponses(config.Logger))

	tc := config.Transport
	tc.BaseURL = config.BaseURL
	tc.Chain = chain
	tc.Logger = config.Logger

	t, err := transport.New(tc)
	if err != nil {
		return nil, err
	}
	c.transport = t
	c.mock = NewMockStreamer(config.Mock)

	if config.UseWebSocket {
		c.streamer = transport.NewWebSocketStreamer(t)
	} else {
		c.streamer = t
	}

	return c, nil
}

// Transport returns the underlying transport.
func (c *Client) Transport() *transport.Transport {
	return c.transport
}

// UseMock reports whether the client serves requests from the simulator.
func (c *Client) UseMock() bool {
	return c.useMock
}

// StreamChat opens one chat turn, either against the API or the simulator.
func (c *Client) StreamChat(ctx context.Context, req *core.ChatRequest) *transport.EventStream {
	if c.useMock {
		return c.mock.StreamChat(ctx, req)
	}
	return c.streamer.StreamChat(ctx, req)
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	session, err := c.backend.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", nil
	}
	return session.AccessToken, nil
}

// GetUserProfile returns the profile of the signed-in user.
func (c *Client) GetUserProfile(ctx context.Context) *core.Response[core.UserProfile] {
	if c.backend == nil {
		return core.Fail[core.UserProfile](core.NewAPIError(core.CodeInternalError, core.ErrBackendMissing.Error(), false))
	}

	user, err := c.backend.GetUser(ctx)
	if err != nil {
		return core.Fail[core.UserProfile](core.NewAPIError(core.CodeInternalError, err.Error(), false))
	}
	if user == nil {
		return core.Fail[core.UserProfile](core.NewAPIError(core.CodeUnauthorized, "User not authenticated", false))
	}

	return core.OK(core.UserProfile{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
