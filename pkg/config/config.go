// Package config loads Data Ada settings from defaults, an optional YAML
// file and DATAADA_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/dataada/go-sdk/pkg/client"
	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/transport"
)

// DefaultAPIURL is the API base URL used when none is configured.
const DefaultAPIURL = "http://localhost:8080/api"

// Config is the complete Data Ada configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Chat    ChatConfig    `yaml:"chat"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the client transport.
type APIConfig struct {
	BaseURL      string `yaml:"base_url"`
	UseMock      bool   `yaml:"use_mock"`
	UseWebSocket bool   `yaml:"use_websocket"`
	Timeout      string `yaml:"timeout"`
	MaxRetries   int    `yaml:"max_retries"`
	RetryDelay   string `yaml:"retry_delay"`
}

// StorageConfig configures the local backend.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	// FilesDir is where chat transcripts are exported.
	FilesDir string `yaml:"files_dir"`
}

// ChatConfig holds per-session defaults.
type ChatConfig struct {
	ProjectID string `yaml:"project_id"`
	UserID    string `yaml:"user_id"`
	Mode      string `yaml:"mode"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    DefaultAPIURL,
			Timeout:    transport.DefaultTimeout.String(),
			MaxRetries: transport.DefaultMaxRetries,
			RetryDelay: transport.DefaultRetryDelay.String(),
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(".dataada", "dataada.db"),
			FilesDir:     filepath.Join(".dataada", "exports"),
		},
		Chat: ChatConfig{
			ProjectID: "default",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. An empty path or a missing file yields the
// defaults; environment variables override both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies DATAADA_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("DATAADA_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DATAADA_USE_MOCK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("DATAADA_USE_MOCK", v, err)
		}
		c.API.UseMock = b
	}
	if v := os.Getenv("DATAADA_USE_WEBSOCKET"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("DATAADA_USE_WEBSOCKET", v, err)
		}
		c.API.UseWebSocket = b
	}
	if v := os.Getenv("DATAADA_TIMEOUT"); v != "" {
		c.API.Timeout = v
	}
	if v := os.Getenv("DATAADA_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("DATAADA_MAX_RETRIES", v, err)
		}
		c.API.MaxRetries = n
	}
	if v := os.Getenv("DATAADA_RETRY_DELAY"); v != "" {
		c.API.RetryDelay = v
	}
	if v := os.Getenv("DATAADA_DB_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("DATAADA_FILES_DIR"); v != "" {
		c.Storage.FilesDir = v
	}
	if v := os.Getenv("DATAADA_PROJECT_ID"); v != "" {
		c.Chat.ProjectID = v
	}
	if v := os.Getenv("DATAADA_USER_ID"); v != "" {
		c.Chat.UserID = v
	}
	if v := os.Getenv("DATAADA_MODE"); v != "" {
		c.Chat.Mode = v
	}
	if v := os.Getenv("DATAADA_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DATAADA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func envError(name, value string, err error) error {
	return &core.ConfigError{Field: name, Value: value, Err: err}
}

// GetTimeout returns the per-attempt request timeout.
func (c *Config) GetTimeout() (time.Duration, error) {
	return parseDuration("api.timeout", c.API.Timeout)
}

// GetRetryDelay returns the base retry delay.
func (c *Config) GetRetryDelay() (time.Duration, error) {
	return parseDuration("api.retry_delay", c.API.RetryDelay)
}

// parseDuration accepts Go durations ("1.5s") and bare integers, which are
// read as milliseconds.
func parseDuration(field, value string) (time.Duration, error) {
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &core.ConfigError{Field: field, Value: value, Err: err}
	}
	return d, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := c.GetTimeout(); err != nil {
		return err
	}
	if _, err := c.GetRetryDelay(); err != nil {
		return err
	}
	if c.API.MaxRetries < 0 {
		return &core.ConfigError{Field: "api.max_retries", Value: c.API.MaxRetries, Err: core.ErrInvalidConfig}
	}
	if !c.API.UseMock && c.API.BaseURL == "" {
		return &core.ConfigError{Field: "api.base_url", Value: c.API.BaseURL, Err: core.ErrInvalidConfig}
	}
	if err := core.TaskMode(c.Chat.Mode).Validate(); err != nil {
		return &core.ConfigError{Field: "chat.mode", Value: c.Chat.Mode, Err: err}
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return &core.ConfigError{Field: "logging.level", Value: c.Logging.Level, Err: err}
	}
	return nil
}

// Logger builds a logger from the logging settings.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if strings.EqualFold(c.Logging.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// ClientConfig converts the API settings into a client configuration.
func (c *Config) ClientConfig(logger logrus.FieldLogger) (client.Config, error) {
	timeout, err := c.GetTimeout()
	if err != nil {
		return client.Config{}, err
	}
	delay, err := c.GetRetryDelay()
	if err != nil {
		return client.Config{}, err
	}

	cc := client.DefaultConfig()
	cc.BaseURL = c.API.BaseURL
	cc.UseMock = c.API.UseMock
	cc.UseWebSocket = c.API.UseWebSocket
	cc.Transport.Timeout = timeout
	cc.Transport.MaxRetries = c.API.MaxRetries
	cc.Transport.NoRetries = c.API.MaxRetries == 0
	cc.Transport.RetryDelay = delay
	cc.Logger = logger
	return cc, nil
}
