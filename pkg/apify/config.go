package apify

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Default configuration values
const (
	// DefaultBaseURL is the root of the Apify REST API
	DefaultBaseURL = "https://api.apify.com/v2"
	// DefaultRequestTimeout bounds each individual HTTP request
	DefaultRequestTimeout = 30 * time.Second
	// DefaultPollInterval is the fixed delay between status polls
	DefaultPollInterval = 10 * time.Second
	// DefaultPollRetryBackoff is the delay after a transient poll failure
	DefaultPollRetryBackoff = 5 * time.Second
	// DefaultMaxWait is the wall-clock ceiling for one run lifecycle
	DefaultMaxWait = 15 * time.Minute
	// DefaultRateLimitRequests is the number of submissions allowed per window
	DefaultRateLimitRequests = 30
	// DefaultRateLimitWindow is the submission rate limiting window
	DefaultRateLimitWindow = time.Minute
)

// Config holds the Apify client configuration.
// Environment variables:
//   - APIFY_BASE_URL: API root URL (default: https://api.apify.com/v2)
//   - APIFY_REQUEST_TIMEOUT: per-request timeout in seconds (default: 30)
//   - APIFY_POLL_INTERVAL: delay between status polls (default: 10s)
//   - APIFY_POLL_RETRY_BACKOFF: delay after a transient poll failure (default: 5s)
//   - APIFY_MAX_WAIT: wall-clock ceiling for one run lifecycle (default: 15m)
//   - APIFY_RATE_LIMIT_REQUESTS: submissions allowed per window (default: 30)
//   - APIFY_RATE_LIMIT_WINDOW: submission rate window (default: 1m)
type Config struct {
	// BaseURL is the root of the Apify REST API
	BaseURL string
	// RequestTimeout bounds each individual HTTP request
	RequestTimeout time.Duration
	// PollInterval is the fixed delay between status polls
	PollInterval time.Duration
	// PollRetryBackoff is the delay applied after a transient poll failure
	PollRetryBackoff time.Duration
	// MaxWait is the default wall-clock ceiling for one run lifecycle
	MaxWait time.Duration
	// RateLimitRequests is the number of submissions allowed per window
	RateLimitRequests int
	// RateLimitWindow is the submission rate limiting window
	RateLimitWindow time.Duration
	// Logger is the configured logrus logger instance
	Logger *logrus.Logger
}

// NewConfig creates a Config from environment variables, falling back to
// defaults for anything unset. A .env file is loaded if present, but its
// absence is not an error.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).Error("Failed to load .env file")
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
		logrus.Debug(".env file not found, continuing with environment variables")
	}

	config := &Config{
		BaseURL:           getEnvOrDefault("APIFY_BASE_URL", DefaultBaseURL),
		RequestTimeout:    time.Duration(getEnvIntOrDefault("APIFY_REQUEST_TIMEOUT", int(DefaultRequestTimeout/time.Second))) * time.Second,
		PollInterval:      getEnvDurationOrDefault("APIFY_POLL_INTERVAL", DefaultPollInterval),
		PollRetryBackoff:  getEnvDurationOrDefault("APIFY_POLL_RETRY_BACKOFF", DefaultPollRetryBackoff),
		MaxWait:           getEnvDurationOrDefault("APIFY_MAX_WAIT", DefaultMaxWait),
		RateLimitRequests: getEnvIntOrDefault("APIFY_RATE_LIMIT_REQUESTS", DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDurationOrDefault("APIFY_RATE_LIMIT_WINDOW", DefaultRateLimitWindow),
		Logger:            logrus.New(),
	}

	logrus.WithFields(logrus.Fields{
		"base_url":           config.BaseURL,
		"request_timeout":    config.RequestTimeout.String(),
		"poll_interval":      config.PollInterval.String(),
		"poll_retry_backoff": config.PollRetryBackoff.String(),
		"max_wait":           config.MaxWait.String(),
		"rate_limit":         fmt.Sprintf("%d/%s", config.RateLimitRequests, config.RateLimitWindow),
	}).Debug("Created Apify client config")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration:
//   - BaseURL must not be empty
//   - Logger must be initialized
//   - all durations must be positive
//   - RateLimitRequests must be positive
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("apify: base URL is required")
	}
	if c.Logger == nil {
		return fmt.Errorf("apify: logger is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("apify: request timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("apify: poll interval must be positive, got %v", c.PollInterval)
	}
	if c.PollRetryBackoff <= 0 {
		return fmt.Errorf("apify: poll retry backoff must be positive, got %v", c.PollRetryBackoff)
	}
	if c.MaxWait <= 0 {
		return fmt.Errorf("apify: max wait must be positive, got %v", c.MaxWait)
	}
	if c.RateLimitRequests < 1 {
		return fmt.Errorf("apify: rate limit requests must be positive, got %d", c.RateLimitRequests)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("apify: rate limit window must be positive, got %v", c.RateLimitWindow)
	}
	return nil
}

// getEnvOrDefault retrieves an environment variable value by key,
// returning the defaultValue if the variable is not set or empty.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault parses an integer environment variable, returning the
// defaultValue when the variable is unset or unparsable.
func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"key":     key,
			"value":   value,
			"default": defaultValue,
		}).Debug("Failed to parse integer environment variable, using default")
		return defaultValue
	}
	return n
}

// getEnvDurationOrDefault parses a duration environment variable such as
// "10s" or "5m", returning the defaultValue when unset or unparsable.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"key":     key,
			"value":   value,
			"default": defaultValue.String(),
		}).Debug("Failed to parse duration environment variable, using default")
		return defaultValue
	}
	return d
}
