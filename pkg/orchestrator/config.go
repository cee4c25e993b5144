package orchestrator

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultHighTierTimeout bounds the high-priority tier batch.
	DefaultHighTierTimeout = 600 * time.Second

	// DefaultStandardTierTimeout bounds the medium and low tier batches.
	DefaultStandardTierTimeout = 300 * time.Second

	// DefaultRetryBackoff is the fixed pause between attempts of one task.
	DefaultRetryBackoff = 2 * time.Second

	// DefaultTaskTimeout bounds a single collection attempt. Attempts are
	// additionally clamped to their tier's timeout at task build time.
	DefaultTaskTimeout = 10 * time.Minute

	// DefaultMaxRetries is the retry budget per task, so a task runs at
	// most 1+DefaultMaxRetries attempts.
	DefaultMaxRetries = 2

	// DefaultMaxResultsPerPlatform applies when a caller passes zero.
	DefaultMaxResultsPerPlatform = 15
)

// Config holds the scheduler settings. Values are read from the
// environment by NewConfig:
//
//	SCHEDULER_HIGH_TIER_TIMEOUT      high tier budget (duration, default 600s)
//	SCHEDULER_STANDARD_TIER_TIMEOUT  medium/low tier budget (duration, default 300s)
//	SCHEDULER_RETRY_BACKOFF          pause between attempts (duration, default 2s)
//	SCHEDULER_TASK_TIMEOUT           single attempt ceiling (duration, default 10m)
//	SCHEDULER_MAX_RETRIES            retries per task (int, default 2)
//	SCHEDULER_FALLBACK_ENABLED       substitute synthetic data (bool, default true)
type Config struct {
	// HighTierTimeout is the wall-clock budget for the high-priority batch
	HighTierTimeout time.Duration
	// StandardTierTimeout is the wall-clock budget for medium and low batches
	StandardTierTimeout time.Duration
	// RetryBackoff is the fixed pause between attempts of one task
	RetryBackoff time.Duration
	// TaskTimeout bounds one collection attempt end to end
	TaskTimeout time.Duration
	// MaxRetries is the per-task retry budget
	MaxRetries int
	// FallbackEnabled substitutes synthetic results when live collection
	// fails. When false, failed tasks resolve with empty error results.
	FallbackEnabled bool
	// Logger is the shared structured logger
	Logger *logrus.Logger
}

// NewConfig builds a scheduler Config from environment variables,
// falling back to defaults for anything unset.
func NewConfig(logger *logrus.Logger) *Config {
	if logger == nil {
		logger = logrus.New()
	}

	config := &Config{
		HighTierTimeout:     getEnvDurationOrDefault(logger, "SCHEDULER_HIGH_TIER_TIMEOUT", DefaultHighTierTimeout),
		StandardTierTimeout: getEnvDurationOrDefault(logger, "SCHEDULER_STANDARD_TIER_TIMEOUT", DefaultStandardTierTimeout),
		RetryBackoff:        getEnvDurationOrDefault(logger, "SCHEDULER_RETRY_BACKOFF", DefaultRetryBackoff),
		TaskTimeout:         getEnvDurationOrDefault(logger, "SCHEDULER_TASK_TIMEOUT", DefaultTaskTimeout),
		MaxRetries:          getEnvIntOrDefault(logger, "SCHEDULER_MAX_RETRIES", DefaultMaxRetries),
		FallbackEnabled:     getEnvBoolOrDefault(logger, "SCHEDULER_FALLBACK_ENABLED", true),
		Logger:              logger,
	}

	logger.WithFields(logrus.Fields{
		"high_tier_timeout":     config.HighTierTimeout.String(),
		"standard_tier_timeout": config.StandardTierTimeout.String(),
		"retry_backoff":         config.RetryBackoff.String(),
		"task_timeout":          config.TaskTimeout.String(),
		"max_retries":           config.MaxRetries,
		"fallback_enabled":      config.FallbackEnabled,
	}).Debug("Scheduler configuration loaded")

	return config
}

// Validate checks that every scheduler setting is usable.
func (c *Config) Validate() error {
	if c.HighTierTimeout <= 0 {
		return fmt.Errorf("orchestrator: high tier timeout must be positive, got %s", c.HighTierTimeout)
	}
	if c.StandardTierTimeout <= 0 {
		return fmt.Errorf("orchestrator: standard tier timeout must be positive, got %s", c.StandardTierTimeout)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("orchestrator: retry backoff must not be negative, got %s", c.RetryBackoff)
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("orchestrator: task timeout must be positive, got %s", c.TaskTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("orchestrator: max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.Logger == nil {
		return fmt.Errorf("orchestrator: logger is required")
	}
	return nil
}

// tierTimeout returns the batch budget for a tier.
func (c *Config) tierTimeout(tier Priority) time.Duration {
	if tier == PriorityHigh {
		return c.HighTierTimeout
	}
	return c.StandardTierTimeout
}

func getEnvIntOrDefault(logger *logrus.Logger, key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"key":     key,
			"value":   value,
			"default": defaultValue,
		}).Debug("Failed to parse int env var, using default")
		return defaultValue
	}
	return parsed
}

func getEnvDurationOrDefault(logger *logrus.Logger, key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"key":     key,
			"value":   value,
			"default": defaultValue.String(),
		}).Debug("Failed to parse duration env var, using default")
		return defaultValue
	}
	return parsed
}

func getEnvBoolOrDefault(logger *logrus.Logger, key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"key":     key,
			"value":   value,
			"default": defaultValue,
		}).Debug("Failed to parse bool env var, using default")
		return defaultValue
	}
	return parsed
}
