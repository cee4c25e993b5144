package orchestrator

import (
	"io"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("Config", func() {
	var logger *logrus.Logger

	envKeys := []string{
		"SCHEDULER_HIGH_TIER_TIMEOUT",
		"SCHEDULER_STANDARD_TIER_TIMEOUT",
		"SCHEDULER_RETRY_BACKOFF",
		"SCHEDULER_TASK_TIMEOUT",
		"SCHEDULER_MAX_RETRIES",
		"SCHEDULER_FALLBACK_ENABLED",
	}

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	})

	AfterEach(func() {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
	})

	Describe("NewConfig", func() {
		It("should fall back to the documented defaults", func() {
			config := NewConfig(logger)
			Expect(config.HighTierTimeout).To(Equal(DefaultHighTierTimeout))
			Expect(config.StandardTierTimeout).To(Equal(DefaultStandardTierTimeout))
			Expect(config.RetryBackoff).To(Equal(DefaultRetryBackoff))
			Expect(config.TaskTimeout).To(Equal(DefaultTaskTimeout))
			Expect(config.MaxRetries).To(Equal(DefaultMaxRetries))
			Expect(config.FallbackEnabled).To(BeTrue())
			Expect(config.Validate()).To(Succeed())
		})

		It("should honor environment overrides", func() {
			os.Setenv("SCHEDULER_HIGH_TIER_TIMEOUT", "90s")
			os.Setenv("SCHEDULER_RETRY_BACKOFF", "500ms")
			os.Setenv("SCHEDULER_MAX_RETRIES", "5")
			os.Setenv("SCHEDULER_FALLBACK_ENABLED", "false")

			config := NewConfig(logger)
			Expect(config.HighTierTimeout).To(Equal(90 * time.Second))
			Expect(config.RetryBackoff).To(Equal(500 * time.Millisecond))
			Expect(config.MaxRetries).To(Equal(5))
			Expect(config.FallbackEnabled).To(BeFalse())
		})

		It("should ignore unparsable values and keep the defaults", func() {
			os.Setenv("SCHEDULER_TASK_TIMEOUT", "soon")
			os.Setenv("SCHEDULER_MAX_RETRIES", "several")
			os.Setenv("SCHEDULER_FALLBACK_ENABLED", "sim")

			config := NewConfig(logger)
			Expect(config.TaskTimeout).To(Equal(DefaultTaskTimeout))
			Expect(config.MaxRetries).To(Equal(DefaultMaxRetries))
			Expect(config.FallbackEnabled).To(BeTrue())
		})
	})

	Describe("Validate", func() {
		var config *Config

		BeforeEach(func() {
			config = NewConfig(logger)
		})

		It("should reject a non-positive tier timeout", func() {
			config.HighTierTimeout = 0
			Expect(config.Validate()).NotTo(Succeed())

			config = NewConfig(logger)
			config.StandardTierTimeout = -time.Second
			Expect(config.Validate()).NotTo(Succeed())
		})

		It("should allow a zero retry backoff but not a negative one", func() {
			config.RetryBackoff = 0
			Expect(config.Validate()).To(Succeed())

			config.RetryBackoff = -time.Second
			Expect(config.Validate()).NotTo(Succeed())
		})

		It("should reject a non-positive task timeout", func() {
			config.TaskTimeout = 0
			Expect(config.Validate()).NotTo(Succeed())
		})

		It("should reject a negative retry budget", func() {
			config.MaxRetries = -1
			Expect(config.Validate()).NotTo(Succeed())
		})

		It("should reject a missing logger", func() {
			config.Logger = nil
			Expect(config.Validate()).NotTo(Succeed())
		})
	})

	Describe("tierTimeout", func() {
		It("should give the high tier its own budget and share the standard one", func() {
			config := NewConfig(logger)
			config.HighTierTimeout = time.Minute
			config.StandardTierTimeout = 30 * time.Second

			Expect(config.tierTimeout(PriorityHigh)).To(Equal(time.Minute))
			Expect(config.tierTimeout(PriorityMedium)).To(Equal(30 * time.Second))
			Expect(config.tierTimeout(PriorityLow)).To(Equal(30 * time.Second))
		})
	})
})
