// Package telemetry exposes the process-wide Prometheus metrics mirroring
// the scheduler's internal counters, plus lifecycle-level signals the
// counters do not cover.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	// TasksTotal counts resolved tasks by platform and outcome
	// (live, fallback, fallback_empty, error).
	TasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_tasks_total",
		Help: "Resolved collection tasks by platform and outcome",
	}, []string{"platform", "outcome"})

	// TaskRetries counts retry attempts by platform.
	TaskRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_task_retries_total",
		Help: "Task retry attempts by platform",
	}, []string{"platform"})

	// TierTimeouts counts whole-tier timeouts by priority tier.
	TierTimeouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_tier_timeouts_total",
		Help: "Priority tiers that hit their batch timeout",
	}, []string{"tier"})

	// PollErrors counts transient status-poll failures.
	PollErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_job_poll_errors_total",
		Help: "Transient job status poll failures",
	})

	// CredentialFailures counts failure reports against pool credentials.
	CredentialFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_credential_failures_total",
		Help: "Failure reports recorded against pool credentials",
	})

	// ScrapeDuration observes wall-clock seconds per resolved task.
	ScrapeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvest_scrape_duration_seconds",
		Help:    "Wall-clock seconds spent resolving one task",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"platform"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			TasksTotal,
			TaskRetries,
			TierTimeouts,
			PollErrors,
			CredentialFailures,
			ScrapeDuration,
		)
	})
	return promhttp.Handler()
}
