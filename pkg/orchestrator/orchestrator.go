// Package orchestrator schedules social platform collection across priority
// tiers. Tasks in the same tier run concurrently under one batch budget,
// tiers drain strictly in order, and every requested platform resolves to
// exactly one result: live data when the remote actor cooperates, synthetic
// fallback output when it does not.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/socialpulse/harvester-go/pkg/analysis"
	"github.com/socialpulse/harvester-go/pkg/fallback"
	"github.com/socialpulse/harvester-go/pkg/platforms"
	"github.com/socialpulse/harvester-go/pkg/posts"
	"github.com/socialpulse/harvester-go/pkg/telemetry"
)

// LifecycleClient drives one remote scraping job from submission through
// polling to its dataset items. *apify.Client satisfies it.
type LifecycleClient interface {
	RunAndWait(ctx context.Context, actorID string, input any, maxWait time.Duration) ([]json.RawMessage, error)
}

// Orchestrator coordinates collection tasks across priority tiers and keeps
// per-session bookkeeping. Instances are isolated; two orchestrators share
// nothing but the process-wide Prometheus metrics.
type Orchestrator struct {
	config     *Config
	registry   *platforms.Registry
	client     LifecycleClient
	generator  *fallback.Generator
	aggregator *analysis.Aggregator
	logger     *logrus.Logger

	mu        sync.Mutex
	active    map[string]*Task
	completed map[string]*Task
	failed    map[string]*Task
	stats     counters
}

// New creates an Orchestrator from its collaborators. The config is
// validated up front so scheduling never starts from a broken state.
func New(config *Config, registry *platforms.Registry, client LifecycleClient, generator *fallback.Generator, aggregator *analysis.Aggregator) (*Orchestrator, error) {
	if config == nil {
		return nil, fmt.Errorf("orchestrator: config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("orchestrator: platform registry is required")
	}
	if client == nil {
		return nil, fmt.Errorf("orchestrator: lifecycle client is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("orchestrator: fallback generator is required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("orchestrator: aggregator is required")
	}

	config.Logger.WithFields(logrus.Fields{
		"client": fmt.Sprintf("%T", client),
	}).Debug("Creating new Orchestrator instance")

	return &Orchestrator{
		config:     config,
		registry:   registry,
		client:     client,
		generator:  generator,
		aggregator: aggregator,
		logger:     config.Logger,
		active:     make(map[string]*Task),
		completed:  make(map[string]*Task),
		failed:     make(map[string]*Task),
	}, nil
}

// ExecuteComprehensiveScraping collects posts for one query across the
// requested platforms and compiles them into a single report. Platforms
// with live connectors are scheduled in the high tier, the rest in the
// medium tier. A zero maxResultsPerPlatform selects the default.
//
// Live-path failures never surface as errors; they degrade into fallback
// results inside the report. The returned error covers only unusable
// input: an empty query, an empty platform list, or a duplicate-free
// platform set that produces no valid task.
func (o *Orchestrator) ExecuteComprehensiveScraping(ctx context.Context, query string, requested []posts.Platform, maxResultsPerPlatform int, sessionID string) (*posts.Report, error) {
	if sessionID == "" {
		sessionID = newSessionID()
	}
	if maxResultsPerPlatform <= 0 {
		maxResultsPerPlatform = DefaultMaxResultsPerPlatform
	}

	log := o.logger.WithFields(logrus.Fields{
		"method":      "ExecuteComprehensiveScraping",
		"query":       query,
		"session_id":  sessionID,
		"platforms":   len(requested),
		"max_results": maxResultsPerPlatform,
	})

	tasks, err := o.buildTasks(query, requested, maxResultsPerPlatform, sessionID)
	if err != nil {
		return nil, err
	}

	log.Info("Starting comprehensive scraping")
	started := time.Now()

	results := o.executeTiers(ctx, tasks)
	o.recordCallStats(results)

	report := o.compileReport(query, sessionID, results)
	log.WithFields(logrus.Fields{
		"total_posts":          report.TotalPosts,
		"successful_platforms": len(report.SuccessfulPlatforms),
		"data_source":          report.DataSource,
		"elapsed":              time.Since(started).String(),
	}).Info("Comprehensive scraping finished")
	return report, nil
}

// buildTasks constructs one validated task per distinct requested platform.
// Platforms with a live connector go to the high tier, the rest to medium.
func (o *Orchestrator) buildTasks(query string, requested []posts.Platform, maxResults int, sessionID string) ([]*Task, error) {
	if query == "" {
		return nil, fmt.Errorf("orchestrator: query is required")
	}
	if len(requested) == 0 {
		return nil, fmt.Errorf("orchestrator: at least one platform is required")
	}

	tasks := make([]*Task, 0, len(requested))
	seen := make(map[posts.Platform]bool, len(requested))
	for _, platform := range requested {
		if seen[platform] {
			o.logger.WithFields(logrus.Fields{
				"platform":   platform,
				"session_id": sessionID,
			}).Warn("Duplicate platform requested, keeping first occurrence")
			continue
		}
		seen[platform] = true

		priority := PriorityMedium
		if o.registry.Lookup(platform).Live() {
			priority = PriorityHigh
		}

		// An attempt may never outlive the tier batch it runs in.
		timeout := o.config.TaskTimeout
		if tier := o.config.tierTimeout(priority); timeout > tier {
			timeout = tier
		}

		task, err := newTask(sessionID, platform, query, maxResults, priority, timeout, o.config.MaxRetries)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// executeTiers drains the scheduling tiers strictly in priority order. A
// tier only starts once the previous tier has fully resolved.
func (o *Orchestrator) executeTiers(ctx context.Context, tasks []*Task) map[posts.Platform]posts.PlatformResult {
	results := make(map[posts.Platform]posts.PlatformResult, len(tasks))
	for _, tier := range tiers {
		batch := make([]*Task, 0, len(tasks))
		for _, task := range tasks {
			if task.Priority == tier {
				batch = append(batch, task)
			}
		}
		if len(batch) == 0 {
			continue
		}
		for platform, result := range o.executeTier(ctx, tier, batch) {
			results[platform] = result
		}
	}
	return results
}

// executeTier runs one tier's tasks concurrently under a shared timeout.
// Tasks that resolve in time keep their results; when the budget runs out,
// every unresolved task is substituted with an empty fallback result.
func (o *Orchestrator) executeTier(ctx context.Context, tier Priority, batch []*Task) map[posts.Platform]posts.PlatformResult {
	timeout := o.config.tierTimeout(tier)
	log := o.logger.WithFields(logrus.Fields{
		"method":  "executeTier",
		"tier":    tier.String(),
		"tasks":   len(batch),
		"timeout": timeout.String(),
	})
	log.Info("Executing priority tier")

	tierCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		platform posts.Platform
		result   *posts.PlatformResult
	}
	// Buffered so late finishers never block after the tier moves on.
	outcomes := make(chan outcome, len(batch))

	for _, task := range batch {
		go func(task *Task) {
			outcomes <- outcome{platform: task.Platform, result: o.executeTask(tierCtx, task)}
		}(task)
	}

	results := make(map[posts.Platform]posts.PlatformResult, len(batch))
	remaining := len(batch)
	timedOut := false
	for remaining > 0 && !timedOut {
		select {
		case out := <-outcomes:
			remaining--
			if out.result != nil {
				results[out.platform] = *out.result
			}
		case <-tierCtx.Done():
			timedOut = true
		}
	}

	if !timedOut {
		return results
	}

	// Outcomes that were already queued when the deadline fired still
	// count as resolved.
drain:
	for remaining > 0 {
		select {
		case out := <-outcomes:
			remaining--
			if out.result != nil {
				results[out.platform] = *out.result
			}
		default:
			break drain
		}
	}

	unresolved := len(batch) - len(results)
	if unresolved == 0 {
		return results
	}

	tierErr := &TierTimeoutError{Tier: tier, Timeout: timeout}
	telemetry.TierTimeouts.WithLabelValues(tier.String()).Inc()
	log.WithFields(logrus.Fields{
		"unresolved": unresolved,
	}).Error("Priority tier timed out, substituting empty fallback results")

	for _, task := range batch {
		if _, ok := results[task.Platform]; ok {
			continue
		}
		result := o.generator.GenerateEmpty(task.Platform, task.Query)
		result.Error = tierErr.Error()
		o.markFailed(task)
		telemetry.TasksTotal.WithLabelValues(string(task.Platform), string(result.DataSource)).Inc()
		results[task.Platform] = *result
	}
	return results
}

// executeTask resolves one task: a bounded attempt loop against the live
// platform, then degradation. Returns nil when the tier context ends first,
// leaving the tier to record the outcome.
func (o *Orchestrator) executeTask(ctx context.Context, task *Task) *posts.PlatformResult {
	log := o.logger.WithFields(logrus.Fields{
		"method":     "executeTask",
		"task_id":    task.ID,
		"session_id": task.SessionID,
		"platform":   task.Platform,
		"tier":       task.Priority.String(),
	})

	o.markActive(task)
	defer o.clearActive(task)

	connector := o.registry.Lookup(task.Platform)
	started := time.Now()

	var lastErr error
	for {
		if ctx.Err() != nil {
			log.Debug("Tier context ended before task resolved")
			return nil
		}

		records, err := o.attemptLive(ctx, task, connector)
		if err == nil {
			elapsed := time.Since(started)
			result := &posts.PlatformResult{
				Platform:       task.Platform,
				Success:        true,
				Records:        o.aggregator.Normalize(task.Platform, records, connector.MapRecord),
				DataSource:     posts.DataSourceLive,
				ResponseTimeMS: elapsed.Milliseconds(),
			}
			o.markCompleted(task)
			telemetry.TasksTotal.WithLabelValues(string(task.Platform), string(posts.DataSourceLive)).Inc()
			telemetry.ScrapeDuration.WithLabelValues(string(task.Platform)).Observe(elapsed.Seconds())
			log.WithFields(logrus.Fields{
				"records":     len(result.Records),
				"elapsed_ms":  result.ResponseTimeMS,
				"retry_count": task.RetryCount,
			}).Info("Live collection succeeded")
			return result
		}
		lastErr = err

		if errors.Is(err, platforms.ErrNoLiveSupport) {
			log.Debug("Platform has no live support, resolving through fallback")
			break
		}
		if ctx.Err() != nil {
			log.WithError(err).Debug("Tier context ended during attempt")
			return nil
		}
		if task.RetryCount >= task.MaxRetries {
			log.WithError(err).WithFields(logrus.Fields{
				"attempts": task.RetryCount + 1,
			}).Warn("Retry budget exhausted")
			break
		}

		task.RetryCount++
		telemetry.TaskRetries.WithLabelValues(string(task.Platform)).Inc()
		log.WithError(err).WithFields(logrus.Fields{
			"retry":       task.RetryCount,
			"max_retries": task.MaxRetries,
			"backoff":     o.config.RetryBackoff.String(),
		}).Info("Retrying after backoff")

		select {
		case <-ctx.Done():
			log.Debug("Tier context ended during retry backoff")
			return nil
		case <-time.After(o.config.RetryBackoff):
		}
	}

	return o.resolveDegraded(task, lastErr, started, log)
}

// attemptLive runs one end-to-end collection attempt against the
// platform's remote actor.
func (o *Orchestrator) attemptLive(ctx context.Context, task *Task, connector platforms.Connector) ([]json.RawMessage, error) {
	input, err := connector.BuildInput(task.Query, task.MaxResults, task.Timeout)
	if err != nil {
		return nil, err
	}
	return o.client.RunAndWait(ctx, connector.ActorID(), input, task.Timeout)
}

// resolveDegraded turns a task that produced no live data into its final
// result: deterministic fallback records, or an empty error result when
// fallback substitution is disabled.
func (o *Orchestrator) resolveDegraded(task *Task, cause error, started time.Time, log *logrus.Entry) *posts.PlatformResult {
	elapsed := time.Since(started)

	reason := cause
	if !errors.Is(cause, platforms.ErrNoLiveSupport) {
		reason = &RetryBudgetExhaustedError{Platform: task.Platform, Attempts: task.RetryCount + 1, Err: cause}
	}

	o.markFailed(task)

	var result *posts.PlatformResult
	if o.config.FallbackEnabled {
		result = o.generator.Generate(task.Platform, task.Query, task.MaxResults)
		log.WithFields(logrus.Fields{
			"records": len(result.Records),
		}).Warn("Substituted deterministic fallback data")
	} else {
		result = &posts.PlatformResult{
			Platform:   task.Platform,
			Success:    false,
			Records:    []posts.NormalizedPost{},
			DataSource: posts.DataSourceError,
		}
		log.WithError(reason).Warn("Fallback disabled, resolving with error result")
	}
	result.Error = reason.Error()
	result.ResponseTimeMS = elapsed.Milliseconds()

	telemetry.TasksTotal.WithLabelValues(string(task.Platform), string(result.DataSource)).Inc()
	telemetry.ScrapeDuration.WithLabelValues(string(task.Platform)).Observe(elapsed.Seconds())
	return result
}

// compileReport folds one call's per-platform results into the final
// aggregate returned to the caller. The orchestrator keeps no copy.
func (o *Orchestrator) compileReport(query, sessionID string, results map[posts.Platform]posts.PlatformResult) *posts.Report {
	totalPosts := 0
	successful := make([]posts.Platform, 0, len(results))
	failed := make([]posts.Platform, 0, len(results))
	for platform, result := range results {
		totalPosts += len(result.Records)
		if result.Success {
			successful = append(successful, platform)
		} else {
			failed = append(failed, platform)
		}
	}
	sort.Slice(successful, func(i, j int) bool { return successful[i] < successful[j] })
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })

	dataSource := posts.DataSourceFallback
	if len(successful) > 0 {
		dataSource = posts.DataSourceLive
	}

	return &posts.Report{
		Success:             len(successful) > 0,
		Query:               query,
		SessionID:           sessionID,
		Platforms:           results,
		TotalPosts:          totalPosts,
		PlatformsAnalyzed:   len(results),
		SuccessfulPlatforms: successful,
		FailedPlatforms:     failed,
		Sentiment:           o.aggregator.SummarizeSentiment(results),
		DataSource:          dataSource,
		GeneratedAt:         time.Now(),
		Stats:               o.GetSessionStats(sessionID),
	}
}
