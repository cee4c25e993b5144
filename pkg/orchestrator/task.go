package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/socialpulse/harvester-go/pkg/posts"
)

// Priority orders tasks into scheduling tiers. Lower values run first.
type Priority int

const (
	// PriorityHigh is the first tier, reserved for platforms with live
	// collection support.
	PriorityHigh Priority = 1
	// PriorityMedium is the second tier, used for platforms that can only
	// resolve through fallback output.
	PriorityMedium Priority = 2
	// PriorityLow is the last tier. Nothing assigns it today, but the
	// scheduler drains it so callers may introduce it without changes here.
	PriorityLow Priority = 3
)

// tiers is the fixed drain order of the scheduler.
var tiers = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// String returns the lowercase tier name used in logs and metric labels.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Task is one unit of collection work: a single platform queried once per
// orchestration call. Tasks are built internally and never reused across
// calls. RetryCount is written only by the scheduler.
type Task struct {
	// ID uniquely identifies the task for logs
	ID string
	// SessionID groups the task with its sibling platforms
	SessionID string
	// Platform is the network this task collects from
	Platform posts.Platform
	// Query is the search query forwarded to the platform actor
	Query string
	// MaxResults caps how many records one attempt may return
	MaxResults int
	// Priority selects the scheduling tier
	Priority Priority
	// Timeout bounds a single collection attempt end to end
	Timeout time.Duration
	// MaxRetries is how many times a failed attempt may be retried
	MaxRetries int
	// RetryCount is how many retries have been consumed so far
	RetryCount int
	// CreatedAt is when the task was built, used by cleanup
	CreatedAt time.Time
}

// newTask builds one validated task for a platform within a session.
func newTask(sessionID string, platform posts.Platform, query string, maxResults int, priority Priority, timeout time.Duration, maxRetries int) (*Task, error) {
	task := &Task{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Platform:   platform,
		Query:      query,
		MaxResults: maxResults,
		Priority:   priority,
		Timeout:    timeout,
		MaxRetries: maxRetries,
		CreatedAt:  time.Now(),
	}
	if err := task.validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Key is the bookkeeping map key. One session holds at most one task per
// platform, so the pair addresses it fully.
func (t *Task) Key() string {
	return t.SessionID + ":" + string(t.Platform)
}

// validate rejects tasks that could never produce a meaningful result.
func (t *Task) validate() error {
	if t.Query == "" {
		return fmt.Errorf("orchestrator: task for %s has an empty query", t.Platform)
	}
	if t.MaxResults <= 0 {
		return fmt.Errorf("orchestrator: task for %s must request at least one result, got %d", t.Platform, t.MaxResults)
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("orchestrator: task for %s has non-positive timeout %s", t.Platform, t.Timeout)
	}
	if t.MaxRetries < 0 {
		return fmt.Errorf("orchestrator: task for %s has negative retry budget %d", t.Platform, t.MaxRetries)
	}
	return nil
}

// newSessionID mints a session identifier when the caller supplied none.
func newSessionID() string {
	return uuid.New().String()
}
