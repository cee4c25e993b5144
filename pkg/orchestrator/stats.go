package orchestrator

import (
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/socialpulse/harvester-go/pkg/posts"
)

// counters are the process-wide totals. They only ever increase.
type counters struct {
	totalTasks      int64
	successfulTasks int64
	failedTasks     int64
	fallbackUsed    int64
}

func (o *Orchestrator) markActive(task *Task) { o.transition(task, o.active) }

func (o *Orchestrator) markCompleted(task *Task) { o.transition(task, o.completed) }

func (o *Orchestrator) markFailed(task *Task) { o.transition(task, o.failed) }

// transition moves a task into exactly one bookkeeping map. The three maps
// stay disjoint: a key lives in at most one of them at any time.
func (o *Orchestrator) transition(task *Task, dest map[string]*Task) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := task.Key()
	delete(o.active, key)
	delete(o.completed, key)
	delete(o.failed, key)
	dest[key] = task
}

// clearActive removes a task from the active map without recording an
// outcome. Used when a tier ends first and records the failure itself.
func (o *Orchestrator) clearActive(task *Task) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[task.Key()] == task {
		delete(o.active, task.Key())
	}
}

// recordCallStats folds one orchestration call's results into the
// process-wide counters.
func (o *Orchestrator) recordCallStats(results map[posts.Platform]posts.PlatformResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.totalTasks += int64(len(results))
	for _, result := range results {
		if result.Success {
			o.stats.successfulTasks++
		} else {
			o.stats.failedTasks++
		}
		if result.DataSource == posts.DataSourceFallback {
			o.stats.fallbackUsed++
		}
	}
}

// GetSessionStats counts one session's tasks by bookkeeping state.
func (o *Orchestrator) GetSessionStats(sessionID string) posts.SessionStats {
	prefix := sessionID + ":"

	o.mu.Lock()
	defer o.mu.Unlock()

	var stats posts.SessionStats
	for key := range o.active {
		if strings.HasPrefix(key, prefix) {
			stats.ActiveTasks++
		}
	}
	for key := range o.completed {
		if strings.HasPrefix(key, prefix) {
			stats.CompletedTasks++
		}
	}
	for key := range o.failed {
		if strings.HasPrefix(key, prefix) {
			stats.FailedTasks++
		}
	}
	stats.TotalTasks = stats.ActiveTasks + stats.CompletedTasks + stats.FailedTasks
	return stats
}

// GetGlobalStats snapshots the process-wide counters with derived rates.
func (o *Orchestrator) GetGlobalStats() posts.GlobalStats {
	o.mu.Lock()
	defer o.mu.Unlock()

	denominator := max(o.stats.totalTasks, 1)
	return posts.GlobalStats{
		TotalTasks:      o.stats.totalTasks,
		SuccessfulTasks: o.stats.successfulTasks,
		FailedTasks:     o.stats.failedTasks,
		FallbackUsed:    o.stats.fallbackUsed,
		SuccessRate:     roundRate(o.stats.successfulTasks, denominator),
		FallbackRate:    roundRate(o.stats.fallbackUsed, denominator),
	}
}

// CleanupOldTasks purges completed and failed bookkeeping entries created
// before now-maxAge. Active tasks are never purged, and nothing expires
// without an explicit call. Returns the number of entries removed.
func (o *Orchestrator) CleanupOldTasks(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for key, task := range o.completed {
		if task.CreatedAt.Before(cutoff) {
			delete(o.completed, key)
			removed++
		}
	}
	for key, task := range o.failed {
		if task.CreatedAt.Before(cutoff) {
			delete(o.failed, key)
			removed++
		}
	}

	o.logger.WithFields(logrus.Fields{
		"method":  "CleanupOldTasks",
		"max_age": maxAge.String(),
		"removed": removed,
	}).Info("Cleaned up old task bookkeeping")
	return removed
}

// roundRate converts part/whole into a percentage rounded to two decimals.
func roundRate(part, whole int64) float64 {
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}
