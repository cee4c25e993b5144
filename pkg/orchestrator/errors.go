package orchestrator

import (
	"fmt"
	"time"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

// TierTimeoutError records that a priority tier exhausted its batch budget
// before every task in it resolved. It never propagates to callers; it is
// written into the Error field of the substituted empty results.
type TierTimeoutError struct {
	// Tier is the batch that timed out
	Tier Priority
	// Timeout is the budget the batch was given
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TierTimeoutError) Error() string {
	return fmt.Sprintf("orchestrator: %s priority tier timed out after %s before every task resolved", e.Tier, e.Timeout)
}

// RetryBudgetExhaustedError records that a task burned through all of its
// attempts without a live result. It is an internal signal: the scheduler
// converts it into fallback output instead of returning it.
type RetryBudgetExhaustedError struct {
	// Platform is the network the task collected from
	Platform posts.Platform
	// Attempts is how many attempts ran, including the first
	Attempts int
	// Err is the failure of the final attempt
	Err error
}

// Error implements the error interface.
func (e *RetryBudgetExhaustedError) Error() string {
	return fmt.Sprintf("orchestrator: %s collection failed after %d attempts: %v", e.Platform, e.Attempts, e.Err)
}

// Unwrap returns the final attempt's failure.
func (e *RetryBudgetExhaustedError) Unwrap() error {
	return e.Err
}
