package apify

import (
	"fmt"
	"time"
)

// SubmissionError indicates the remote job API rejected or never received a
// run submission. Submissions are not retried at this level; the scheduler's
// task retry budget decides whether to attempt again.
type SubmissionError struct {
	// ActorID is the actor the submission targeted
	ActorID string
	// StatusCode is the HTTP status, zero when the request never completed
	StatusCode int
	// Message is additional context, typically the response body
	Message string
	// Err is the underlying transport error, if any
	Err error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("apify: submission to actor %q failed with status %d: %s", e.ActorID, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("apify: submission to actor %q failed: %s: %v", e.ActorID, e.Message, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// PollError indicates a transient failure while querying a run's status.
// The lifecycle loop absorbs these with a short backoff; they never
// terminate the loop on their own.
type PollError struct {
	// RunID is the run whose status query failed
	RunID string
	// Err is the underlying transport or decode error
	Err error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("apify: polling run %q failed: %v", e.RunID, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *PollError) Unwrap() error {
	return e.Err
}

// ClientTimeoutError indicates the lifecycle loop gave up because the run
// did not reach a terminal state within the wall-clock ceiling. The remote
// run may still be executing; it is not aborted.
type ClientTimeoutError struct {
	// RunID is the run the loop was driving
	RunID string
	// Ceiling is the configured wall-clock limit
	Ceiling time.Duration
	// Elapsed is how long the loop actually waited
	Elapsed time.Duration
}

func (e *ClientTimeoutError) Error() string {
	return fmt.Sprintf("apify: run %q did not finish within %s (waited %s)", e.RunID, e.Ceiling, e.Elapsed.Round(time.Millisecond))
}

// FetchError indicates dataset items could not be retrieved, either because
// the run is not in the SUCCEEDED state or because the dataset request
// itself failed.
type FetchError struct {
	// RunID is the run whose results were requested
	RunID string
	// Status is the run status at fetch time
	Status RunStatus
	// StatusCode is the HTTP status of the dataset request, if it was made
	StatusCode int
	// Message is additional context
	Message string
	// Err is the underlying transport or decode error, if any
	Err error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("apify: fetching results of run %q failed: %s: %v", e.RunID, e.Message, e.Err)
	}
	return fmt.Sprintf("apify: fetching results of run %q failed: %s", e.RunID, e.Message)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *FetchError) Unwrap() error {
	return e.Err
}
