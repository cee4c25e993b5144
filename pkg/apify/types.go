package apify

import (
	"time"

	"github.com/socialpulse/harvester-go/pkg/credentials"
)

// RunStatus represents the state of one remote actor run.
type RunStatus string

// Run status constants. Transitions are monotonic and one-directional:
// SUBMITTED advances to RUNNING on the first poll that observes progress,
// RUNNING self-loops until one of the four terminal states is reached, and
// no state is ever revisited.
const (
	// StatusSubmitted indicates the run was accepted but not yet observed running
	StatusSubmitted RunStatus = "SUBMITTED"
	// StatusRunning indicates the run is executing remotely
	StatusRunning RunStatus = "RUNNING"
	// StatusSucceeded indicates the run finished and its dataset is readable
	StatusSucceeded RunStatus = "SUCCEEDED"
	// StatusFailed indicates the run finished with an error
	StatusFailed RunStatus = "FAILED"
	// StatusAborted indicates the run was stopped remotely
	StatusAborted RunStatus = "ABORTED"
	// StatusTimedOut indicates the run hit the remote executor's own timeout
	StatusTimedOut RunStatus = "TIMED_OUT"
)

// Terminal reports whether the status is one of the four final states.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusAborted, StatusTimedOut:
		return true
	}
	return false
}

// parseRemoteStatus maps the remote API's wire statuses onto the local
// state machine. Transitional wire states collapse into the state they are
// heading to; unknown values are treated as still running.
func parseRemoteStatus(s string) RunStatus {
	switch s {
	case "READY":
		return StatusSubmitted
	case "RUNNING":
		return StatusRunning
	case "SUCCEEDED":
		return StatusSucceeded
	case "FAILED":
		return StatusFailed
	case "ABORTING", "ABORTED":
		return StatusAborted
	case "TIMING-OUT", "TIMED-OUT":
		return StatusTimedOut
	}
	return StatusRunning
}

// statusRank orders statuses so Poll can refuse regressions.
func statusRank(s RunStatus) int {
	switch s {
	case StatusSubmitted:
		return 0
	case StatusRunning:
		return 1
	}
	return 2
}

// JobRun tracks one remote actor run for the duration of a single task
// attempt. It is owned exclusively by the client that created it and is
// never shared across tasks.
type JobRun struct {
	// ID is the remote run identifier
	ID string `json:"id"`
	// DatasetID is the handle of the run's default dataset
	DatasetID string `json:"dataset_id"`
	// Status is the run's last observed state
	Status RunStatus `json:"status"`
	// StartedAt is when the run was submitted
	StartedAt time.Time `json:"started_at"`

	// cred is the credential the run was submitted with. Polling and
	// fetching must present the same token that started the run.
	cred *credentials.Credential
}

// runEnvelope is the remote API's response wrapper for run objects.
type runEnvelope struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}
