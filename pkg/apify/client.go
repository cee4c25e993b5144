// Package apify drives the remote job lifecycle against the Apify actor-run
// API: submit an actor run, poll its status until a terminal state and fetch
// the run's dataset items. One client serves one platform connector.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/socialpulse/harvester-go/pkg/credentials"
	"github.com/socialpulse/harvester-go/pkg/telemetry"
)

// maxErrorBody caps how much of an error response body is read for context.
const maxErrorBody = 2048

// Client wraps the remote job API behind the submit/poll/fetch contract.
// Credentials come from the pool one per submission; the run keeps using the
// credential that started it, and every success or failure is reported back
// to the pool before the call returns.
type Client struct {
	config  *Config
	pool    *credentials.Pool
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewClient creates a Client with the given config and credential pool.
func NewClient(config *Config, pool *credentials.Pool) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("apify: config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, fmt.Errorf("apify: credential pool is required")
	}

	return &Client{
		config: config,
		pool:   pool,
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(config.RateLimitWindow/time.Duration(config.RateLimitRequests)), 1),
		logger:  config.Logger,
	}, nil
}

// Submit starts a new actor run. It takes the next credential from the pool,
// waits for the submission rate limiter and posts the run input. The
// returned JobRun is in the SUBMITTED state and owns the credential used.
func (c *Client) Submit(ctx context.Context, actorID string, input any) (*JobRun, error) {
	log := c.logger.WithFields(logrus.Fields{
		"method":   "Submit",
		"actor_id": actorID,
	})

	cred := c.pool.Next()
	if cred == nil {
		log.Error("No credentials available for submission")
		return nil, &SubmissionError{
			ActorID: actorID,
			Message: "credential pool is empty",
			Err:     credentials.ErrNoCredentials,
		}
	}
	log = log.WithField("credential_index", cred.Index)

	if err := c.limiter.Wait(ctx); err != nil {
		c.failCredential(cred.Index, err.Error())
		return nil, &SubmissionError{ActorID: actorID, Message: "rate limiter wait aborted", Err: err}
	}

	body, err := json.Marshal(input)
	if err != nil {
		c.failCredential(cred.Index, err.Error())
		log.WithError(err).Error("Failed to marshal run input")
		return nil, &SubmissionError{ActorID: actorID, Message: "failed to marshal run input", Err: err}
	}

	url := fmt.Sprintf("%s/acts/%s/runs", c.config.BaseURL, actorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.failCredential(cred.Index, err.Error())
		log.WithError(err).Error("Failed to create submission request")
		return nil, &SubmissionError{ActorID: actorID, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	log.WithField("url", url).Debug("Submitting actor run")

	resp, err := c.client.Do(req)
	if err != nil {
		c.failCredential(cred.Index, err.Error())
		log.WithError(err).Error("Run submission request failed")
		return nil, &SubmissionError{ActorID: actorID, Message: "submission request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := fmt.Sprintf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
		c.failCredential(cred.Index, msg)
		log.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"body":        string(respBody),
		}).Error("Run submission rejected")
		return nil, &SubmissionError{ActorID: actorID, StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var envelope runEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.failCredential(cred.Index, err.Error())
		log.WithError(err).Error("Failed to decode run envelope")
		return nil, &SubmissionError{ActorID: actorID, Message: "failed to decode run envelope", Err: err}
	}

	c.pool.ReportSuccess(cred.Index)

	run := &JobRun{
		ID:        envelope.Data.ID,
		DatasetID: envelope.Data.DefaultDatasetID,
		Status:    StatusSubmitted,
		StartedAt: time.Now(),
		cred:      cred,
	}

	log.WithFields(logrus.Fields{
		"run_id":     run.ID,
		"dataset_id": run.DatasetID,
	}).Info("Actor run submitted")

	return run, nil
}

// Poll queries the remote state of the run and advances its status. The
// run's status never regresses: a wire status ranking below the current one
// is discarded. Transport and decode failures return a PollError and leave
// the run unchanged.
func (c *Client) Poll(ctx context.Context, run *JobRun) (*JobRun, error) {
	log := c.logger.WithFields(logrus.Fields{
		"method": "Poll",
		"run_id": run.ID,
	})

	url := fmt.Sprintf("%s/actor-runs/%s", c.config.BaseURL, run.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.reportRunFailure(run, err.Error())
		return nil, &PollError{RunID: run.ID, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+run.cred.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		c.reportRunFailure(run, err.Error())
		log.WithError(err).Warn("Status poll request failed")
		return nil, &PollError{RunID: run.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code %d", resp.StatusCode)
		c.reportRunFailure(run, err.Error())
		log.WithField("status_code", resp.StatusCode).Warn("Status poll rejected")
		return nil, &PollError{RunID: run.ID, Err: err}
	}

	var envelope runEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.reportRunFailure(run, err.Error())
		log.WithError(err).Warn("Failed to decode status envelope")
		return nil, &PollError{RunID: run.ID, Err: err}
	}

	if envelope.Data.DefaultDatasetID != "" {
		run.DatasetID = envelope.Data.DefaultDatasetID
	}
	if next := parseRemoteStatus(envelope.Data.Status); statusRank(next) >= statusRank(run.Status) {
		run.Status = next
	}

	log.WithField("status", run.Status).Debug("Polled run status")
	return run, nil
}

// FetchResults retrieves the run's dataset items. It is valid only for runs
// in the SUCCEEDED state; any other status yields a FetchError without a
// request being made.
func (c *Client) FetchResults(ctx context.Context, run *JobRun) ([]json.RawMessage, error) {
	log := c.logger.WithFields(logrus.Fields{
		"method":     "FetchResults",
		"run_id":     run.ID,
		"dataset_id": run.DatasetID,
	})

	if run.Status != StatusSucceeded {
		msg := fmt.Sprintf("results unavailable: run status is %s", run.Status)
		c.reportRunFailure(run, msg)
		log.WithField("status", run.Status).Error("Refusing to fetch results of unfinished or failed run")
		return nil, &FetchError{RunID: run.ID, Status: run.Status, Message: msg}
	}
	if run.DatasetID == "" {
		msg := "run has no dataset handle"
		c.reportRunFailure(run, msg)
		return nil, &FetchError{RunID: run.ID, Status: run.Status, Message: msg}
	}

	url := fmt.Sprintf("%s/datasets/%s/items", c.config.BaseURL, run.DatasetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.reportRunFailure(run, err.Error())
		return nil, &FetchError{RunID: run.ID, Status: run.Status, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+run.cred.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		c.reportRunFailure(run, err.Error())
		log.WithError(err).Error("Dataset request failed")
		return nil, &FetchError{RunID: run.ID, Status: run.Status, Message: "dataset request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := fmt.Sprintf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
		c.reportRunFailure(run, msg)
		log.WithField("status_code", resp.StatusCode).Error("Dataset request rejected")
		return nil, &FetchError{RunID: run.ID, Status: run.Status, StatusCode: resp.StatusCode, Message: msg}
	}

	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		c.reportRunFailure(run, err.Error())
		log.WithError(err).Error("Failed to decode dataset items")
		return nil, &FetchError{RunID: run.ID, Status: run.Status, Message: "failed to decode dataset items", Err: err}
	}

	c.reportRunSuccess(run)
	log.WithField("item_count", len(items)).Info("Fetched dataset items")
	return items, nil
}

// RunAndWait drives one full run lifecycle: submit, poll to a terminal
// state, fetch results. Polling happens on the configured interval; a
// transient PollError is logged and retried after the poll retry backoff
// instead of terminating the loop. If the run does not reach a terminal
// state within maxWait the loop stops polling and returns a
// ClientTimeoutError. maxWait <= 0 selects the configured default ceiling.
func (c *Client) RunAndWait(ctx context.Context, actorID string, input any, maxWait time.Duration) ([]json.RawMessage, error) {
	log := c.logger.WithFields(logrus.Fields{
		"method":   "RunAndWait",
		"actor_id": actorID,
	})

	if maxWait <= 0 {
		maxWait = c.config.MaxWait
	}

	run, err := c.Submit(ctx, actorID, input)
	if err != nil {
		return nil, err
	}
	log = log.WithField("run_id", run.ID)
	deadline := run.StartedAt.Add(maxWait)

	wait := c.config.PollInterval
	for !run.Status.Terminal() {
		if time.Now().Add(wait).After(deadline) {
			elapsed := time.Since(run.StartedAt)
			c.reportRunFailure(run, fmt.Sprintf("lifecycle ceiling %s exceeded", maxWait))
			log.WithFields(logrus.Fields{
				"elapsed": elapsed.Round(time.Millisecond).String(),
				"ceiling": maxWait.String(),
			}).Error("Run did not reach a terminal state within the ceiling")
			return nil, &ClientTimeoutError{RunID: run.ID, Ceiling: maxWait, Elapsed: elapsed}
		}

		select {
		case <-ctx.Done():
			log.WithError(ctx.Err()).Warn("Run lifecycle canceled")
			return nil, ctx.Err()
		case <-time.After(wait):
		}

		if _, err := c.Poll(ctx, run); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			telemetry.PollErrors.Inc()
			log.WithError(err).Warn("Transient poll failure, backing off")
			wait = c.config.PollRetryBackoff
			continue
		}
		wait = c.config.PollInterval
	}

	log.WithField("status", run.Status).Info("Run reached terminal state")
	return c.FetchResults(ctx, run)
}

func (c *Client) reportRunSuccess(run *JobRun) {
	if run.cred != nil {
		c.pool.ReportSuccess(run.cred.Index)
	}
}

func (c *Client) reportRunFailure(run *JobRun, reason string) {
	if run.cred != nil {
		c.failCredential(run.cred.Index, reason)
	}
}

// failCredential records a failed use of a credential with both the pool
// and the process-wide failure counter.
func (c *Client) failCredential(index int, reason string) {
	telemetry.CredentialFailures.Inc()
	c.pool.ReportFailure(index, reason)
}
