// Package credentials manages a pool of remote job API tokens handed out in
// strict round-robin order. Health reports from callers are recorded as
// advisory telemetry only and never exclude a credential from rotation.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Environment variables for token discovery.
const (
	// EnvToken holds the primary API token
	EnvToken = "APIFY_API_TOKEN"
	// EnvTokenPrefix prefixes additional numbered tokens (APIFY_API_TOKEN_1...)
	EnvTokenPrefix = "APIFY_API_TOKEN_"
	// MaxEnvTokens bounds the numbered token scan
	MaxEnvTokens = 16
)

// ErrNoCredentials indicates the pool holds no usable credential.
var ErrNoCredentials = errors.New("no credentials available")

// Credential is one opaque API token. Its only identity is the pool index.
type Credential struct {
	// Index is the credential's position in the configured pool
	Index int
	// Token is the opaque secret presented to the remote API
	Token string
}

// Status describes one credential's advisory health for introspection.
// The token itself is never exposed.
type Status struct {
	// Index is the credential's position in the pool
	Index int `json:"index"`
	// Healthy is false after the most recent use failed
	Healthy bool `json:"healthy"`
	// Successes counts successful uses reported by callers
	Successes int64 `json:"successes"`
	// Failures counts failed uses reported by callers
	Failures int64 `json:"failures"`
	// LastError is the reason attached to the most recent failure report
	LastError string `json:"last_error,omitempty"`
	// LastUsed is when the credential was last handed out
	LastUsed time.Time `json:"last_used,omitempty"`
}

type entry struct {
	cred      Credential
	healthy   bool
	successes int64
	failures  int64
	lastError string
	lastUsed  time.Time
}

// Pool hands out credentials in strict round-robin order. The rotation
// cursor is the only shared mutable state and every access is serialized by
// the mutex; health reports never change the rotation order.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	cursor  int
	logger  *logrus.Logger
}

// NewPool creates a pool over the given tokens, preserving their order.
// Empty token strings are skipped. The pool may end up empty; Next then
// returns nil and callers decide how to degrade.
func NewPool(tokens []string, logger *logrus.Logger) *Pool {
	if logger == nil {
		logger = logrus.New()
	}

	p := &Pool{logger: logger}
	for _, t := range tokens {
		if t == "" {
			continue
		}
		p.entries = append(p.entries, &entry{
			cred:    Credential{Index: len(p.entries), Token: t},
			healthy: true,
		})
	}

	logger.WithField("pool_size", len(p.entries)).Info("Credential pool initialized")
	return p
}

// NewPoolFromEnv builds a pool from APIFY_API_TOKEN plus the numbered
// APIFY_API_TOKEN_1..n variables, stopping at the first gap in the sequence.
func NewPoolFromEnv(logger *logrus.Logger) (*Pool, error) {
	var tokens []string
	if t := os.Getenv(EnvToken); t != "" {
		tokens = append(tokens, t)
	}
	for i := 1; i <= MaxEnvTokens; i++ {
		t := os.Getenv(fmt.Sprintf("%s%d", EnvTokenPrefix, i))
		if t == "" {
			break
		}
		tokens = append(tokens, t)
	}

	if len(tokens) == 0 {
		return nil, fmt.Errorf("credentials: %s not set: %w", EnvToken, ErrNoCredentials)
	}
	return NewPool(tokens, logger), nil
}

// Next returns the next credential in rotation, or nil when the pool is
// empty. Concurrent callers may receive the same credential from different
// cursor positions; that is expected under load.
func (p *Pool) Next() *Credential {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		p.logger.Warn("Credential pool is empty")
		return nil
	}

	e := p.entries[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.entries)
	e.lastUsed = time.Now()

	p.logger.WithFields(logrus.Fields{
		"credential_index": e.cred.Index,
		"healthy":          e.healthy,
	}).Debug("Handing out credential")

	cred := e.cred
	return &cred
}

// ReportSuccess records a successful use of the credential at index and
// clears any previous failure state.
func (p *Pool) ReportSuccess(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.entryAt(index)
	if e == nil {
		return
	}
	e.successes++
	e.healthy = true
	e.lastError = ""
}

// ReportFailure records a failed use of the credential at index. The
// credential stays in rotation; the report is telemetry only.
func (p *Pool) ReportFailure(index int, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.entryAt(index)
	if e == nil {
		return
	}
	e.failures++
	e.healthy = false
	e.lastError = reason

	p.logger.WithFields(logrus.Fields{
		"credential_index": index,
		"reason":           reason,
	}).Warn("Credential failure reported")
}

func (p *Pool) entryAt(index int) *entry {
	if index < 0 || index >= len(p.entries) {
		p.logger.WithField("credential_index", index).Warn("Health report for unknown credential index")
		return nil
	}
	return p.entries[index]
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Snapshot returns the advisory health of every credential in pool order.
func (p *Pool) Snapshot() []Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Status, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, Status{
			Index:     e.cred.Index,
			Healthy:   e.healthy,
			Successes: e.successes,
			Failures:  e.failures,
			LastError: e.lastError,
			LastUsed:  e.lastUsed,
		})
	}
	return out
}
