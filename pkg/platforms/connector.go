// Package platforms connects the scheduler to platform-specific collection
// logic. Each connector knows which remote actor collects its platform, how
// to build that actor's job-input payload and how to map the actor's raw
// records into the shared post schema. Platforms without live support get a
// null connector selected at construction time, so callers never branch on
// missing capabilities.
package platforms

import (
	"encoding/json"
	"time"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

// Connector describes one platform's live-collection capability.
type Connector interface {
	// Platform returns the platform this connector serves.
	Platform() posts.Platform
	// ActorID returns the remote actor identifier runs are submitted to.
	ActorID() string
	// Live reports whether the connector performs real remote collection.
	Live() bool
	// BuildInput builds the actor's job-input payload for one collection.
	// The timeout is forwarded to the remote actor so it gives up on its
	// own side no later than the local lifecycle does.
	BuildInput(query string, maxResults int, timeout time.Duration) (any, error)
	// MapRecord converts one raw record into the generic post shape. It is
	// a pure data transform; sentiment and virality are filled in later by
	// the aggregator.
	MapRecord(raw json.RawMessage) (*posts.NormalizedPost, error)
}

// proxyConfiguration selects the proxy pool remote actors run behind.
type proxyConfiguration struct {
	UseApifyProxy    bool     `json:"useApifyProxy"`
	ApifyProxyGroups []string `json:"apifyProxyGroups"`
}

// residentialProxy is required by both platform actors; datacenter exits
// get blocked almost immediately.
var residentialProxy = proxyConfiguration{
	UseApifyProxy:    true,
	ApifyProxyGroups: []string{"RESIDENTIAL"},
}
