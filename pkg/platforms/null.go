package platforms

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

// ErrNoLiveSupport signals that a platform has no live connector. The
// scheduler treats it as an immediate, non-retryable miss and substitutes
// fallback output without burning the task's retry budget.
var ErrNoLiveSupport = errors.New("platform has no live collection support")

// NullConnector stands in for platforms without live collection. It is
// selected at registry construction, so downstream code handles every
// platform through the same interface.
type NullConnector struct {
	platform posts.Platform
}

// NewNullConnector creates a null connector for the given platform.
func NewNullConnector(platform posts.Platform) *NullConnector {
	return &NullConnector{platform: platform}
}

// Platform returns the platform this connector stands in for.
func (c *NullConnector) Platform() posts.Platform {
	return c.platform
}

// ActorID returns an empty actor identifier.
func (c *NullConnector) ActorID() string {
	return ""
}

// Live reports that no real remote collection happens here.
func (c *NullConnector) Live() bool {
	return false
}

// BuildInput always fails with ErrNoLiveSupport.
func (c *NullConnector) BuildInput(query string, maxResults int, timeout time.Duration) (any, error) {
	return nil, fmt.Errorf("platforms: %s: %w", c.platform, ErrNoLiveSupport)
}

// MapRecord always fails with ErrNoLiveSupport.
func (c *NullConnector) MapRecord(raw json.RawMessage) (*posts.NormalizedPost, error) {
	return nil, fmt.Errorf("platforms: %s: %w", c.platform, ErrNoLiveSupport)
}
