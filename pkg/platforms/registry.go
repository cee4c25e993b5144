package platforms

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

// Registry resolves platforms to their connectors. Platforms registered
// with a live connector get it; everything else resolves to a null
// connector, decided here once instead of at every call site.
type Registry struct {
	connectors map[posts.Platform]Connector
	logger     *logrus.Logger
}

// NewRegistry creates a registry over the given connectors. A later
// connector for the same platform replaces an earlier one.
func NewRegistry(logger *logrus.Logger, connectors ...Connector) *Registry {
	if logger == nil {
		logger = logrus.New()
	}

	r := &Registry{
		connectors: make(map[posts.Platform]Connector, len(connectors)),
		logger:     logger,
	}
	for _, c := range connectors {
		r.connectors[c.Platform()] = c
	}

	logger.WithField("live_platforms", r.LivePlatforms()).Info("Platform registry initialized")
	return r
}

// Lookup returns the connector for the platform, or a null connector when
// none is registered. It never returns nil.
func (r *Registry) Lookup(platform posts.Platform) Connector {
	if c, ok := r.connectors[platform]; ok {
		return c
	}

	r.logger.WithField("platform", platform).Debug("No live connector registered, using null connector")
	return NewNullConnector(platform)
}

// LivePlatforms lists the platforms with a live connector, sorted for
// stable logging and tests.
func (r *Registry) LivePlatforms() []posts.Platform {
	out := make([]posts.Platform, 0, len(r.connectors))
	for p, c := range r.connectors {
		if c.Live() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
