package platforms

import (
	"io"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

var _ = Describe("Registry", func() {
	var (
		logger    *logrus.Logger
		instagram *InstagramConnector
		facebook  *FacebookConnector
		registry  *Registry
	)

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
		instagram = NewInstagramConnector(logger)
		facebook = NewFacebookConnector(logger)
		registry = NewRegistry(logger, instagram, facebook)
	})

	Describe("Lookup", func() {
		It("should return the registered connector for live platforms", func() {
			Expect(registry.Lookup(posts.PlatformInstagram)).To(BeIdenticalTo(instagram))
			Expect(registry.Lookup(posts.PlatformFacebook)).To(BeIdenticalTo(facebook))
		})

		It("should return a null connector for unregistered platforms", func() {
			connector := registry.Lookup(posts.Platform("myspace"))
			Expect(connector).NotTo(BeNil())
			Expect(connector.Live()).To(BeFalse())
			Expect(connector.Platform()).To(Equal(posts.Platform("myspace")))
		})

		It("should let a later connector replace an earlier one", func() {
			replacement := NewInstagramConnector(logger)
			registry = NewRegistry(logger, instagram, replacement)
			Expect(registry.Lookup(posts.PlatformInstagram)).To(BeIdenticalTo(replacement))
		})
	})

	Describe("LivePlatforms", func() {
		It("should list live platforms in sorted order", func() {
			Expect(registry.LivePlatforms()).To(Equal([]posts.Platform{
				posts.PlatformFacebook,
				posts.PlatformInstagram,
			}))
		})
	})
})

var _ = Describe("NullConnector", func() {
	var connector *NullConnector

	BeforeEach(func() {
		connector = NewNullConnector(posts.Platform("friendster"))
	})

	It("should report no live support", func() {
		Expect(connector.Live()).To(BeFalse())
		Expect(connector.ActorID()).To(BeEmpty())
		Expect(connector.Platform()).To(Equal(posts.Platform("friendster")))
	})

	It("should fail every operation with ErrNoLiveSupport", func() {
		_, err := connector.BuildInput("anything", 10, time.Minute)
		Expect(err).To(MatchError(ErrNoLiveSupport))

		_, err = connector.MapRecord(nil)
		Expect(err).To(MatchError(ErrNoLiveSupport))
	})
})
