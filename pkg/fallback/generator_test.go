package fallback

import (
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

var _ = Describe("Generator", func() {
	var generator *Generator

	BeforeEach(func() {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		generator = NewGenerator(logger)
	})

	Describe("Generate", func() {
		It("should produce exactly the requested number of records", func() {
			result := generator.Generate(posts.PlatformInstagram, "summer festival", 15)
			Expect(result.Records).To(HaveLen(15))
			Expect(result.Platform).To(Equal(posts.PlatformInstagram))
			Expect(result.Success).To(BeFalse())
			Expect(result.DataSource).To(Equal(posts.DataSourceFallback))
		})

		It("should be deterministic for the same platform and query", func() {
			first := generator.Generate(posts.PlatformFacebook, "street carnival", 10)
			second := generator.Generate(posts.PlatformFacebook, "street carnival", 10)
			Expect(second).To(Equal(first))
		})

		It("should vary output across platforms and queries", func() {
			instagram := generator.Generate(posts.PlatformInstagram, "summer", 3)
			facebook := generator.Generate(posts.PlatformFacebook, "summer", 3)
			otherQuery := generator.Generate(posts.PlatformInstagram, "winter", 3)

			Expect(instagram.Records[0].ID).NotTo(Equal(facebook.Records[0].ID))
			Expect(instagram.Records[0].ID).NotTo(Equal(otherQuery.Records[0].ID))
		})

		It("should keep engagement counters non-increasing by index", func() {
			result := generator.Generate(posts.PlatformInstagram, "summer festival", 12)
			for i := 1; i < len(result.Records); i++ {
				prev := result.Records[i-1].Engagement
				curr := result.Records[i].Engagement
				Expect(curr.Likes).To(BeNumerically("<=", prev.Likes))
				Expect(curr.Comments).To(BeNumerically("<=", prev.Comments))
				Expect(curr.Views).To(BeNumerically("<=", prev.Views))
			}
		})

		It("should cycle sentiments positive, negative, neutral by index", func() {
			result := generator.Generate(posts.PlatformInstagram, "summer", 6)
			Expect(result.Records[0].Sentiment).To(Equal(posts.SentimentPositive))
			Expect(result.Records[1].Sentiment).To(Equal(posts.SentimentNegative))
			Expect(result.Records[2].Sentiment).To(Equal(posts.SentimentNeutral))
			Expect(result.Records[3].Sentiment).To(Equal(posts.SentimentPositive))
		})

		It("should score every record within the bounded range", func() {
			result := generator.Generate(posts.PlatformFacebook, "street carnival", 10)
			for _, record := range result.Records {
				Expect(record.ViralityScore).To(BeNumerically(">=", 0))
				Expect(record.ViralityScore).To(BeNumerically("<=", 100))
			}
		})

		It("should order synthetic timestamps to match the index order", func() {
			result := generator.Generate(posts.PlatformInstagram, "summer", 5)
			for i := 1; i < len(result.Records); i++ {
				Expect(result.Records[i].CreatedAt.Before(result.Records[i-1].CreatedAt)).To(BeTrue())
			}
		})

		It("should shape unknown platforms with the default profile", func() {
			result := generator.Generate(posts.Platform("myspace"), "summer", 2)
			Expect(result.Records).To(HaveLen(2))
			Expect(result.Records[0].Platform).To(Equal(posts.Platform("myspace")))
			Expect(result.Records[0].Engagement.Likes).To(BeNumerically(">", 0))
		})

		It("should yield an empty record set for a non-positive count", func() {
			Expect(generator.Generate(posts.PlatformInstagram, "summer", 0).Records).To(BeEmpty())
			Expect(generator.Generate(posts.PlatformInstagram, "summer", -3).Records).To(BeEmpty())
		})
	})

	Describe("GenerateEmpty", func() {
		It("should produce an empty result marked fallback_empty", func() {
			result := generator.GenerateEmpty(posts.PlatformFacebook, "summer")
			Expect(result.Platform).To(Equal(posts.PlatformFacebook))
			Expect(result.Success).To(BeFalse())
			Expect(result.Records).To(BeEmpty())
			Expect(result.Records).NotTo(BeNil())
			Expect(result.DataSource).To(Equal(posts.DataSourceFallbackEmpty))
		})
	})
})
