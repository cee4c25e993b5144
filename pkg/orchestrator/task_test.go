package orchestrator

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

var _ = Describe("Priority", func() {
	It("should name the tiers for logs and metric labels", func() {
		Expect(PriorityHigh.String()).To(Equal("high"))
		Expect(PriorityMedium.String()).To(Equal("medium"))
		Expect(PriorityLow.String()).To(Equal("low"))
		Expect(Priority(9).String()).To(Equal("priority(9)"))
	})

	It("should drain high before medium before low", func() {
		Expect(tiers).To(Equal([]Priority{PriorityHigh, PriorityMedium, PriorityLow}))
	})
})

var _ = Describe("Task", func() {
	Describe("newTask", func() {
		It("should mint an id and stamp the creation time", func() {
			task, err := newTask("sess-1", posts.PlatformInstagram, "summer", 10, PriorityHigh, time.Minute, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(task.ID).NotTo(BeEmpty())
			Expect(task.CreatedAt).To(BeTemporally("~", time.Now(), time.Second))
			Expect(task.RetryCount).To(BeZero())
		})

		It("should reject an empty query", func() {
			_, err := newTask("sess-1", posts.PlatformInstagram, "", 10, PriorityHigh, time.Minute, 2)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a non-positive result cap", func() {
			_, err := newTask("sess-1", posts.PlatformInstagram, "summer", 0, PriorityHigh, time.Minute, 2)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a non-positive timeout", func() {
			_, err := newTask("sess-1", posts.PlatformInstagram, "summer", 10, PriorityHigh, 0, 2)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a negative retry budget", func() {
			_, err := newTask("sess-1", posts.PlatformInstagram, "summer", 10, PriorityHigh, time.Minute, -1)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Key", func() {
		It("should join session and platform", func() {
			task := &Task{SessionID: "sess-1", Platform: posts.PlatformFacebook}
			Expect(task.Key()).To(Equal("sess-1:facebook"))
		})
	})
})

var _ = Describe("scheduler errors", func() {
	It("should describe a tier timeout", func() {
		err := &TierTimeoutError{Tier: PriorityHigh, Timeout: 600 * time.Second}
		Expect(err.Error()).To(ContainSubstring("high priority tier timed out"))
		Expect(err.Error()).To(ContainSubstring("10m0s"))
	})

	It("should wrap the last attempt error in a retry budget failure", func() {
		cause := errors.New("connection reset")
		err := &RetryBudgetExhaustedError{Platform: posts.PlatformInstagram, Attempts: 3, Err: cause}
		Expect(err.Error()).To(ContainSubstring("instagram collection failed after 3 attempts"))
		Expect(errors.Is(err, cause)).To(BeTrue())
	})
})
