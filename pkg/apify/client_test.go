package apify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/socialpulse/harvester-go/pkg/credentials"
)

const testActorID = "apify~instagram-hashtag-scraper"

// fakeRunAPI scripts the remote side of one actor run: each status poll
// consumes the next entry of statuses and the last entry repeats forever.
// pollFailures initial polls are rejected with a 500 before any status is
// served.
type fakeRunAPI struct {
	mu           sync.Mutex
	statuses     []string
	pollFailures int
	items        string

	submits     int
	polls       int
	authHeaders []string
}

func (f *fakeRunAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/runs"):
			f.submits++
			f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"data":{"id":"run-%d","status":"READY","defaultDatasetId":"ds-1"}}`, f.submits)

		case strings.HasPrefix(r.URL.Path, "/actor-runs/"):
			f.polls++
			if f.pollFailures > 0 {
				f.pollFailures--
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			status := f.statuses[0]
			if len(f.statuses) > 1 {
				f.statuses = f.statuses[1:]
			}
			fmt.Fprintf(w, `{"data":{"id":"run-1","status":%q,"defaultDatasetId":"ds-1"}}`, status)

		case strings.HasPrefix(r.URL.Path, "/datasets/"):
			fmt.Fprint(w, f.items)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakeRunAPI) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

var _ = Describe("Client", func() {
	var (
		api    *fakeRunAPI
		server *httptest.Server
		pool   *credentials.Pool
		client *Client
		logger *logrus.Logger
		ctx    context.Context
		cancel context.CancelFunc
	)

	newTestClient := func(tokens ...string) *Client {
		pool = credentials.NewPool(tokens, logger)
		config := &Config{
			BaseURL:           server.URL,
			RequestTimeout:    5 * time.Second,
			PollInterval:      5 * time.Millisecond,
			PollRetryBackoff:  5 * time.Millisecond,
			MaxWait:           5 * time.Second,
			RateLimitRequests: 1000,
			RateLimitWindow:   time.Second,
			Logger:            logger,
		}
		c, err := NewClient(config, pool)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetOutput(io.Discard)

		api = &fakeRunAPI{
			statuses: []string{"RUNNING", "SUCCEEDED"},
			items:    `[{"id":"post-1"},{"id":"post-2"}]`,
		}
		server = httptest.NewServer(api.handler())
		client = newTestClient("tok-a", "tok-b")

		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	})

	AfterEach(func() {
		cancel()
		server.Close()
	})

	Describe("Submit", func() {
		It("should return a submitted run holding the dataset handle", func() {
			run, err := client.Submit(ctx, testActorID, map[string]any{"search": "festival"})
			Expect(err).NotTo(HaveOccurred())
			Expect(run.ID).To(Equal("run-1"))
			Expect(run.DatasetID).To(Equal("ds-1"))
			Expect(run.Status).To(Equal(StatusSubmitted))
		})

		It("should present pool credentials in round-robin order", func() {
			_, err := client.Submit(ctx, testActorID, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = client.Submit(ctx, testActorID, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(api.authHeaders).To(Equal([]string{"Bearer tok-a", "Bearer tok-b"}))
		})

		Context("when the credential pool is empty", func() {
			It("should fail without issuing a request", func() {
				client = newTestClient()

				run, err := client.Submit(ctx, testActorID, nil)
				Expect(run).To(BeNil())
				Expect(err).To(MatchError(credentials.ErrNoCredentials))
				Expect(api.submits).To(BeZero())
			})
		})

		Context("when the remote API rejects the submission", func() {
			It("should return a SubmissionError and mark the credential unhealthy", func() {
				server.Close()
				server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusUnauthorized)
					fmt.Fprint(w, "invalid token")
				}))
				client = newTestClient("tok-bad")

				run, err := client.Submit(ctx, testActorID, nil)
				Expect(run).To(BeNil())

				var submissionErr *SubmissionError
				Expect(errors.As(err, &submissionErr)).To(BeTrue())
				Expect(submissionErr.StatusCode).To(Equal(http.StatusUnauthorized))

				snapshot := pool.Snapshot()
				Expect(snapshot[0].Healthy).To(BeFalse())
				Expect(snapshot[0].Failures).To(Equal(int64(1)))
			})
		})
	})

	Describe("Poll", func() {
		It("should advance the run through the observed statuses", func() {
			run, err := client.Submit(ctx, testActorID, nil)
			Expect(err).NotTo(HaveOccurred())

			run, err = client.Poll(ctx, run)
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Status).To(Equal(StatusRunning))

			run, err = client.Poll(ctx, run)
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Status).To(Equal(StatusSucceeded))
			Expect(run.Status.Terminal()).To(BeTrue())
		})

		It("should never regress the run status", func() {
			api.statuses = []string{"RUNNING", "READY"}

			run, err := client.Submit(ctx, testActorID, nil)
			Expect(err).NotTo(HaveOccurred())

			run, err = client.Poll(ctx, run)
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Status).To(Equal(StatusRunning))

			run, err = client.Poll(ctx, run)
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Status).To(Equal(StatusRunning))
		})
	})

	Describe("FetchResults", func() {
		It("should refuse runs that have not succeeded", func() {
			run, err := client.Submit(ctx, testActorID, nil)
			Expect(err).NotTo(HaveOccurred())

			items, err := client.FetchResults(ctx, run)
			Expect(items).To(BeNil())

			var fetchErr *FetchError
			Expect(errors.As(err, &fetchErr)).To(BeTrue())
			Expect(fetchErr.Status).To(Equal(StatusSubmitted))
		})
	})

	Describe("RunAndWait", func() {
		It("should drive the full lifecycle and return the dataset items", func() {
			items, err := client.RunAndWait(ctx, testActorID, map[string]any{"search": "festival"}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))

			var first map[string]string
			Expect(json.Unmarshal(items[0], &first)).To(Succeed())
			Expect(first["id"]).To(Equal("post-1"))

			snapshot := pool.Snapshot()
			Expect(snapshot[0].Successes).To(BeNumerically(">=", 1))
		})

		It("should absorb transient poll failures and keep polling", func() {
			api.pollFailures = 2

			items, err := client.RunAndWait(ctx, testActorID, nil, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
			Expect(api.pollCount()).To(BeNumerically(">=", 3))
		})

		Context("when the run never reaches a terminal state", func() {
			It("should give up with a ClientTimeoutError", func() {
				api.statuses = []string{"RUNNING"}

				items, err := client.RunAndWait(ctx, testActorID, nil, 30*time.Millisecond)
				Expect(items).To(BeNil())

				var timeoutErr *ClientTimeoutError
				Expect(errors.As(err, &timeoutErr)).To(BeTrue())
				Expect(timeoutErr.Ceiling).To(Equal(30 * time.Millisecond))
			})
		})

		Context("when the run fails remotely", func() {
			It("should return a FetchError carrying the terminal status", func() {
				api.statuses = []string{"RUNNING", "FAILED"}

				items, err := client.RunAndWait(ctx, testActorID, nil, 0)
				Expect(items).To(BeNil())

				var fetchErr *FetchError
				Expect(errors.As(err, &fetchErr)).To(BeTrue())
				Expect(fetchErr.Status).To(Equal(StatusFailed))
			})
		})

		Context("when the context is canceled mid-lifecycle", func() {
			It("should stop and return the context error", func() {
				api.statuses = []string{"RUNNING"}
				shortCtx, shortCancel := context.WithTimeout(ctx, 20*time.Millisecond)
				defer shortCancel()

				items, err := client.RunAndWait(shortCtx, testActorID, nil, time.Minute)
				Expect(items).To(BeNil())
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("remote status mapping", func() {
		It("should collapse transitional wire states into their destination", func() {
			Expect(parseRemoteStatus("READY")).To(Equal(StatusSubmitted))
			Expect(parseRemoteStatus("RUNNING")).To(Equal(StatusRunning))
			Expect(parseRemoteStatus("SUCCEEDED")).To(Equal(StatusSucceeded))
			Expect(parseRemoteStatus("FAILED")).To(Equal(StatusFailed))
			Expect(parseRemoteStatus("ABORTING")).To(Equal(StatusAborted))
			Expect(parseRemoteStatus("ABORTED")).To(Equal(StatusAborted))
			Expect(parseRemoteStatus("TIMING-OUT")).To(Equal(StatusTimedOut))
			Expect(parseRemoteStatus("TIMED-OUT")).To(Equal(StatusTimedOut))
		})

		It("should treat unknown wire states as still running", func() {
			Expect(parseRemoteStatus("MIGRATING")).To(Equal(StatusRunning))
		})
	})
})
