package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/socialpulse/harvester-go/pkg/analysis"
	"github.com/socialpulse/harvester-go/pkg/fallback"
	"github.com/socialpulse/harvester-go/pkg/orchestrator"
	"github.com/socialpulse/harvester-go/pkg/platforms"
	"github.com/socialpulse/harvester-go/pkg/posts"
	"github.com/socialpulse/harvester-go/pkg/reports"
)

// scriptedClient satisfies orchestrator.LifecycleClient with canned dataset
// items keyed by actor. An actor with a scripted error always fails.
type scriptedClient struct {
	items map[string][]json.RawMessage
	errs  map[string]error
}

func (c *scriptedClient) RunAndWait(_ context.Context, actorID string, _ any, _ time.Duration) ([]json.RawMessage, error) {
	if err := c.errs[actorID]; err != nil {
		return nil, err
	}
	return c.items[actorID], nil
}

var _ = Describe("HTTP API", func() {
	var (
		logger     *logrus.Logger
		client     *scriptedClient
		store      *reports.Store
		server     *Server
		router     http.Handler
		reportsDir string
	)

	// do drives one request through the full router, middleware included.
	do := func(method, target, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, reader)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	scrape := func(body string) *httptest.ResponseRecorder {
		return do(http.MethodPost, "/api/v1/scrape", body)
	}

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetOutput(io.Discard)

		client = &scriptedClient{
			items: map[string][]json.RawMessage{
				platforms.InstagramActorID: {json.RawMessage(`{"id": "ig-1", "caption": "festival incrível ❤️", "ownerUsername": "user1", "likesCount": 120, "commentsCount": 4}`)},
				platforms.FacebookActorID:  {json.RawMessage(`{"postId": "fb-1", "text": "bloco de rua", "authorName": "page1", "likesCount": 80, "sharesCount": 2}`)},
			},
			errs: map[string]error{},
		}

		var err error
		reportsDir, err = os.MkdirTemp("", "api-reports-*")
		Expect(err).NotTo(HaveOccurred())
		store = reports.NewStore(reportsDir, logger)

		registry := platforms.NewRegistry(logger,
			platforms.NewInstagramConnector(logger),
			platforms.NewFacebookConnector(logger),
		)
		config := &orchestrator.Config{
			HighTierTimeout:     2 * time.Second,
			StandardTierTimeout: 2 * time.Second,
			RetryBackoff:        time.Millisecond,
			TaskTimeout:         time.Second,
			MaxRetries:          1,
			FallbackEnabled:     true,
			Logger:              logger,
		}
		orch, err := orchestrator.New(config, registry, client, fallback.NewGenerator(logger), analysis.NewAggregator(logger))
		Expect(err).NotTo(HaveOccurred())

		server, err = New(Config{Orchestrator: orch, Reports: store, Logger: logger})
		Expect(err).NotTo(HaveOccurred())
		router = server.Router()
	})

	AfterEach(func() {
		Expect(os.RemoveAll(reportsDir)).To(Succeed())
	})

	Describe("New", func() {
		It("requires an orchestrator", func() {
			_, err := New(Config{Reports: store, Logger: logger})
			Expect(err).To(MatchError(ContainSubstring("orchestrator is required")))
		})

		It("requires a report store", func() {
			_, err := New(Config{Orchestrator: server.orchestrator, Logger: logger})
			Expect(err).To(MatchError(ContainSubstring("report store is required")))
		})

		It("requires a logger", func() {
			_, err := New(Config{Orchestrator: server.orchestrator, Reports: store})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})
	})

	Describe("GET /healthz", func() {
		It("reports the service as healthy", func() {
			rec := do(http.MethodGet, "/healthz", "")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
			Expect(rec.Body.String()).To(MatchJSON(`{"status": "ok"}`))
		})
	})

	Describe("POST /api/v1/scrape", func() {
		It("runs a harvest and returns the report", func() {
			rec := scrape(`{"query": "summer festival", "platforms": ["instagram", "facebook"], "session_id": "sess-api"}`)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp scrapeResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Report).NotTo(BeNil())
			Expect(resp.Report.Success).To(BeTrue())
			Expect(resp.Report.SessionID).To(Equal("sess-api"))
			Expect(resp.Report.PlatformsAnalyzed).To(Equal(2))
			Expect(resp.Report.TotalPosts).To(Equal(2))
			Expect(resp.Report.Platforms[posts.PlatformInstagram].DataSource).To(Equal(posts.DataSourceLive))
			Expect(resp.ReportPath).To(BeAnExistingFile())
		})

		It("persists the report for later retrieval", func() {
			scrape(`{"query": "carnaval", "session_id": "sess-saved"}`)

			saved, err := store.Load("sess-saved")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Query).To(Equal("carnaval"))
			Expect(saved.SessionID).To(Equal("sess-saved"))
		})

		It("defaults to every known platform when the request names none", func() {
			rec := scrape(`{"query": "carnaval"}`)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp scrapeResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Report.PlatformsAnalyzed).To(Equal(2))
			Expect(resp.Report.Platforms).To(HaveKey(posts.PlatformInstagram))
			Expect(resp.Report.Platforms).To(HaveKey(posts.PlatformFacebook))
		})

		It("normalizes platform names before scheduling", func() {
			rec := scrape(`{"query": "carnaval", "platforms": [" Instagram ", ""]}`)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp scrapeResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Report.PlatformsAnalyzed).To(Equal(1))
			Expect(resp.Report.Platforms).To(HaveKey(posts.PlatformInstagram))
		})

		It("routes unknown platforms through fallback output", func() {
			rec := scrape(`{"query": "carnaval", "platforms": ["myspace"]}`)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp scrapeResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			result, ok := resp.Report.Platforms[posts.Platform("myspace")]
			Expect(ok).To(BeTrue())
			Expect(result.Success).To(BeFalse())
			Expect(result.DataSource).To(Equal(posts.DataSourceFallback))
			Expect(result.Records).NotTo(BeEmpty())
		})

		It("rejects malformed request bodies", func() {
			rec := scrape(`{"query": `)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("invalid json"))
		})

		It("rejects requests without a query", func() {
			rec := scrape(`{"query": "   "}`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("query is required"))
		})
	})

	Describe("GET /api/v1/sessions/{sessionID}/stats", func() {
		It("returns bookkeeping counts for the session", func() {
			scrape(`{"query": "carnaval", "session_id": "sess-stats"}`)

			rec := do(http.MethodGet, "/api/v1/sessions/sess-stats/stats", "")

			Expect(rec.Code).To(Equal(http.StatusOK))

			var stats posts.SessionStats
			Expect(json.Unmarshal(rec.Body.Bytes(), &stats)).To(Succeed())
			Expect(stats.CompletedTasks).To(Equal(2))
			Expect(stats.TotalTasks).To(Equal(2))
			Expect(stats.ActiveTasks).To(BeZero())
		})

		It("returns zero counts for an unknown session", func() {
			rec := do(http.MethodGet, "/api/v1/sessions/ghost/stats", "")

			Expect(rec.Code).To(Equal(http.StatusOK))

			var stats posts.SessionStats
			Expect(json.Unmarshal(rec.Body.Bytes(), &stats)).To(Succeed())
			Expect(stats.TotalTasks).To(BeZero())
		})
	})

	Describe("GET /api/v1/sessions/{sessionID}/report", func() {
		It("returns the persisted report", func() {
			scrape(`{"query": "street carnival", "session_id": "sess-report"}`)

			rec := do(http.MethodGet, "/api/v1/sessions/sess-report/report", "")

			Expect(rec.Code).To(Equal(http.StatusOK))

			var report posts.Report
			Expect(json.Unmarshal(rec.Body.Bytes(), &report)).To(Succeed())
			Expect(report.Query).To(Equal("street carnival"))
			Expect(report.SessionID).To(Equal("sess-report"))
		})

		It("responds 404 when no report exists", func() {
			rec := do(http.MethodGet, "/api/v1/sessions/missing/report", "")

			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(rec.Body.String()).To(ContainSubstring("report not found"))
		})
	})

	Describe("GET /api/v1/stats", func() {
		It("exposes process-wide scheduler counters", func() {
			scrape(`{"query": "carnaval", "session_id": "sess-global"}`)

			rec := do(http.MethodGet, "/api/v1/stats", "")

			Expect(rec.Code).To(Equal(http.StatusOK))

			var stats posts.GlobalStats
			Expect(json.Unmarshal(rec.Body.Bytes(), &stats)).To(Succeed())
			Expect(stats.TotalTasks).To(Equal(int64(2)))
			Expect(stats.SuccessfulTasks).To(Equal(int64(2)))
			Expect(stats.SuccessRate).To(Equal(100.0))
		})
	})

	Describe("POST /api/v1/cleanup", func() {
		It("purges finished tasks older than the cutoff", func() {
			scrape(`{"query": "carnaval", "session_id": "sess-clean"}`)

			rec := do(http.MethodPost, "/api/v1/cleanup?max_age_hours=0", "")

			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp cleanupResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Removed).To(Equal(2))
			Expect(resp.MaxAgeHours).To(BeZero())

			var stats posts.SessionStats
			after := do(http.MethodGet, "/api/v1/sessions/sess-clean/stats", "")
			Expect(json.Unmarshal(after.Body.Bytes(), &stats)).To(Succeed())
			Expect(stats.TotalTasks).To(BeZero())
		})

		It("defaults the cutoff to 24 hours", func() {
			scrape(`{"query": "carnaval", "session_id": "sess-fresh"}`)

			rec := do(http.MethodPost, "/api/v1/cleanup", "")

			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp cleanupResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Removed).To(BeZero())
			Expect(resp.MaxAgeHours).To(Equal(24.0))
		})

		It("rejects a negative cutoff", func() {
			rec := do(http.MethodPost, "/api/v1/cleanup?max_age_hours=-1", "")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("max_age_hours must be a non-negative number"))
		})

		It("rejects a non-numeric cutoff", func() {
			rec := do(http.MethodPost, "/api/v1/cleanup?max_age_hours=soon", "")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("max_age_hours must be a non-negative number"))
		})
	})

	Describe("GET /metrics", func() {
		It("serves scheduler counters in Prometheus exposition format", func() {
			scrape(`{"query": "carnaval", "session_id": "sess-metrics"}`)

			rec := do(http.MethodGet, "/metrics", "")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("harvest_tasks_total"))
		})
	})
})
