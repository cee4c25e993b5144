package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/socialpulse/harvester-go/internal/harvestconfig"
	"github.com/socialpulse/harvester-go/pkg/assets"
	"github.com/socialpulse/harvester-go/pkg/logging"
	"github.com/socialpulse/harvester-go/pkg/posts"
	"github.com/socialpulse/harvester-go/pkg/reports"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Only log warning since .env is optional
		logrus.WithError(err).Warn("Error loading .env file")
	}

	query := flag.String("query", "", "search query to harvest across platforms")
	platformList := flag.String("platforms", "instagram,facebook", "comma separated platform names")
	maxResults := flag.Int("max-results", 0, "maximum records per platform, 0 uses the default")
	session := flag.String("session", "", "session identifier, generated when empty")
	outDir := flag.String("out", "", "reports directory, defaults to REPORTS_DIR or data/reports")
	thumbs := flag.Bool("thumbs", false, "download thumbnails for live records")
	printReport := flag.Bool("print", false, "print the full report JSON to stdout")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: harvester -query <search query> [-platforms instagram,facebook] [-max-results 15] [-session <id>] [-out <dir>] [-thumbs] [-print]")
		fmt.Println("\nExample:")
		fmt.Println("  harvester -query \"summer festival\" -platforms instagram,facebook -print")
		os.Exit(1)
	}

	log := logging.NewLogger()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	harvester, err := harvestconfig.Configure(log)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure harvester")
	}

	var requested []posts.Platform
	for _, name := range strings.Split(*platformList, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		platform, _ := posts.ParsePlatform(name)
		requested = append(requested, platform)
	}

	report, err := harvester.Orchestrator.ExecuteComprehensiveScraping(ctx, *query, requested, *maxResults, *session)
	if err != nil {
		log.WithError(err).Fatal("Harvest failed")
	}

	store := harvester.Reports
	if *outDir != "" {
		store = reports.NewStore(*outDir, log)
	}
	path, err := store.Save(report)
	if err != nil {
		log.WithError(err).Fatal("Failed to persist report")
	}

	persistResults(harvester, log, report)

	if *thumbs {
		downloadThumbnails(ctx, log, report)
	}

	log.WithFields(logrus.Fields{
		"session_id":  report.SessionID,
		"success":     report.Success,
		"total_posts": report.TotalPosts,
		"successful":  report.SuccessfulPlatforms,
		"failed":      report.FailedPlatforms,
		"report":      path,
	}).Info("Harvest finished")

	if *printReport {
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.WithError(err).Fatal("Failed to encode report")
		}
		fmt.Println(string(encoded))
	}
}

// persistResults writes the harvest into the database stores when they are
// configured. Persistence failures never fail the run.
func persistResults(harvester *harvestconfig.Harvester, log *logrus.Logger, report *posts.Report) {
	if harvester.Posts != nil {
		for platform, result := range report.Platforms {
			if err := harvester.Posts.SavePosts(report.SessionID, platform, result.Records, result.DataSource); err != nil {
				log.WithFields(logrus.Fields{
					"platform": platform,
				}).WithError(err).Warn("Failed to persist posts")
			}
		}
	}
	if harvester.ReportRows != nil {
		if err := harvester.ReportRows.SaveReport(report); err != nil {
			log.WithError(err).Warn("Failed to persist report row")
		}
	}
}

// downloadThumbnails fetches a preview image for every live record carrying a
// thumbnail URL. Failures are logged and skipped.
func downloadThumbnails(ctx context.Context, log *logrus.Logger, report *posts.Report) {
	fetcher := assets.NewFetcher(os.Getenv("ASSETS_DIR"), log)
	for _, result := range report.Platforms {
		if result.DataSource != posts.DataSourceLive {
			continue
		}
		for _, record := range result.Records {
			if record.ThumbnailURL == "" {
				continue
			}
			filename := fmt.Sprintf("%s_%s", record.Platform, record.ID)
			path, err := fetcher.FetchThumbnail(ctx, record.ThumbnailURL, report.SessionID, filename)
			if err != nil {
				log.WithFields(logrus.Fields{
					"platform": record.Platform,
					"post_id":  record.ID,
				}).WithError(err).Warn("Thumbnail download failed")
				continue
			}
			log.WithFields(logrus.Fields{
				"platform": record.Platform,
				"post_id":  record.ID,
				"path":     path,
			}).Debug("Thumbnail stored")
		}
	}
}
