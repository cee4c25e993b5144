// Package harvestconfig assembles the harvesting stack from the
// environment: credential pool, remote job client, platform connectors,
// scheduler and persistence.
package harvestconfig

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/socialpulse/harvester-go/pkg/analysis"
	"github.com/socialpulse/harvester-go/pkg/apify"
	"github.com/socialpulse/harvester-go/pkg/credentials"
	"github.com/socialpulse/harvester-go/pkg/db"
	"github.com/socialpulse/harvester-go/pkg/fallback"
	"github.com/socialpulse/harvester-go/pkg/memory"
	"github.com/socialpulse/harvester-go/pkg/orchestrator"
	"github.com/socialpulse/harvester-go/pkg/platforms"
	"github.com/socialpulse/harvester-go/pkg/reports"
)

// Harvester bundles the wired collection stack.
type Harvester struct {
	Pool         *credentials.Pool
	Client       *apify.Client
	Registry     *platforms.Registry
	Orchestrator *orchestrator.Orchestrator
	Reports      *reports.Store
	Posts        *memory.PostStore
	ReportRows   *memory.ReportStore
	Logger       *logrus.Logger
}

// Configure assembles the stack. The database stores stay nil unless
// DB_ENABLED is set; everything else is required.
func Configure(logger *logrus.Logger) (*Harvester, error) {
	pool, err := credentials.NewPoolFromEnv(logger)
	if err != nil {
		return nil, err
	}

	apifyConfig, err := apify.NewConfig()
	if err != nil {
		return nil, err
	}
	apifyConfig.Logger = logger

	client, err := apify.NewClient(apifyConfig, pool)
	if err != nil {
		return nil, err
	}

	registry := platforms.NewRegistry(logger,
		platforms.NewInstagramConnector(logger),
		platforms.NewFacebookConnector(logger),
	)

	schedulerConfig := orchestrator.NewConfig(logger)
	orch, err := orchestrator.New(
		schedulerConfig,
		registry,
		client,
		fallback.NewGenerator(logger),
		analysis.NewAggregator(logger),
	)
	if err != nil {
		return nil, err
	}

	harvester := &Harvester{
		Pool:         pool,
		Client:       client,
		Registry:     registry,
		Orchestrator: orch,
		Reports:      reports.NewStore(os.Getenv("REPORTS_DIR"), logger),
		Logger:       logger,
	}

	if dbEnabled() {
		handle, err := db.SetupDatabase(logger)
		if err != nil {
			return nil, fmt.Errorf("harvestconfig: database setup failed: %w", err)
		}
		if harvester.Posts, err = memory.NewPostStore(logger, handle); err != nil {
			return nil, err
		}
		if harvester.ReportRows, err = memory.NewReportStore(logger, handle); err != nil {
			return nil, err
		}
	} else {
		logger.Debug("Database persistence disabled, using filesystem only")
	}

	return harvester, nil
}

func dbEnabled() bool {
	enabled, err := strconv.ParseBool(os.Getenv("DB_ENABLED"))
	return err == nil && enabled
}
