package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/socialpulse/harvester-go/internal/harvestconfig"
	"github.com/socialpulse/harvester-go/pkg/api"
	"github.com/socialpulse/harvester-go/pkg/logging"
)

const (
	defaultAddr     = ":8080"
	shutdownTimeout = 15 * time.Second
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Only log warning since .env is optional
		logrus.WithError(err).Warn("Error loading .env file")
	}

	log := logging.NewLogger()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harvester, err := harvestconfig.Configure(log)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure harvester")
	}

	server, err := api.New(api.Config{
		Orchestrator: harvester.Orchestrator,
		Reports:      harvester.Reports,
		Posts:        harvester.Posts,
		ReportRows:   harvester.ReportRows,
		Logger:       log,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create API server")
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("HTTP server shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"addr":           addr,
		"live_platforms": harvester.Registry.LivePlatforms(),
	}).Info("Starting harvest API server")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("HTTP server stopped with error")
	}

	log.Info("Harvester shutdown complete")
}
