package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/vigil-scan-server/internal/api"
	"github.com/vigil-scan-server/internal/config"
	"github.com/vigil-scan-server/internal/database"
	"github.com/vigil-scan-server/internal/domain"
	"github.com/vigil-scan-server/internal/history"
	"github.com/vigil-scan-server/internal/repository"
	"github.com/vigil-scan-server/internal/service"
	"github.com/vigil-scan-server/pkg/external"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	logger.WithFields(logrus.Fields{
		"host":            cfg.Server.Host,
		"port":            cfg.Server.Port,
		"history_backend": cfg.History.Backend,
	}).Info("Starting vigil scan server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// History backend
	historyStore, err := newHistoryStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open history store")
	}
	defer historyStore.Close()

	// PostgreSQL (profiles), only when a usable backend is configured
	var (
		profiles domain.ProfileStore
		health   api.HealthCheckers
	)
	if cfg.History.Backend == "postgres" || cfg.Database.Password != "" {
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		migrator, err := database.NewMigrator(configManager.GetDatabaseURL(), "./migrations", logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migrator")
		}
		if err := migrator.Up(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		migrator.Close()

		profiles = repository.NewProfileRepository(db.Pool, logger)
		health.Database = db.Health
	} else {
		logger.Info("No database configured, using in-memory profile store")
		profiles = repository.NewMemoryProfileStore()
	}

	// Model clients, only when an API key is configured; the pipeline
	// degrades to local fallbacks without them.
	var (
		extractor domain.TextExtractor
		model     domain.AdvisoryModel
		storage   domain.ObjectStorage
	)
	if cfg.Model.APIKey != "" {
		if cfg.Storage.BaseURL != "" {
			storage = external.NewStorageClient(cfg.Storage, logger)
		}

		cache, err := external.NewResponseCache(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Response cache unavailable, continuing without it")
			cache = nil
		} else {
			defer cache.Close()
			health.Cache = cache.Ping
		}

		client := external.NewModelClient(cfg.Model, storage, cfg.Storage.InlineThreshold, logger)
		resilient := external.NewResilientModelClient(client, cache, logger)
		extractor = resilient
		model = resilient
		health.Breakers = resilient.BreakerStates
	} else {
		logger.Warn("No model API key configured, running with local classification only")
	}

	analysis := service.NewAnalysisService(logger, service.AnalysisDeps{
		Extractor: extractor,
		Model:     model,
		Storage:   storage,
		History:   historyStore,
		Profiles:  profiles,
		FactsKey:  cfg.Storage.FactsKey,
	})

	server := api.NewServer(configManager, logger, analysis, profiles, health)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newHistoryStore opens the configured history backend.
func newHistoryStore(cfg *domain.Config, logger *logrus.Logger) (domain.HistoryStore, error) {
	switch cfg.History.Backend {
	case "postgres":
		db := cfg.Database
		url := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			db.Username, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
		return history.NewPostgresStoreFromURL(url)
	case "memory":
		return history.NewMemoryStore(), nil
	default:
		return history.NewSQLiteStore(cfg.History.SQLitePath)
	}
}

// newLogger builds the process logger from configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger.SetOutput(os.Stdout)
	return logger
}
