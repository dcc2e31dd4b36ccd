package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heart-disease-predictor-server/internal/api"
	"github.com/heart-disease-predictor-server/internal/config"
	"github.com/heart-disease-predictor-server/internal/database"
	"github.com/heart-disease-predictor-server/internal/domain"
	"github.com/heart-disease-predictor-server/internal/model"
	"github.com/heart-disease-predictor-server/internal/patients"
	"github.com/heart-disease-predictor-server/internal/predictions"
	"github.com/heart-disease-predictor-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)
	logger.WithField("addr", cfg.Server.Host).Info("Starting heart disease predictor server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Primary store
	var (
		repo     domain.PatientRepository
		dbHealth api.HealthChecker
	)
	switch cfg.Database.Driver {
	case "sqlite":
		store, err := patients.NewSQLiteStore(cfg.Database.SQLitePath, cfg.Database.QueryTimeout, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open SQLite store")
		}
		repo = store
	default:
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			runner, err := database.NewMigrationRunner(database.URL(cfg.Database), cfg.Database.MigrationsPath, logger)
			if err != nil {
				logger.WithError(err).Fatal("Failed to create migration runner")
			}
			if err := runner.Up(ctx); err != nil {
				logger.WithError(err).Fatal("Failed to run migrations")
			}
			runner.Close()
		}

		store, err := patients.NewPostgresStore(db.SQLDB(), cfg.Database.QueryTimeout, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create patient store")
		}
		repo = store
		dbHealth = db.Health
	}

	// Optional read cache
	if cfg.Cache.Enabled {
		cached, err := patients.NewCachedRepository(repo, cfg.Cache, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create patient cache")
		}
		repo = cached
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close patient repository")
		}
	}()

	// Prediction archive
	var recorder domain.PredictionRecorder
	if cfg.SecondaryStore.URI != "" {
		mongoRecorder, err := predictions.NewMongoRecorder(ctx, cfg.SecondaryStore, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to prediction archive")
		}
		recorder = mongoRecorder
		dbHealth = combineHealth(dbHealth, mongoRecorder.Ping)
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			if err := mongoRecorder.Close(closeCtx); err != nil {
				logger.WithError(err).Warn("Failed to close prediction archive")
			}
		}()
	}

	// Frozen classifier artifact
	classifier, err := model.Load(cfg.Model.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load classifier artifact")
	}

	predictor := service.NewPredictor(repo, classifier, recorder, logger)
	server := api.NewServer(*cfg, repo, predictor, dbHealth, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// combineHealth chains health checks; the first failure wins.
func combineHealth(checks ...api.HealthChecker) api.HealthChecker {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
