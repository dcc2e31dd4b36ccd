// Command predict-latest runs a one-off risk assessment for the most
// recently created patient and archives the outcome, without going through
// the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/heart-disease-predictor-server/internal/config"
	"github.com/heart-disease-predictor-server/internal/database"
	"github.com/heart-disease-predictor-server/internal/domain"
	"github.com/heart-disease-predictor-server/internal/model"
	"github.com/heart-disease-predictor-server/internal/patients"
	"github.com/heart-disease-predictor-server/internal/predictions"
	"github.com/heart-disease-predictor-server/internal/service"
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
	logger := config.NewLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var repo domain.PatientRepository
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

		store, err := patients.NewPostgresStore(db.SQLDB(), cfg.Database.QueryTimeout, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create patient store")
		}
		repo = store
	}
	defer repo.Close()

	var recorder domain.PredictionRecorder
	if cfg.SecondaryStore.URI != "" {
		mongoRecorder, err := predictions.NewMongoRecorder(ctx, cfg.SecondaryStore, logger)
		if err != nil {
			logger.WithError(err).Warn("Prediction archive unavailable, continuing without it")
		} else {
			recorder = mongoRecorder
			defer mongoRecorder.Close(ctx)
		}
	}

	classifier, err := model.Load(cfg.Model.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load classifier artifact")
	}

	predictor := service.NewPredictor(repo, classifier, recorder, logger)

	record, err := predictor.PredictLatest(ctx)
	if err != nil {
		if domain.IsNotFound(err) {
			logger.Fatal("No patients recorded yet")
		}
		logger.WithError(err).Fatal("Prediction failed")
	}

	fmt.Printf("Patient %d: %s (probability %.4f, confidence %.2f%%)\n",
		record.PatientID, record.RiskLabel, record.Probability, record.Confidence*100)
}
