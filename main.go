package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"ecosense/adapters/postgres"
	"ecosense/app"
	"ecosense/domain/stats"
	"ecosense/internal"
	"ecosense/internal/config"
	"ecosense/internal/errors"
	"ecosense/internal/migration"
	"ecosense/ui"
)

// initDatabase connects to PostgreSQL and brings the schema up to date
func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	locations := postgres.NewLocationRepository(db)
	metrics := postgres.NewMetricRepository(db)
	batches := postgres.NewBatchRepository(db)
	measurements := postgres.NewMeasurementRepository(db, cfg.Upload.InsertBatchSize)

	ingestService := app.NewIngestService(batches, measurements, locations, metrics, logger)
	analysisService := app.NewAnalysisService(
		measurements,
		metrics,
		stats.StrengthThresholds{
			Weak:   cfg.Analysis.CorrelationWeak,
			Strong: cfg.Analysis.CorrelationStrong,
		},
		cfg.Analysis.MaxConcurrentPairs,
		logger,
	)
	reportService := app.NewReportService(analysisService, logger)

	webApp, err := ui.NewApp(cfg, ingestService, analysisService, reportService, locations, metrics, logger)
	if err != nil {
		log.Fatalf("Failed to initialize UI: %v", err)
	}

	if err := webApp.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
