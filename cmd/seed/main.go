package main

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"ecosense/adapters/postgres"
	"ecosense/domain/batch"
	"ecosense/domain/catalog"
	"ecosense/domain/core"
	"ecosense/internal/config"
	"ecosense/internal/migration"
)

// seedSite describes one demo sampling location
type seedSite struct {
	name     string
	lat, lon float64
	siteType catalog.SiteType
	// bias shifts generated values up so sites differ visibly
	bias float64
}

var sites = []seedSite{
	{"Riverside Industrial Park", 45.5231, -122.6765, catalog.SiteIndustrial, 1.4},
	{"Cedar Hills Residential", 45.5048, -122.8013, catalog.SiteResidential, 0.8},
	{"Willamette Agricultural Station", 44.9429, -123.0351, catalog.SiteAgricultural, 1.0},
	{"Forest Park Reference Site", 45.5712, -122.7605, catalog.SiteForest, 0.5},
}

// seedMetric pairs a seeded metric name with a plausible value range
type seedMetric struct {
	name string
	mean float64
	sd   float64
}

var metricsToSeed = []seedMetric{
	{"pm2.5", 18, 8},
	{"pm10", 35, 12},
	{"ozone", 55, 15},
	{"nitrogen dioxide", 28, 10},
	{"ph", 7.1, 0.4},
	{"dissolved oxygen", 8.5, 1.2},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	locationRepo := postgres.NewLocationRepository(db)
	metricRepo := postgres.NewMetricRepository(db)
	batchRepo := postgres.NewBatchRepository(db)
	measurementRepo := postgres.NewMeasurementRepository(db, cfg.Upload.InsertBatchSize)

	rng := rand.New(rand.NewSource(42))

	locations := make([]*catalog.Location, 0, len(sites))
	for _, s := range sites {
		loc, err := locationRepo.GetByName(ctx, s.name)
		if err == nil {
			locations = append(locations, loc)
			continue
		}
		lat, lon := s.lat, s.lon
		loc, err = catalog.NewLocation(s.name, &lat, &lon, s.siteType)
		if err != nil {
			log.Fatalf("Failed to build location %s: %v", s.name, err)
		}
		if err := locationRepo.Create(ctx, loc); err != nil {
			log.Fatalf("Failed to create location %s: %v", s.name, err)
		}
		locations = append(locations, loc)
	}
	log.Printf("Seeded %d locations", len(locations))

	b := batch.NewUploadBatch(catalog.DatasetEnvironmental, "seed", "seed_demo.csv", 0)
	if err := batchRepo.Create(ctx, b); err != nil {
		log.Fatalf("Failed to create seed batch: %v", err)
	}

	// 90 days of daily readings per site and metric
	start := time.Now().UTC().AddDate(0, 0, -90).Truncate(24 * time.Hour)
	var measurements []*batch.Measurement
	for si, loc := range locations {
		bias := sites[si].bias
		for _, sm := range metricsToSeed {
			mt, err := metricRepo.GetByName(ctx, sm.name)
			if err != nil {
				log.Fatalf("Metric %q not seeded: %v", sm.name, err)
			}
			for day := 0; day < 90; day++ {
				value := sm.mean*bias + rng.NormFloat64()*sm.sd
				value = math.Max(value, 0.01)
				at := start.AddDate(0, 0, day).Add(time.Duration(rng.Intn(12)) * time.Hour)
				measurements = append(measurements, &batch.Measurement{
					ID:         core.MeasurementID(core.NewID()),
					BatchID:    b.ID,
					LocationID: loc.ID,
					MetricID:   mt.ID,
					Value:      value,
					MeasuredAt: core.NewTimestamp(at),
					Quality:    catalog.QualityValid,
					CreatedAt:  core.Now(),
				})
			}
		}
	}

	if err := measurementRepo.InsertMany(ctx, measurements); err != nil {
		log.Fatalf("Failed to insert seed measurements: %v", err)
	}
	if err := b.Complete(len(measurements), len(measurements), 0, ""); err != nil {
		log.Fatalf("Failed to complete seed batch: %v", err)
	}
	if err := batchRepo.Finalize(ctx, b); err != nil {
		log.Fatalf("Failed to finalize seed batch: %v", err)
	}

	log.Printf("Seeded %d measurements across %d sites", len(measurements), len(locations))
}
