package migration

import (
	"context"

	"ecosense/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{version: "1.0.0"}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in dependency order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createLocationsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create locations table")
	}
	if err := r.createMetricTypesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create metric_types table")
	}
	if err := r.createUploadBatchesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create upload_batches table")
	}
	if err := r.createMeasurementsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create measurements table")
	}
	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}
	if err := r.seedMetricTypes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to seed metric reference table")
	}
	return nil
}

func (r *MigrationRunner) createLocationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS locations (
			id UUID PRIMARY KEY,
			name VARCHAR(200) UNIQUE NOT NULL,
			latitude DECIMAL(10,7) CHECK (latitude BETWEEN -90 AND 90),
			longitude DECIMAL(10,7) CHECK (longitude BETWEEN -180 AND 180),
			site_type VARCHAR(50) NOT NULL DEFAULT 'other',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createMetricTypesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS metric_types (
			id UUID PRIMARY KEY,
			name VARCHAR(100) UNIQUE NOT NULL,
			unit VARCHAR(20) NOT NULL,
			category VARCHAR(50) NOT NULL DEFAULT 'other',
			who_guideline DECIMAL(12,6),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createUploadBatchesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS upload_batches (
			id UUID PRIMARY KEY,
			dataset_type VARCHAR(20) NOT NULL,
			uploaded_by VARCHAR(150) NOT NULL DEFAULT '',
			filename VARCHAR(255) NOT NULL,
			file_size BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			rows_processed INTEGER NOT NULL DEFAULT 0,
			rows_persisted INTEGER NOT NULL DEFAULT 0,
			rows_skipped INTEGER NOT NULL DEFAULT 0,
			error_log TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			completed_at TIMESTAMP WITH TIME ZONE
		)
	`)
	return err
}

func (r *MigrationRunner) createMeasurementsTable(ctx context.Context, db *sqlx.DB) error {
	// Locations and metric types use RESTRICT: they are never deleted while
	// measurements reference them. Batch deletion cascades.
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS measurements (
			id UUID PRIMARY KEY,
			batch_id UUID NOT NULL REFERENCES upload_batches(id) ON DELETE CASCADE,
			location_id UUID NOT NULL REFERENCES locations(id) ON DELETE RESTRICT,
			metric_id UUID NOT NULL REFERENCES metric_types(id) ON DELETE RESTRICT,
			value DECIMAL(14,6) NOT NULL,
			measured_at TIMESTAMP WITH TIME ZONE NOT NULL,
			quality_flag VARCHAR(20) NOT NULL DEFAULT 'valid'
				CHECK (quality_flag IN ('valid', 'questionable', 'invalid')),
			operator VARCHAR(150),
			equipment VARCHAR(200),
			notes TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_measurements_batch ON measurements(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_measurements_location_time ON measurements(location_id, measured_at)`,
		`CREATE INDEX IF NOT EXISTS idx_measurements_metric_time ON measurements(metric_id, measured_at)`,
		`CREATE INDEX IF NOT EXISTS idx_upload_batches_created ON upload_batches(created_at DESC)`,
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// seedMetricTypes inserts the reference metric table. Uploads are matched
// against these rows; unmatched metric names are rejected at ingest time.
func (r *MigrationRunner) seedMetricTypes(ctx context.Context, db *sqlx.DB) error {
	seed := []struct {
		name      string
		unit      string
		category  string
		guideline *float64
	}{
		{"pm2.5", "µg/m³", "particulate", f(15)},
		{"pm10", "µg/m³", "particulate", f(45)},
		{"ozone", "µg/m³", "gas", f(100)},
		{"nitrogen dioxide", "µg/m³", "gas", f(25)},
		{"sulfur dioxide", "µg/m³", "gas", f(40)},
		{"carbon monoxide", "mg/m³", "gas", f(4)},
		{"lead", "µg/L", "heavy_metal", f(10)},
		{"chromium", "µg/L", "heavy_metal", f(50)},
		{"cadmium", "µg/L", "heavy_metal", f(3)},
		{"mercury", "µg/L", "heavy_metal", f(6)},
		{"arsenic", "µg/L", "heavy_metal", f(10)},
		{"benzene", "µg/m³", "organic_compound", nil},
		{"ph", "pH", "water", nil},
		{"dissolved oxygen", "mg/L", "water", nil},
		{"turbidity", "NTU", "water", f(5)},
		{"conductivity", "µS/cm", "water", nil},
		{"temperature", "°C", "water", nil},
		{"humidity", "%", "air_quality", nil},
		{"mutation_count", "count", "genomic", nil},
		{"diversity_index", "index", "genomic", nil},
		{"genetic_variants", "count", "genomic", nil},
		{"species_count", "count", "biodiversity", nil},
		{"species_richness", "index", "biodiversity", nil},
		{"shannon_index", "index", "biodiversity", nil},
	}

	for _, m := range seed {
		_, err := db.ExecContext(ctx, `
			INSERT INTO metric_types (id, name, unit, category, who_guideline)
			VALUES (gen_random_uuid(), $1, $2, $3, $4)
			ON CONFLICT (name) DO NOTHING
		`, m.name, m.unit, m.category, m.guideline)
		if err != nil {
			return err
		}
	}
	return nil
}

func f(v float64) *float64 { return &v }
