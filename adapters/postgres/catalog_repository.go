package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ecosense/domain/catalog"
	"ecosense/domain/core"
	"ecosense/ports"

	"github.com/jmoiron/sqlx"
)

// locationRepository implements the LocationRepository interface
type locationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *sqlx.DB) ports.LocationRepository {
	return &locationRepository{db: db}
}

// Create inserts a new location
func (r *locationRepository) Create(ctx context.Context, loc *catalog.Location) error {
	query := `INSERT INTO locations (id, name, latitude, longitude, site_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		loc.ID, loc.Name, loc.Latitude, loc.Longitude, loc.SiteType, loc.CreatedAt.Time())
	if err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

// GetByID retrieves a location by its ID
func (r *locationRepository) GetByID(ctx context.Context, id core.LocationID) (*catalog.Location, error) {
	query := `SELECT id, name, latitude, longitude, site_type, created_at
		FROM locations WHERE id = $1`
	return r.scanLocation(r.db.QueryRowContext(ctx, query, id))
}

// GetByName retrieves a location by exact, case-sensitive name
func (r *locationRepository) GetByName(ctx context.Context, name string) (*catalog.Location, error) {
	query := `SELECT id, name, latitude, longitude, site_type, created_at
		FROM locations WHERE name = $1`
	return r.scanLocation(r.db.QueryRowContext(ctx, query, name))
}

func (r *locationRepository) scanLocation(row *sql.Row) (*catalog.Location, error) {
	var loc catalog.Location
	var createdAt sql.NullTime
	err := row.Scan(&loc.ID, &loc.Name, &loc.Latitude, &loc.Longitude, &loc.SiteType, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	if createdAt.Valid {
		loc.CreatedAt = core.NewTimestamp(createdAt.Time)
	}
	return &loc, nil
}

// List returns all locations ordered by name
func (r *locationRepository) List(ctx context.Context) ([]*catalog.Location, error) {
	query := `SELECT id, name, latitude, longitude, site_type, created_at
		FROM locations ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []*catalog.Location
	for rows.Next() {
		var loc catalog.Location
		var createdAt sql.NullTime
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Latitude, &loc.Longitude, &loc.SiteType, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		if createdAt.Valid {
			loc.CreatedAt = core.NewTimestamp(createdAt.Time)
		}
		locations = append(locations, &loc)
	}
	return locations, rows.Err()
}

// metricRepository implements the MetricRepository interface
type metricRepository struct {
	db *sqlx.DB
}

// NewMetricRepository creates a new metric reference repository
func NewMetricRepository(db *sqlx.DB) ports.MetricRepository {
	return &metricRepository{db: db}
}

// GetByName retrieves a metric type by canonical, case-insensitive name
func (r *metricRepository) GetByName(ctx context.Context, name string) (*catalog.MetricType, error) {
	query := `SELECT id, name, unit, category, who_guideline, created_at
		FROM metric_types WHERE name = $1`
	return r.scanMetric(r.db.QueryRowContext(ctx, query, catalog.CanonicalName(name)))
}

// GetByID retrieves a metric type by its ID
func (r *metricRepository) GetByID(ctx context.Context, id core.MetricID) (*catalog.MetricType, error) {
	query := `SELECT id, name, unit, category, who_guideline, created_at
		FROM metric_types WHERE id = $1`
	return r.scanMetric(r.db.QueryRowContext(ctx, query, id))
}

func (r *metricRepository) scanMetric(row *sql.Row) (*catalog.MetricType, error) {
	var m catalog.MetricType
	var createdAt sql.NullTime
	err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.Category, &m.WHOGuideline, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrMetricNotFound
		}
		return nil, fmt.Errorf("failed to get metric type: %w", err)
	}
	if createdAt.Valid {
		m.CreatedAt = core.NewTimestamp(createdAt.Time)
	}
	return &m, nil
}

// List returns all metric types ordered by category then name
func (r *metricRepository) List(ctx context.Context) ([]*catalog.MetricType, error) {
	query := `SELECT id, name, unit, category, who_guideline, created_at
		FROM metric_types ORDER BY category, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric types: %w", err)
	}
	defer rows.Close()

	var metrics []*catalog.MetricType
	for rows.Next() {
		var m catalog.MetricType
		var createdAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.Name, &m.Unit, &m.Category, &m.WHOGuideline, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan metric type: %w", err)
		}
		if createdAt.Valid {
			m.CreatedAt = core.NewTimestamp(createdAt.Time)
		}
		metrics = append(metrics, &m)
	}
	return metrics, rows.Err()
}
