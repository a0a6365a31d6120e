package ports

import (
	"context"

	"ecosense/domain/catalog"
	"ecosense/domain/core"
)

// LocationRepository defines storage operations for sampling locations
type LocationRepository interface {
	Create(ctx context.Context, loc *catalog.Location) error
	GetByID(ctx context.Context, id core.LocationID) (*catalog.Location, error)
	// GetByName matches by exact, case-sensitive name. Near-duplicate names
	// are distinct locations; they are never merged.
	GetByName(ctx context.Context, name string) (*catalog.Location, error)
	List(ctx context.Context) ([]*catalog.Location, error)
}

// MetricRepository defines read access to the seeded metric reference table
type MetricRepository interface {
	// GetByName matches case-insensitively against canonical metric names.
	GetByName(ctx context.Context, name string) (*catalog.MetricType, error)
	GetByID(ctx context.Context, id core.MetricID) (*catalog.MetricType, error)
	List(ctx context.Context) ([]*catalog.MetricType, error)
}
