package ports

import (
	"context"

	"ecosense/domain/batch"
	"ecosense/domain/core"
	"ecosense/domain/stats"
)

// BatchRepository defines storage operations for upload batches
type BatchRepository interface {
	Create(ctx context.Context, b *batch.UploadBatch) error
	GetByID(ctx context.Context, id core.BatchID) (*batch.UploadBatch, error)
	ListRecent(ctx context.Context, limit int) ([]*batch.UploadBatch, error)
	// Finalize persists the terminal status and row counts of a batch
	Finalize(ctx context.Context, b *batch.UploadBatch) error
	// Delete removes a batch and, by cascade, its measurements
	Delete(ctx context.Context, id core.BatchID) error
}

// MeasurementRepository defines storage operations for measurements
type MeasurementRepository interface {
	// InsertMany writes measurements in bounded batches inside one
	// transaction; either all rows land or none do.
	InsertMany(ctx context.Context, measurements []*batch.Measurement) error
	CountByBatch(ctx context.Context, id core.BatchID) (int, error)
	// Query projects measurements matching the filter for analysis
	Query(ctx context.Context, filter stats.Filter) ([]stats.Observation, error)
}
