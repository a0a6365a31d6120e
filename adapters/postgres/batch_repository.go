package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ecosense/domain/batch"
	"ecosense/domain/core"
	"ecosense/ports"

	"github.com/jmoiron/sqlx"
)

// batchRepository implements the BatchRepository interface
type batchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository creates a new upload batch repository
func NewBatchRepository(db *sqlx.DB) ports.BatchRepository {
	return &batchRepository{db: db}
}

// Create inserts a new upload batch
func (r *batchRepository) Create(ctx context.Context, b *batch.UploadBatch) error {
	query := `INSERT INTO upload_batches (
		id, dataset_type, uploaded_by, filename, file_size, status,
		rows_processed, rows_persisted, rows_skipped, error_log, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.DatasetType, b.UploadedBy, b.Filename, b.FileSize, b.Status,
		b.RowsProcessed, b.RowsPersisted, b.RowsSkipped, b.ErrorLog, b.CreatedAt.Time())
	if err != nil {
		return fmt.Errorf("failed to create upload batch: %w", err)
	}
	return nil
}

// GetByID retrieves a batch by its ID
func (r *batchRepository) GetByID(ctx context.Context, id core.BatchID) (*batch.UploadBatch, error) {
	query := `SELECT id, dataset_type, uploaded_by, filename, file_size, status,
		rows_processed, rows_persisted, rows_skipped, error_log, created_at, completed_at
	FROM upload_batches WHERE id = $1`

	var b batch.UploadBatch
	var createdAt time.Time
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.DatasetType, &b.UploadedBy, &b.Filename, &b.FileSize, &b.Status,
		&b.RowsProcessed, &b.RowsPersisted, &b.RowsSkipped, &b.ErrorLog, &createdAt, &completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get upload batch: %w", err)
	}

	b.CreatedAt = core.NewTimestamp(createdAt)
	if completedAt.Valid {
		ts := core.NewTimestamp(completedAt.Time)
		b.CompletedAt = &ts
	}
	return &b, nil
}

// ListRecent returns the most recently created batches
func (r *batchRepository) ListRecent(ctx context.Context, limit int) ([]*batch.UploadBatch, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, dataset_type, uploaded_by, filename, file_size, status,
		rows_processed, rows_persisted, rows_skipped, error_log, created_at, completed_at
	FROM upload_batches ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload batches: %w", err)
	}
	defer rows.Close()

	var batches []*batch.UploadBatch
	for rows.Next() {
		var b batch.UploadBatch
		var createdAt time.Time
		var completedAt sql.NullTime
		if err := rows.Scan(
			&b.ID, &b.DatasetType, &b.UploadedBy, &b.Filename, &b.FileSize, &b.Status,
			&b.RowsProcessed, &b.RowsPersisted, &b.RowsSkipped, &b.ErrorLog, &createdAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan upload batch: %w", err)
		}
		b.CreatedAt = core.NewTimestamp(createdAt)
		if completedAt.Valid {
			ts := core.NewTimestamp(completedAt.Time)
			b.CompletedAt = &ts
		}
		batches = append(batches, &b)
	}
	return batches, rows.Err()
}

// Finalize persists the terminal status and row counts of a batch
func (r *batchRepository) Finalize(ctx context.Context, b *batch.UploadBatch) error {
	query := `UPDATE upload_batches SET
		status = $2, rows_processed = $3, rows_persisted = $4, rows_skipped = $5,
		error_log = $6, completed_at = $7
	WHERE id = $1 AND status NOT IN ('completed', 'failed')`

	var completedAt *time.Time
	if b.CompletedAt != nil {
		t := b.CompletedAt.Time()
		completedAt = &t
	}

	result, err := r.db.ExecContext(ctx, query,
		b.ID, b.Status, b.RowsProcessed, b.RowsPersisted, b.RowsSkipped, b.ErrorLog, completedAt)
	if err != nil {
		return fmt.Errorf("failed to finalize upload batch: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrBatchImmutable
	}
	return nil
}

// Delete removes a batch; its measurements go with it by cascade
func (r *batchRepository) Delete(ctx context.Context, id core.BatchID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM upload_batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete upload batch: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrBatchNotFound
	}
	return nil
}
