package batch

import (
	"fmt"
	"strings"

	"ecosense/domain/catalog"
	"ecosense/domain/core"
)

// BatchStatus tracks the lifecycle of one upload
type BatchStatus string

const (
	StatusPending    BatchStatus = "pending"
	StatusProcessing BatchStatus = "processing"
	StatusCompleted  BatchStatus = "completed"
	StatusFailed     BatchStatus = "failed"
)

// UploadBatch records one file-upload event and the fate of its rows.
// A batch is immutable once it reaches completed.
type UploadBatch struct {
	ID          core.BatchID        `db:"id" json:"id"`
	DatasetType catalog.DatasetType `db:"dataset_type" json:"dataset_type"`
	UploadedBy  string              `db:"uploaded_by" json:"uploaded_by"`
	Filename    string              `db:"filename" json:"filename"`
	FileSize    int64               `db:"file_size" json:"file_size"`
	Status      BatchStatus         `db:"status" json:"status"`

	RowsProcessed int `db:"rows_processed" json:"rows_processed"`
	RowsPersisted int `db:"rows_persisted" json:"rows_persisted"`
	RowsSkipped   int `db:"rows_skipped" json:"rows_skipped"`

	ErrorLog    string          `db:"error_log" json:"error_log,omitempty"`
	CreatedAt   core.Timestamp  `db:"created_at" json:"created_at"`
	CompletedAt *core.Timestamp `db:"completed_at" json:"completed_at,omitempty"`
}

// NewUploadBatch creates a pending batch for an accepted file
func NewUploadBatch(datasetType catalog.DatasetType, uploadedBy, filename string, fileSize int64) *UploadBatch {
	return &UploadBatch{
		ID:          core.BatchID(core.NewID()),
		DatasetType: datasetType,
		UploadedBy:  strings.TrimSpace(uploadedBy),
		Filename:    filename,
		FileSize:    fileSize,
		Status:      StatusPending,
		CreatedAt:   core.Now(),
	}
}

// Complete finalizes the batch with its row counts
func (b *UploadBatch) Complete(processed, persisted, skipped int, errorLog string) error {
	if b.Status == StatusCompleted {
		return core.ErrBatchImmutable
	}
	b.Status = StatusCompleted
	b.RowsProcessed = processed
	b.RowsPersisted = persisted
	b.RowsSkipped = skipped
	b.ErrorLog = errorLog
	now := core.Now()
	b.CompletedAt = &now
	return nil
}

// Fail marks the batch as failed with a reason
func (b *UploadBatch) Fail(reason string) error {
	if b.Status == StatusCompleted {
		return core.ErrBatchImmutable
	}
	b.Status = StatusFailed
	b.ErrorLog = reason
	now := core.Now()
	b.CompletedAt = &now
	return nil
}

// SuccessRate returns the fraction of processed rows that were persisted
func (b *UploadBatch) SuccessRate() float64 {
	if b.RowsProcessed == 0 {
		return 0
	}
	return float64(b.RowsPersisted) / float64(b.RowsProcessed)
}

// Measurement is one validated data point. Measurements are never mutated
// after creation and are removed only by batch deletion (cascade).
type Measurement struct {
	ID         core.MeasurementID  `db:"id" json:"id"`
	BatchID    core.BatchID        `db:"batch_id" json:"batch_id"`
	LocationID core.LocationID     `db:"location_id" json:"location_id"`
	MetricID   core.MetricID       `db:"metric_id" json:"metric_id"`
	Value      float64             `db:"value" json:"value"`
	MeasuredAt core.Timestamp      `db:"measured_at" json:"measured_at"`
	Quality    catalog.QualityFlag `db:"quality_flag" json:"quality_flag"`

	Operator  *string        `db:"operator" json:"operator,omitempty"`
	Equipment *string        `db:"equipment" json:"equipment,omitempty"`
	Notes     *string        `db:"notes" json:"notes,omitempty"`
	CreatedAt core.Timestamp `db:"created_at" json:"created_at"`
}

// Validate checks structural invariants before persistence
func (m *Measurement) Validate() error {
	if core.ID(m.BatchID).IsEmpty() {
		return core.NewValidationError("batch_id", "measurement must belong to a batch")
	}
	if core.ID(m.LocationID).IsEmpty() {
		return core.NewValidationError("location_id", "measurement must reference a location")
	}
	if core.ID(m.MetricID).IsEmpty() {
		return core.NewValidationError("metric_id", "measurement must reference a metric type")
	}
	if m.MeasuredAt.IsZero() {
		return core.NewValidationError("measured_at", "measurement timestamp is required")
	}
	switch m.Quality {
	case catalog.QualityValid, catalog.QualityQuestionable, catalog.QualityInvalid:
	default:
		return core.NewValidationError("quality_flag", fmt.Sprintf("unknown flag %q", m.Quality))
	}
	return nil
}
