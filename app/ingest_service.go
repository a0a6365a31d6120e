package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"ecosense/adapters/tabular"
	"ecosense/domain/batch"
	"ecosense/domain/catalog"
	"ecosense/domain/core"
	"ecosense/domain/ingest"
	"ecosense/internal"
	apperrors "ecosense/internal/errors"
	"ecosense/ports"
)

// maxLoggedRowErrors caps how many row errors a batch error log records.
// Everything past the cap is counted, not stored.
const maxLoggedRowErrors = 50

// IngestOptions controls one upload run. The handler fills defaults from
// configuration before overriding from form fields.
type IngestOptions struct {
	DatasetType            catalog.DatasetType
	UploadedBy             string
	Policy                 ingest.Policy
	CreateMissingLocations bool
	// Sheet names the worksheet to read from a workbook upload. Empty means
	// the first sheet; ignored for CSV files.
	Sheet string
}

// IngestResult reports the outcome of one upload
type IngestResult struct {
	Batch           *batch.UploadBatch `json:"batch"`
	ColumnMap       *ingest.ColumnMap  `json:"column_map,omitempty"`
	RowErrors       []ingest.RowError  `json:"row_errors,omitempty"`
	TruncatedErrors int                `json:"truncated_errors,omitempty"`
}

// IngestService runs the upload pipeline: parse, map headers, normalize
// rows, resolve catalog references, persist measurements, finalize the
// batch record.
type IngestService struct {
	batches      ports.BatchRepository
	measurements ports.MeasurementRepository
	locations    ports.LocationRepository
	metrics      ports.MetricRepository
	logger       *internal.Logger
}

// NewIngestService creates the upload pipeline service
func NewIngestService(
	batches ports.BatchRepository,
	measurements ports.MeasurementRepository,
	locations ports.LocationRepository,
	metrics ports.MetricRepository,
	logger *internal.Logger,
) *IngestService {
	return &IngestService{
		batches:      batches,
		measurements: measurements,
		locations:    locations,
		metrics:      metrics,
		logger:       logger,
	}
}

// Ingest processes one uploaded file end to end. A batch record is created
// for every accepted file, so failed uploads stay visible in history; only
// files with an unsupported extension are rejected before anything is
// persisted.
func (s *IngestService) Ingest(ctx context.Context, filename string, size int64, r io.Reader, opts IngestOptions) (*IngestResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !supportedExtension(ext) {
		return nil, apperrors.UnsupportedFormat(
			fmt.Sprintf("unsupported file extension %q (accepted: %s)",
				ext, strings.Join(tabular.SupportedExtensions, ", ")))
	}

	b := batch.NewUploadBatch(opts.DatasetType, opts.UploadedBy, filename, size)
	if err := s.batches.Create(ctx, b); err != nil {
		return nil, apperrors.PersistenceError("failed to create upload batch", err)
	}
	b.Status = batch.StatusProcessing
	s.logger.Info("batch %s: processing %s (%s, %d bytes)", b.ID, filename, opts.DatasetType, size)

	var (
		table *tabular.Table
		err   error
	)
	if opts.Sheet != "" && ext == ".xlsx" {
		table, err = tabular.ReadSheet(r, opts.Sheet)
	} else {
		table, err = tabular.ReadTable(filename, r)
	}
	if err != nil {
		return s.failBatch(ctx, b, fmt.Sprintf("parse error: %v", err)), err
	}

	cm, err := ingest.MapHeaders(opts.DatasetType, table.Headers)
	if err != nil {
		return s.failBatch(ctx, b, err.Error()), apperrors.WithCode(apperrors.CodeSchemaError, err)
	}

	normalizer := ingest.NewNormalizer(cm, opts.Policy)
	resolver := newCatalogResolver(s.locations, s.metrics, opts.CreateMissingLocations)

	var (
		measurements []*batch.Measurement
		rowErrors    []ingest.RowError
		truncated    int
	)
	recordError := func(re ingest.RowError) {
		if len(rowErrors) < maxLoggedRowErrors {
			rowErrors = append(rowErrors, re)
		} else {
			truncated++
		}
	}

	for i, row := range table.Rows {
		rowIdx := i + 1
		rec, rowErr := normalizer.NormalizeRow(rowIdx, row)
		if rowErr == nil {
			var m *batch.Measurement
			m, rowErr = resolver.resolve(ctx, b.ID, rec)
			if rowErr == nil {
				measurements = append(measurements, m)
				continue
			}
		}
		if !opts.Policy.SkipInvalid {
			err := apperrors.ValidationError(rowErr.Error())
			return s.failBatch(ctx, b, rowErr.Error()), err
		}
		recordError(*rowErr)
	}

	if len(measurements) > 0 {
		if err := s.measurements.InsertMany(ctx, measurements); err != nil {
			perr := apperrors.PersistenceError("failed to persist measurements", err)
			return s.failBatch(ctx, b, perr.Error()), perr
		}
	}

	processed := len(table.Rows)
	persisted := len(measurements)
	skipped := processed - persisted
	errorLog := renderErrorLog(rowErrors, truncated)

	if err := b.Complete(processed, persisted, skipped, errorLog); err != nil {
		return nil, err
	}
	if err := s.batches.Finalize(ctx, b); err != nil {
		return nil, apperrors.PersistenceError("failed to finalize batch", err)
	}
	s.logger.Info("batch %s: completed, %d/%d rows persisted (%d skipped)",
		b.ID, persisted, processed, skipped)

	return &IngestResult{
		Batch:           b,
		ColumnMap:       cm,
		RowErrors:       rowErrors,
		TruncatedErrors: truncated,
	}, nil
}

// failBatch marks the batch failed and persists the terminal state. The
// finalize error, if any, is logged rather than returned so the original
// failure stays the caller's error.
func (s *IngestService) failBatch(ctx context.Context, b *batch.UploadBatch, reason string) *IngestResult {
	if err := b.Fail(reason); err != nil {
		s.logger.Warn("batch %s: cannot mark failed: %v", b.ID, err)
		return &IngestResult{Batch: b}
	}
	if err := s.batches.Finalize(ctx, b); err != nil {
		s.logger.Error("batch %s: failed to finalize: %v", b.ID, err)
	}
	s.logger.Warn("batch %s: failed: %s", b.ID, reason)
	return &IngestResult{Batch: b}
}

// GetBatch returns one upload batch by ID
func (s *IngestService) GetBatch(ctx context.Context, id core.BatchID) (*batch.UploadBatch, error) {
	return s.batches.GetByID(ctx, id)
}

// ListBatches returns recent upload batches, newest first
func (s *IngestService) ListBatches(ctx context.Context, limit int) ([]*batch.UploadBatch, error) {
	return s.batches.ListRecent(ctx, limit)
}

// DeleteBatch removes a batch and cascades to its measurements
func (s *IngestService) DeleteBatch(ctx context.Context, id core.BatchID) error {
	if err := s.batches.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("batch %s: deleted", id)
	return nil
}

func supportedExtension(ext string) bool {
	for _, e := range tabular.SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func renderErrorLog(rowErrors []ingest.RowError, truncated int) string {
	if len(rowErrors) == 0 {
		return ""
	}
	lines := make([]string, 0, len(rowErrors)+1)
	for _, re := range rowErrors {
		lines = append(lines, re.Error())
	}
	if truncated > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more errors", truncated))
	}
	return strings.Join(lines, "\n")
}

// catalogResolver resolves location and metric names against the catalog,
// caching lookups per upload. Metric misses are cached too so a column of
// the same unknown name costs one query.
type catalogResolver struct {
	locations       ports.LocationRepository
	metrics         ports.MetricRepository
	createLocations bool

	locationCache map[string]*catalog.Location
	metricCache   map[string]*catalog.MetricType
}

func newCatalogResolver(locations ports.LocationRepository, metrics ports.MetricRepository, createLocations bool) *catalogResolver {
	return &catalogResolver{
		locations:       locations,
		metrics:         metrics,
		createLocations: createLocations,
		locationCache:   make(map[string]*catalog.Location),
		metricCache:     make(map[string]*catalog.MetricType),
	}
}

func (r *catalogResolver) resolve(ctx context.Context, batchID core.BatchID, rec *ingest.Record) (*batch.Measurement, *ingest.RowError) {
	metric, rowErr := r.resolveMetric(ctx, rec)
	if rowErr != nil {
		return nil, rowErr
	}
	loc, rowErr := r.resolveLocation(ctx, rec)
	if rowErr != nil {
		return nil, rowErr
	}

	m := &batch.Measurement{
		ID:         core.MeasurementID(core.NewID()),
		BatchID:    batchID,
		LocationID: loc.ID,
		MetricID:   metric.ID,
		Value:      rec.Value,
		MeasuredAt: core.NewTimestamp(rec.MeasuredAt),
		Quality:    rec.Quality,
		Operator:   rec.Operator,
		Equipment:  rec.Equipment,
		Notes:      rec.Notes,
		CreatedAt:  core.Now(),
	}
	if err := m.Validate(); err != nil {
		return nil, &ingest.RowError{Row: rec.Row, Field: ingest.FieldValue, Message: err.Error()}
	}
	return m, nil
}

func (r *catalogResolver) resolveMetric(ctx context.Context, rec *ingest.Record) (*catalog.MetricType, *ingest.RowError) {
	key := catalog.CanonicalName(rec.MetricName)
	metric, seen := r.metricCache[key]
	if !seen {
		var err error
		metric, err = r.metrics.GetByName(ctx, rec.MetricName)
		if err != nil && !errors.Is(err, core.ErrMetricNotFound) {
			return nil, &ingest.RowError{Row: rec.Row, Field: ingest.FieldMetric,
				Value: rec.MetricName, Message: fmt.Sprintf("metric lookup failed: %v", err)}
		}
		r.metricCache[key] = metric
	}
	if metric == nil {
		return nil, &ingest.RowError{Row: rec.Row, Field: ingest.FieldMetric,
			Value: rec.MetricName, Message: "unknown metric type"}
	}
	return metric, nil
}

func (r *catalogResolver) resolveLocation(ctx context.Context, rec *ingest.Record) (*catalog.Location, *ingest.RowError) {
	if loc, ok := r.locationCache[rec.LocationName]; ok {
		if loc == nil {
			return nil, &ingest.RowError{Row: rec.Row, Field: ingest.FieldLocation,
				Value: rec.LocationName, Message: "unknown location"}
		}
		return loc, nil
	}

	loc, err := r.locations.GetByName(ctx, rec.LocationName)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrLocationNotFound) && r.createLocations:
		loc, err = catalog.NewLocation(rec.LocationName, rec.Latitude, rec.Longitude, catalog.SiteOther)
		if err != nil {
			return nil, &ingest.RowError{Row: rec.Row, Field: ingest.FieldLocation,
				Value: rec.LocationName, Message: err.Error()}
		}
		if err := r.locations.Create(ctx, loc); err != nil {
			return nil, &ingest.RowError{Row: rec.Row, Field: ingest.FieldLocation,
				Value: rec.LocationName, Message: fmt.Sprintf("failed to create location: %v", err)}
		}
	case errors.Is(err, core.ErrLocationNotFound):
		r.locationCache[rec.LocationName] = nil
		return nil, &ingest.RowError{Row: rec.Row, Field: ingest.FieldLocation,
			Value: rec.LocationName, Message: "unknown location"}
	default:
		return nil, &ingest.RowError{Row: rec.Row, Field: ingest.FieldLocation,
			Value: rec.LocationName, Message: fmt.Sprintf("location lookup failed: %v", err)}
	}

	r.locationCache[rec.LocationName] = loc
	return loc, nil
}
