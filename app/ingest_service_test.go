package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/xuri/excelize/v2"

	"ecosense/domain/batch"
	"ecosense/domain/catalog"
	"ecosense/domain/core"
	"ecosense/domain/ingest"
	"ecosense/domain/stats"
	"ecosense/internal"
	apperrors "ecosense/internal/errors"
)

// Mock implementations for testing

type MockBatchRepository struct {
	mock.Mock
	finalized *batch.UploadBatch
}

func (m *MockBatchRepository) Create(ctx context.Context, b *batch.UploadBatch) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBatchRepository) GetByID(ctx context.Context, id core.BatchID) (*batch.UploadBatch, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*batch.UploadBatch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBatchRepository) ListRecent(ctx context.Context, limit int) ([]*batch.UploadBatch, error) {
	args := m.Called(ctx, limit)
	if bs := args.Get(0); bs != nil {
		return bs.([]*batch.UploadBatch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBatchRepository) Finalize(ctx context.Context, b *batch.UploadBatch) error {
	args := m.Called(ctx, b)
	m.finalized = b
	return args.Error(0)
}

func (m *MockBatchRepository) Delete(ctx context.Context, id core.BatchID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMeasurementRepository struct {
	mock.Mock
	inserted []*batch.Measurement
}

func (m *MockMeasurementRepository) InsertMany(ctx context.Context, measurements []*batch.Measurement) error {
	args := m.Called(ctx, measurements)
	m.inserted = append(m.inserted, measurements...)
	return args.Error(0)
}

func (m *MockMeasurementRepository) CountByBatch(ctx context.Context, id core.BatchID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockMeasurementRepository) Query(ctx context.Context, filter stats.Filter) ([]stats.Observation, error) {
	args := m.Called(ctx, filter)
	if obs := args.Get(0); obs != nil {
		return obs.([]stats.Observation), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockLocationRepository struct {
	mock.Mock
	created []*catalog.Location
}

func (m *MockLocationRepository) Create(ctx context.Context, loc *catalog.Location) error {
	args := m.Called(ctx, loc)
	m.created = append(m.created, loc)
	return args.Error(0)
}

func (m *MockLocationRepository) GetByID(ctx context.Context, id core.LocationID) (*catalog.Location, error) {
	args := m.Called(ctx, id)
	if loc := args.Get(0); loc != nil {
		return loc.(*catalog.Location), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLocationRepository) GetByName(ctx context.Context, name string) (*catalog.Location, error) {
	args := m.Called(ctx, name)
	if loc := args.Get(0); loc != nil {
		return loc.(*catalog.Location), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLocationRepository) List(ctx context.Context) ([]*catalog.Location, error) {
	args := m.Called(ctx)
	if locs := args.Get(0); locs != nil {
		return locs.([]*catalog.Location), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockMetricRepository struct {
	mock.Mock
}

func (m *MockMetricRepository) GetByName(ctx context.Context, name string) (*catalog.MetricType, error) {
	args := m.Called(ctx, name)
	if mt := args.Get(0); mt != nil {
		return mt.(*catalog.MetricType), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMetricRepository) GetByID(ctx context.Context, id core.MetricID) (*catalog.MetricType, error) {
	args := m.Called(ctx, id)
	if mt := args.Get(0); mt != nil {
		return mt.(*catalog.MetricType), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMetricRepository) List(ctx context.Context) ([]*catalog.MetricType, error) {
	args := m.Called(ctx)
	if mts := args.Get(0); mts != nil {
		return mts.([]*catalog.MetricType), args.Error(1)
	}
	return nil, args.Error(1)
}

// Test fixtures

func testMetric(name string) *catalog.MetricType {
	return &catalog.MetricType{
		ID:        core.MetricID(core.NewID()),
		Name:      name,
		Unit:      "µg/m³",
		Category:  catalog.CategoryAirQuality,
		CreatedAt: core.Now(),
	}
}

func testLocation(name string) *catalog.Location {
	loc, _ := catalog.NewLocation(name, nil, nil, catalog.SiteUrban)
	return loc
}

type ingestMocks struct {
	batches      *MockBatchRepository
	measurements *MockMeasurementRepository
	locations    *MockLocationRepository
	metrics      *MockMetricRepository
}

func newIngestService() (*IngestService, *ingestMocks) {
	m := &ingestMocks{
		batches:      &MockBatchRepository{},
		measurements: &MockMeasurementRepository{},
		locations:    &MockLocationRepository{},
		metrics:      &MockMetricRepository{},
	}
	svc := NewIngestService(m.batches, m.measurements, m.locations, m.metrics, internal.NewLogger(internal.LogLevelError))
	return svc, m
}

func defaultOptions() IngestOptions {
	return IngestOptions{
		DatasetType:            catalog.DatasetEnvironmental,
		UploadedBy:             "tester",
		Policy:                 ingest.DefaultPolicy(),
		CreateMissingLocations: true,
	}
}

func TestIngestCSVSuccess(t *testing.T) {
	svc, m := newIngestService()

	csvData := strings.Join([]string{
		"site,pollutant,value,date",
		"Station A,pm2.5,18.4,2024-03-15",
		"Station B,pm2.5,22.1,2024-03-15",
		"Station A,pm2.5,not-a-number,2024-03-16",
	}, "\n")

	m.batches.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.batches.On("Finalize", mock.Anything, mock.Anything).Return(nil)
	m.metrics.On("GetByName", mock.Anything, "pm2.5").Return(testMetric("pm2.5"), nil)
	m.locations.On("GetByName", mock.Anything, "Station A").Return(testLocation("Station A"), nil)
	m.locations.On("GetByName", mock.Anything, "Station B").Return(nil, core.ErrLocationNotFound)
	m.locations.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.measurements.On("InsertMany", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Ingest(context.Background(), "readings.csv", int64(len(csvData)),
		strings.NewReader(csvData), defaultOptions())

	assert.NoError(t, err)
	assert.Equal(t, batch.StatusCompleted, result.Batch.Status)
	assert.Equal(t, 3, result.Batch.RowsProcessed)
	assert.Equal(t, 2, result.Batch.RowsPersisted)
	assert.Equal(t, 1, result.Batch.RowsSkipped)
	assert.Len(t, m.measurements.inserted, 2)

	// The unknown location was auto-created.
	assert.Len(t, m.locations.created, 1)
	assert.Equal(t, "Station B", m.locations.created[0].Name)

	// The bad row surfaces as a row error with its 1-based data row index.
	assert.Len(t, result.RowErrors, 1)
	assert.Equal(t, 3, result.RowErrors[0].Row)
	assert.Equal(t, ingest.FieldValue, result.RowErrors[0].Field)

	// The finalized batch carries the error log.
	assert.NotNil(t, m.batches.finalized)
	assert.Contains(t, m.batches.finalized.ErrorLog, "row 3")
}

func TestIngestNamedWorksheet(t *testing.T) {
	svc, m := newIngestService()

	f := excelize.NewFile()
	first := f.GetSheetName(0)
	if _, err := f.NewSheet("march_survey"); err != nil {
		t.Fatalf("NewSheet failed: %v", err)
	}
	fill := func(sheet string, cells [][]string) {
		for r, row := range cells {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellStr(sheet, cell, v); err != nil {
					t.Fatalf("SetCellStr failed: %v", err)
				}
			}
		}
	}
	// The first sheet holds unrelated content; only the named sheet has data.
	fill(first, [][]string{{"scratch"}, {"ignore me"}})
	fill("march_survey", [][]string{
		{"site", "pollutant", "value", "date"},
		{"Station A", "pm2.5", "14.2", "2024-03-15"},
	})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write workbook failed: %v", err)
	}

	m.batches.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.batches.On("Finalize", mock.Anything, mock.Anything).Return(nil)
	m.metrics.On("GetByName", mock.Anything, "pm2.5").Return(testMetric("pm2.5"), nil)
	m.locations.On("GetByName", mock.Anything, "Station A").Return(testLocation("Station A"), nil)
	m.measurements.On("InsertMany", mock.Anything, mock.Anything).Return(nil)

	opts := defaultOptions()
	opts.Sheet = "march_survey"

	result, err := svc.Ingest(context.Background(), "survey.xlsx", int64(buf.Len()),
		bytes.NewReader(buf.Bytes()), opts)

	assert.NoError(t, err)
	assert.Equal(t, batch.StatusCompleted, result.Batch.Status)
	assert.Equal(t, 1, result.Batch.RowsPersisted)
	assert.Len(t, m.measurements.inserted, 1)
	assert.Equal(t, 14.2, m.measurements.inserted[0].Value)
}

func TestIngestUnsupportedExtensionCreatesNoBatch(t *testing.T) {
	svc, m := newIngestService()

	_, err := svc.Ingest(context.Background(), "readings.txt", 10,
		strings.NewReader("whatever"), defaultOptions())

	assert.Error(t, err)
	assert.Equal(t, apperrors.CodeUnsupportedFormat, apperrors.GetCode(err))
	m.batches.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestSchemaErrorFailsBatch(t *testing.T) {
	svc, m := newIngestService()

	csvData := "site,pollutant\nStation A,pm2.5\n"
	m.batches.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.batches.On("Finalize", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Ingest(context.Background(), "readings.csv", int64(len(csvData)),
		strings.NewReader(csvData), defaultOptions())

	assert.ErrorIs(t, err, core.ErrMissingColumns)
	assert.Equal(t, apperrors.CodeSchemaError, apperrors.GetCode(err))
	assert.Equal(t, batch.StatusFailed, result.Batch.Status)
	assert.Contains(t, result.Batch.ErrorLog, "requires columns")
	m.measurements.AssertNotCalled(t, "InsertMany", mock.Anything, mock.Anything)
}

func TestIngestUnknownMetricSkipsRows(t *testing.T) {
	svc, m := newIngestService()

	csvData := strings.Join([]string{
		"site,pollutant,value,date",
		"Station A,unobtainium,1.0,2024-03-15",
		"Station A,unobtainium,2.0,2024-03-16",
	}, "\n")

	m.batches.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.batches.On("Finalize", mock.Anything, mock.Anything).Return(nil)
	m.metrics.On("GetByName", mock.Anything, "unobtainium").Return(nil, core.ErrMetricNotFound)

	result, err := svc.Ingest(context.Background(), "readings.csv", int64(len(csvData)),
		strings.NewReader(csvData), defaultOptions())

	assert.NoError(t, err)
	assert.Equal(t, batch.StatusCompleted, result.Batch.Status)
	assert.Equal(t, 0, result.Batch.RowsPersisted)
	assert.Equal(t, 2, result.Batch.RowsSkipped)
	assert.Len(t, result.RowErrors, 2)
	m.measurements.AssertNotCalled(t, "InsertMany", mock.Anything, mock.Anything)

	// Repeated unknown names are resolved once, not per row.
	m.metrics.AssertNumberOfCalls(t, "GetByName", 1)
}

func TestIngestFailFastWithoutSkipInvalid(t *testing.T) {
	svc, m := newIngestService()

	csvData := strings.Join([]string{
		"site,pollutant,value,date",
		"Station A,pm2.5,bogus,2024-03-15",
	}, "\n")

	m.batches.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.batches.On("Finalize", mock.Anything, mock.Anything).Return(nil)

	opts := defaultOptions()
	opts.Policy.SkipInvalid = false

	result, err := svc.Ingest(context.Background(), "readings.csv", int64(len(csvData)),
		strings.NewReader(csvData), opts)

	assert.Error(t, err)
	assert.Equal(t, apperrors.CodeValidationError, apperrors.GetCode(err))
	assert.Equal(t, batch.StatusFailed, result.Batch.Status)
}

func TestIngestUnknownLocationWithoutCreate(t *testing.T) {
	svc, m := newIngestService()

	csvData := strings.Join([]string{
		"site,pollutant,value,date",
		"Nowhere,pm2.5,5.0,2024-03-15",
	}, "\n")

	m.batches.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.batches.On("Finalize", mock.Anything, mock.Anything).Return(nil)
	m.metrics.On("GetByName", mock.Anything, "pm2.5").Return(testMetric("pm2.5"), nil)
	m.locations.On("GetByName", mock.Anything, "Nowhere").Return(nil, core.ErrLocationNotFound)

	opts := defaultOptions()
	opts.CreateMissingLocations = false

	result, err := svc.Ingest(context.Background(), "readings.csv", int64(len(csvData)),
		strings.NewReader(csvData), opts)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Batch.RowsSkipped)
	assert.Len(t, m.locations.created, 0)
	assert.Contains(t, result.RowErrors[0].Message, "unknown location")
}
