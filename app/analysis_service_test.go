package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ecosense/domain/catalog"
	"ecosense/domain/core"
	"ecosense/domain/stats"
	"ecosense/internal"
)

func newAnalysisService(measurements *MockMeasurementRepository, metrics *MockMetricRepository) *AnalysisService {
	return NewAnalysisService(measurements, metrics, stats.DefaultThresholds(), 4,
		internal.NewLogger(internal.LogLevelError))
}

// pairedObservations builds two correlated metric series measured at the
// same location over consecutive months.
func pairedObservations(xs, ys []float64) []stats.Observation {
	locID := core.LocationID(core.NewID())
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	var obs []stats.Observation
	for i := range xs {
		at := start.AddDate(0, i, 0)
		obs = append(obs,
			stats.Observation{LocationID: locID, LocationName: "Station A",
				MetricID: core.MetricID("m-x"), MetricName: "pm2.5", Value: xs[i], MeasuredAt: at},
			stats.Observation{LocationID: locID, LocationName: "Station A",
				MetricID: core.MetricID("m-y"), MetricName: "pm10", Value: ys[i], MeasuredAt: at},
		)
	}
	return obs
}

func TestAnalyzeReport(t *testing.T) {
	measurements := &MockMeasurementRepository{}
	metrics := &MockMetricRepository{}
	svc := newAnalysisService(measurements, metrics)

	guideline := 15.0
	pm25 := testMetric("pm2.5")
	pm25.WHOGuideline = &guideline

	obs := pairedObservations(
		[]float64{10, 14, 18, 22, 26},
		[]float64{20, 28, 36, 44, 52},
	)
	measurements.On("Query", mock.Anything, mock.Anything).Return(obs, nil)
	metrics.On("List", mock.Anything).Return([]*catalog.MetricType{pm25, testMetric("pm10")}, nil)

	report, err := svc.Analyze(context.Background(), AnalysisRequest{Bucket: core.BucketMonth})
	assert.NoError(t, err)
	assert.Equal(t, 10, report.Observations)
	assert.Len(t, report.Metrics, 2)

	// Metrics are reported in name order.
	assert.Equal(t, "pm10", report.Metrics[0].Metric)
	assert.Equal(t, "pm2.5", report.Metrics[1].Metric)

	pm25Analysis := report.Metrics[1]
	assert.Equal(t, 5, pm25Analysis.Overall.Count)
	assert.InDelta(t, 18, pm25Analysis.Overall.Mean, 1e-9)

	// The linear series yields an increasing trend over monthly buckets.
	assert.False(t, pm25Analysis.Trend.Insufficient)
	assert.Equal(t, "increasing", pm25Analysis.Trend.Direction)

	// Three of five pm2.5 values exceed the guideline of 15.
	if assert.NotNil(t, pm25Analysis.Exceedance) {
		assert.Equal(t, 3, pm25Analysis.Exceedance.Exceedances)
		assert.False(t, pm25Analysis.Exceedance.Compliant)
		assert.InDelta(t, 0.6, pm25Analysis.Exceedance.ExceedanceRate, 1e-9)
	}

	// The perfectly linear pair correlates strongly.
	if assert.Len(t, report.Correlations, 1) {
		c := report.Correlations[0]
		assert.False(t, c.Insufficient)
		assert.InDelta(t, 1.0, c.Coefficient, 1e-9)
		assert.Equal(t, "strong", c.Strength)
		assert.Equal(t, 5, c.N)
	}
}

func TestAnalyzeNoData(t *testing.T) {
	measurements := &MockMeasurementRepository{}
	metrics := &MockMetricRepository{}
	svc := newAnalysisService(measurements, metrics)

	measurements.On("Query", mock.Anything, mock.Anything).Return([]stats.Observation{}, nil)

	_, err := svc.Analyze(context.Background(), AnalysisRequest{})
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestAnalyzeInsufficientCorrelationPairs(t *testing.T) {
	measurements := &MockMeasurementRepository{}
	metrics := &MockMetricRepository{}
	svc := newAnalysisService(measurements, metrics)

	// Only two shared (location, month) cells: below the pairing minimum.
	obs := pairedObservations([]float64{10, 14}, []float64{20, 28})
	measurements.On("Query", mock.Anything, mock.Anything).Return(obs, nil)
	metrics.On("List", mock.Anything).Return([]*catalog.MetricType{}, nil)

	report, err := svc.Analyze(context.Background(), AnalysisRequest{Bucket: core.BucketMonth})
	assert.NoError(t, err)
	if assert.Len(t, report.Correlations, 1) {
		assert.True(t, report.Correlations[0].Insufficient)
		assert.Equal(t, 2, report.Correlations[0].N)
	}
}

func TestAnalyzeGroupsByLocation(t *testing.T) {
	measurements := &MockMeasurementRepository{}
	metrics := &MockMetricRepository{}
	svc := newAnalysisService(measurements, metrics)

	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	obs := []stats.Observation{
		{LocationID: "loc-a", LocationName: "Station A", MetricName: "ph", Value: 7.0, MeasuredAt: at},
		{LocationID: "loc-a", LocationName: "Station A", MetricName: "ph", Value: 7.4, MeasuredAt: at.AddDate(0, 0, 1)},
		{LocationID: "loc-b", LocationName: "Station B", MetricName: "ph", Value: 6.2, MeasuredAt: at},
	}
	measurements.On("Query", mock.Anything, mock.Anything).Return(obs, nil)
	metrics.On("List", mock.Anything).Return([]*catalog.MetricType{}, nil)

	report, err := svc.Analyze(context.Background(), AnalysisRequest{Bucket: core.BucketDay})
	assert.NoError(t, err)
	assert.Len(t, report.Metrics, 1)

	byLoc := report.Metrics[0].ByLocation
	if assert.Len(t, byLoc, 2) {
		assert.Equal(t, "Station A", byLoc[0].Key)
		assert.Equal(t, 2, byLoc[0].Summary.Count)
		assert.InDelta(t, 7.2, byLoc[0].Summary.Mean, 1e-9)
		assert.Equal(t, "Station B", byLoc[1].Key)
	}
}
