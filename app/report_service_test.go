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

func TestComposeMarkdownSections(t *testing.T) {
	report := &AnalysisReport{
		GeneratedAt:  time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
		Bucket:       core.BucketMonth,
		Observations: 42,
		Metrics: []MetricAnalysis{
			{
				Metric:  "pm2.5",
				Unit:    "µg/m³",
				Overall: stats.SummaryStats{Count: 42, Mean: 18.2, Median: 17.5, StdDev: 4.1, Min: 9, Max: 31},
				Trend:   stats.TrendResult{Metric: "pm2.5", Bucket: "month", Direction: "increasing", Slope: 1.2, RSquared: 0.91, PValue: 0.002},
				Exceedance: &stats.ExceedanceResult{
					Metric: "pm2.5", Guideline: 15, Total: 42, Exceedances: 12,
					ExceedanceRate: 12.0 / 42.0, MaxFactor: 2.1,
				},
			},
		},
		Correlations: []stats.CorrelationResult{
			{MetricX: "pm2.5", MetricY: "pm10", Coefficient: 0.86, PValue: 0.001, N: 24, Strength: "strong"},
			{MetricX: "pm2.5", MetricY: "ph", Insufficient: true, N: 2},
		},
	}

	md := composeMarkdown(report)

	assert.Contains(t, md, "# Monitoring Summary Report")
	assert.Contains(t, md, "42 observations")
	assert.Contains(t, md, "| pm2.5 (µg/m³) | 42 |")
	assert.Contains(t, md, "## Trends")
	assert.Contains(t, md, "increasing")
	assert.Contains(t, md, "## Guideline Exceedances")
	assert.Contains(t, md, "12 of 42")
	assert.Contains(t, md, "## Correlations")
	assert.Contains(t, md, "| pm2.5 / pm10 |")
	// Insufficient pairs are left out of the correlation table.
	assert.NotContains(t, md, "pm2.5 / ph")
}

func TestReportServiceHTML(t *testing.T) {
	measurements := &MockMeasurementRepository{}
	metrics := &MockMetricRepository{}
	analysis := newAnalysisService(measurements, metrics)
	svc := NewReportService(analysis, internal.NewLogger(internal.LogLevelError))

	obs := pairedObservations(
		[]float64{10, 14, 18, 22},
		[]float64{20, 28, 36, 44},
	)
	measurements.On("Query", mock.Anything, mock.Anything).Return(obs, nil)
	metrics.On("List", mock.Anything).Return([]*catalog.MetricType{}, nil)

	html, err := svc.HTML(context.Background(), AnalysisRequest{Bucket: core.BucketMonth})
	assert.NoError(t, err)
	assert.Contains(t, string(html), "<h1")
	assert.Contains(t, string(html), "<table")
}

func TestReportServiceNoData(t *testing.T) {
	measurements := &MockMeasurementRepository{}
	metrics := &MockMetricRepository{}
	analysis := newAnalysisService(measurements, metrics)
	svc := NewReportService(analysis, internal.NewLogger(internal.LogLevelError))

	measurements.On("Query", mock.Anything, mock.Anything).Return([]stats.Observation{}, nil)

	_, err := svc.Markdown(context.Background(), AnalysisRequest{})
	assert.ErrorIs(t, err, core.ErrNoData)
}
