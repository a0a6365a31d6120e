package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"ecosense/domain/catalog"
	"ecosense/domain/core"
	"ecosense/domain/stats"
	"ecosense/internal"
	"ecosense/ports"
)

// AnalysisRequest selects the data and granularity for one analysis run
type AnalysisRequest struct {
	Filter stats.Filter
	Bucket core.TimeBucket
}

// MetricAnalysis aggregates everything computed for one metric
type MetricAnalysis struct {
	Metric     string                  `json:"metric"`
	Unit       string                  `json:"unit,omitempty"`
	Overall    stats.SummaryStats      `json:"overall"`
	ByLocation []stats.GroupStats      `json:"by_location"`
	ByPeriod   []stats.GroupStats      `json:"by_period"`
	Trend      stats.TrendResult       `json:"trend"`
	Exceedance *stats.ExceedanceResult `json:"exceedance,omitempty"`
}

// AnalysisReport is the full aggregation payload behind the dashboard
type AnalysisReport struct {
	GeneratedAt  time.Time                 `json:"generated_at"`
	Bucket       core.TimeBucket           `json:"bucket"`
	Observations int                       `json:"observations"`
	Metrics      []MetricAnalysis          `json:"metrics"`
	Correlations []stats.CorrelationResult `json:"correlations"`
}

// AnalysisService computes descriptive statistics, trends, guideline
// exceedances, and pairwise correlations over persisted measurements.
type AnalysisService struct {
	measurements ports.MeasurementRepository
	metrics      ports.MetricRepository
	thresholds   stats.StrengthThresholds
	maxPairs     int
	logger       *internal.Logger
}

// NewAnalysisService creates the aggregation service. maxConcurrentPairs
// bounds the correlation fan-out.
func NewAnalysisService(
	measurements ports.MeasurementRepository,
	metrics ports.MetricRepository,
	thresholds stats.StrengthThresholds,
	maxConcurrentPairs int,
	logger *internal.Logger,
) *AnalysisService {
	if maxConcurrentPairs < 1 {
		maxConcurrentPairs = 1
	}
	return &AnalysisService{
		measurements: measurements,
		metrics:      metrics,
		thresholds:   thresholds,
		maxPairs:     maxConcurrentPairs,
		logger:       logger,
	}
}

// Analyze runs the full aggregation over measurements matching the filter.
// When nothing matches it returns ErrNoData so callers can render an empty
// state instead of a zeroed report.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisReport, error) {
	observations, err := s.measurements.Query(ctx, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}
	if len(observations) == 0 {
		return nil, core.ErrNoData
	}

	bucket := req.Bucket
	if bucket == "" {
		bucket = core.BucketMonth
	}

	guidelines, err := s.guidelineIndex(ctx)
	if err != nil {
		return nil, err
	}

	byMetric := groupByMetric(observations)
	metricNames := sortedKeys(byMetric)

	report := &AnalysisReport{
		GeneratedAt:  time.Now().UTC(),
		Bucket:       bucket,
		Observations: len(observations),
		Metrics:      make([]MetricAnalysis, 0, len(metricNames)),
	}

	for _, name := range metricNames {
		obs := byMetric[name]
		ma := MetricAnalysis{
			Metric:     name,
			Overall:    stats.Describe(values(obs)),
			ByLocation: groupStatsBy(obs, func(o stats.Observation) string { return o.LocationName }),
			ByPeriod: groupStatsBy(obs, func(o stats.Observation) string {
				return bucket.Truncate(o.MeasuredAt).Format("2006-01-02")
			}),
		}
		points := trendPoints(obs, bucket)
		ma.Trend = stats.Trend(name, string(bucket), points)
		if mt, ok := guidelines[catalog.CanonicalName(name)]; ok {
			ma.Unit = mt.Unit
			if mt.WHOGuideline != nil {
				ex := exceedance(name, *mt.WHOGuideline, values(obs))
				ma.Exceedance = &ex
			}
		}
		report.Metrics = append(report.Metrics, ma)
	}

	report.Correlations, err = s.correlations(ctx, observations, bucket, metricNames)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("analysis: %d observations, %d metrics, %d correlation pairs",
		len(observations), len(metricNames), len(report.Correlations))
	return report, nil
}

// Correlations computes pairwise correlations only, for callers that do not
// need the full report.
func (s *AnalysisService) Correlations(ctx context.Context, filter stats.Filter, bucket core.TimeBucket) ([]stats.CorrelationResult, error) {
	observations, err := s.measurements.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}
	if len(observations) == 0 {
		return nil, core.ErrNoData
	}
	if bucket == "" {
		bucket = core.BucketMonth
	}
	return s.correlations(ctx, observations, bucket, sortedKeys(groupByMetric(observations)))
}

// correlations pairs metric series on shared (location, period) cells and
// computes each pair concurrently, bounded by maxPairs.
func (s *AnalysisService) correlations(ctx context.Context, observations []stats.Observation, bucket core.TimeBucket, metricNames []string) ([]stats.CorrelationResult, error) {
	if len(metricNames) < 2 {
		return nil, nil
	}

	cells := cellMeans(observations, bucket)

	type pair struct{ x, y string }
	var pairs []pair
	for i := 0; i < len(metricNames); i++ {
		for j := i + 1; j < len(metricNames); j++ {
			pairs = append(pairs, pair{metricNames[i], metricNames[j]})
		}
	}

	results := make([]stats.CorrelationResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxPairs)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			xs, ys := pairedSeries(cells, p.x, p.y)
			results[i] = stats.Correlate(p.x, p.y, xs, ys, s.thresholds)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// guidelineIndex loads the metric reference table keyed by canonical name
func (s *AnalysisService) guidelineIndex(ctx context.Context) (map[string]*catalog.MetricType, error) {
	list, err := s.metrics.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load metric types: %w", err)
	}
	index := make(map[string]*catalog.MetricType, len(list))
	for _, mt := range list {
		index[catalog.CanonicalName(mt.Name)] = mt
	}
	return index, nil
}

func groupByMetric(observations []stats.Observation) map[string][]stats.Observation {
	grouped := make(map[string][]stats.Observation)
	for _, o := range observations {
		grouped[o.MetricName] = append(grouped[o.MetricName], o)
	}
	return grouped
}

func values(observations []stats.Observation) []float64 {
	vs := make([]float64, len(observations))
	for i, o := range observations {
		vs[i] = o.Value
	}
	return vs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// groupStatsBy summarizes observations per grouping key, keys sorted
func groupStatsBy(observations []stats.Observation, keyOf func(stats.Observation) string) []stats.GroupStats {
	grouped := make(map[string][]float64)
	for _, o := range observations {
		k := keyOf(o)
		grouped[k] = append(grouped[k], o.Value)
	}
	out := make([]stats.GroupStats, 0, len(grouped))
	for _, k := range sortedKeys(grouped) {
		out = append(out, stats.GroupStats{Key: k, Summary: stats.Describe(grouped[k])})
	}
	return out
}

// trendPoints buckets observations and returns chronological bucket means
func trendPoints(observations []stats.Observation, bucket core.TimeBucket) []stats.TrendPoint {
	type acc struct {
		sum   float64
		count int
	}
	buckets := make(map[time.Time]*acc)
	for _, o := range observations {
		period := bucket.Truncate(o.MeasuredAt)
		a, ok := buckets[period]
		if !ok {
			a = &acc{}
			buckets[period] = a
		}
		a.sum += o.Value
		a.count++
	}

	points := make([]stats.TrendPoint, 0, len(buckets))
	for period, a := range buckets {
		points = append(points, stats.TrendPoint{
			Period: period,
			Mean:   a.sum / float64(a.count),
			Count:  a.count,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Period.Before(points[j].Period) })
	return points
}

// exceedance counts measurements above a guideline
func exceedance(metric string, guideline float64, vs []float64) stats.ExceedanceResult {
	res := stats.ExceedanceResult{Metric: metric, Guideline: guideline, Total: len(vs)}
	if guideline <= 0 || len(vs) == 0 {
		res.Compliant = true
		return res
	}
	for _, v := range vs {
		if v > guideline {
			res.Exceedances++
		}
		if factor := v / guideline; factor > res.MaxFactor {
			res.MaxFactor = factor
		}
	}
	res.ExceedanceRate = float64(res.Exceedances) / float64(res.Total)
	res.Compliant = res.Exceedances == 0
	return res
}

// cellMeans averages each metric inside every (location, period) cell. The
// cells are the pairing unit for correlation: two metrics correlate over the
// cells where both were measured.
func cellMeans(observations []stats.Observation, bucket core.TimeBucket) map[string]map[string]float64 {
	type acc struct {
		sum   float64
		count int
	}
	accs := make(map[string]map[string]*acc)
	for _, o := range observations {
		cell := fmt.Sprintf("%s|%s", o.LocationID, bucket.Truncate(o.MeasuredAt).Format("2006-01-02"))
		byMetric, ok := accs[cell]
		if !ok {
			byMetric = make(map[string]*acc)
			accs[cell] = byMetric
		}
		a, ok := byMetric[o.MetricName]
		if !ok {
			a = &acc{}
			byMetric[o.MetricName] = a
		}
		a.sum += o.Value
		a.count++
	}

	means := make(map[string]map[string]float64, len(accs))
	for cell, byMetric := range accs {
		m := make(map[string]float64, len(byMetric))
		for name, a := range byMetric {
			m[name] = a.sum / float64(a.count)
		}
		means[cell] = m
	}
	return means
}

// pairedSeries extracts aligned value series for two metrics over the cells
// where both are present, in deterministic cell order.
func pairedSeries(cells map[string]map[string]float64, metricX, metricY string) ([]float64, []float64) {
	var shared []string
	for cell, byMetric := range cells {
		if _, okX := byMetric[metricX]; !okX {
			continue
		}
		if _, okY := byMetric[metricY]; !okY {
			continue
		}
		shared = append(shared, cell)
	}
	sort.Strings(shared)

	xs := make([]float64, len(shared))
	ys := make([]float64, len(shared))
	for i, cell := range shared {
		xs[i] = cells[cell][metricX]
		ys[i] = cells[cell][metricY]
	}
	return xs, ys
}
