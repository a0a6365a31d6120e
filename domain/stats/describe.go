package stats

import (
	"math"

	montana "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Describe computes descriptive statistics for a series. An empty series
// returns a zero-count summary rather than an error.
func Describe(values []float64) SummaryStats {
	if len(values) == 0 {
		return SummaryStats{}
	}

	data := montana.Float64Data(values)
	mean, _ := montana.Mean(data)
	median, _ := montana.Median(data)
	min, _ := montana.Min(data)
	max, _ := montana.Max(data)
	q25, _ := montana.Percentile(data, 25)
	q75, _ := montana.Percentile(data, 75)

	// Sample std needs n >= 2; a singleton has zero spread.
	stdDev := 0.0
	if len(values) > 1 {
		stdDev, _ = montana.StandardDeviationSample(data)
	}

	return SummaryStats{
		Count:  len(values),
		Mean:   mean,
		Median: median,
		StdDev: stdDev,
		Min:    min,
		Max:    max,
		Q25:    q25,
		Q75:    q75,
	}
}

// Correlate computes the Pearson correlation between two paired series with a
// two-tailed p-value from the t distribution. Fewer than MinCorrelationPairs
// pairs yields an insufficient-data result, never an error.
func Correlate(metricX, metricY string, x, y []float64, thresholds StrengthThresholds) CorrelationResult {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < MinCorrelationPairs {
		return CorrelationResult{MetricX: metricX, MetricY: metricY, N: n, Insufficient: true}
	}
	x, y = x[:n], y[:n]

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		// Zero-variance series have no defined correlation.
		return CorrelationResult{MetricX: metricX, MetricY: metricY, N: n, Insufficient: true}
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}

	return CorrelationResult{
		MetricX:     metricX,
		MetricY:     metricY,
		Coefficient: r,
		PValue:      correlationPValue(r, n),
		N:           n,
		Strength:    thresholds.Label(math.Abs(r)),
	}
}

// correlationPValue computes the two-tailed p-value for Pearson r via the
// t statistic r*sqrt((n-2)/(1-r^2)) with n-2 degrees of freedom.
func correlationPValue(r float64, n int) float64 {
	df := float64(n - 2)
	if df <= 0 {
		return 1
	}
	denom := 1 - r*r
	if denom <= 0 {
		return 0
	}
	t := math.Abs(r) * math.Sqrt(df/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(t)
	if p > 1 {
		p = 1
	}
	return p
}

// Trend fits a least-squares line through bucket means. Points must be in
// chronological order. Fewer than 3 points yields an insufficient result.
func Trend(metric, bucket string, points []TrendPoint) TrendResult {
	res := TrendResult{Metric: metric, Bucket: bucket, Points: points}
	if len(points) < 3 {
		res.Insufficient = true
		return res
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(i)
		ys[i] = p.Mean
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, intercept, slope)

	res.Slope = slope
	res.Intercept = intercept
	res.RSquared = r2
	res.PValue = slopePValue(xs, ys, intercept, slope)

	switch {
	case slope > 0:
		res.Direction = "increasing"
	case slope < 0:
		res.Direction = "decreasing"
	default:
		res.Direction = "stable"
	}
	return res
}

// slopePValue computes the two-tailed p-value of the regression slope
func slopePValue(xs, ys []float64, intercept, slope float64) float64 {
	n := len(xs)
	if n <= 2 {
		return 1
	}

	ssRes := 0.0
	for i := range xs {
		resid := ys[i] - (intercept + slope*xs[i])
		ssRes += resid * resid
	}
	xMean := stat.Mean(xs, nil)
	ssX := 0.0
	for _, x := range xs {
		d := x - xMean
		ssX += d * d
	}
	if ssX == 0 {
		return 1
	}

	mse := ssRes / float64(n-2)
	se := math.Sqrt(mse / ssX)
	if se == 0 {
		return 0
	}

	t := math.Abs(slope) / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	p := 2 * dist.Survival(t)
	if p > 1 {
		p = 1
	}
	return p
}
