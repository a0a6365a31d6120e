package stats

import (
	"time"

	"ecosense/domain/core"
)

// Observation is one measurement projected for analysis
type Observation struct {
	LocationID   core.LocationID
	LocationName string
	MetricID     core.MetricID
	MetricName   string
	Value        float64
	MeasuredAt   time.Time
}

// SummaryStats holds descriptive statistics for one series.
//
// StdDev is the sample standard deviation (n-1 denominator); this convention
// is fixed across the whole service.
type SummaryStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// GroupStats is a summary computed over one grouping key (a location name or
// a time-bucket start).
type GroupStats struct {
	Key     string       `json:"key"`
	Summary SummaryStats `json:"summary"`
}

// StrengthThresholds configures the categorical correlation labels. The
// defaults follow the common |r| < 0.3 weak, 0.3-0.7 moderate, > 0.7 strong
// reading; they are presentation choices, not invariants.
type StrengthThresholds struct {
	Weak   float64 `json:"weak"`
	Strong float64 `json:"strong"`
}

// DefaultThresholds returns the standard strength cutoffs
func DefaultThresholds() StrengthThresholds {
	return StrengthThresholds{Weak: 0.3, Strong: 0.7}
}

// Label classifies an absolute correlation coefficient
func (t StrengthThresholds) Label(absR float64) string {
	switch {
	case absR > t.Strong:
		return "strong"
	case absR >= t.Weak:
		return "moderate"
	default:
		return "weak"
	}
}

// CorrelationResult is one pairwise Pearson correlation. When fewer than
// MinCorrelationPairs observations could be paired, Insufficient is set and
// the numeric fields are meaningless.
type CorrelationResult struct {
	MetricX      string  `json:"metric_x"`
	MetricY      string  `json:"metric_y"`
	Coefficient  float64 `json:"coefficient"`
	PValue       float64 `json:"p_value"`
	N            int     `json:"n"`
	Strength     string  `json:"strength"`
	Insufficient bool    `json:"insufficient"`
}

// MinCorrelationPairs is the minimum paired observations for a coefficient
const MinCorrelationPairs = 3

// TrendResult describes a least-squares trend over time-bucket means
type TrendResult struct {
	Metric       string       `json:"metric"`
	Bucket       string       `json:"bucket"`
	Points       []TrendPoint `json:"points"`
	Slope        float64      `json:"slope"`
	Intercept    float64      `json:"intercept"`
	RSquared     float64      `json:"r_squared"`
	PValue       float64      `json:"p_value"`
	Direction    string       `json:"direction"`
	Insufficient bool         `json:"insufficient"`
}

// TrendPoint is one bucket mean in a trend series
type TrendPoint struct {
	Period time.Time `json:"period"`
	Mean   float64   `json:"mean"`
	Count  int       `json:"count"`
}

// ExceedanceResult reports measurements above a metric's WHO guideline
type ExceedanceResult struct {
	Metric         string  `json:"metric"`
	Guideline      float64 `json:"guideline"`
	Total          int     `json:"total"`
	Exceedances    int     `json:"exceedances"`
	ExceedanceRate float64 `json:"exceedance_rate"`
	MaxFactor      float64 `json:"max_factor"`
	Compliant      bool    `json:"compliant"`
}
