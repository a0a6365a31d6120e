package stats

import (
	"time"

	"ecosense/domain/core"
)

// Filter restricts the measurements an analysis runs over. Zero-value fields
// are unrestricted. Invalid-flagged measurements are always excluded;
// questionable ones only when IncludeQuestionable is set.
type Filter struct {
	From                *time.Time        `json:"from,omitempty"`
	To                  *time.Time        `json:"to,omitempty"`
	LocationIDs         []core.LocationID `json:"location_ids,omitempty"`
	MetricIDs           []core.MetricID   `json:"metric_ids,omitempty"`
	IncludeQuestionable bool              `json:"include_questionable,omitempty"`
}

// IsZero reports whether the filter restricts nothing
func (f Filter) IsZero() bool {
	return f.From == nil && f.To == nil &&
		len(f.LocationIDs) == 0 && len(f.MetricIDs) == 0
}
