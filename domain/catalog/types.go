package catalog

import (
	"fmt"
	"strings"

	"ecosense/domain/core"
)

// DatasetType declares what kind of data an upload contains. The schema
// mapper selects its canonical field set from this.
type DatasetType string

const (
	DatasetEnvironmental DatasetType = "environmental"
	DatasetGenomic       DatasetType = "genomic"
	DatasetBiodiversity  DatasetType = "biodiversity"
)

// ParseDatasetType validates a dataset type string
func ParseDatasetType(s string) (DatasetType, error) {
	switch DatasetType(strings.ToLower(strings.TrimSpace(s))) {
	case DatasetEnvironmental:
		return DatasetEnvironmental, nil
	case DatasetGenomic:
		return DatasetGenomic, nil
	case DatasetBiodiversity:
		return DatasetBiodiversity, nil
	default:
		return "", fmt.Errorf("unknown dataset type: %q", s)
	}
}

// SiteType categorizes a sampling location
type SiteType string

const (
	SiteIndustrial   SiteType = "industrial"
	SiteResidential  SiteType = "residential"
	SiteAgricultural SiteType = "agricultural"
	SiteForest       SiteType = "forest"
	SiteUrban        SiteType = "urban"
	SiteRural        SiteType = "rural"
	SiteCoastal      SiteType = "coastal"
	SiteOther        SiteType = "other"
)

// ParseSiteType maps a string onto a known site type, defaulting to other
func ParseSiteType(s string) SiteType {
	switch SiteType(strings.ToLower(strings.TrimSpace(s))) {
	case SiteIndustrial, SiteResidential, SiteAgricultural, SiteForest,
		SiteUrban, SiteRural, SiteCoastal:
		return SiteType(strings.ToLower(strings.TrimSpace(s)))
	default:
		return SiteOther
	}
}

// QualityFlag marks the validation outcome attached to a measurement
type QualityFlag string

const (
	QualityValid        QualityFlag = "valid"
	QualityQuestionable QualityFlag = "questionable"
	QualityInvalid      QualityFlag = "invalid"
)

// ParseQualityFlag validates a quality flag string
func ParseQualityFlag(s string) (QualityFlag, error) {
	switch QualityFlag(strings.ToLower(strings.TrimSpace(s))) {
	case QualityValid:
		return QualityValid, nil
	case QualityQuestionable:
		return QualityQuestionable, nil
	case QualityInvalid:
		return QualityInvalid, nil
	default:
		return "", fmt.Errorf("unknown quality flag: %q", s)
	}
}

// MetricCategory groups metric types for dashboard display
type MetricCategory string

const (
	CategoryAirQuality      MetricCategory = "air_quality"
	CategoryHeavyMetal      MetricCategory = "heavy_metal"
	CategoryOrganicCompound MetricCategory = "organic_compound"
	CategoryParticulate     MetricCategory = "particulate"
	CategoryGas             MetricCategory = "gas"
	CategoryWater           MetricCategory = "water"
	CategoryGenomic         MetricCategory = "genomic"
	CategoryBiodiversity    MetricCategory = "biodiversity"
	CategoryOther           MetricCategory = "other"
)

// Location is a sampling site. Locations are matched by exact name and never
// deleted while measurements reference them.
type Location struct {
	ID        core.LocationID `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Latitude  *float64        `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64        `db:"longitude" json:"longitude,omitempty"`
	SiteType  SiteType        `db:"site_type" json:"site_type"`
	CreatedAt core.Timestamp  `db:"created_at" json:"created_at"`
}

// NewLocation constructs a location with a fresh ID
func NewLocation(name string, lat, lon *float64, siteType SiteType) (*Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, core.NewValidationError("name", "location name cannot be empty")
	}
	if lat != nil && (*lat < -90 || *lat > 90) {
		return nil, core.NewValidationError("latitude", fmt.Sprintf("%.4f outside [-90, 90]", *lat))
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return nil, core.NewValidationError("longitude", fmt.Sprintf("%.4f outside [-180, 180]", *lon))
	}
	if siteType == "" {
		siteType = SiteOther
	}
	return &Location{
		ID:        core.LocationID(core.NewID()),
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
		SiteType:  siteType,
		CreatedAt: core.Now(),
	}, nil
}

// MetricType is a reference-table entry describing one measurable quantity
// (a pollutant, a genomic index, a biodiversity count). Uploads are matched
// against the seeded table; unmatched metric names are row errors, never
// auto-created.
type MetricType struct {
	ID           core.MetricID  `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Unit         string         `db:"unit" json:"unit"`
	Category     MetricCategory `db:"category" json:"category"`
	WHOGuideline *float64       `db:"who_guideline" json:"who_guideline,omitempty"`
	CreatedAt    core.Timestamp `db:"created_at" json:"created_at"`
}

// CanonicalName normalizes a metric name for case-insensitive matching
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
