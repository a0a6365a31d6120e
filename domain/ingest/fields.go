package ingest

import (
	"ecosense/domain/catalog"
)

// CanonicalField is the fixed attribute name uploaded columns are mapped onto
type CanonicalField string

const (
	FieldLocation  CanonicalField = "location"
	FieldMetric    CanonicalField = "metric"
	FieldValue     CanonicalField = "value"
	FieldDate      CanonicalField = "date"
	FieldLatitude  CanonicalField = "latitude"
	FieldLongitude CanonicalField = "longitude"
	FieldOperator  CanonicalField = "operator"
	FieldEquipment CanonicalField = "equipment"
	FieldQuality   CanonicalField = "quality_flag"
	FieldNotes     CanonicalField = "notes"
	FieldSampleID  CanonicalField = "sample_id"
	FieldDistance  CanonicalField = "distance_from_source"
	FieldTaxon     CanonicalField = "taxon"
)

// fieldSpec describes one canonical field of a dataset type
type fieldSpec struct {
	Field    CanonicalField
	Required bool
	Aliases  []string
}

// Alias tables are matched case-insensitively after trimming and replacing
// spaces with underscores, so "Sampling Date" matches "sampling_date".
var environmentalFields = []fieldSpec{
	{FieldLocation, true, []string{"location", "site", "location_name", "site_name", "station"}},
	{FieldMetric, true, []string{"metric", "pollutant", "parameter", "pollutant_name", "parameter_name", "analyte"}},
	{FieldValue, true, []string{"value", "concentration", "result", "measurement", "reading"}},
	{FieldDate, true, []string{"date", "sampling_date", "measurement_date", "datetime", "timestamp"}},
	{FieldLatitude, false, []string{"latitude", "lat"}},
	{FieldLongitude, false, []string{"longitude", "lon", "lng", "long"}},
	{FieldOperator, false, []string{"operator", "sampler", "technician"}},
	{FieldEquipment, false, []string{"equipment", "equipment_used", "instrument", "method"}},
	{FieldQuality, false, []string{"quality_flag", "quality", "qc_flag", "flag"}},
	{FieldNotes, false, []string{"notes", "comments", "remarks"}},
}

var genomicFields = []fieldSpec{
	{FieldLocation, true, []string{"location", "site", "location_name", "site_name"}},
	{FieldMetric, true, []string{"metric", "index", "measure", "metric_name", "parameter"}},
	{FieldValue, true, []string{"value", "result", "count", "score"}},
	{FieldDate, true, []string{"date", "collection_date", "sampling_date", "datetime", "timestamp"}},
	{FieldSampleID, false, []string{"sample_id", "sample", "specimen_id"}},
	{FieldDistance, false, []string{"distance_from_source", "distance", "source_distance"}},
	{FieldOperator, false, []string{"operator", "collector"}},
	{FieldQuality, false, []string{"quality_flag", "quality", "flag"}},
	{FieldNotes, false, []string{"notes", "comments"}},
}

var biodiversityFields = []fieldSpec{
	{FieldLocation, true, []string{"location", "site", "location_name", "habitat"}},
	{FieldMetric, true, []string{"metric", "measure", "metric_name", "indicator"}},
	{FieldValue, true, []string{"value", "count", "abundance", "richness"}},
	{FieldDate, true, []string{"date", "survey_date", "observation_date", "datetime"}},
	{FieldTaxon, false, []string{"taxon", "species", "taxa", "species_name"}},
	{FieldOperator, false, []string{"operator", "observer", "surveyor"}},
	{FieldQuality, false, []string{"quality_flag", "quality", "flag"}},
	{FieldNotes, false, []string{"notes", "comments"}},
}

// FieldsFor returns the canonical field specs for a dataset type
func FieldsFor(dt catalog.DatasetType) []fieldSpec {
	switch dt {
	case catalog.DatasetGenomic:
		return genomicFields
	case catalog.DatasetBiodiversity:
		return biodiversityFields
	default:
		return environmentalFields
	}
}

// TemplateColumns returns the canonical column headers for a blank upload
// template, required fields first.
func TemplateColumns(dt catalog.DatasetType) []string {
	specs := FieldsFor(dt)
	cols := make([]string, 0, len(specs))
	for _, s := range specs {
		if s.Required {
			cols = append(cols, string(s.Field))
		}
	}
	for _, s := range specs {
		if !s.Required {
			cols = append(cols, string(s.Field))
		}
	}
	return cols
}
