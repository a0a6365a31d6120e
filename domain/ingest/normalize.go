package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"ecosense/domain/catalog"
)

// Accepted date formats, tried in order; first successful parse wins.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
}

// Policy configures row-level validation behavior
type Policy struct {
	// SkipInvalid skips rows with per-row errors instead of failing the batch
	SkipInvalid bool
	// StrictRange rejects out-of-range values instead of flagging questionable
	StrictRange bool
}

// DefaultPolicy matches the upload form defaults
func DefaultPolicy() Policy {
	return Policy{SkipInvalid: true, StrictRange: false}
}

// Record is the typed output of normalizing one source row
type Record struct {
	Row          int
	LocationName string
	Latitude     *float64
	Longitude    *float64
	MetricName   string
	Value        float64
	MeasuredAt   time.Time
	Quality      catalog.QualityFlag
	Operator     *string
	Equipment    *string
	Notes        *string
}

// RowError describes why a source row could not be normalized. Row indices
// are 1-based over data rows (the header is row 0).
type RowError struct {
	Row     int            `json:"row"`
	Field   CanonicalField `json:"field"`
	Value   string         `json:"value"`
	Message string         `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s %q: %s", e.Row, e.Field, e.Value, e.Message)
}

// Normalizer applies per-row coercion and validation against a column map
type Normalizer struct {
	columns *ColumnMap
	policy  Policy
}

// NewNormalizer builds a normalizer for one mapped upload
func NewNormalizer(columns *ColumnMap, policy Policy) *Normalizer {
	return &Normalizer{columns: columns, policy: policy}
}

// NormalizeRow coerces one raw row into a Record. rowIdx is the 1-based data
// row number used in error reporting.
func (n *Normalizer) NormalizeRow(rowIdx int, row []string) (*Record, *RowError) {
	rec := &Record{Row: rowIdx, Quality: catalog.QualityValid}

	rec.LocationName = n.columns.Cell(row, FieldLocation)
	if rec.LocationName == "" {
		return nil, &RowError{Row: rowIdx, Field: FieldLocation, Message: "required field is empty"}
	}

	rec.MetricName = n.columns.Cell(row, FieldMetric)
	if rec.MetricName == "" {
		return nil, &RowError{Row: rowIdx, Field: FieldMetric, Message: "required field is empty"}
	}

	rawValue := n.columns.Cell(row, FieldValue)
	if rawValue == "" {
		return nil, &RowError{Row: rowIdx, Field: FieldValue, Message: "required field is empty"}
	}
	value, ok := CleanNumeric(rawValue)
	if !ok {
		return nil, &RowError{Row: rowIdx, Field: FieldValue, Value: rawValue, Message: "not a numeric value"}
	}
	rec.Value = value

	rawDate := n.columns.Cell(row, FieldDate)
	if rawDate == "" {
		return nil, &RowError{Row: rowIdx, Field: FieldDate, Message: "required field is empty"}
	}
	measuredAt, ok := ParseDate(rawDate)
	if !ok {
		return nil, &RowError{Row: rowIdx, Field: FieldDate, Value: rawDate, Message: "unrecognized date format"}
	}
	rec.MeasuredAt = measuredAt

	// Negative concentrations are flagged questionable rather than rejected,
	// unless strict mode is on.
	if value < 0 {
		if n.policy.StrictRange {
			return nil, &RowError{Row: rowIdx, Field: FieldValue, Value: rawValue, Message: "negative value rejected in strict mode"}
		}
		rec.Quality = catalog.QualityQuestionable
	}

	if raw := n.columns.Cell(row, FieldQuality); raw != "" {
		if flag, err := catalog.ParseQualityFlag(raw); err == nil {
			// An explicit source flag never upgrades a questionable row.
			if rec.Quality == catalog.QualityValid || flag == catalog.QualityInvalid {
				rec.Quality = flag
			}
		}
	}

	if raw := n.columns.Cell(row, FieldLatitude); raw != "" {
		if v, ok := CleanNumeric(raw); ok && v >= -90 && v <= 90 {
			rec.Latitude = &v
		}
	}
	if raw := n.columns.Cell(row, FieldLongitude); raw != "" {
		if v, ok := CleanNumeric(raw); ok && v >= -180 && v <= 180 {
			rec.Longitude = &v
		}
	}

	rec.Operator = optionalText(n.columns.Cell(row, FieldOperator))
	rec.Equipment = optionalText(n.columns.Cell(row, FieldEquipment))
	rec.Notes = optionalText(n.contextNotes(row))

	return rec, nil
}

// contextNotes appends dataset-specific context columns that have no
// dedicated measurement attribute (sample id, source distance, taxon) onto
// the notes text as key=value annotations.
func (n *Normalizer) contextNotes(row []string) string {
	notes := n.columns.Cell(row, FieldNotes)
	var extra []string
	for _, f := range []CanonicalField{FieldSampleID, FieldDistance, FieldTaxon} {
		if v := n.columns.Cell(row, f); v != "" {
			extra = append(extra, fmt.Sprintf("%s=%s", f, v))
		}
	}
	if len(extra) == 0 {
		return notes
	}
	joined := strings.Join(extra, "; ")
	if notes == "" {
		return joined
	}
	return notes + "; " + joined
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CleanNumeric coerces a raw cell into a float. It tolerates comparison
// prefixes ("<0.5"), thousands separators, percent signs, and trailing unit
// text ("12.3 mg/L").
func CleanNumeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	for _, prefix := range []string{"<", ">", "≤", "≥", "<=", ">="} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimSpace(s)

	// Drop a trailing unit annotation: first token must carry the number.
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ParseDate parses a date string against the accepted format list
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
