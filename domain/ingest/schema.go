package ingest

import (
	"fmt"
	"sort"
	"strings"

	"ecosense/domain/catalog"
	"ecosense/domain/core"
)

// ColumnBinding ties a canonical field to a source column index
type ColumnBinding struct {
	Field  CanonicalField `json:"field"`
	Column int            `json:"column"`
	Header string         `json:"header"`
}

// ColumnMap is the ordered result of mapping raw headers onto the canonical
// field set of a dataset type.
type ColumnMap struct {
	DatasetType catalog.DatasetType `json:"dataset_type"`
	Bindings    []ColumnBinding     `json:"bindings"`
	Ignored     []string            `json:"ignored,omitempty"`

	byField map[CanonicalField]int
}

// SchemaError reports required canonical fields that no header matched
type SchemaError struct {
	DatasetType catalog.DatasetType
	Missing     []CanonicalField
}

func (e *SchemaError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("%v: %s dataset requires columns: %s",
		core.ErrMissingColumns, e.DatasetType, strings.Join(names, ", "))
}

func (e *SchemaError) Unwrap() error { return core.ErrMissingColumns }

// normalizeHeader prepares a raw header for alias matching
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

// MapHeaders maps raw column headers onto the canonical field set for the
// dataset type. Matching is case-insensitive over the alias table; the first
// matching header wins for each field. Unmapped required fields produce a
// SchemaError; unmapped extra columns are recorded as ignored.
func MapHeaders(dt catalog.DatasetType, headers []string) (*ColumnMap, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	specs := FieldsFor(dt)
	cm := &ColumnMap{
		DatasetType: dt,
		byField:     make(map[CanonicalField]int, len(specs)),
	}
	claimed := make(map[int]bool, len(headers))

	var missing []CanonicalField
	for _, spec := range specs {
		col := -1
	search:
		for _, alias := range spec.Aliases {
			for i, h := range normalized {
				if h == alias && !claimed[i] {
					col = i
					break search
				}
			}
		}
		if col < 0 {
			if spec.Required {
				missing = append(missing, spec.Field)
			}
			continue
		}
		claimed[col] = true
		cm.Bindings = append(cm.Bindings, ColumnBinding{
			Field:  spec.Field,
			Column: col,
			Header: headers[col],
		})
		cm.byField[spec.Field] = col
	}

	if len(missing) > 0 {
		return nil, &SchemaError{DatasetType: dt, Missing: missing}
	}

	for i, h := range headers {
		if !claimed[i] && strings.TrimSpace(h) != "" {
			cm.Ignored = append(cm.Ignored, h)
		}
	}
	sort.Slice(cm.Bindings, func(a, b int) bool {
		return cm.Bindings[a].Column < cm.Bindings[b].Column
	})
	return cm, nil
}

// Column returns the source column index for a canonical field
func (cm *ColumnMap) Column(f CanonicalField) (int, bool) {
	col, ok := cm.byField[f]
	return col, ok
}

// Cell extracts the raw cell for a canonical field out of a row, returning
// "" when the field is unmapped or the row is short.
func (cm *ColumnMap) Cell(row []string, f CanonicalField) string {
	col, ok := cm.byField[f]
	if !ok || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
