package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	BatchID       ID
	LocationID    ID
	MetricID      ID
	MeasurementID ID
)

func (id BatchID) String() string       { return ID(id).String() }
func (id LocationID) String() string    { return ID(id).String() }
func (id MetricID) String() string      { return ID(id).String() }
func (id MeasurementID) String() string { return ID(id).String() }

// ParseBatchID parses a string into BatchID
func ParseBatchID(s string) (BatchID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("batch ID cannot be empty")
	}
	return BatchID(s), nil
}

// ParseLocationID parses a string into LocationID
func ParseLocationID(s string) (LocationID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("location ID cannot be empty")
	}
	return LocationID(s), nil
}

// ParseMetricID parses a string into MetricID
func ParseMetricID(s string) (MetricID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("metric ID cannot be empty")
	}
	return MetricID(s), nil
}
