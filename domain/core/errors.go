package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrBatchNotFound    = fmt.Errorf("%w: upload batch", ErrNotFound)
	ErrLocationNotFound = fmt.Errorf("%w: location", ErrNotFound)
	ErrMetricNotFound   = fmt.Errorf("%w: metric type", ErrNotFound)

	// Ingestion errors
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingColumns    = errors.New("required columns not mapped")
	ErrBatchImmutable    = errors.New("completed batch cannot be modified")

	// Analysis errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrNoData           = errors.New("no measurements match the filter")
)

// NewValidationError describes a per-field validation failure
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// IsNotFoundError reports whether err is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInsufficientData reports whether err signals too few observations
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrNoData)
}
