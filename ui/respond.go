package ui

import (
	"encoding/json"
	"errors"
	"net/http"

	"ecosense/domain/core"
	apperrors "ecosense/internal/errors"
)

func (a *App) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps domain and application errors onto HTTP statuses
func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch apperrors.GetCode(err) {
	case apperrors.CodeUnsupportedFormat:
		status = http.StatusUnsupportedMediaType
	case apperrors.CodeSchemaError, apperrors.CodeValidationError, apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	}

	switch {
	case core.IsNotFoundError(err):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrMissingColumns):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrBatchImmutable):
		status = http.StatusConflict
	case errors.Is(err, core.ErrNoData):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		a.logger.Error("request failed: %v", err)
	}
	// Bare sentinel errors carry no code; the field is omitted rather than
	// reported as UNKNOWN.
	var code string
	if apperrors.IsAppError(err) {
		code = apperrors.GetCode(err)
	}
	a.writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}
