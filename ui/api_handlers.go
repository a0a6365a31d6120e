package ui

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ecosense/adapters/tabular"
	"ecosense/app"
	"ecosense/domain/catalog"
	"ecosense/domain/core"
	"ecosense/domain/ingest"
	apperrors "ecosense/internal/errors"
)

// handleUpload accepts a multipart file upload and runs the ingest pipeline
func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.Upload.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.cfg.Upload.MaxUploadBytes); err != nil {
		a.writeError(w, apperrors.InvalidInput(
			fmt.Sprintf("upload exceeds %d byte limit or is not multipart", a.cfg.Upload.MaxUploadBytes)))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		a.writeError(w, apperrors.InvalidInput("missing file field"))
		return
	}
	defer file.Close()

	datasetType, err := catalog.ParseDatasetType(r.FormValue("dataset_type"))
	if err != nil {
		a.writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}

	opts := app.IngestOptions{
		DatasetType: datasetType,
		UploadedBy:  r.FormValue("uploaded_by"),
		Policy: ingest.Policy{
			SkipInvalid: formBool(r, "skip_invalid", a.cfg.Upload.SkipInvalidDefault),
			StrictRange: a.cfg.Upload.StrictRange,
		},
		CreateMissingLocations: formBool(r, "create_locations", a.cfg.Upload.CreateLocationsDefault),
		Sheet:                  strings.TrimSpace(r.FormValue("sheet")),
	}

	result, err := a.ingest.Ingest(r.Context(), header.Filename, header.Size, file, opts)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, result)
}

// handleAnalysis returns the aggregation payload as JSON. The type query
// parameter narrows the payload to one analysis kind; without it the full
// report is returned.
func (a *App) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	req, err := analysisRequestFromQuery(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	report, err := a.analysis.Analyze(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}

	switch kind := r.URL.Query().Get("type"); kind {
	case "", "full":
		a.writeJSON(w, http.StatusOK, report)
	case "descriptive":
		out := make(map[string]interface{}, len(report.Metrics))
		for _, ma := range report.Metrics {
			out[ma.Metric] = map[string]interface{}{
				"overall":     ma.Overall,
				"by_location": ma.ByLocation,
				"by_period":   ma.ByPeriod,
			}
		}
		a.writeJSON(w, http.StatusOK, out)
	case "correlation":
		a.writeJSON(w, http.StatusOK, map[string]interface{}{
			"bucket":       report.Bucket,
			"correlations": report.Correlations,
		})
	case "trend":
		trends := make([]interface{}, 0, len(report.Metrics))
		for _, ma := range report.Metrics {
			trends = append(trends, ma.Trend)
		}
		a.writeJSON(w, http.StatusOK, map[string]interface{}{"trends": trends})
	case "exceedance":
		var out []interface{}
		for _, ma := range report.Metrics {
			if ma.Exceedance != nil {
				out = append(out, ma.Exceedance)
			}
		}
		a.writeJSON(w, http.StatusOK, map[string]interface{}{"exceedances": out})
	default:
		a.writeError(w, apperrors.InvalidInput(fmt.Sprintf("unknown analysis type %q", kind)))
	}
}

func (a *App) handleListBatches(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	batches, err := a.ingest.ListBatches(r.Context(), limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"batches": batches,
		"count":   len(batches),
	})
}

func (a *App) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseBatchID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}
	b, err := a.ingest.GetBatch(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, b)
}

func (a *App) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseBatchID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}
	if err := a.ingest.DeleteBatch(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := a.locations.List(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"locations": locations,
		"count":     len(locations),
	})
}

func (a *App) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := a.metrics.List(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"metrics": metrics,
		"count":   len(metrics),
	})
}

// handleTemplate serves a blank upload template for a dataset type
func (a *App) handleTemplate(w http.ResponseWriter, r *http.Request) {
	datasetType, err := catalog.ParseDatasetType(chi.URLParam(r, "type"))
	if err != nil {
		a.writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}

	format := tabular.TemplateCSV
	if r.URL.Query().Get("format") == "xlsx" {
		format = tabular.TemplateXLSX
	}

	filename := fmt.Sprintf("%s_template.%s", datasetType, format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if format == tabular.TemplateXLSX {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	} else {
		w.Header().Set("Content-Type", "text/csv")
	}

	if err := tabular.WriteTemplate(w, datasetType, format); err != nil {
		a.logger.Error("failed to write template: %v", err)
	}
}

// handleReportDownload serves the markdown summary report
func (a *App) handleReportDownload(w http.ResponseWriter, r *http.Request) {
	req, err := analysisRequestFromQuery(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	md, err := a.reports.Markdown(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="monitoring_report.md"`)
	fmt.Fprint(w, md)
}

func formBool(r *http.Request, field string, fallback bool) bool {
	raw := r.FormValue(field)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

// analysisRequestFromQuery builds an analysis request from query parameters:
// from, to (date or RFC3339), location_id and metric_id (repeatable),
// include_questionable, bucket.
func analysisRequestFromQuery(r *http.Request) (app.AnalysisRequest, error) {
	q := r.URL.Query()
	req := app.AnalysisRequest{Bucket: core.ParseTimeBucket(q.Get("bucket"))}

	if raw := q.Get("from"); raw != "" {
		t, err := parseQueryTime(raw)
		if err != nil {
			return req, apperrors.InvalidInput(fmt.Sprintf("invalid from %q", raw))
		}
		req.Filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := parseQueryTime(raw)
		if err != nil {
			return req, apperrors.InvalidInput(fmt.Sprintf("invalid to %q", raw))
		}
		req.Filter.To = &t
	}
	for _, raw := range q["location_id"] {
		id, err := core.ParseLocationID(raw)
		if err != nil {
			return req, apperrors.InvalidInput(err.Error())
		}
		req.Filter.LocationIDs = append(req.Filter.LocationIDs, id)
	}
	for _, raw := range q["metric_id"] {
		id, err := core.ParseMetricID(raw)
		if err != nil {
			return req, apperrors.InvalidInput(err.Error())
		}
		req.Filter.MetricIDs = append(req.Filter.MetricIDs, id)
	}
	if raw := q.Get("include_questionable"); raw != "" {
		req.Filter.IncludeQuestionable, _ = strconv.ParseBool(raw)
	}
	return req, nil
}

func parseQueryTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
