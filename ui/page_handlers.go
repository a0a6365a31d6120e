package ui

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ecosense/app"
	"ecosense/domain/batch"
	"ecosense/domain/catalog"
	"ecosense/domain/core"
)

type pageData struct {
	Title  string
	Active string
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	batches, err := a.ingest.ListBatches(r.Context(), 5)
	if err != nil {
		a.logger.Error("failed to list batches for index: %v", err)
	}
	metrics, err := a.metrics.List(r.Context())
	if err != nil {
		a.logger.Error("failed to list metrics for index: %v", err)
	}

	a.renderTemplate(w, "index.html", struct {
		pageData
		RecentBatches []*batch.UploadBatch
		MetricCount   int
	}{
		pageData:      pageData{Title: "EcoSense", Active: "home"},
		RecentBatches: batches,
		MetricCount:   len(metrics),
	})
}

func (a *App) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	a.renderTemplate(w, "upload.html", struct {
		pageData
		DatasetTypes []catalog.DatasetType
	}{
		pageData: pageData{Title: "Upload Data", Active: "upload"},
		DatasetTypes: []catalog.DatasetType{
			catalog.DatasetEnvironmental,
			catalog.DatasetGenomic,
			catalog.DatasetBiodiversity,
		},
	})
}

func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	req, err := analysisRequestFromQuery(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	var report *app.AnalysisReport
	report, err = a.analysis.Analyze(r.Context(), req)
	if err != nil && !core.IsInsufficientData(err) {
		a.writeError(w, err)
		return
	}

	locations, lerr := a.locations.List(r.Context())
	if lerr != nil {
		a.logger.Error("failed to list locations for dashboard: %v", lerr)
	}

	a.renderTemplate(w, "dashboard.html", struct {
		pageData
		Report    *app.AnalysisReport
		Locations []*catalog.Location
		Bucket    string
	}{
		pageData:  pageData{Title: "Dashboard", Active: "dashboard"},
		Report:    report,
		Locations: locations,
		Bucket:    string(req.Bucket),
	})
}

func (a *App) handleBatchesPage(w http.ResponseWriter, r *http.Request) {
	batches, err := a.ingest.ListBatches(r.Context(), 50)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.renderTemplate(w, "batches.html", struct {
		pageData
		Batches []*batch.UploadBatch
	}{
		pageData: pageData{Title: "Upload History", Active: "batches"},
		Batches:  batches,
	})
}

func (a *App) handleBatchDetailPage(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseBatchID(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	b, err := a.ingest.GetBatch(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}

	var errorLines []string
	if b.ErrorLog != "" {
		errorLines = strings.Split(b.ErrorLog, "\n")
	}

	a.renderTemplate(w, "batch_detail.html", struct {
		pageData
		Batch      *batch.UploadBatch
		ErrorLines []string
	}{
		pageData:   pageData{Title: "Batch " + b.Filename, Active: "batches"},
		Batch:      b,
		ErrorLines: errorLines,
	})
}

func (a *App) handleReportPage(w http.ResponseWriter, r *http.Request) {
	req, err := analysisRequestFromQuery(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	var body template.HTML
	body, err = a.reports.HTML(r.Context(), req)
	if err != nil && !core.IsInsufficientData(err) {
		a.writeError(w, err)
		return
	}

	a.renderTemplate(w, "report.html", struct {
		pageData
		Body template.HTML
	}{
		pageData: pageData{Title: "Summary Report", Active: "report"},
		Body:     body,
	})
}
