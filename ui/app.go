package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ecosense/app"
	"ecosense/internal"
	"ecosense/internal/config"
	"ecosense/ports"
)

//go:embed templates/* static/*
var embeddedFiles embed.FS

// App wires the HTTP surface: pages, API endpoints, static assets
type App struct {
	router    *chi.Mux
	templates *template.Template
	logger    *internal.Logger

	cfg       *config.Config
	ingest    *app.IngestService
	analysis  *app.AnalysisService
	reports   *app.ReportService
	locations ports.LocationRepository
	metrics   ports.MetricRepository
}

// NewApp creates the UI application
func NewApp(
	cfg *config.Config,
	ingest *app.IngestService,
	analysis *app.AnalysisService,
	reports *app.ReportService,
	locations ports.LocationRepository,
	metrics ports.MetricRepository,
	logger *internal.Logger,
) (*App, error) {
	funcMap := template.FuncMap{
		"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
		"num": func(f float64) string { return fmt.Sprintf("%.3f", f) },
		"add": func(a, b int) int { return a + b },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		templates: templates,
		logger:    logger,
		cfg:       cfg,
		ingest:    ingest,
		analysis:  analysis,
		reports:   reports,
		locations: locations,
		metrics:   metrics,
	}

	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))

	staticFS := http.FileServer(http.FS(embeddedFiles))
	a.router.Handle("/static/*", staticFS)
}

func (a *App) setupRoutes() {
	// Pages
	a.router.Get("/", a.handleIndex)
	a.router.Get("/upload", a.handleUploadPage)
	a.router.Get("/dashboard", a.handleDashboard)
	a.router.Get("/analysis", a.handleDashboard)
	a.router.Get("/batches", a.handleBatchesPage)
	a.router.Get("/batches/{id}", a.handleBatchDetailPage)
	a.router.Get("/report", a.handleReportPage)

	// API endpoints
	a.router.Post("/api/upload", a.handleUpload)
	a.router.Get("/api/analysis", a.handleAnalysis)
	a.router.Get("/api/batches", a.handleListBatches)
	a.router.Get("/api/batches/{id}", a.handleGetBatch)
	a.router.Delete("/api/batches/{id}", a.handleDeleteBatch)
	a.router.Get("/api/locations", a.handleListLocations)
	a.router.Get("/api/metrics", a.handleListMetrics)
	a.router.Get("/api/template/{type}", a.handleTemplate)
	a.router.Get("/api/report", a.handleReportDownload)
}

// Start runs the HTTP server on the configured port
func (a *App) Start() error {
	addr := ":" + a.cfg.Server.Port
	a.logger.Info("starting server on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

// Router exposes the mux for tests
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, name, data); err != nil {
		a.logger.Error("template %s: %v", name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}
