package app

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"ecosense/domain/stats"
	"ecosense/internal"
)

// ReportService turns an analysis run into a human-readable summary report.
// The report is composed as markdown and rendered to HTML for the browser;
// the markdown source is also served raw for download.
type ReportService struct {
	analysis *AnalysisService
	logger   *internal.Logger
}

// NewReportService creates the report composer
func NewReportService(analysis *AnalysisService, logger *internal.Logger) *ReportService {
	return &ReportService{analysis: analysis, logger: logger}
}

// Markdown runs the analysis and composes the markdown report source
func (s *ReportService) Markdown(ctx context.Context, req AnalysisRequest) (string, error) {
	report, err := s.analysis.Analyze(ctx, req)
	if err != nil {
		return "", err
	}
	return composeMarkdown(report), nil
}

// HTML runs the analysis and renders the report for embedding in a page
func (s *ReportService) HTML(ctx context.Context, req AnalysisRequest) (template.HTML, error) {
	md, err := s.Markdown(ctx, req)
	if err != nil {
		return "", err
	}
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return template.HTML(markdown.Render(doc, renderer)), nil
}

// composeMarkdown lays out the report sections. Only sections with content
// are emitted.
func composeMarkdown(report *AnalysisReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Monitoring Summary Report\n\n")
	fmt.Fprintf(&b, "Generated %s over %d observations (%s buckets).\n\n",
		report.GeneratedAt.Format("2006-01-02 15:04 UTC"), report.Observations, report.Bucket)

	b.WriteString("## Descriptive Statistics\n\n")
	b.WriteString("| Metric | N | Mean | Median | Std Dev | Min | Max |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, ma := range report.Metrics {
		o := ma.Overall
		fmt.Fprintf(&b, "| %s | %d | %.3f | %.3f | %.3f | %.3f | %.3f |\n",
			metricLabel(ma), o.Count, o.Mean, o.Median, o.StdDev, o.Min, o.Max)
	}
	b.WriteString("\n")

	if section := trendSection(report); section != "" {
		b.WriteString(section)
	}
	if section := exceedanceSection(report); section != "" {
		b.WriteString(section)
	}
	if section := correlationSection(report.Correlations); section != "" {
		b.WriteString(section)
	}

	return b.String()
}

func metricLabel(ma MetricAnalysis) string {
	if ma.Unit != "" {
		return fmt.Sprintf("%s (%s)", ma.Metric, ma.Unit)
	}
	return ma.Metric
}

func trendSection(report *AnalysisReport) string {
	var b strings.Builder
	for _, ma := range report.Metrics {
		t := ma.Trend
		if t.Insufficient {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("## Trends\n\n")
		}
		fmt.Fprintf(&b, "- **%s**: %s (slope %.4f per %s, R² %.3f, p = %.4f)\n",
			ma.Metric, t.Direction, t.Slope, t.Bucket, t.RSquared, t.PValue)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func exceedanceSection(report *AnalysisReport) string {
	var b strings.Builder
	for _, ma := range report.Metrics {
		ex := ma.Exceedance
		if ex == nil {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("## Guideline Exceedances\n\n")
		}
		if ex.Compliant {
			fmt.Fprintf(&b, "- **%s**: compliant, all %d measurements within the guideline of %.3f\n",
				ex.Metric, ex.Total, ex.Guideline)
			continue
		}
		fmt.Fprintf(&b, "- **%s**: %d of %d measurements (%.1f%%) above the guideline of %.3f, worst at %.1fx\n",
			ex.Metric, ex.Exceedances, ex.Total, ex.ExceedanceRate*100, ex.Guideline, ex.MaxFactor)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func correlationSection(correlations []stats.CorrelationResult) string {
	var b strings.Builder
	for _, c := range correlations {
		if c.Insufficient {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("## Correlations\n\n")
			b.WriteString("| Pair | r | p | N | Strength |\n")
			b.WriteString("|---|---|---|---|---|\n")
		}
		fmt.Fprintf(&b, "| %s / %s | %.3f | %.4f | %d | %s |\n",
			c.MetricX, c.MetricY, c.Coefficient, c.PValue, c.N, c.Strength)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}
