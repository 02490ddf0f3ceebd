package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ARTIFACTIQ/gt-audit/internal/audit"
)

// WriteCharts renders an echarts page with two bars: issue counts by
// severity and by type.
func WriteCharts(w io.Writer, result *Result) error {
	severityBar := charts.NewBar()
	severityBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "GT Audit Charts", Theme: "dark", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Issues by Severity", Subtitle: result.DatasetPath}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	severityAxis := make([]string, 0, len(audit.Severities()))
	severityData := make([]opts.BarData, 0, len(audit.Severities()))
	for _, sev := range audit.Severities() {
		severityAxis = append(severityAxis, string(sev))
		severityData = append(severityData, opts.BarData{Value: result.Summary.SeverityCount(sev)})
	}
	severityBar.SetXAxis(severityAxis).
		AddSeries("issues", severityData,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	typeBar := charts.NewBar()
	typeBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Issues by Type", Subtitle: fmt.Sprintf("run %s", result.RunID)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	typeAxis := make([]string, 0, len(audit.IssueTypes()))
	typeData := make([]opts.BarData, 0, len(audit.IssueTypes()))
	for _, issueType := range audit.IssueTypes() {
		typeAxis = append(typeAxis, string(issueType))
		typeData = append(typeData, opts.BarData{Value: result.Summary.ByType[issueType]})
	}
	typeBar.SetXAxis(typeAxis).
		AddSeries("issues", typeData,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(severityBar, typeBar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render charts page: %w", err)
	}
	return nil
}
