package report

import (
	"fmt"
	"html/template"
	"io"
)

// WriteHTML renders the result as a self-contained document: summary cards
// up top, one expandable card per flagged image below.
func WriteHTML(w io.Writer, result *Result) error {
	if err := reportTemplate.Execute(w, result); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>GT Audit Report</title>
    <style>
        :root {
            --primary: #00d4ff;
            --bg-dark: #0a0a12;
            --bg-card: rgba(255, 255, 255, 0.03);
            --border: rgba(255, 255, 255, 0.08);
            --text: #e4e4e4;
            --text-muted: #888;
            --success: #10b981;
            --warning: #f59e0b;
            --error: #ef4444;
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-dark);
            color: var(--text);
            line-height: 1.6;
            padding: 2rem;
        }
        .container { max-width: 1200px; margin: 0 auto; }
        h1 { font-size: 2rem; margin-bottom: 0.5rem; color: var(--primary); }
        .meta { color: var(--text-muted); margin-bottom: 2rem; font-size: 0.9rem; }
        .summary-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
            gap: 1rem;
            margin-bottom: 2rem;
        }
        .summary-card {
            background: var(--bg-card);
            border: 1px solid var(--border);
            border-radius: 12px;
            padding: 1.5rem;
            text-align: center;
        }
        .summary-card .value {
            font-size: 2.5rem;
            font-weight: 700;
        }
        .summary-card .label {
            font-size: 0.8rem;
            color: var(--text-muted);
        }
        .high { color: var(--error); }
        .medium { color: var(--warning); }
        .low { color: var(--text-muted); }
        .issues-section { margin-top: 2rem; }
        .issues-section h2 {
            color: var(--primary);
            margin-bottom: 1rem;
            padding-bottom: 0.5rem;
            border-bottom: 1px solid var(--border);
        }
        .issue-card {
            background: var(--bg-card);
            border: 1px solid var(--border);
            border-radius: 8px;
            margin-bottom: 1rem;
            overflow: hidden;
        }
        .issue-card.high { border-left: 4px solid var(--error); }
        .issue-card.medium { border-left: 4px solid var(--warning); }
        .issue-card.low { border-left: 4px solid var(--text-muted); }
        .issue-header {
            padding: 1rem;
            background: rgba(0,0,0,0.2);
            display: flex;
            justify-content: space-between;
            align-items: center;
            cursor: pointer;
        }
        .issue-header:hover { background: rgba(0,0,0,0.3); }
        .issue-filename { font-family: monospace; }
        .badge {
            padding: 0.2rem 0.5rem;
            border-radius: 4px;
            font-size: 0.7rem;
            font-weight: 600;
            margin-left: 0.5rem;
        }
        .badge-high { background: var(--error); color: white; }
        .badge-medium { background: var(--warning); color: black; }
        .badge-low { background: var(--text-muted); color: white; }
        .issue-details {
            padding: 1rem;
            display: none;
        }
        .issue-details.expanded { display: block; }
        .issue-item {
            padding: 0.5rem;
            margin-bottom: 0.5rem;
            background: rgba(0,0,0,0.2);
            border-radius: 4px;
            font-size: 0.85rem;
        }
        .issue-type { color: var(--primary); font-weight: 600; }
        footer {
            margin-top: 3rem;
            padding-top: 2rem;
            border-top: 1px solid var(--border);
            text-align: center;
            color: var(--text-muted);
            font-size: 0.85rem;
        }
        footer a { color: var(--primary); }
    </style>
</head>
<body>
    <div class="container">
        <h1>Ground Truth Audit Report</h1>
        <p class="meta">
            Generated: {{.GeneratedAt}} | Source: {{.Source}} |
            Confidence: {{.Thresholds.Confidence}} | IoU: {{.Thresholds.IoU}}
        </p>

        <div class="summary-grid">
            <div class="summary-card">
                <div class="value">{{.Summary.TotalImages}}</div>
                <div class="label">Total Images</div>
            </div>
            <div class="summary-card">
                <div class="value">{{.Summary.ImagesAudited}}</div>
                <div class="label">Images Audited</div>
            </div>
            <div class="summary-card">
                <div class="value">{{.Summary.ImagesWithIssues}}</div>
                <div class="label">With Issues</div>
            </div>
            <div class="summary-card">
                <div class="value high">{{.Summary.HighCount}}</div>
                <div class="label">High Severity</div>
            </div>
            <div class="summary-card">
                <div class="value medium">{{.Summary.MediumCount}}</div>
                <div class="label">Medium Severity</div>
            </div>
            <div class="summary-card">
                <div class="value low">{{.Summary.LowCount}}</div>
                <div class="label">Low Severity</div>
            </div>
        </div>

        <div class="issues-section">
            <h2>Flagged Images ({{len .FlaggedImages}})</h2>
            {{range .FlaggedImages}}
            <div class="issue-card {{if gt .HighCount 0}}high{{else if gt .MediumCount 0}}medium{{else}}low{{end}}">
                <div class="issue-header" onclick="toggleDetails(this)">
                    <span class="issue-filename">{{.ImageID}}</span>
                    <span>
                        {{if gt .HighCount 0}}<span class="badge badge-high">{{.HighCount}} HIGH</span>{{end}}
                        {{if gt .MediumCount 0}}<span class="badge badge-medium">{{.MediumCount}} MED</span>{{end}}
                        <span class="badge badge-low">{{len .Issues}} total</span>
                    </span>
                </div>
                <div class="issue-details">
                    <p style="color: var(--text-muted); margin-bottom: 0.5rem; font-size: 0.8rem;">
                        GT: {{.GTCount}} objects | Detected: {{.DetectionCount}}
                    </p>
                    {{range .Issues}}
                    <div class="issue-item">
                        <span class="issue-type">{{.Type}}</span>: {{.Description}}
                        {{if .Explanation}}<br><small style="color: var(--text-muted);">{{.Explanation}}</small>{{end}}
                    </div>
                    {{end}}
                </div>
            </div>
            {{end}}
        </div>

        <footer>
            <p>Generated by <a href="https://github.com/ARTIFACTIQ/gt-audit">gt-audit</a> {{.GeneratorVersion}} |
               <a href="https://artifactiq.ai">Artifactiq</a></p>
        </footer>
    </div>

    <script>
        function toggleDetails(header) {
            const details = header.nextElementSibling;
            details.classList.toggle('expanded');
        }
    </script>
</body>
</html>
`))
