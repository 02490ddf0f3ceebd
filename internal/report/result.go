// Package report serializes finished audit runs: a JSON envelope, a
// self-contained HTML document, an echarts page, and the console summary.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/ARTIFACTIQ/gt-audit/internal/audit"
	"github.com/ARTIFACTIQ/gt-audit/internal/version"
)

// Thresholds records the matching parameters a run used.
type Thresholds struct {
	Confidence      float64 `json:"confidence_threshold"`
	IoU             float64 `json:"iou_threshold"`
	LocalizationIoU float64 `json:"localization_iou_threshold,omitempty"`
}

// Result is the envelope written around one finished audit run. Every
// reporter renders from the same Result, so all outputs agree.
type Result struct {
	Generator        string              `json:"generator"`
	GeneratorVersion string              `json:"generator_version"`
	RunID            string              `json:"run_id"`
	GeneratedAt      string              `json:"generated_at"`
	DatasetPath      string              `json:"dataset_path"`
	Source           string              `json:"source"`
	Thresholds       Thresholds          `json:"thresholds"`
	Summary          *audit.Summary      `json:"summary"`
	FlaggedImages    []audit.ImageResult `json:"flagged_images"`
	SkippedImages    []string            `json:"skipped_images"`
	Verdict          string              `json:"verdict,omitempty"`
}

// NewResult stamps the envelope metadata around a finalized summary.
// verdict is "pass" or "fail", or empty when no gate was configured.
func NewResult(datasetPath, source string, thresholds Thresholds, summary *audit.Summary, verdict string) *Result {
	flagged := summary.FlaggedImages
	if flagged == nil {
		flagged = []audit.ImageResult{}
	}
	skipped := summary.SkippedImages
	if skipped == nil {
		skipped = []string{}
	}

	return &Result{
		Generator:        "gt-audit",
		GeneratorVersion: version.Version,
		RunID:            uuid.NewString(),
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
		DatasetPath:      datasetPath,
		Source:           source,
		Thresholds:       thresholds,
		Summary:          summary,
		FlaggedImages:    flagged,
		SkippedImages:    skipped,
		Verdict:          verdict,
	}
}
