// Package audit implements the matching, classification, and aggregation
// engine for ground-truth label validation. Given per-image ground-truth
// annotations and externally produced detections, it decides which boxes
// correspond, classifies each correspondence or non-correspondence into a
// typed issue, and folds per-image issue lists into a dataset-wide summary
// with a CI pass/fail verdict. The engine performs no I/O; collaborators
// hand it fully loaded in-memory records.
package audit

import (
	"fmt"

	"github.com/ARTIFACTIQ/gt-audit/internal/geometry"
)

// Severity is the ordinal urgency of an issue: high > medium > low.
// The string values are the wire forms used in reports.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Valid reports whether s is one of the three known levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Severities lists the levels from most to least urgent, for stable
// iteration in reports.
func Severities() []Severity {
	return []Severity{SeverityHigh, SeverityMedium, SeverityLow}
}

// IssueType is the closed set of discrepancy kinds the classifier emits.
// The string values are the wire forms used in reports.
type IssueType string

const (
	// IssueClassMismatch: a matched pair whose classes resolve to
	// different equivalence groups.
	IssueClassMismatch IssueType = "class_mismatch"
	// IssueMissingLabel: the model detected an object the ground truth
	// does not label.
	IssueMissingLabel IssueType = "missing_label"
	// IssueSpuriousLabel: a ground-truth label no detection supports.
	IssueSpuriousLabel IssueType = "spurious_label"
	// IssueLocalization: a matched same-class pair whose IoU sits below
	// the localization bar.
	IssueLocalization IssueType = "localization"
)

// Valid reports whether t is one of the four known types.
func (t IssueType) Valid() bool {
	switch t {
	case IssueClassMismatch, IssueMissingLabel, IssueSpuriousLabel, IssueLocalization:
		return true
	}
	return false
}

// IssueTypes lists the closed enumeration in report order.
func IssueTypes() []IssueType {
	return []IssueType{IssueClassMismatch, IssueMissingLabel, IssueSpuriousLabel, IssueLocalization}
}

// SeverityTable maps issue types to the severity they are emitted with.
// Data never changes the mapping; only configuration overrides it.
type SeverityTable map[IssueType]Severity

// DefaultSeverities returns the built-in type-to-severity mapping.
func DefaultSeverities() SeverityTable {
	return SeverityTable{
		IssueClassMismatch: SeverityHigh,
		IssueMissingLabel:  SeverityMedium,
		IssueSpuriousLabel: SeverityLow,
		IssueLocalization:  SeverityLow,
	}
}

// For returns the severity for an issue type, falling back to the default
// mapping when the table has no entry.
func (t SeverityTable) For(it IssueType) Severity {
	if s, ok := t[it]; ok {
		return s
	}
	return DefaultSeverities()[it]
}

// Annotation is one ground-truth label: a class and a box, plus the
// 1-based label-file line it came from so operators can jump straight to
// the offending row.
type Annotation struct {
	Class string
	Box   geometry.Box
	Line  int
}

// Detection is one model output: a class, a box, and the model's
// confidence in [0, 1].
type Detection struct {
	Class      string
	Box        geometry.Box
	Confidence float64
}

// ImageRecord is the per-image audit input. The engine owns it only while
// the image is processed; records are not retained after aggregation, so
// memory stays bounded on large datasets.
type ImageRecord struct {
	ImageID     string
	GroundTruth []Annotation
	Detections  []Detection
}

// InputError reports an image whose boxes violate the positive-extent
// invariant. The image is skipped with a warning; the run continues.
type InputError struct {
	ImageID string
	Reason  string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("image %s: %s", e.ImageID, e.Reason)
}

// Validate checks every box against the w>0, h>0 invariant. The first
// violation fails the whole image; the matcher never sees a degenerate box.
func (r *ImageRecord) Validate() error {
	for i, ann := range r.GroundTruth {
		if !ann.Box.Valid() {
			return &InputError{
				ImageID: r.ImageID,
				Reason:  fmt.Sprintf("gt box %d (%q, line %d) has non-positive extent w=%.4f h=%.4f", i, ann.Class, ann.Line, ann.Box.W, ann.Box.H),
			}
		}
	}
	for i, det := range r.Detections {
		if !det.Box.Valid() {
			return &InputError{
				ImageID: r.ImageID,
				Reason:  fmt.Sprintf("detection %d (%q) has non-positive extent w=%.4f h=%.4f", i, det.Class, det.Box.W, det.Box.H),
			}
		}
	}
	return nil
}

// Issue is one classified discrepancy. Immutable once created; only the
// classifier constructs issues. Optional fields are pointers or zero
// values and are omitted from serialized reports when absent.
type Issue struct {
	ImageID       string    `json:"image_id"`
	Type          IssueType `json:"type"`
	Severity      Severity  `json:"severity"`
	Description   string    `json:"description"`
	GTClass       string    `json:"gt_class,omitempty"`
	DetectedClass string    `json:"detected_class,omitempty"`
	Confidence    *float64  `json:"confidence,omitempty"`
	IoU           *float64  `json:"iou,omitempty"`
	Explanation   string    `json:"explanation,omitempty"`
	Line          int       `json:"line_num,omitempty"`
}

// ImageResult is the audited outcome for one image.
type ImageResult struct {
	ImageID        string  `json:"image_id"`
	GTCount        int     `json:"gt_count"`
	DetectionCount int     `json:"detection_count"`
	Issues         []Issue `json:"issues"`
}

// HasIssues reports whether the image contributed at least one issue.
func (r *ImageResult) HasIssues() bool {
	return len(r.Issues) > 0
}

// SeverityCount returns how many of the image's issues carry the given
// severity.
func (r *ImageResult) SeverityCount(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// HighCount returns the number of high-severity issues on this image.
func (r *ImageResult) HighCount() int { return r.SeverityCount(SeverityHigh) }

// MediumCount returns the number of medium-severity issues on this image.
func (r *ImageResult) MediumCount() int { return r.SeverityCount(SeverityMedium) }

// LowCount returns the number of low-severity issues on this image.
func (r *ImageResult) LowCount() int { return r.SeverityCount(SeverityLow) }
