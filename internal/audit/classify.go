package audit

import (
	"fmt"

	"github.com/ARTIFACTIQ/gt-audit/internal/classes"
)

// Classify turns one image's correspondence into zero or more issues.
//
// A matched pair yields at most one issue: a class mismatch when the two
// classes resolve to different equivalence groups, otherwise a
// localization issue when localizationIoU is configured (non-zero) and the
// pair's IoU falls below it. A matched same-class pair at or above the bar
// is agreement and yields nothing.
//
// Every unmatched detection becomes a missing_label: the model found an
// object the ground truth does not label. Every unmatched GT box becomes a
// spurious_label: no detection supports the label. Naming is label-centric
// throughout; the audit's subject is the ground truth, not the model.
//
// Severities come from the table, so configured overrides apply uniformly.
func Classify(imageID string, gt []Annotation, detections []Detection, corr Correspondence, resolver *classes.Resolver, severities SeverityTable, localizationIoU float64) []Issue {
	var issues []Issue

	for _, pair := range corr.Pairs {
		ann := gt[pair.GTIndex]
		det := detections[pair.DetIndex]
		iou := pair.IoU
		conf := det.Confidence

		if !resolver.Same(ann.Class, det.Class) {
			issues = append(issues, Issue{
				ImageID:  imageID,
				Type:     IssueClassMismatch,
				Severity: severities.For(IssueClassMismatch),
				Description: fmt.Sprintf("GT labels this region %q but the model detected %q (IoU %.2f)",
					ann.Class, det.Class, iou),
				GTClass:       ann.Class,
				DetectedClass: det.Class,
				Confidence:    &conf,
				IoU:           &iou,
				Line:          ann.Line,
			})
			continue
		}

		if localizationIoU > 0 && pair.IoU < localizationIoU {
			issues = append(issues, Issue{
				ImageID:  imageID,
				Type:     IssueLocalization,
				Severity: severities.For(IssueLocalization),
				Description: fmt.Sprintf("%q box only reaches IoU %.2f against its detection (bar %.2f)",
					ann.Class, iou, localizationIoU),
				GTClass:    ann.Class,
				Confidence: &conf,
				IoU:        &iou,
				Line:       ann.Line,
			})
		}
	}

	for _, di := range corr.UnmatchedDetections {
		det := detections[di]
		conf := det.Confidence
		issues = append(issues, Issue{
			ImageID:  imageID,
			Type:     IssueMissingLabel,
			Severity: severities.For(IssueMissingLabel),
			Description: fmt.Sprintf("Model detected %q (confidence %.2f) with no matching GT label",
				det.Class, det.Confidence),
			DetectedClass: det.Class,
			Confidence:    &conf,
		})
	}

	for _, gi := range corr.UnmatchedGT {
		ann := gt[gi]
		issues = append(issues, Issue{
			ImageID:     imageID,
			Type:        IssueSpuriousLabel,
			Severity:    severities.For(IssueSpuriousLabel),
			Description: fmt.Sprintf("GT label %q has no supporting detection", ann.Class),
			GTClass:     ann.Class,
			Line:        ann.Line,
		})
	}

	return issues
}
