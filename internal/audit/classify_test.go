package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ARTIFACTIQ/gt-audit/internal/classes"
)

func emptyResolver(t *testing.T) *classes.Resolver {
	t.Helper()
	r, err := classes.NewResolver(nil)
	require.NoError(t, err)
	return r
}

func classifyImage(t *testing.T, gt []Annotation, dets []Detection, resolver *classes.Resolver, localizationIoU float64) []Issue {
	t.Helper()
	corr := Match(gt, dets, 0.25, 0.5)
	return Classify("img_001.jpg", gt, dets, corr, resolver, DefaultSeverities(), localizationIoU)
}

func TestClassifyClassMismatch(t *testing.T) {
	gt := []Annotation{{Class: "cat", Box: box(0.5, 0.5, 0.2, 0.2), Line: 3}}
	dets := []Detection{{Class: "dog", Box: box(0.5, 0.5, 0.2, 0.2), Confidence: 0.9}}

	issues := classifyImage(t, gt, dets, emptyResolver(t), 0)

	require.Len(t, issues, 1)
	issue := issues[0]
	assert.Equal(t, IssueClassMismatch, issue.Type)
	assert.Equal(t, SeverityHigh, issue.Severity)
	assert.Equal(t, "img_001.jpg", issue.ImageID)
	assert.Equal(t, "cat", issue.GTClass)
	assert.Equal(t, "dog", issue.DetectedClass)
	require.NotNil(t, issue.Confidence)
	assert.InDelta(t, 0.9, *issue.Confidence, 1e-9)
	require.NotNil(t, issue.IoU)
	assert.InDelta(t, 1.0, *issue.IoU, 1e-6)
	assert.Equal(t, 3, issue.Line)
}

func TestClassifyMissingLabel(t *testing.T) {
	dets := []Detection{{Class: "cat", Box: box(0.1, 0.1, 0.1, 0.1), Confidence: 0.8}}

	issues := classifyImage(t, nil, dets, emptyResolver(t), 0)

	require.Len(t, issues, 1)
	issue := issues[0]
	assert.Equal(t, IssueMissingLabel, issue.Type)
	assert.Equal(t, SeverityMedium, issue.Severity)
	assert.Equal(t, "cat", issue.DetectedClass)
	assert.Empty(t, issue.GTClass)
	require.NotNil(t, issue.Confidence)
	assert.InDelta(t, 0.8, *issue.Confidence, 1e-9)
}

func TestClassifySpuriousLabel(t *testing.T) {
	gt := []Annotation{{Class: "cat", Box: box(0.1, 0.1, 0.1, 0.1), Line: 1}}

	issues := classifyImage(t, gt, nil, emptyResolver(t), 0)

	require.Len(t, issues, 1)
	issue := issues[0]
	assert.Equal(t, IssueSpuriousLabel, issue.Type)
	assert.Equal(t, SeverityLow, issue.Severity)
	assert.Equal(t, "cat", issue.GTClass)
	assert.Equal(t, 1, issue.Line)
}

func TestClassifyAgreementYieldsNothing(t *testing.T) {
	// Same class, near-perfect IoU, no localization bar: clean image.
	gt := []Annotation{{Class: "cat", Box: box(0.5, 0.5, 0.2, 0.2), Line: 1}}
	dets := []Detection{{Class: "cat", Box: box(0.5, 0.5, 0.2, 0.2), Confidence: 0.9}}

	issues := classifyImage(t, gt, dets, emptyResolver(t), 0)
	assert.Empty(t, issues)
}

func TestClassifyEquivalenceSuppressesMismatch(t *testing.T) {
	resolver, err := classes.NewResolver([]classes.Group{
		{Name: "cat", Members: []string{"cat", "feline"}},
	})
	require.NoError(t, err)

	gt := []Annotation{{Class: "cat", Box: box(0.5, 0.5, 0.2, 0.2), Line: 1}}
	dets := []Detection{{Class: "feline", Box: box(0.5, 0.5, 0.2, 0.2), Confidence: 0.9}}

	issues := classifyImage(t, gt, dets, resolver, 0)
	assert.Empty(t, issues)
}

func TestClassifyLocalization(t *testing.T) {
	// Same class, matched, but the IoU sits between the match threshold
	// and the localization bar.
	gt := []Annotation{{Class: "cat", Box: box(0.50, 0.50, 0.20, 0.20), Line: 2}}
	dets := []Detection{{Class: "cat", Box: box(0.53, 0.50, 0.20, 0.20), Confidence: 0.9}}

	issues := classifyImage(t, gt, dets, emptyResolver(t), 0.9)

	require.Len(t, issues, 1)
	issue := issues[0]
	assert.Equal(t, IssueLocalization, issue.Type)
	assert.Equal(t, SeverityLow, issue.Severity)
	assert.Equal(t, "cat", issue.GTClass)
	require.NotNil(t, issue.IoU)
	assert.Less(t, *issue.IoU, 0.9)
	assert.Equal(t, 2, issue.Line)
}

func TestClassifyMismatchExcludesLocalization(t *testing.T) {
	// A pair yields at most one issue: the class mismatch wins even when
	// the IoU would also fail the localization bar.
	gt := []Annotation{{Class: "cat", Box: box(0.50, 0.50, 0.20, 0.20), Line: 1}}
	dets := []Detection{{Class: "dog", Box: box(0.53, 0.50, 0.20, 0.20), Confidence: 0.9}}

	issues := classifyImage(t, gt, dets, emptyResolver(t), 0.9)

	require.Len(t, issues, 1)
	assert.Equal(t, IssueClassMismatch, issues[0].Type)
}

func TestClassifyDiscardedDetectionRaisesNoIssue(t *testing.T) {
	// Below the confidence floor the detection is invisible: no
	// missing_label for it, and the GT box it covered becomes spurious.
	gt := []Annotation{{Class: "cat", Box: box(0.5, 0.5, 0.2, 0.2), Line: 1}}
	dets := []Detection{{Class: "cat", Box: box(0.5, 0.5, 0.2, 0.2), Confidence: 0.05}}

	issues := classifyImage(t, gt, dets, emptyResolver(t), 0)

	require.Len(t, issues, 1)
	assert.Equal(t, IssueSpuriousLabel, issues[0].Type)
}

func TestClassifyMultipleIssueTypesOnOneImage(t *testing.T) {
	gt := []Annotation{
		{Class: "cat", Box: box(0.2, 0.2, 0.2, 0.2), Line: 1},  // matched, wrong class
		{Class: "bird", Box: box(0.8, 0.8, 0.1, 0.1), Line: 2}, // unmatched
	}
	dets := []Detection{
		{Class: "dog", Box: box(0.2, 0.2, 0.2, 0.2), Confidence: 0.9}, // matched to gt 0
		{Class: "car", Box: box(0.5, 0.5, 0.1, 0.1), Confidence: 0.8}, // unmatched
	}

	issues := classifyImage(t, gt, dets, emptyResolver(t), 0)

	require.Len(t, issues, 3)
	byType := make(map[IssueType]int)
	for _, issue := range issues {
		byType[issue.Type]++
	}
	assert.Equal(t, 1, byType[IssueClassMismatch])
	assert.Equal(t, 1, byType[IssueMissingLabel])
	assert.Equal(t, 1, byType[IssueSpuriousLabel])
}

func TestClassifySeverityOverride(t *testing.T) {
	severities := DefaultSeverities()
	severities[IssueMissingLabel] = SeverityHigh

	dets := []Detection{{Class: "cat", Box: box(0.1, 0.1, 0.1, 0.1), Confidence: 0.8}}
	corr := Match(nil, dets, 0.25, 0.5)
	issues := Classify("img.jpg", nil, dets, corr, emptyResolver(t), severities, 0)

	require.Len(t, issues, 1)
	assert.Equal(t, SeverityHigh, issues[0].Severity)
}
