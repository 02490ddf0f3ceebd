package audit

import "sort"

// Summary accumulates per-image outcomes into dataset-wide counts. Fold
// and Merge are additive and associative, so per-image results may arrive
// in any order from any number of workers; Finalize restores a
// deterministic presentation afterwards.
type Summary struct {
	TotalImages      int               `json:"total_images"`
	ImagesAudited    int               `json:"images_audited"`
	ImagesWithIssues int               `json:"images_with_issues"`
	TotalIssues      int               `json:"total_issues"`
	BySeverity       map[Severity]int  `json:"by_severity"`
	ByType           map[IssueType]int `json:"by_type"`

	// FlaggedImages and SkippedImages are serialized at the top level of
	// the report, not inside the summary object.
	FlaggedImages []ImageResult `json:"-"`
	SkippedImages []string      `json:"-"`
}

// NewSummary returns an empty summary for a dataset of totalImages.
func NewSummary(totalImages int) *Summary {
	return &Summary{
		TotalImages: totalImages,
		BySeverity:  make(map[Severity]int),
		ByType:      make(map[IssueType]int),
	}
}

// Fold absorbs one audited image. Counters only increase; the image is
// flagged when it carries at least one issue.
func (s *Summary) Fold(result ImageResult) {
	s.ImagesAudited++
	s.TotalIssues += len(result.Issues)
	for _, issue := range result.Issues {
		s.BySeverity[issue.Severity]++
		s.ByType[issue.Type]++
	}
	if result.HasIssues() {
		s.ImagesWithIssues++
		s.FlaggedImages = append(s.FlaggedImages, result)
	}
}

// Skip records an image that could not be audited. Skipped images count
// toward neither ImagesAudited nor any issue total.
func (s *Summary) Skip(imageID string) {
	s.SkippedImages = append(s.SkippedImages, imageID)
}

// Merge folds another partial summary into this one. Merging partials
// built by independent workers yields the same counts as folding every
// image into a single summary, in any grouping.
func (s *Summary) Merge(other *Summary) {
	s.TotalImages += other.TotalImages
	s.ImagesAudited += other.ImagesAudited
	s.ImagesWithIssues += other.ImagesWithIssues
	s.TotalIssues += other.TotalIssues
	for sev, n := range other.BySeverity {
		s.BySeverity[sev] += n
	}
	for typ, n := range other.ByType {
		s.ByType[typ] += n
	}
	s.FlaggedImages = append(s.FlaggedImages, other.FlaggedImages...)
	s.SkippedImages = append(s.SkippedImages, other.SkippedImages...)
}

// Finalize sorts the flagged and skipped lists into their canonical order:
// flagged images by issue count descending, ties by image id ascending.
// Fold order stops mattering at this point; the summary is read-only
// afterwards.
func (s *Summary) Finalize() {
	sort.Slice(s.FlaggedImages, func(i, j int) bool {
		a, b := s.FlaggedImages[i], s.FlaggedImages[j]
		if len(a.Issues) != len(b.Issues) {
			return len(a.Issues) > len(b.Issues)
		}
		return a.ImageID < b.ImageID
	})
	sort.Strings(s.SkippedImages)
}

// SeverityCount returns the dataset-wide count for one severity level.
func (s *Summary) SeverityCount(sev Severity) int {
	return s.BySeverity[sev]
}

// HighCount returns the number of high severity issues.
func (s *Summary) HighCount() int { return s.BySeverity[SeverityHigh] }

// MediumCount returns the number of medium severity issues.
func (s *Summary) MediumCount() int { return s.BySeverity[SeverityMedium] }

// LowCount returns the number of low severity issues.
func (s *Summary) LowCount() int { return s.BySeverity[SeverityLow] }
