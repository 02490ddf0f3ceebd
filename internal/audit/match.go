package audit

import (
	"sort"

	"github.com/ARTIFACTIQ/gt-audit/internal/geometry"
)

// MatchedPair links one ground-truth box to one detection by their indices
// in the per-image slices, carrying the IoU that committed the pair.
type MatchedPair struct {
	GTIndex  int
	DetIndex int
	IoU      float64
}

// Correspondence is the matcher's per-image output: committed pairs plus
// the indices left over on each side. Each GT index and each detection
// index appears in at most one pair.
type Correspondence struct {
	Pairs               []MatchedPair
	UnmatchedGT         []int
	UnmatchedDetections []int
}

// Match pairs ground-truth boxes with detections for one image.
//
// Detections under the confidence floor are dropped first and stay
// invisible to the whole audit: they match nothing and raise no issue.
// Matching is purely geometric; class identity plays no role here and is
// judged afterwards by Classify. Pairs with IoU below iouThreshold are
// ineligible.
//
// Among eligible pairs a greedy IoU-ranked selection runs: candidates are
// ordered by IoU descending, with equal IoU resolved by ascending GT index
// then ascending detection index, and a single scan commits each pair
// whose two indices are both still free. The ordering is a strict total
// order, so repeated calls on the same input produce identical pairs in
// identical order.
//
// Empty inputs yield an empty Correspondence. Match never fails.
func Match(gt []Annotation, detections []Detection, confidenceThreshold, iouThreshold float64) Correspondence {
	eligible := make([]int, 0, len(detections))
	for i, det := range detections {
		if det.Confidence >= confidenceThreshold {
			eligible = append(eligible, i)
		}
	}

	type candidate struct {
		gt  int
		det int
		iou float64
	}
	candidates := make([]candidate, 0, len(gt)*len(eligible))
	for gi, ann := range gt {
		for _, di := range eligible {
			v := geometry.IoU(ann.Box, detections[di].Box)
			if v >= iouThreshold {
				candidates = append(candidates, candidate{gt: gi, det: di, iou: v})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.iou != b.iou {
			return a.iou > b.iou
		}
		if a.gt != b.gt {
			return a.gt < b.gt
		}
		return a.det < b.det
	})

	gtUsed := make(map[int]bool, len(gt))
	detUsed := make(map[int]bool, len(eligible))

	var corr Correspondence
	for _, c := range candidates {
		if gtUsed[c.gt] || detUsed[c.det] {
			continue
		}
		gtUsed[c.gt] = true
		detUsed[c.det] = true
		corr.Pairs = append(corr.Pairs, MatchedPair{GTIndex: c.gt, DetIndex: c.det, IoU: c.iou})
	}

	for gi := range gt {
		if !gtUsed[gi] {
			corr.UnmatchedGT = append(corr.UnmatchedGT, gi)
		}
	}
	for _, di := range eligible {
		if !detUsed[di] {
			corr.UnmatchedDetections = append(corr.UnmatchedDetections, di)
		}
	}

	return corr
}
