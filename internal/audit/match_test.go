package audit

import (
	"reflect"
	"testing"

	"github.com/ARTIFACTIQ/gt-audit/internal/geometry"
)

func box(cx, cy, w, h float64) geometry.Box {
	return geometry.Box{CX: cx, CY: cy, W: w, H: h}
}

func TestMatchPairsOverlappingBoxes(t *testing.T) {
	gt := []Annotation{{Class: "cat", Box: box(0.5, 0.5, 0.2, 0.2), Line: 1}}
	dets := []Detection{{Class: "cat", Box: box(0.5, 0.5, 0.2, 0.2), Confidence: 0.9}}

	corr := Match(gt, dets, 0.25, 0.5)

	if len(corr.Pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(corr.Pairs))
	}
	p := corr.Pairs[0]
	if p.GTIndex != 0 || p.DetIndex != 0 {
		t.Errorf("pair indices = (%d, %d), want (0, 0)", p.GTIndex, p.DetIndex)
	}
	if p.IoU < 0.999 {
		t.Errorf("pair IoU = %v, want ~1.0", p.IoU)
	}
	if len(corr.UnmatchedGT) != 0 || len(corr.UnmatchedDetections) != 0 {
		t.Errorf("unexpected unmatched entries: gt=%v det=%v", corr.UnmatchedGT, corr.UnmatchedDetections)
	}
}

func TestMatchConfidenceFloorDiscardsDetection(t *testing.T) {
	// A detection under the floor matches nothing and does not appear
	// among the unmatched detections either.
	gt := []Annotation{{Class: "cat", Box: box(0.5, 0.5, 0.2, 0.2), Line: 1}}
	dets := []Detection{{Class: "cat", Box: box(0.5, 0.5, 0.2, 0.2), Confidence: 0.1}}

	corr := Match(gt, dets, 0.25, 0.5)

	if len(corr.Pairs) != 0 {
		t.Fatalf("pairs = %d, want 0", len(corr.Pairs))
	}
	if len(corr.UnmatchedDetections) != 0 {
		t.Errorf("discarded detection leaked into unmatched set: %v", corr.UnmatchedDetections)
	}
	if !reflect.DeepEqual(corr.UnmatchedGT, []int{0}) {
		t.Errorf("unmatched GT = %v, want [0]", corr.UnmatchedGT)
	}
}

func TestMatchIoUThresholdExcludesWeakOverlap(t *testing.T) {
	// Overlap exists but stays below the threshold, so both sides remain
	// unmatched.
	gt := []Annotation{{Class: "cat", Box: box(0.3, 0.3, 0.2, 0.2), Line: 1}}
	dets := []Detection{{Class: "cat", Box: box(0.42, 0.42, 0.2, 0.2), Confidence: 0.9}}

	corr := Match(gt, dets, 0.25, 0.5)

	if len(corr.Pairs) != 0 {
		t.Fatalf("pairs = %d, want 0", len(corr.Pairs))
	}
	if !reflect.DeepEqual(corr.UnmatchedGT, []int{0}) {
		t.Errorf("unmatched GT = %v, want [0]", corr.UnmatchedGT)
	}
	if !reflect.DeepEqual(corr.UnmatchedDetections, []int{0}) {
		t.Errorf("unmatched detections = %v, want [0]", corr.UnmatchedDetections)
	}
}

func TestMatchIsClassBlind(t *testing.T) {
	gt := []Annotation{{Class: "cat", Box: box(0.5, 0.5, 0.2, 0.2), Line: 1}}
	dets := []Detection{{Class: "dog", Box: box(0.5, 0.5, 0.2, 0.2), Confidence: 0.9}}

	corr := Match(gt, dets, 0.25, 0.5)

	if len(corr.Pairs) != 1 {
		t.Fatalf("class difference prevented a geometric match: pairs = %d", len(corr.Pairs))
	}
}

func TestMatchBijective(t *testing.T) {
	// Three GT boxes and three detections in a cluster; every index must
	// appear in at most one pair.
	gt := []Annotation{
		{Class: "a", Box: box(0.30, 0.30, 0.20, 0.20), Line: 1},
		{Class: "b", Box: box(0.35, 0.30, 0.20, 0.20), Line: 2},
		{Class: "c", Box: box(0.70, 0.70, 0.20, 0.20), Line: 3},
	}
	dets := []Detection{
		{Class: "a", Box: box(0.31, 0.30, 0.20, 0.20), Confidence: 0.9},
		{Class: "b", Box: box(0.36, 0.30, 0.20, 0.20), Confidence: 0.8},
		{Class: "c", Box: box(0.70, 0.71, 0.20, 0.20), Confidence: 0.7},
	}

	corr := Match(gt, dets, 0.25, 0.3)

	gtSeen := make(map[int]bool)
	detSeen := make(map[int]bool)
	for _, p := range corr.Pairs {
		if gtSeen[p.GTIndex] {
			t.Errorf("gt index %d matched twice", p.GTIndex)
		}
		if detSeen[p.DetIndex] {
			t.Errorf("detection index %d matched twice", p.DetIndex)
		}
		gtSeen[p.GTIndex] = true
		detSeen[p.DetIndex] = true
	}
}

func TestMatchGreedyPrefersHigherIoU(t *testing.T) {
	// One detection overlaps two GT boxes; the tighter overlap wins and
	// the other GT box goes unmatched.
	gt := []Annotation{
		{Class: "a", Box: box(0.32, 0.30, 0.20, 0.20), Line: 1},
		{Class: "a", Box: box(0.30, 0.30, 0.20, 0.20), Line: 2},
	}
	dets := []Detection{
		{Class: "a", Box: box(0.30, 0.30, 0.20, 0.20), Confidence: 0.9},
	}

	corr := Match(gt, dets, 0.25, 0.3)

	if len(corr.Pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(corr.Pairs))
	}
	if corr.Pairs[0].GTIndex != 1 {
		t.Errorf("matched gt index = %d, want 1 (the perfect overlap)", corr.Pairs[0].GTIndex)
	}
	if !reflect.DeepEqual(corr.UnmatchedGT, []int{0}) {
		t.Errorf("unmatched GT = %v, want [0]", corr.UnmatchedGT)
	}
}

func TestMatchTieBreaksByGTIndex(t *testing.T) {
	// Two identical GT boxes both overlap the detection identically;
	// equal IoU resolves to the lower GT index.
	gt := []Annotation{
		{Class: "a", Box: box(0.5, 0.5, 0.2, 0.2), Line: 1},
		{Class: "a", Box: box(0.5, 0.5, 0.2, 0.2), Line: 2},
	}
	dets := []Detection{
		{Class: "a", Box: box(0.5, 0.5, 0.2, 0.2), Confidence: 0.9},
	}

	corr := Match(gt, dets, 0.25, 0.5)

	if len(corr.Pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(corr.Pairs))
	}
	if corr.Pairs[0].GTIndex != 0 {
		t.Errorf("tie broke to gt index %d, want 0", corr.Pairs[0].GTIndex)
	}
	if !reflect.DeepEqual(corr.UnmatchedGT, []int{1}) {
		t.Errorf("unmatched GT = %v, want [1]", corr.UnmatchedGT)
	}
}

func TestMatchTieBreaksByDetectionIndex(t *testing.T) {
	gt := []Annotation{
		{Class: "a", Box: box(0.5, 0.5, 0.2, 0.2), Line: 1},
	}
	dets := []Detection{
		{Class: "a", Box: box(0.5, 0.5, 0.2, 0.2), Confidence: 0.9},
		{Class: "a", Box: box(0.5, 0.5, 0.2, 0.2), Confidence: 0.95},
	}

	corr := Match(gt, dets, 0.25, 0.5)

	if len(corr.Pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(corr.Pairs))
	}
	if corr.Pairs[0].DetIndex != 0 {
		t.Errorf("tie broke to detection index %d, want 0", corr.Pairs[0].DetIndex)
	}
	if !reflect.DeepEqual(corr.UnmatchedDetections, []int{1}) {
		t.Errorf("unmatched detections = %v, want [1]", corr.UnmatchedDetections)
	}
}

func TestMatchDeterministicAcrossCalls(t *testing.T) {
	gt := []Annotation{
		{Class: "a", Box: box(0.30, 0.30, 0.25, 0.25), Line: 1},
		{Class: "b", Box: box(0.32, 0.31, 0.25, 0.25), Line: 2},
		{Class: "c", Box: box(0.60, 0.60, 0.25, 0.25), Line: 3},
	}
	dets := []Detection{
		{Class: "a", Box: box(0.31, 0.30, 0.25, 0.25), Confidence: 0.9},
		{Class: "b", Box: box(0.33, 0.31, 0.25, 0.25), Confidence: 0.6},
		{Class: "c", Box: box(0.61, 0.61, 0.25, 0.25), Confidence: 0.5},
	}

	first := Match(gt, dets, 0.25, 0.3)
	for i := 0; i < 20; i++ {
		again := Match(gt, dets, 0.25, 0.3)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("call %d diverged:\nfirst %+v\nagain %+v", i, first, again)
		}
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	corr := Match(nil, nil, 0.25, 0.5)
	if len(corr.Pairs) != 0 || len(corr.UnmatchedGT) != 0 || len(corr.UnmatchedDetections) != 0 {
		t.Errorf("empty inputs produced non-empty correspondence: %+v", corr)
	}
}
