package geometry

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestIoUIdenticalBoxes(t *testing.T) {
	b := Box{CX: 0.5, CY: 0.5, W: 0.2, H: 0.4}
	if got := IoU(b, b); !almostEqual(got, 1.0) {
		t.Errorf("IoU of identical boxes = %v, want 1.0", got)
	}
}

func TestIoUDisjointBoxes(t *testing.T) {
	a := Box{CX: 0.2, CY: 0.2, W: 0.1, H: 0.1}
	b := Box{CX: 0.8, CY: 0.8, W: 0.1, H: 0.1}
	if got := IoU(a, b); got != 0 {
		t.Errorf("IoU of disjoint boxes = %v, want 0", got)
	}
}

func TestIoUTouchingBoxesIsZero(t *testing.T) {
	// Boxes sharing only an edge have zero intersection area.
	a := Box{CX: 0.25, CY: 0.5, W: 0.5, H: 0.5}
	b := Box{CX: 0.75, CY: 0.5, W: 0.5, H: 0.5}
	if got := IoU(a, b); got != 0 {
		t.Errorf("IoU of edge-touching boxes = %v, want 0", got)
	}
}

func TestIoUKnownOverlap(t *testing.T) {
	// Two 10x10 squares offset by 5 in each axis: intersection 25,
	// union 100 + 100 - 25 = 175.
	a := Box{CX: 0.05, CY: 0.05, W: 0.1, H: 0.1}
	b := Box{CX: 0.10, CY: 0.10, W: 0.1, H: 0.1}
	want := 25.0 / 175.0
	if got := IoU(a, b); !almostEqual(got, want) {
		t.Errorf("IoU = %v, want %v", got, want)
	}
}

func TestIoUSymmetric(t *testing.T) {
	a := Box{CX: 0.4, CY: 0.4, W: 0.3, H: 0.2}
	b := Box{CX: 0.5, CY: 0.45, W: 0.25, H: 0.3}
	if IoU(a, b) != IoU(b, a) {
		t.Errorf("IoU not symmetric: %v vs %v", IoU(a, b), IoU(b, a))
	}
}

func TestIoUContainedBox(t *testing.T) {
	outer := Box{CX: 0.5, CY: 0.5, W: 0.4, H: 0.4}
	inner := Box{CX: 0.5, CY: 0.5, W: 0.2, H: 0.2}
	// Intersection is the inner area; union is the outer area.
	want := inner.Area() / outer.Area()
	if got := IoU(outer, inner); !almostEqual(got, want) {
		t.Errorf("IoU of contained box = %v, want %v", got, want)
	}
}

func TestCorners(t *testing.T) {
	b := Box{CX: 0.5, CY: 0.5, W: 0.2, H: 0.4}
	x1, y1, x2, y2 := b.Corners()
	if !almostEqual(x1, 0.4) || !almostEqual(y1, 0.3) || !almostEqual(x2, 0.6) || !almostEqual(y2, 0.7) {
		t.Errorf("Corners() = (%v, %v, %v, %v), want (0.4, 0.3, 0.6, 0.7)", x1, y1, x2, y2)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		want bool
	}{
		{"positive extent", Box{CX: 0.5, CY: 0.5, W: 0.1, H: 0.1}, true},
		{"zero width", Box{CX: 0.5, CY: 0.5, W: 0, H: 0.1}, false},
		{"zero height", Box{CX: 0.5, CY: 0.5, W: 0.1, H: 0}, false},
		{"negative width", Box{CX: 0.5, CY: 0.5, W: -0.1, H: 0.1}, false},
		{"negative height", Box{CX: 0.5, CY: 0.5, W: 0.1, H: -0.1}, false},
	}
	for _, tt := range tests {
		if got := tt.box.Valid(); got != tt.want {
			t.Errorf("%s: Valid() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIntersects(t *testing.T) {
	a := Box{CX: 0.3, CY: 0.3, W: 0.2, H: 0.2}
	b := Box{CX: 0.35, CY: 0.35, W: 0.2, H: 0.2}
	c := Box{CX: 0.8, CY: 0.8, W: 0.1, H: 0.1}
	if !Intersects(a, b) {
		t.Error("expected overlapping boxes to intersect")
	}
	if Intersects(a, c) {
		t.Error("expected distant boxes not to intersect")
	}
}
