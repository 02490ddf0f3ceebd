package geometry

// Box is a bounding box in normalized center form: CX and CY locate the
// box center, W and H are its width and height, all expressed as fractions
// of the image dimensions. This is the YOLO label format, kept as-is so
// boxes stay comparable across image resolutions.
type Box struct {
	CX float64
	CY float64
	W  float64
	H  float64
}

// Valid reports whether the box has positive extent. A zero or negative
// width or height never describes a region and is rejected before any
// box reaches the matcher.
func (b Box) Valid() bool {
	return b.W > 0 && b.H > 0
}

// Area returns the box area in normalized units.
func (b Box) Area() float64 {
	return b.W * b.H
}

// Corners converts the box to corner form (x1, y1, x2, y2).
func (b Box) Corners() (x1, y1, x2, y2 float64) {
	halfW := b.W / 2
	halfH := b.H / 2
	return b.CX - halfW, b.CY - halfH, b.CX + halfW, b.CY + halfH
}

// IoU computes intersection over union between two boxes.
//
// The intersection corners are the maximum of the top-left corners and the
// minimum of the bottom-right corners; a non-positive intersection width or
// height means the boxes do not overlap and the result is 0. The union
// follows inclusion-exclusion: area(a) + area(b) - intersection.
//
// IoU is symmetric, returns a value in [0, 1], and is exactly 1 for a box
// compared with itself.
func IoU(a, b Box) float64 {
	ax1, ay1, ax2, ay2 := a.Corners()
	bx1, by1, bx2, by2 := b.Corners()

	ix1 := max(ax1, bx1)
	iy1 := max(ay1, by1)
	ix2 := min(ax2, bx2)
	iy2 := min(ay2, by2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0
	}
	inter := interW * interH

	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Intersects reports whether two boxes overlap with positive area.
func Intersects(a, b Box) bool {
	ax1, ay1, ax2, ay2 := a.Corners()
	bx1, by1, bx2, by2 := b.Corners()
	return max(ax1, bx1) < min(ax2, bx2) && max(ay1, by1) < min(ay2, by2)
}
