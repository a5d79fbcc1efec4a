package geom

import "gonum.org/v1/gonum/spatial/r2"

// LineSegment is an ordered pair of endpoints. Boundary segments keep a
// consistent orientation so the occupied side can be recovered from the
// direction alone.
type LineSegment struct {
	A r2.Vec
	B r2.Vec
}

// Reverse returns the segment with its endpoints swapped.
func (s LineSegment) Reverse() LineSegment {
	return LineSegment{A: s.B, B: s.A}
}

// Midpoint returns the segment midpoint.
func (s LineSegment) Midpoint() r2.Vec {
	return Midpoint(s.A, s.B)
}

// Bounds returns the axis-aligned box of the segment.
func (s LineSegment) Bounds() Box {
	return Box{Min: MinVec(s.A, s.B), Max: MaxVec(s.A, s.B)}
}
