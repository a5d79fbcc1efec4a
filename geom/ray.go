package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// IntersectRayBox intersects the ray pos + t*dir with an axis-aligned
// box using the slab method and returns the distance to the box. A ray
// starting inside the box reports the exit distance. Axes with a zero
// direction component only constrain the origin (math.Min/Max propagate
// NaN, so the degenerate reciprocals are branched explicitly); zero
// extent axes behave as infinitely thin slabs. Misses, boxes entirely
// behind the origin, and grazing exits at t <= 0 report no hit.
func IntersectRayBox(pos, dir r2.Vec, b Box) (float64, bool) {
	center := Midpoint(b.Min, b.Max)
	half := r2.Scale(0.5, b.Size())
	shifted := r2.Sub(pos, center)

	tNear := math.Inf(-1)
	tFar := math.Inf(1)

	for _, axis := range [2][3]float64{
		{shifted.X, dir.X, half.X},
		{shifted.Y, dir.Y, half.Y},
	} {
		p, d, h := axis[0], axis[1], axis[2]
		if d == 0 {
			if math.Abs(p) > h {
				return 0, false
			}
			continue
		}
		inv := 1 / d
		t1 := (-h - p) * inv
		t2 := (h - p) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tNear = math.Max(tNear, t1)
		tFar = math.Min(tFar, t2)
	}

	if tNear > tFar || tFar < epsilon {
		return 0, false
	}
	if tNear < epsilon {
		return tFar, true
	}
	return tNear, true
}

// IntersectRaySegment intersects the ray pos + t*dir with a line
// segment by solving the 2x2 parametric system. Parallel and degenerate
// configurations report no hit. A hit requires the segment parameter in
// [0, 1] and a strictly positive ray parameter.
func IntersectRaySegment(pos, dir r2.Vec, seg LineSegment) (float64, bool) {
	denom := dir.X*(seg.B.Y-seg.A.Y) - dir.Y*(seg.B.X-seg.A.X)
	if math.Abs(denom) < epsilon {
		return 0, false
	}

	u := (dir.X*(pos.Y-seg.A.Y) - dir.Y*(pos.X-seg.A.X)) / denom
	if u < 0 || u > 1 {
		return 0, false
	}

	t := ((pos.X-seg.A.X)*(seg.A.Y-seg.B.Y) - (pos.Y-seg.A.Y)*(seg.A.X-seg.B.X)) / denom
	if t <= epsilon {
		return 0, false
	}
	return t, true
}
