package geom

import "gonum.org/v1/gonum/spatial/r2"

// Box is an axis-aligned bounding box. The Min.X <= Max.X and
// Min.Y <= Max.Y invariant is not enforced by construction; callers may
// build degenerate or empty boxes, and merge operations over empty
// bounding sets are guarded at the call site.
type Box struct {
	Min r2.Vec
	Max r2.Vec
}

// Size returns the box extents.
func (b Box) Size() r2.Vec {
	return r2.Sub(b.Max, b.Min)
}

// Centroid returns the box center.
func (b Box) Centroid() r2.Vec {
	return Midpoint(b.Min, b.Max)
}

// Contains reports whether p lies inside the box, boundary included.
func (b Box) Contains(p r2.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// ContainsBox reports whether q lies entirely inside b.
func (b Box) ContainsBox(q Box) bool {
	return b.Contains(q.Min) && b.Contains(q.Max)
}

// Overlaps reports whether b and q share any area or boundary point.
func (b Box) Overlaps(q Box) bool {
	lo := MaxVec(b.Min, q.Min)
	hi := MinVec(b.Max, q.Max)
	return lo.X <= hi.X && lo.Y <= hi.Y
}

// Encase returns the smallest box containing both b and other.
func (b Box) Encase(other Box) Box {
	return Box{Min: MinVec(b.Min, other.Min), Max: MaxVec(b.Max, other.Max)}
}

// SplitX halves the box along the X axis, returning the left and right
// halves.
func (b Box) SplitX() [2]Box {
	mid := b.Centroid()
	return [2]Box{
		{Min: b.Min, Max: r2.Vec{X: mid.X, Y: b.Max.Y}},
		{Min: r2.Vec{X: mid.X, Y: b.Min.Y}, Max: b.Max},
	}
}

// SplitY halves the box along the Y axis, returning the bottom and top
// halves.
func (b Box) SplitY() [2]Box {
	mid := b.Centroid()
	return [2]Box{
		{Min: b.Min, Max: r2.Vec{X: b.Max.X, Y: mid.Y}},
		{Min: r2.Vec{X: b.Min.X, Y: mid.Y}, Max: b.Max},
	}
}

// Quadrants splits the box into its four quadrants: top-right,
// bottom-right, bottom-left, top-left.
func (b Box) Quadrants() [4]Box {
	mid := b.Centroid()
	return [4]Box{
		{Min: mid, Max: b.Max},
		{Min: r2.Vec{X: mid.X, Y: b.Min.Y}, Max: r2.Vec{X: b.Max.X, Y: mid.Y}},
		{Min: b.Min, Max: mid},
		{Min: r2.Vec{X: b.Min.X, Y: mid.Y}, Max: r2.Vec{X: mid.X, Y: b.Max.Y}},
	}
}
