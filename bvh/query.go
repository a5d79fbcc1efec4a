package bvh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/scout/geom"
)

// CastRay returns the distance along pos + t*dir to the nearest segment
// in the tree, traversing breadth-first with an explicit queue. Every
// subtree whose box the ray enters is visited; box overlap does not
// imply the nearest element, so there is no early termination. The
// segments slice must be the one the tree was built from.
func (t *Tree) CastRay(pos, dir r2.Vec, segments []geom.LineSegment) (float64, bool) {
	queue := make([]NodeID, 0, 64)
	queue = append(queue, t.root)

	min := math.Inf(1)

	for len(queue) > 0 {
		node := t.nodes[queue[0]]
		queue = queue[1:]

		if _, ok := geom.IntersectRayBox(pos, dir, node.Rect); !ok {
			continue
		}

		queue = append(queue, node.Children...)
		for _, idx := range node.Elements {
			if d, ok := geom.IntersectRaySegment(pos, dir, segments[idx]); ok && d < min {
				min = d
			}
		}
	}

	if math.IsInf(min, 1) {
		return 0, false
	}
	return min, true
}

// Query collects the indices of all segments whose leaf boxes overlap
// the given box. Used by map queries that need candidate geometry in a
// region.
func (t *Tree) Query(box geom.Box) []int {
	queue := make([]NodeID, 0, 64)
	queue = append(queue, t.root)

	var out []int
	for len(queue) > 0 {
		node := t.nodes[queue[0]]
		queue = queue[1:]

		if !node.Rect.Overlaps(box) {
			continue
		}

		queue = append(queue, node.Children...)
		out = append(out, node.Elements...)
	}
	return out
}
