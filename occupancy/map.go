// Package occupancy turns a binary occupancy grid into boundary
// geometry and answers point and ray queries against it. The grid is
// centered on the world origin with Y increasing upward; each cell is
// one world unit. A Map is built once and never mutated afterward, so
// concurrent readers need no locking.
package occupancy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/scout/bvh"
	"github.com/pthm-cable/scout/geom"
)

// ObjectTag labels the connected component a cell belongs to. Tags are
// assigned during flood fill from a monotonically increasing counter:
// occupied components first, then free-space components.
type ObjectTag int

// untagged marks cells not yet claimed by a component during flood
// fill; no cell keeps it once FromPixels returns.
const untagged ObjectTag = -1

// Map is an immutable occupancy grid with its boundary segments and the
// spatial index built over them.
type Map struct {
	Width  int
	Height int

	// Pixels is the source grid, true for occupied cells, row-major
	// with row 0 at the top of the world.
	Pixels []bool

	// Objects labels each cell with its connected component.
	Objects []ObjectTag

	// Boundaries holds one directed unit segment per grid-cell edge
	// separating an occupied cell from a free cell. Edges along the
	// map border are not included. This is the map's exposed geometry.
	Boundaries []geom.LineSegment

	// BVH indexes Boundaries for ray and box queries.
	BVH *bvh.Tree
}

// Snapshot is the immutable view of scene state handed to sensing jobs:
// the scene clock at spawn time and the shared map.
type Snapshot struct {
	Time float64
	Map  *Map
}

// direction identifies the side of a cell an outward boundary edge
// lies on.
type direction int

const (
	north direction = iota
	east
	south
	west
)

// boundarySegment returns the world-space edge of cell (x, y) on the
// given side, oriented clockwise around the occupied cell.
func boundarySegment(width, height, x, y int, dir direction) geom.LineSegment {
	topLeft := r2.Vec{
		X: float64(x) - float64(width)/2,
		Y: float64(height)/2 - float64(y),
	}

	switch dir {
	case north:
		return geom.LineSegment{A: topLeft, B: r2.Add(topLeft, r2.Vec{X: 1})}
	case east:
		return geom.LineSegment{
			A: r2.Add(topLeft, r2.Vec{X: 1}),
			B: r2.Add(topLeft, r2.Vec{X: 1, Y: -1}),
		}
	case south:
		return geom.LineSegment{
			A: r2.Add(topLeft, r2.Vec{X: 1, Y: -1}),
			B: r2.Add(topLeft, r2.Vec{Y: -1}),
		}
	default: // west
		return geom.LineSegment{A: r2.Add(topLeft, r2.Vec{Y: -1}), B: topLeft}
	}
}

// FromPixels builds a map from a row-major grid of occupied flags. The
// pixel count must match width*height exactly; a mismatch is the only
// construction error and no partial map is returned. Flood fill labels
// every 4-connected occupied component, emitting one boundary segment
// per (cell, outward-direction) pair facing a free in-grid cell; a
// second pass labels the free-space components. Fully free and fully
// occupied grids yield empty boundary lists.
func FromPixels(width, height int, pixels []bool) (*Map, error) {
	if len(pixels) != width*height {
		return nil, fmt.Errorf("occupancy: got %d pixels for %dx%d grid", len(pixels), width, height)
	}

	objects := make([]ObjectTag, len(pixels))
	for i := range objects {
		objects[i] = untagged
	}

	var boundaries []geom.LineSegment
	stack := make([]int, 0, 64)
	nextTag := ObjectTag(0)

	for seed, occupied := range pixels {
		if !occupied || objects[seed] != untagged {
			continue
		}

		tag := nextTag
		nextTag++

		// Cells are tagged when pushed, so each is expanded exactly
		// once and each boundary edge is emitted exactly once.
		objects[seed] = tag
		stack = append(stack, seed)

		for len(stack) > 0 {
			cell := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := cell%width, cell/width

			// Off-grid neighbors are not exposed: cells on the map
			// border emit no edge there, so a fully occupied grid has
			// no boundary at all.
			expand := func(nx, ny int, dir direction) {
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					return
				}
				k := ny*width + nx
				if !pixels[k] {
					boundaries = append(boundaries, boundarySegment(width, height, x, y, dir))
					return
				}
				if objects[k] == untagged {
					objects[k] = tag
					stack = append(stack, k)
				}
			}

			expand(x-1, y, west)
			expand(x+1, y, east)
			expand(x, y-1, north)
			expand(x, y+1, south)
		}
	}

	// Second pass: tag the free-space components so every cell carries
	// a component label.
	for seed, occupied := range pixels {
		if occupied || objects[seed] != untagged {
			continue
		}

		tag := nextTag
		nextTag++

		objects[seed] = tag
		stack = append(stack, seed)

		for len(stack) > 0 {
			cell := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := cell%width, cell/width

			claim := func(nx, ny int) {
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					return
				}
				k := ny*width + nx
				if !pixels[k] && objects[k] == untagged {
					objects[k] = tag
					stack = append(stack, k)
				}
			}

			claim(x-1, y)
			claim(x+1, y)
			claim(x, y-1)
			claim(x, y+1)
		}
	}

	return &Map{
		Width:      width,
		Height:     height,
		Pixels:     pixels,
		Objects:    objects,
		Boundaries: boundaries,
		BVH:        bvh.Build(boundaries),
	}, nil
}

// InBounds reports whether the world point lies strictly inside the
// map.
func (m *Map) InBounds(p r2.Vec) bool {
	return math.Abs(p.X) < float64(m.Width)/2 && math.Abs(p.Y) < float64(m.Height)/2
}

// InBoundsCell reports whether (x, y) is a valid cell coordinate.
func (m *Map) InBoundsCell(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// Translate maps a world point to the cell coordinates containing it.
// The result may lie outside the grid.
func (m *Map) Translate(p r2.Vec) (x, y int) {
	x = int(math.Floor(p.X + float64(m.Width)/2))
	y = int(math.Floor(float64(m.Height)/2 - p.Y))
	return x, y
}

// CellBox returns the world-space box of cell (x, y).
func (m *Map) CellBox(x, y int) geom.Box {
	topLeft := r2.Vec{
		X: float64(x) - float64(m.Width)/2,
		Y: float64(m.Height)/2 - float64(y),
	}
	return geom.Box{
		Min: r2.Vec{X: topLeft.X, Y: topLeft.Y - 1},
		Max: r2.Vec{X: topLeft.X + 1, Y: topLeft.Y},
	}
}

// IsOccupiedCell reports whether cell (x, y) is occupied. Cells off the
// grid count as occupied.
func (m *Map) IsOccupiedCell(x, y int) bool {
	if !m.InBoundsCell(x, y) {
		return true
	}
	return m.Pixels[y*m.Width+x]
}

// IsOccupied reports whether the world point lies in an occupied cell.
// Points outside the map count as occupied.
func (m *Map) IsOccupied(p r2.Vec) bool {
	if !m.InBounds(p) {
		return true
	}
	x, y := m.Translate(p)
	return m.Pixels[y*m.Width+x]
}

// FreeCells returns the coordinates of every free cell in row-major
// order. The result is empty for a fully occupied map.
func (m *Map) FreeCells() [][2]int {
	var cells [][2]int
	for i, occupied := range m.Pixels {
		if !occupied {
			cells = append(cells, [2]int{i % m.Width, i / m.Width})
		}
	}
	return cells
}

// CastRay returns the distance to the nearest boundary segment along
// the ray, if any.
func (m *Map) CastRay(pos, dir r2.Vec) (float64, bool) {
	return m.BVH.CastRay(pos, dir, m.Boundaries)
}

// BoundariesIn returns the boundary segments whose leaves overlap the
// given box.
func (m *Map) BoundariesIn(box geom.Box) []geom.LineSegment {
	indices := m.BVH.Query(box)
	segs := make([]geom.LineSegment, len(indices))
	for i, idx := range indices {
		segs[i] = m.Boundaries[idx]
	}
	return segs
}
