package bvh

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/scout/geom"
)

func TestSpreadBits(t *testing.T) {
	tests := []struct {
		in   uint32
		want uint64
	}{
		{0, 0},
		{1, 1},
		{0b11, 0b101},
		{0b1011, 0b1000101},
		{0xFFFF, 0x5555_5555},
	}
	for _, tc := range tests {
		if got := spreadBits(tc.in); got != tc.want {
			t.Errorf("spreadBits(%#x) = %#x, want %#x", tc.in, got, tc.want)
		}
	}
}

func TestMortonEncodeOrdersByLocality(t *testing.T) {
	// Interleaving must place y bits in the odd positions.
	if got := mortonEncode(0, 1); got != 2 {
		t.Errorf("mortonEncode(0,1) = %d, want 2", got)
	}
	if got := mortonEncode(1, 0); got != 1 {
		t.Errorf("mortonEncode(1,0) = %d, want 1", got)
	}
	if got := mortonEncode(3, 3); got != 15 {
		t.Errorf("mortonEncode(3,3) = %d, want 15", got)
	}
}

// randomSegments builds a scattering of short segments inside
// [-extent, extent]^2.
func randomSegments(rng *rand.Rand, n int, extent float64) []geom.LineSegment {
	segs := make([]geom.LineSegment, n)
	for i := range segs {
		a := r2.Vec{
			X: (rng.Float64()*2 - 1) * extent,
			Y: (rng.Float64()*2 - 1) * extent,
		}
		b := r2.Add(a, r2.Vec{
			X: (rng.Float64()*2 - 1) * 2,
			Y: (rng.Float64()*2 - 1) * 2,
		})
		segs[i] = geom.LineSegment{A: a, B: b}
	}
	return segs
}

func TestBuildEmpty(t *testing.T) {
	tree := Build(nil)

	if tree.Len() != 1 {
		t.Fatalf("empty tree has %d nodes, want 1", tree.Len())
	}
	root := tree.At(tree.Root())
	if root.Children != nil || root.Elements != nil {
		t.Error("empty root should carry neither children nor elements")
	}
	if _, ok := tree.CastRay(r2.Vec{X: 5, Y: 5}, r2.Vec{X: 1}, nil); ok {
		t.Error("empty tree should never report a hit")
	}
}

func TestBuildRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	segs := randomSegments(rng, 500, 100)
	tree := Build(segs)

	// Every input index appears in exactly one leaf.
	seen := make(map[int]int)
	globalBox := segs[0].Bounds()
	for _, seg := range segs[1:] {
		globalBox = globalBox.Encase(seg.Bounds())
	}

	var leafUnion geom.Box
	haveLeaf := false
	for id := NodeID(0); id < NodeID(tree.Len()); id++ {
		node := tree.At(id)
		if node.Children != nil && node.Elements != nil {
			t.Fatalf("node %d has both children and elements", id)
		}
		for _, idx := range node.Elements {
			seen[idx]++
		}
		if node.Elements != nil {
			if haveLeaf {
				leafUnion = leafUnion.Encase(node.Rect)
			} else {
				leafUnion = node.Rect
				haveLeaf = true
			}
		}
		// Interior boxes encase their children.
		for _, child := range node.Children {
			cr := tree.At(child).Rect
			if !boxEncases(node.Rect, cr) {
				t.Fatalf("node %d box %v does not encase child %d box %v", id, node.Rect, child, cr)
			}
		}
	}

	for i := range segs {
		if seen[i] != 1 {
			t.Errorf("segment %d appears in %d leaves, want 1", i, seen[i])
		}
	}
	if !boxEncases(leafUnion, globalBox) {
		t.Errorf("leaf union %v does not encase global box %v", leafUnion, globalBox)
	}
}

// boxEncases allows a sliver of floating error from the normalize and
// remap round trip.
func boxEncases(outer, inner geom.Box) bool {
	const slack = 1e-6
	return outer.Min.X <= inner.Min.X+slack && outer.Min.Y <= inner.Min.Y+slack &&
		outer.Max.X >= inner.Max.X-slack && outer.Max.Y >= inner.Max.Y-slack
}

func bruteForceCast(pos, dir r2.Vec, segs []geom.LineSegment) (float64, bool) {
	min := math.Inf(1)
	for _, seg := range segs {
		if d, ok := geom.IntersectRaySegment(pos, dir, seg); ok && d < min {
			min = d
		}
	}
	if math.IsInf(min, 1) {
		return 0, false
	}
	return min, true
}

func TestCastRayMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	segs := randomSegments(rng, 300, 50)
	tree := Build(segs)

	for i := 0; i < 500; i++ {
		pos := r2.Vec{
			X: (rng.Float64()*2 - 1) * 60,
			Y: (rng.Float64()*2 - 1) * 60,
		}
		dir := geom.FromAngle(rng.Float64() * 2 * math.Pi)

		got, gotHit := tree.CastRay(pos, dir, segs)
		want, wantHit := bruteForceCast(pos, dir, segs)

		if gotHit != wantHit {
			t.Fatalf("ray %d from %v along %v: hit = %v, brute force = %v", i, pos, dir, gotHit, wantHit)
		}
		if gotHit && math.Abs(got-want) > 1e-9 {
			t.Fatalf("ray %d from %v along %v: dist = %v, brute force = %v", i, pos, dir, got, want)
		}
	}
}

func TestCastRaySingleSegment(t *testing.T) {
	segs := []geom.LineSegment{{A: r2.Vec{X: -1, Y: 3}, B: r2.Vec{X: 1, Y: 3}}}
	tree := Build(segs)

	d, ok := tree.CastRay(r2.Vec{}, r2.Vec{Y: 1}, segs)
	if !ok || math.Abs(d-3) > 1e-9 {
		t.Errorf("CastRay = (%v, %v), want (3, true)", d, ok)
	}

	if _, ok := tree.CastRay(r2.Vec{}, r2.Vec{Y: -1}, segs); ok {
		t.Error("ray away from the segment should miss")
	}
}

func TestQueryBox(t *testing.T) {
	segs := []geom.LineSegment{
		{A: r2.Vec{X: 0, Y: 0}, B: r2.Vec{X: 1, Y: 0}},
		{A: r2.Vec{X: 10, Y: 10}, B: r2.Vec{X: 11, Y: 10}},
	}
	tree := Build(segs)

	got := tree.Query(geom.Box{Min: r2.Vec{X: -1, Y: -1}, Max: r2.Vec{X: 2, Y: 2}})
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("Query near origin = %v, want [0]", got)
	}

	got = tree.Query(geom.Box{Min: r2.Vec{X: -20, Y: -20}, Max: r2.Vec{X: 20, Y: 20}})
	if len(got) != 2 {
		t.Errorf("Query covering all = %v, want both indices", got)
	}
}
