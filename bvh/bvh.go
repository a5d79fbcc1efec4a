// Package bvh builds a bounding volume hierarchy over line segments and
// answers nearest-ray-intersection queries against it. Construction is
// two-phase: Morton-sorted treelets are built independently in parallel
// and then merged under a shallow alternating-axis split tree. The tree
// is immutable once built; queries never mutate it and are safe to run
// concurrently.
package bvh

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/scout/geom"
)

// maxPrimsInNode caps the number of segment indices held by one leaf.
const maxPrimsInNode = 16

// treeletMask selects the high-order Morton bits shared by all members
// of a treelet; bits below 24 are refined by the per-treelet LBVH.
const treeletMask = uint64(0xFFFFFFFFFF000000)

// treeletStartBit is the most significant bit index refined inside a
// treelet (the lowest bit covered by treeletMask).
const treeletStartBit = 24

// splitTreeDepth bounds the top-level split tree merging treelet roots.
const splitTreeDepth = 5

// parallelThreshold is the minimum treelet count to build in parallel.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 4

// NodeID identifies a node in the tree. Ids are allocated from a shared
// monotonically increasing counter during construction and never
// reused.
type NodeID uint64

// Node is one tree node. Exactly one of Children and Elements is
// populated: interior nodes carry child ids, leaves carry indices into
// the segment slice the tree was built from. The degenerate empty root
// carries neither.
type Node struct {
	Rect     geom.Box
	Children []NodeID
	Elements []int
}

// Tree is an immutable bounding volume hierarchy.
type Tree struct {
	nodes []Node
	root  NodeID
}

// Root returns the root node id.
func (t *Tree) Root() NodeID {
	return t.root
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// At returns the node with the given id.
func (t *Tree) At(id NodeID) Node {
	return t.nodes[id]
}

// arena is the concurrent node store used during construction: ids come
// from an atomic counter, each id owns exactly one pre-sized slot, so
// parallel inserts never conflict.
type arena struct {
	nodes []Node
	next  atomic.Uint64
}

func (a *arena) alloc() NodeID {
	return NodeID(a.next.Add(1) - 1)
}

func (a *arena) put(id NodeID, n Node) {
	a.nodes[id] = n
}

// buildPrim pairs a segment index with its normalized box and Morton
// code during construction.
type buildPrim struct {
	index int
	box   geom.Box
	code  uint64
}

// treeletRoot is an emitted treelet with its normalized bounding box.
type treeletRoot struct {
	id   NodeID
	rect geom.Box
}

// Build constructs a tree over the given segments. The segments slice
// is the element space leaf indices refer to; it must outlive the tree
// for queries. Empty input yields a single zero-box root leaf.
func Build(segments []geom.LineSegment) *Tree {
	prims := make([]buildPrim, len(segments))
	var bounding geom.Box
	for i, seg := range segments {
		bx := seg.Bounds()
		if i == 0 {
			bounding = bx
		} else {
			bounding = bounding.Encase(bx)
		}
		prims[i] = buildPrim{index: i, box: bx}
	}

	if len(prims) == 0 {
		return &Tree{nodes: []Node{{}}, root: 0}
	}

	// Phase 1: remap every box into the unit square and sort by the
	// Morton code of its centroid, quantized to 20 bits per axis.
	size := bounding.Size()
	sx, sy := size.X, size.Y
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	parallelRanges(len(prims), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := &prims[i]
			p.box.Min = r2.Vec{X: (p.box.Min.X - bounding.Min.X) / sx, Y: (p.box.Min.Y - bounding.Min.Y) / sy}
			p.box.Max = r2.Vec{X: (p.box.Max.X - bounding.Min.X) / sx, Y: (p.box.Max.Y - bounding.Min.Y) / sy}
			c := p.box.Centroid()
			p.code = mortonEncode(uint32(c.X*(1<<20)), uint32(c.Y*(1<<20)))
		}
	})
	sort.Slice(prims, func(i, j int) bool { return prims[i].code < prims[j].code })

	// Maximal runs sharing the high-order Morton bits become treelets.
	type span struct{ start, end int }
	var treelets []span
	start := 0
	for end := 1; end <= len(prims); end++ {
		if end == len(prims) || prims[start].code&treeletMask != prims[end].code&treeletMask {
			treelets = append(treelets, span{start, end})
			start = end
		}
	}

	store := &arena{nodes: make([]Node, 2*len(prims)+256)}

	// Phase 2: per-treelet LBVH, independent contiguous ranges.
	roots := make([]treeletRoot, len(treelets))
	emit := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			tl := treelets[i]
			id, node := emitLBVH(treeletStartBit, prims[tl.start:tl.end], store)
			store.put(id, node)
			roots[i] = treeletRoot{id: id, rect: node.Rect}
		}
	}
	if len(treelets) < parallelThreshold {
		emit(0, len(treelets))
	} else {
		parallelRanges(len(treelets), emit)
	}

	// Phase 3: merge treelet roots under an alternating-axis split tree
	// over the unit square, X axis first.
	unit := geom.Box{Max: r2.Vec{X: 1, Y: 1}}
	rootID, rootNode := makeSplitTree(splitTreeDepth, true, roots, unit, store)
	store.put(rootID, rootNode)

	// Remap every node box from normalized space back to world
	// coordinates.
	count := store.next.Load()
	for i := uint64(0); i < count; i++ {
		rect := &store.nodes[i].Rect
		rect.Min = r2.Vec{X: rect.Min.X*sx + bounding.Min.X, Y: rect.Min.Y*sy + bounding.Min.Y}
		rect.Max = r2.Vec{X: rect.Max.X*sx + bounding.Min.X, Y: rect.Max.Y*sy + bounding.Min.Y}
	}

	return &Tree{nodes: store.nodes[:count], root: rootID}
}

// emitLBVH recursively partitions a Morton-sorted range by testing
// successive bits from bit down. The caller stores the returned node.
func emitLBVH(bit int, prims []buildPrim, store *arena) (NodeID, Node) {
	if bit < 0 || len(prims) <= maxPrimsInNode {
		var rect geom.Box
		elements := make([]int, len(prims))
		for i, p := range prims {
			if i == 0 {
				rect = p.box
			} else {
				rect = rect.Encase(p.box)
			}
			elements[i] = p.index
		}
		return store.alloc(), Node{Rect: rect, Elements: elements}
	}

	mask := uint64(1) << uint(bit)
	if prims[0].code&mask == prims[len(prims)-1].code&mask {
		return emitLBVH(bit-1, prims, store)
	}

	first := prims[0].code & mask
	split := sort.Search(len(prims), func(i int) bool {
		return prims[i].code&mask != first
	})

	id1, node1 := emitLBVH(bit-1, prims[:split], store)
	id2, node2 := emitLBVH(bit-1, prims[split:], store)

	rect := node1.Rect.Encase(node2.Rect)
	store.put(id1, node1)
	store.put(id2, node2)

	return store.alloc(), Node{Rect: rect, Children: []NodeID{id1, id2}}
}

// makeSplitTree merges treelet roots into a balanced-ish binary tree by
// alternating-axis spatial median splits. The partition keys on whether
// a treelet's centroid falls in the first half of the current region;
// that is a stable partition, not a guaranteed size-balanced median, so
// clustered centroids can skew the tree. Past the depth limit, or
// with two or fewer treelets left, a fan-out node lists the remaining
// roots directly.
func makeSplitTree(depth int, horizontal bool, roots []treeletRoot, bounding geom.Box, store *arena) (NodeID, Node) {
	if depth < 0 || len(roots) <= 2 {
		var rect geom.Box
		var children []NodeID
		for i, r := range roots {
			if i == 0 {
				rect = r.rect
			} else {
				rect = rect.Encase(r.rect)
			}
			children = append(children, r.id)
		}
		return store.alloc(), Node{Rect: rect, Children: children}
	}

	var halves [2]geom.Box
	if horizontal {
		halves = bounding.SplitX()
	} else {
		halves = bounding.SplitY()
	}

	split := stablePartition(roots, func(r treeletRoot) bool {
		return halves[0].Contains(r.rect.Centroid())
	})

	id1, node1 := makeSplitTree(depth-1, !horizontal, roots[:split], halves[0], store)
	id2, node2 := makeSplitTree(depth-1, !horizontal, roots[split:], halves[1], store)

	rect := node1.Rect.Encase(node2.Rect)
	store.put(id1, node1)
	store.put(id2, node2)

	return store.alloc(), Node{Rect: rect, Children: []NodeID{id1, id2}}
}

// stablePartition reorders roots so entries satisfying keep come first,
// preserving relative order, and returns the partition point.
func stablePartition(roots []treeletRoot, keep func(treeletRoot) bool) int {
	kept := make([]treeletRoot, 0, len(roots))
	rest := make([]treeletRoot, 0, len(roots))
	for _, r := range roots {
		if keep(r) {
			kept = append(kept, r)
		} else {
			rest = append(rest, r)
		}
	}
	copy(roots, kept)
	copy(roots[len(kept):], rest)
	return len(kept)
}

// parallelRanges splits [0, n) into one chunk per worker and runs fn on
// each chunk concurrently.
func parallelRanges(n int, fn func(lo, hi int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
