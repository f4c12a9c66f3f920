// Package kdtree implements a static, balanced k-d tree over ℝ^d point
// sets. It backs both the exact nearest-neighbour index and, via
// BuildCached, the Odds-On cache itself: the cache is a second k-d tree
// built over a sample of the query distribution, whose construction can
// be cut short at any node that a caller-supplied predicate certifies
// as "terminal".
//
// Nodes live in a single arena sized to the point count, a one-block-
// per-tree discipline; child links are arena.Ref indices rather than
// pointers.
package kdtree

import (
	"math/rand"

	"github.com/azybler/oddson/internal/arena"
	"github.com/azybler/oddson/pkg/geom"
)

// PointOf extracts the coordinates of an item. Tree is generic over the
// item type so that a cache build can carry extra per-point bookkeeping
// alongside each point: certification state, a link back to the backing
// index.
type PointOf[T any] func(T) geom.Point

// TerminalFunc reports whether the node about to be built over items
// [items[lo], items[hi]) is terminal: if it returns true, the builder
// stops recursing and the node becomes a leaf even though it may still
// represent more than one input point. pivot is the absolute index of
// the node's own representative item (items[pivot] is what Locate will
// return for this node), already partitioned into its final position.
// bounds is the node's region, narrowed from the root's bounds as the
// build descends; depth is the recursion depth (axis = depth % dim).
type TerminalFunc[T any] func(items []T, lo, hi, pivot int, bounds geom.Bounds, depth int) bool

type node struct {
	itemIdx     int
	axis        int
	median      float64
	left, right arena.Ref
}

// Tree is a static k-d tree over a slice of items of type T, ordered by
// the coordinates PointOf extracts from them. Build and BuildCached
// permute items in place during construction (the classic in-place
// quickselect partition), so the item at any given index before Build
// may not be there afterward — callers needing a stable id should embed
// one in T.
type Tree[T any] struct {
	dim     int
	items   []T
	pointOf PointOf[T]
	nodes   *arena.Arena[node]
	root    arena.Ref

	searches        int64
	nodesVisited    int64
	backtrackVisits int64
}

// SearchStats reports the tree's cumulative kNN search counters:
// searches is the number of KNN/NN calls so far; nodesVisited counts
// node visits along a query's initial descent; backtrackVisited counts
// node visits made while popping the frontier back up to explore a
// sibling subtree. Both are cumulative across every search the tree has
// answered, never reset per-query, for reporting an average nodes-
// visited-per-query rate.
func (t *Tree[T]) SearchStats() (searches, nodesVisited, backtrackVisited int64) {
	return t.searches, t.nodesVisited, t.backtrackVisits
}

// Build constructs a k-d tree over items, permuting items in place.
func Build[T any](dim int, items []T, pointOf PointOf[T]) *Tree[T] {
	return build(dim, items, pointOf, geom.Bounds{}, nil)
}

// BuildCached constructs a k-d tree the same way Build does, except
// that at every node the builder calls terminal(items, lo, hi, pivot,
// bounds, depth) before recursing; if it returns true, the node is left as a
// leaf regardless of how many items remain under it. bounds is the
// bounding region of the full input set, narrowed on each recursive
// call the way the backing index's interference query narrows the
// candidate cell.
func BuildCached[T any](dim int, items []T, pointOf PointOf[T], bounds geom.Bounds, terminal TerminalFunc[T]) *Tree[T] {
	return build(dim, items, pointOf, bounds, terminal)
}

func build[T any](dim int, items []T, pointOf PointOf[T], bounds geom.Bounds, terminal TerminalFunc[T]) *Tree[T] {
	t := &Tree[T]{
		dim:     dim,
		items:   items,
		pointOf: pointOf,
		nodes:   arena.New[node](len(items)),
	}
	t.root = t.buildRange(0, len(items), 0, bounds, terminal)
	return t
}

// buildRange builds the subtree over items[lo:hi] at the given depth,
// returning its root ref (arena.Nil for an empty range). It mirrors
// build_kdtree's median-quickselect-then-recurse structure, narrowing
// bounds on each recursive call when a TerminalFunc is in play.
func (t *Tree[T]) buildRange(lo, hi, depth int, bounds geom.Bounds, terminal TerminalFunc[T]) arena.Ref {
	n := hi - lo
	if n == 0 {
		return arena.Nil
	}

	ref := t.nodes.Alloc()
	nd := t.nodes.Get(ref)

	if n == 1 {
		nd.itemIdx = lo
		nd.left, nd.right = arena.Nil, arena.Nil
		if terminal != nil {
			terminal(t.items, lo, hi, lo, bounds, depth)
		}
		return ref
	}

	axis := depth % t.dim
	nd.axis = axis

	// Even-biased rank: (n/2) rounded down to an even number, so the
	// split is stable and reproducible regardless of n's parity.
	medianIdx := ((n / 2) >> 1) << 1
	medianVal := selectOrder(t.items[lo:hi], medianIdx, axis, t.dim, t.pointOf)
	nd.itemIdx = lo + medianIdx
	nd.median = medianVal

	if terminal != nil && terminal(t.items, lo, hi, nd.itemIdx, bounds, depth) {
		nd.left, nd.right = arena.Nil, arena.Nil
		return ref
	}

	leftBounds, rightBounds := bounds, bounds
	if bounds.Min != nil {
		leftBounds.Max = bounds.Max.Clone()
		leftBounds.Max[axis] = medianVal
		rightBounds.Min = bounds.Min.Clone()
		rightBounds.Min[axis] = medianVal
	}

	left := t.buildRange(lo, lo+medianIdx, depth+1, leftBounds, terminal)
	right := t.buildRange(lo+medianIdx+1, hi, depth+1, rightBounds, terminal)

	nd.left, nd.right = left, right
	return ref
}

// selectOrder partitions items[*:*] (a sub-slice, reindexed from 0) so
// that the element at rank i (0-based) along axis ends up at position
// i, with everything less than it to the left and everything
// greater-or-equal to the right; it returns that element's coordinate.
// This is randomized quickselect: a random pivot keeps build time
// independent of the input's initial order.
func selectOrder[T any](items []T, i, axis, dim int, pointOf PointOf[T]) float64 {
	start, end := 0, len(items)-1
	for {
		if start == end {
			return pointOf(items[start])[axis]
		}
		pivot := partition(items, start, end, axis, dim, pointOf)
		switch {
		case i == pivot:
			return pointOf(items[pivot])[axis]
		case i < pivot:
			end = pivot - 1
		default:
			start = pivot + 1
		}
	}
}

func partition[T any](items []T, start, end, axis, dim int, pointOf PointOf[T]) int {
	pivot := start + rand.Intn(end-start+1)
	items[pivot], items[end] = items[end], items[pivot]

	i := start
	for j := start; j < end; j++ {
		if geom.Less(axis, pointOf(items[j]), pointOf(items[end]), dim) {
			items[i], items[j] = items[j], items[i]
			i++
		}
	}
	items[i], items[end] = items[end], items[i]
	return i
}

// Len returns the number of items in the tree.
func (t *Tree[T]) Len() int { return len(t.items) }

// Items returns the tree's items in their final, post-build order. The
// slice is owned by the tree; callers must not mutate its length.
func (t *Tree[T]) Items() []T { return t.items }

// NodeRef identifies a specific node of a Tree, stable for the tree's
// lifetime. The Odds-On cache's interference query uses it to test
// whether several corners of a candidate cell resolved to the very same
// backing node (identity, not just equal coordinates), and to pre-seed
// a later kNN search with that node directly.
type NodeRef = arena.Ref

// Result is one entry of a nearest-neighbour query result.
type Result[T any] struct {
	Item   T
	SqDist float64
	Ref    NodeRef
}

// Depth returns the tree's height, for balance-property tests:
// ceil(log2(n+1)) for a perfectly balanced tree.
func (t *Tree[T]) Depth() int {
	return t.depthOf(t.root)
}

func (t *Tree[T]) depthOf(ref arena.Ref) int {
	if ref == arena.Nil {
		return 0
	}
	n := t.nodes.Get(ref)
	l, r := t.depthOf(n.left), t.depthOf(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}
