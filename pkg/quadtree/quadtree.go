// Package quadtree implements a compressed 2^d-way quadtree over ℝ^d
// point sets, following Eppstein, Goodrich & Sun's skip quadtree
// construction: a node whose points bucket into fewer than two
// non-empty children collapses into that single child, so a tree over
// clustered or low-dimensional data doesn't pay for a chain of
// single-child levels. It serves as the alternative Odds-On cache
// backing (Strategy B) alongside the k-d-tree cache.
package quadtree

import (
	"math"

	"github.com/azybler/oddson/internal/arena"
	"github.com/azybler/oddson/pkg/geom"
	"github.com/azybler/oddson/pkg/pq"
)

// PointOf extracts the coordinates of an item.
type PointOf[T any] func(T) geom.Point

// TerminalFunc reports whether the node about to be built over pts is
// terminal: construction stops there and the node becomes a leaf even
// if more than one point remains under it. Mirrors kdtree.TerminalFunc.
type TerminalFunc[T any] func(items []T, bounds geom.Bounds, depth int) bool

type node struct {
	mid      geom.Point
	radius   float64
	itemIdx  int         // valid only when children == nil
	children []arena.Ref // len 2^dim when internal, nil when a leaf
}

// Tree is a static compressed quadtree over items of type T.
type Tree[T any] struct {
	dim     int
	items   []T
	pointOf PointOf[T]
	nodes   *arena.Arena[node]
	nchild  int // 2^dim
	root    arena.Ref
}

// Build constructs a compressed quadtree over items, covering bounds
// (typically the bounding box of items, possibly padded by the caller).
func Build[T any](dim int, items []T, pointOf PointOf[T], bounds geom.Bounds) *Tree[T] {
	return build(dim, items, pointOf, bounds, nil)
}

// BuildCached behaves like Build but calls terminal(items, bounds,
// depth) before recursing into the bucket's children; a true result
// keeps the node a leaf regardless of how many items it covers.
func BuildCached[T any](dim int, items []T, pointOf PointOf[T], bounds geom.Bounds, terminal TerminalFunc[T]) *Tree[T] {
	return build(dim, items, pointOf, bounds, terminal)
}

func build[T any](dim int, items []T, pointOf PointOf[T], bounds geom.Bounds, terminal TerminalFunc[T]) *Tree[T] {
	mid := make(geom.Point, dim)
	var radius float64
	for d := 0; d < dim; d++ {
		mid[d] = (bounds.Min[d] + bounds.Max[d]) / 2
		side := (bounds.Max[d] - bounds.Min[d]) / 2
		if side > radius {
			radius = side
		}
	}

	// Every leaf takes one arena slot and every node with two or more
	// non-empty children takes one; a single-child node is replaced by
	// its child and takes none. n items give at most n leaves and n-1
	// internal nodes, so 2*len(items) is a safe upper bound.
	t := &Tree[T]{
		dim:     dim,
		items:   items,
		pointOf: pointOf,
		nodes:   arena.New[node](2 * len(items)),
		nchild:  1 << uint(dim),
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	t.root = t.worker(mid, radius, idx, terminal, 0)
	return t
}

// worker builds the subtree over the items named by idx, centered at
// mid with half-side-length radius, and returns its ref.
func (t *Tree[T]) worker(mid geom.Point, radius float64, idx []int, terminal TerminalFunc[T], depth int) arena.Ref {
	newNode := func(itemIdx int, children []arena.Ref) arena.Ref {
		ref := t.nodes.Alloc()
		n := t.nodes.Get(ref)
		n.mid, n.radius, n.itemIdx, n.children = mid, radius, itemIdx, children
		return ref
	}

	items := make([]T, len(idx))
	for i, j := range idx {
		items[i] = t.items[j]
	}
	bounds := geom.Bounds{Min: subPoint(mid, radius), Max: addPoint(mid, radius)}

	if len(idx) == 1 {
		if terminal != nil {
			terminal(items, bounds, depth)
		}
		return newNode(idx[0], nil)
	}

	if terminal != nil && terminal(items, bounds, depth) {
		return newNode(idx[0], nil)
	}

	buckets := make([][]int, t.nchild)
	for _, j := range idx {
		p := t.pointOf(t.items[j])
		bucket := 0
		for d := 0; d < t.dim; d++ {
			if p[d] > mid[d] {
				bucket += 1 << uint(d)
			}
		}
		buckets[bucket] = append(buckets[bucket], j)
	}

	children := make([]arena.Ref, t.nchild)
	ninteresting := 0
	newRadius := radius / 2
	for b := 0; b < t.nchild; b++ {
		if len(buckets[b]) == 0 {
			children[b] = arena.Nil
			continue
		}
		ninteresting++
		childMid := make(geom.Point, t.dim)
		for d := 0; d < t.dim; d++ {
			if b&(1<<uint(d)) != 0 {
				childMid[d] = mid[d] + newRadius
			} else {
				childMid[d] = mid[d] - newRadius
			}
		}
		children[b] = t.worker(childMid, newRadius, buckets[b], terminal, depth+1)
	}

	if ninteresting < 2 {
		// Compress: this node is redundant with its single non-empty
		// child, so return that child in its place instead of keeping a
		// chain of one-child levels.
		for _, c := range children {
			if c != arena.Nil {
				return c
			}
		}
	}

	return newNode(-1, children)
}

func subPoint(p geom.Point, r float64) geom.Point {
	out := make(geom.Point, len(p))
	for i, v := range p {
		out[i] = v - r
	}
	return out
}

func addPoint(p geom.Point, r float64) geom.Point {
	out := make(geom.Point, len(p))
	for i, v := range p {
		out[i] = v + r
	}
	return out
}

// Result is one entry of a nearest-neighbour query result.
type Result[T any] struct {
	Item   T
	SqDist float64
}

// locateEps is slack added to inNode's bounds test: too small a value
// lets query points that land exactly on a cell boundary fall through
// every child test and miss the tree entirely.
const locateEps = 0.000001

// inNode reports whether q lies within node ref's cell, with locateEps
// slack on each face.
func (t *Tree[T]) inNode(ref arena.Ref, q geom.Point) bool {
	n := t.nodes.Get(ref)
	for d := 0; d < t.dim; d++ {
		if n.mid[d]-n.radius-q[d] > locateEps || q[d]-n.mid[d]-n.radius > locateEps {
			return false
		}
	}
	return true
}

// KNN returns the k nearest neighbours of q, in ascending distance
// order, via the same best-first frontier search as kdtree.KNN: pop the
// closest unvisited cell, expand its non-empty children whose minimum
// possible distance to q could still beat the current k-th best.
func (t *Tree[T]) KNN(q geom.Point, k int, eps float64) []Result[T] {
	if k <= 0 || t.root == arena.Nil {
		return nil
	}
	frontier := pq.NewUnbounded(32)
	frontier.Push(0, t.root)
	result := pq.NewBounded(k)

	for frontier.Len() > 0 {
		e := frontier.Pop()
		ref := e.Payload.(arena.Ref)
		n := t.nodes.Get(ref)
		nodeDist := e.Priority * e.Priority

		if n.children == nil {
			item := t.items[n.itemIdx]
			d := geom.SqDist(t.pointOf(item), q)
			if !result.Full() || d < result.Peek().Priority {
				result.Push(d, item)
			}
			continue
		}

		kthDist := math.MaxFloat64
		if result.Full() {
			kthDist = result.Peek().Priority
		}
		if kthDist <= (1.0+eps)*nodeDist {
			break
		}

		for _, c := range n.children {
			if c == arena.Nil {
				continue
			}
			minDist := t.minPointDistToNode(q, c)
			if minDist < kthDist {
				frontier.Push(math.Sqrt(minDist), c)
			}
		}
	}

	items := result.Drain()
	out := make([]Result[T], len(items))
	for i, it := range items {
		out[i] = Result[T]{Item: it.Payload.(T), SqDist: it.Priority}
	}
	return out
}

// NN returns the single nearest neighbour of q.
func (t *Tree[T]) NN(q geom.Point) (result Result[T], ok bool) {
	rs := t.KNN(q, 1, 0)
	if len(rs) == 0 {
		return Result[T]{}, false
	}
	return rs[0], true
}

// minPointDistToNode returns the squared Euclidean distance from q to
// the nearest point of node ref's cell (zero if q is inside it): the
// sum, over every axis q falls outside the cell's span on, of that
// axis's clamped distance squared — the standard point-to-AABB bound.
func (t *Tree[T]) minPointDistToNode(q geom.Point, ref arena.Ref) float64 {
	n := t.nodes.Get(ref)
	var sum float64
	for d := 0; d < t.dim; d++ {
		lo, hi := n.mid[d]-n.radius, n.mid[d]+n.radius
		if q[d] < lo {
			diff := lo - q[d]
			sum += diff * diff
		} else if q[d] > hi {
			diff := q[d] - hi
			sum += diff * diff
		}
	}
	return sum
}

// Locate descends to the leaf whose cell contains q, using inNode's
// child test at every level. It returns the item stored at that leaf.
func (t *Tree[T]) Locate(q geom.Point) (item T, ok bool) {
	if t.root == arena.Nil {
		return item, false
	}
	ref := t.root
	for {
		n := t.nodes.Get(ref)
		if n.children == nil {
			return t.items[n.itemIdx], true
		}
		next := arena.Nil
		for _, c := range n.children {
			if c != arena.Nil && t.inNode(c, q) {
				next = c
				break
			}
		}
		if next == arena.Nil {
			var zero T
			return zero, false
		}
		ref = next
	}
}

// LocatePath calls visit on every item covering a node along the
// descent path to the leaf containing q, stopping early if visit
// returns false, for cache pre-seeding the same way
// kdtree.Tree.LocatePath does. Internal (non-leaf) nodes carry no item
// of their own, so only leaves are visited.
func (t *Tree[T]) LocatePath(q geom.Point, visit func(item T) bool) {
	if t.root == arena.Nil {
		return
	}
	ref := t.root
	for {
		n := t.nodes.Get(ref)
		if n.children == nil {
			visit(t.items[n.itemIdx])
			return
		}
		next := arena.Nil
		for _, c := range n.children {
			if c != arena.Nil && t.inNode(c, q) {
				next = c
				break
			}
		}
		if next == arena.Nil {
			return
		}
		ref = next
	}
}

// Len returns the number of items in the tree.
func (t *Tree[T]) Len() int { return len(t.items) }
