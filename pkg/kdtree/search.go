package kdtree

import (
	"math"

	"github.com/azybler/oddson/internal/arena"
	"github.com/azybler/oddson/pkg/geom"
	"github.com/azybler/oddson/pkg/pq"
)

// KNN returns the k nearest neighbours of q, in ascending distance
// order, using a best-first branch-and-bound search: a priority-queue
// frontier of unvisited subtrees, keyed by an admissible lower bound on
// the distance of any point inside them to q, lets the search backtrack
// only into subtrees that could still beat the current k-th best.
// eps relaxes the bound for an (1+eps)-approximate search: eps=0 is
// exact.
func (t *Tree[T]) KNN(q geom.Point, k int, eps float64) []Result[T] {
	return t.knnFrom(q, k, eps, nil)
}

// NN returns the single nearest neighbour of q. ok is false only for an
// empty tree.
func (t *Tree[T]) NN(q geom.Point) (result Result[T], ok bool) {
	rs := t.KNN(q, 1, 0)
	if len(rs) == 0 {
		return Result[T]{}, false
	}
	return rs[0], true
}

// KNNSeeded runs KNN with a frontier pre-seeded with candidate nodes
// (arena.Ref payloads) from a prior traversal — the mechanism the
// Odds-On cache uses to hand the backing index the candidates it found
// while descending for q. The root is still pushed at priority 0, so the
// search covers the tree exactly as KNN does; seeded nodes are expanded
// in priority order alongside it, and a node reached more than once
// contributes its item to the result only once.
func (t *Tree[T]) KNNSeeded(q geom.Point, k int, eps float64, seed *pq.Unbounded) []Result[T] {
	return t.knnFrom(q, k, eps, seed)
}

// NewSeedFrontier returns an empty frontier suitable for KNNSeeded.
func NewSeedFrontier() *pq.Unbounded {
	return pq.NewUnbounded(32)
}

func (t *Tree[T]) knnFrom(q geom.Point, k int, eps float64, seed *pq.Unbounded) []Result[T] {
	if k <= 0 {
		return nil
	}
	frontier := seed
	if frontier == nil {
		frontier = pq.NewUnbounded(32)
	}
	if t.root != arena.Nil {
		frontier.Push(0, t.root)
	}

	// A seeded node may also be reached from the root; seen keeps its
	// item from entering the result twice.
	var seen map[arena.Ref]bool
	if seed != nil {
		seen = make(map[arena.Ref]bool)
	}

	t.searches++
	popped := 0
	result := pq.NewBounded(k)
	for frontier.Len() > 0 {
		e := frontier.Pop()
		popped++
		ref := e.Payload.(arena.Ref)
		lowerBoundSq := e.Priority * e.Priority
		if result.Full() && (1.0+eps)*lowerBoundSq >= result.Peek().Priority {
			// Frontier priorities are non-decreasing across pops (it's a
			// min-heap), so once one entry fails to beat the current
			// k-th best, no later entry can either.
			break
		}

		for ref != arena.Nil {
			if popped > 1 {
				t.backtrackVisits++
			} else {
				t.nodesVisited++
			}
			n := t.nodes.Get(ref)
			item := t.items[n.itemIdx]
			d := geom.SqDist(t.pointOf(item), q)
			if (!result.Full() || d < result.Peek().Priority) && !seen[ref] {
				result.Push(d, resultPayload[T]{item: item, ref: ref})
				if seen != nil {
					seen[ref] = true
				}
			}

			near, far := n.left, n.right
			if q[n.axis] >= n.median {
				near, far = n.right, n.left
			}

			if far != arena.Nil {
				planeDist := math.Abs(n.median - q[n.axis])
				if !result.Full() || (1.0+eps)*(planeDist*planeDist) < result.Peek().Priority {
					frontier.Push(planeDist, far)
				}
			}
			ref = near
		}
	}

	items := result.Drain()
	out := make([]Result[T], len(items))
	for i, it := range items {
		p := it.Payload.(resultPayload[T])
		out[i] = Result[T]{Item: p.item, SqDist: it.Priority, Ref: p.ref}
	}
	return out
}

// resultPayload carries a result's originating node ref alongside its
// item, so callers that need node identity (the cache's interference
// query, pre-seeding) can get it without a second lookup.
type resultPayload[T any] struct {
	item T
	ref  arena.Ref
}

// Locate descends the tree by axis comparison alone, with no bounds
// tracking, and returns the item stored at the leaf reached. It gives
// incorrect results for a query point outside the bounds of the
// original build set — callers must know q falls within range, which
// the Odds-On cache guarantees by construction since q is drawn from
// the same bounding box as the sample that built it.
func (t *Tree[T]) Locate(q geom.Point) (item T, ok bool) {
	if t.root == arena.Nil {
		return item, false
	}
	ref := t.root
	for {
		n := t.nodes.Get(ref)
		var next arena.Ref
		if q[n.axis] < n.median {
			next = n.left
		} else {
			next = n.right
		}
		if next == arena.Nil {
			return t.items[n.itemIdx], true
		}
		ref = next
	}
}

// LocatePath behaves like Locate but calls visit on every item along
// the descent path from root to leaf, inclusive, stopping early if
// visit returns false. The Odds-On cache uses this both to stop at the
// first certified ancestor and to pre-seed a backing-index search with
// every candidate it saw on the way to a miss, rather than discarding
// that work.
func (t *Tree[T]) LocatePath(q geom.Point, visit func(item T) bool) {
	if t.root == arena.Nil {
		return
	}
	ref := t.root
	for {
		n := t.nodes.Get(ref)
		if !visit(t.items[n.itemIdx]) {
			return
		}
		var next arena.Ref
		if q[n.axis] < n.median {
			next = n.left
		} else {
			next = n.right
		}
		if next == arena.Nil {
			return
		}
		ref = next
	}
}

// RangeSearch returns every item whose coordinates fall within the
// closed box [lo, hi], inclusive on both ends.
func (t *Tree[T]) RangeSearch(lo, hi geom.Point) []T {
	var out []T
	query := geom.Bounds{Min: lo, Max: hi}
	region := geom.NewUnboundedBounds(t.dim)
	t.rangeSearch(t.root, query, region, &out)
	return out
}

// RangeCount returns the number of items within [lo, hi]. It runs the
// same traversal as RangeSearch, collecting the matching items, and
// returns how many it collected; no per-subtree counts are stored.
func (t *Tree[T]) RangeCount(lo, hi geom.Point) int {
	var out []T
	query := geom.Bounds{Min: lo, Max: hi}
	region := geom.NewUnboundedBounds(t.dim)
	t.rangeSearch(t.root, query, region, &out)
	return len(out)
}

func (t *Tree[T]) rangeSearch(ref arena.Ref, query, region geom.Bounds, out *[]T) {
	if ref == arena.Nil {
		return
	}
	n := t.nodes.Get(ref)
	item := t.items[n.itemIdx]
	if query.Contains(t.pointOf(item)) {
		*out = append(*out, item)
	}

	if n.left == arena.Nil && n.right == arena.Nil {
		return
	}

	leftRegion := region
	leftRegion.Max = region.Max.Clone()
	leftRegion.Max[n.axis] = n.median
	t.descendRange(n.left, query, leftRegion, out)

	rightRegion := region
	rightRegion.Min = region.Min.Clone()
	rightRegion.Min[n.axis] = n.median
	t.descendRange(n.right, query, rightRegion, out)
}

func (t *Tree[T]) descendRange(ref arena.Ref, query, region geom.Bounds, out *[]T) {
	if ref == arena.Nil {
		return
	}
	if regionWithin(region, query) {
		t.reportSubtree(ref, out)
		return
	}
	if regionsOverlap(region, query) {
		t.rangeSearch(ref, query, region, out)
	}
}

func (t *Tree[T]) reportSubtree(ref arena.Ref, out *[]T) {
	if ref == arena.Nil {
		return
	}
	n := t.nodes.Get(ref)
	*out = append(*out, t.items[n.itemIdx])
	t.reportSubtree(n.left, out)
	t.reportSubtree(n.right, out)
}

// regionWithin reports whether region is entirely contained in query,
// letting a range search short-circuit into a plain subtree walk
// instead of per-node box tests.
func regionWithin(region, query geom.Bounds) bool {
	for i := range region.Min {
		if region.Min[i] < query.Min[i] || region.Max[i] > query.Max[i] {
			return false
		}
	}
	return true
}

// regionsOverlap reports whether the axis-aligned boxes region and
// query share any point.
func regionsOverlap(region, query geom.Bounds) bool {
	for i := range region.Min {
		if region.Min[i] > query.Max[i] || region.Max[i] < query.Min[i] {
			return false
		}
	}
	return true
}
