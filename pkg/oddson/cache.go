package oddson

import (
	"github.com/azybler/oddson/pkg/geom"
	"github.com/azybler/oddson/pkg/kdtree"
	"github.com/azybler/oddson/pkg/pq"
)

// Cache is the query surface every Odds-On cache strategy (k-d-tree,
// compressed-quadtree, Z-order run) presents to a Facade. A cache never
// mutates after construction; Locate and Seed are pure functions of the
// cache plus the query point.
type Cache interface {
	// Locate descends to the first terminal ancestor on q's path and
	// returns its certified nearest site. ok is false on a definitional
	// miss: q outside the sample bounding box, or every node on the
	// descent path was non-terminal (depth cap or uncertified leaf).
	Locate(q geom.Point) (site Site, ok bool)

	// Seed pushes the candidate sites the cache holds along q's descent
	// path onto frontier, each keyed by its raw (not squared) distance
	// to q, matching the priority convention every other frontier entry
	// uses. A backing kNN search started from frontier still starts at
	// its own root and expands these candidates alongside it, so their
	// sites can tighten its pruning bound early.
	Seed(q geom.Point, frontier *pq.Unbounded)

	// Stats reports build-time counters: how many cells the build
	// examined and how many were certified terminal, for observability.
	Stats() CacheStats
}

// CacheStats summarizes a cache's construction, independent of query
// activity (which a Facade tracks itself via hits/queries).
type CacheStats struct {
	Nodes    int
	Terminal int

	// BuildQueries counts every corner NN query run by the interference
	// query during construction, across every node: each certification
	// attempt stops querying as soon as one corner disagrees, so this is
	// not simply Nodes * 2^d.
	BuildQueries int
}

// certifyCorners runs the interference query over bounds: the exact
// backing nearest neighbor of every one of its 2^d corners. It always
// returns the first corner's nearest site as first (a representative
// candidate usable for pre-seeding even when certification fails), and
// all reports whether every corner agreed on that same site — the
// condition for marking the cell terminal. Correct by convexity of
// Euclidean Voronoi cells: if every corner of a convex region shares
// one nearest site, every interior point does too. queried reports how
// many corner NN queries were actually run before the result was
// decided, since a mismatch short-circuits the remaining corners.
func certifyCorners(backing *Backing, bounds geom.Bounds) (first kdtree.Result[Site], all bool, queried int) {
	for i, c := range bounds.Corners() {
		r, ok := backing.NNRef(c)
		queried++
		if !ok {
			return kdtree.Result[Site]{}, false, queried
		}
		if i == 0 {
			first = r
			continue
		}
		if r.Ref != first.Ref {
			return first, false, queried
		}
	}
	return first, true, queried
}
