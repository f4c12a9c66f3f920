package oddson

import (
	"github.com/azybler/oddson/pkg/geom"
	"github.com/azybler/oddson/pkg/kdtree"
	"github.com/azybler/oddson/pkg/pq"
)

// Backing is the exact nearest-neighbor index over the reference set
// P: a k-d tree supporting kNN, single-NN, range search and range
// count. It is built once and never mutated; the cache's interference
// query and a facade's cache-miss fallthrough are its only callers.
type Backing struct {
	dim  int
	tree *kdtree.Tree[Site]
}

// NewBacking builds the backing index over points. Callers own points
// and must keep it alive for the life of the returned Backing.
func NewBacking(dim int, points []geom.Point) *Backing {
	sites := Sites(points)
	return &Backing{dim: dim, tree: kdtree.Build(dim, sites, sitePoint)}
}

// Dim returns the index's dimensionality.
func (b *Backing) Dim() int { return b.dim }

// Len returns the number of sites in the index.
func (b *Backing) Len() int { return b.tree.Len() }

// NN returns the exact nearest site to q. ok is false only when the
// index holds no sites at all.
func (b *Backing) NN(q geom.Point) (Site, bool) {
	r, ok := b.tree.NN(q)
	if !ok {
		return Site{}, false
	}
	return r.Item, true
}

// NNRef returns the exact nearest site to q along with the backing
// node it came from, for callers (the cache's interference query,
// pre-seeding) that need to compare or reuse node identity rather than
// just the site's value.
func (b *Backing) NNRef(q geom.Point) (kdtree.Result[Site], bool) {
	return b.tree.NN(q)
}

// KNN returns the k nearest sites to q, in ascending distance, subject
// to an (1+eps)-approximation factor (eps=0 is exact). k<=0 or an empty
// index returns no results, never an error.
func (b *Backing) KNN(q geom.Point, k int, eps float64) []kdtree.Result[Site] {
	return b.tree.KNN(q, k, eps)
}

// KNNSeeded runs KNN with a frontier pre-seeded from a cache descent,
// the mechanism the facade uses to hand the backing search the
// candidates the cache descent already turned up.
func (b *Backing) KNNSeeded(q geom.Point, k int, eps float64, seed *pq.Unbounded) []kdtree.Result[Site] {
	return b.tree.KNNSeeded(q, k, eps, seed)
}

// RangeSearch returns every site within the closed box [lo, hi].
func (b *Backing) RangeSearch(lo, hi geom.Point) []Site {
	return b.tree.RangeSearch(lo, hi)
}

// RangeCount returns the number of sites within [lo, hi].
func (b *Backing) RangeCount(lo, hi geom.Point) int {
	return b.tree.RangeCount(lo, hi)
}

// SearchStats reports the backing tree's cumulative kNN search counters:
// total searches run, nodes visited on initial descent, and nodes
// visited while backtracking into sibling subtrees.
func (b *Backing) SearchStats() (searches, nodesVisited, backtrackVisited int64) {
	return b.tree.SearchStats()
}
