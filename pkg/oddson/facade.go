package oddson

import (
	"github.com/azybler/oddson/pkg/geom"
	"github.com/azybler/oddson/pkg/kdtree"
	"github.com/azybler/oddson/pkg/pq"
)

// Facade composes a cache with its backing index, routing every query
// to the cache first and falling through to the backing index on a
// miss. It owns both exclusively; both hold non-owning references into
// the caller-supplied point set, which must outlive the Facade.
type Facade struct {
	backing *Backing
	cache   Cache

	queries int64
	hits    int64

	// Backing search counters as of NewFacade, so BackingSearchStats
	// excludes searches run before the facade existed (cache build).
	baseSearches, baseVisited, baseBacktrack int64
}

// NewFacade composes backing and cache into a Facade.
func NewFacade(backing *Backing, cache Cache) *Facade {
	f := &Facade{backing: backing, cache: cache}
	f.baseSearches, f.baseVisited, f.baseBacktrack = backing.SearchStats()
	return f
}

// Nn returns the nearest site to q within an (1+eps) approximation
// factor, and its squared distance. ok is false only against an empty
// backing index. A cache hit short-circuits the backing search
// entirely; eps is ignored on a hit since the cached answer is exact.
func (f *Facade) Nn(q geom.Point, eps float64) (site Site, sqDist float64, ok bool) {
	f.queries++

	if site, hit := f.cache.Locate(q); hit {
		f.hits++
		return site, geom.SqDist(site.P, q), true
	}

	rs := f.backing.KNN(q, 1, eps)
	if len(rs) == 0 {
		return Site{}, 0, false
	}
	return rs[0].Item, rs[0].SqDist, true
}

// Knn returns the k nearest sites to q, ascending by distance, within
// an (1+eps) approximation factor. When the cache has candidates along
// q's descent path it seeds the backing search's frontier with them,
// pruning more aggressively than a cold search would.
func (f *Facade) Knn(q geom.Point, k int, eps float64) []kdtree.Result[Site] {
	f.queries++

	// Pre-seeding only prunes the backing search, it never short-circuits
	// it the way a single-NN cache hit does, so it does not count toward
	// hits — queries still reach the backing index either way.
	frontier := pq.NewUnbounded(8)
	f.cache.Seed(q, frontier)
	if frontier.Len() > 0 {
		return f.backing.KNNSeeded(q, k, eps, frontier)
	}
	return f.backing.KNN(q, k, eps)
}

// Stats reports the facade's cumulative query/hit counters. hits and
// queries are observability-only: under concurrent read-only sharing of
// a constructed Facade they may race, which is an accepted
// approximation rather than a correctness requirement.
func (f *Facade) Stats() (queries, hits int64) {
	return f.queries, f.hits
}

// CacheStats reports the underlying cache's build-time statistics.
func (f *Facade) CacheStats() CacheStats {
	return f.cache.Stats()
}

// BackingSearchStats reports the backing index's cumulative kNN search
// counters since this Facade was created, for an "average nodes visited
// per backing query" style observability report. Searches run before
// NewFacade, such as the cache build's corner queries, are not counted.
func (f *Facade) BackingSearchStats() (searches, nodesVisited, backtrackVisited int64) {
	s, v, b := f.backing.SearchStats()
	return s - f.baseSearches, v - f.baseVisited, b - f.baseBacktrack
}
