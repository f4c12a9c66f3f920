package oddson

import (
	"math"

	"github.com/azybler/oddson/pkg/geom"
	"github.com/azybler/oddson/pkg/kdtree"
	"github.com/azybler/oddson/pkg/pq"
)

// cachedPoint augments a sample point with the certification state the
// interference query attaches to its k-d-tree node: whether that node
// turned out terminal, and the candidate site the query witnessed there
// (set even on a failed certification, from the first corner checked,
// so non-terminal ancestors still carry a usable pre-seeding guess).
type cachedPoint struct {
	p        geom.Point
	terminal bool
	hasSite  bool
	site     Site
	siteRef  kdtree.NodeRef
}

func cachedPointOf(c *cachedPoint) geom.Point { return c.p }

// KDCache is the k-d-tree Odds-On cache (Strategy A): the primary,
// required cache strategy. Construction runs the interference query as
// the k-d tree's terminal predicate, so a cell is left uncut as soon as
// it certifies, and abandoned uncertified once maxDepth is exceeded.
type KDCache struct {
	dim    int
	bounds geom.Bounds
	tree   *kdtree.Tree[*cachedPoint]
	stats  CacheStats
}

// BuildKDCache builds a KDCache from sample over the reference set
// backed by backing, to at most maxDepth levels of recursion.
func BuildKDCache(dim int, sample []geom.Point, backing *Backing, maxDepth int) *KDCache {
	var bounds geom.Bounds
	for _, p := range sample {
		bounds.Grow(p)
	}

	items := make([]*cachedPoint, len(sample))
	for i, p := range sample {
		items[i] = &cachedPoint{p: p}
	}

	c := &KDCache{dim: dim, bounds: bounds}
	terminal := func(items []*cachedPoint, lo, hi, pivot int, nodeBounds geom.Bounds, depth int) bool {
		c.stats.Nodes++
		cp := items[pivot]

		if depth > maxDepth {
			return true
		}

		witness, all, queried := certifyCorners(backing, nodeBounds)
		c.stats.BuildQueries += queried
		cp.hasSite = true
		cp.site = witness.Item
		cp.siteRef = witness.Ref
		if !all {
			return false
		}
		cp.terminal = true
		c.stats.Terminal++
		return true
	}

	c.tree = kdtree.BuildCached(dim, items, cachedPointOf, bounds, terminal)
	return c
}

// Locate implements Cache.
func (c *KDCache) Locate(q geom.Point) (Site, bool) {
	if !c.bounds.Contains(q) {
		return Site{}, false
	}
	var found Site
	var ok bool
	c.tree.LocatePath(q, func(cp *cachedPoint) bool {
		if cp.terminal {
			found, ok = cp.site, true
			return false
		}
		return true
	})
	return found, ok
}

// Seed implements Cache.
func (c *KDCache) Seed(q geom.Point, frontier *pq.Unbounded) {
	if !c.bounds.Contains(q) {
		return
	}
	c.tree.LocatePath(q, func(cp *cachedPoint) bool {
		if cp.terminal {
			return false
		}
		if cp.hasSite {
			d := geom.SqDist(cp.site.P, q)
			frontier.Push(math.Sqrt(d), cp.siteRef)
		}
		return true
	})
}

// Stats implements Cache.
func (c *KDCache) Stats() CacheStats { return c.stats }
