package oddson

import (
	"math"

	"github.com/azybler/oddson/pkg/geom"
	"github.com/azybler/oddson/pkg/pq"
	"github.com/azybler/oddson/pkg/quadtree"
)

// QuadCache is the compressed-quadtree Odds-On cache (Strategy B): the
// same interference query as KDCache, run over the corners of a
// 2^d-way branching, path-compressed cube instead of a k-d split. Path
// compression skips the chains of single-child cubes a clustered sample
// would otherwise produce; every cell is still a cube, so it does not
// produce cells of other aspect ratios.
type QuadCache struct {
	bounds geom.Bounds
	tree   *quadtree.Tree[*cachedPoint]
	stats  CacheStats
}

// BuildQuadCache builds a QuadCache from sample over the reference set
// backed by backing, to at most maxDepth levels of recursion.
func BuildQuadCache(dim int, sample []geom.Point, backing *Backing, maxDepth int) *QuadCache {
	var bounds geom.Bounds
	for _, p := range sample {
		bounds.Grow(p)
	}

	items := make([]*cachedPoint, len(sample))
	for i, p := range sample {
		items[i] = &cachedPoint{p: p}
	}

	c := &QuadCache{bounds: bounds}
	terminal := func(items []*cachedPoint, nodeBounds geom.Bounds, depth int) bool {
		c.stats.Nodes++
		if depth > maxDepth {
			return true
		}

		witness, all, queried := certifyCorners(backing, nodeBounds)
		c.stats.BuildQueries += queried
		for _, cp := range items {
			cp.hasSite = true
			cp.site = witness.Item
			cp.siteRef = witness.Ref
		}
		if !all {
			return false
		}
		for _, cp := range items {
			cp.terminal = true
		}
		c.stats.Terminal++
		return true
	}

	c.tree = quadtree.BuildCached(dim, items, cachedPointOf, bounds, terminal)
	return c
}

// Locate implements Cache.
func (c *QuadCache) Locate(q geom.Point) (Site, bool) {
	if !c.bounds.Contains(q) {
		return Site{}, false
	}
	item, ok := c.tree.Locate(q)
	if !ok || !item.terminal {
		return Site{}, false
	}
	return item.site, true
}

// Seed implements Cache.
func (c *QuadCache) Seed(q geom.Point, frontier *pq.Unbounded) {
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
func (c *QuadCache) Stats() CacheStats { return c.stats }
