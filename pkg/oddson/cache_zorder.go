package oddson

import (
	"math"
	"sort"

	"github.com/azybler/oddson/pkg/geom"
	"github.com/azybler/oddson/pkg/kdtree"
	"github.com/azybler/oddson/pkg/pq"
	"github.com/azybler/oddson/pkg/zorder"
)

// ZCache is the Z-order run cache (Strategy C): a historical, optional
// alternative to KDCache and QuadCache. It sorts the sample into Morton
// order, finds maximal runs that already share one exact nearest site,
// and certifies each run's *entire bounding box* — all 2^d corners, not
// merely two off-diagonal ones, which would under-certify and admit
// cells that aren't actually uniform — before accepting it as a
// terminal leaf. Leaves are then merged pairwise, bottom-up, into a
// binary tree of bounding boxes for descent.
type ZCache struct {
	root  *zNode
	stats CacheStats
}

type zNode struct {
	bounds      geom.Bounds
	terminal    bool
	site        Site
	siteRef     kdtree.NodeRef
	left, right *zNode
}

// BuildZOrderCache builds a ZCache from sample over the reference set
// backed by backing. minRun is the shortest run of consecutive,
// same-nearest-site sample points worth certifying as a cell; typical
// values are 3-4, since shorter runs rarely amortize the 2^d-corner
// certification cost.
func BuildZOrderCache(dim int, sample []geom.Point, backing *Backing, minRun int) *ZCache {
	pts := append([]geom.Point(nil), sample...)
	sort.Slice(pts, func(i, j int) bool { return zorder.Less(dim, pts[i], pts[j]) })

	witnesses := make([]kdtree.Result[Site], len(pts))
	for i, p := range pts {
		w, ok := backing.NNRef(p)
		if !ok {
			return &ZCache{}
		}
		witnesses[i] = w
	}

	c := &ZCache{}
	var leaves []*zNode
	for i := 0; i < len(pts); {
		j := i + 1
		for j < len(pts) && witnesses[j].Ref == witnesses[i].Ref {
			j++
		}
		c.stats.Nodes++
		if j-i >= minRun {
			var bounds geom.Bounds
			for _, p := range pts[i:j] {
				bounds.Grow(p)
			}
			witness, all, queried := certifyCorners(backing, bounds)
			c.stats.BuildQueries += queried
			if all {
				c.stats.Terminal++
				leaves = append(leaves, &zNode{
					bounds:   bounds,
					terminal: true,
					site:     witness.Item,
					siteRef:  witness.Ref,
				})
			}
		}
		i = j
	}

	c.root = mergeRuns(leaves)
	return c
}

// mergeRuns pairwise-merges leaves bottom-up into a binary tree whose
// internal nodes carry the bounding-box union of their two children, so
// descent can reject whole subtrees whose union box excludes q.
func mergeRuns(nodes []*zNode) *zNode {
	if len(nodes) == 0 {
		return nil
	}
	for len(nodes) > 1 {
		var next []*zNode
		for i := 0; i < len(nodes); i += 2 {
			if i+1 == len(nodes) {
				next = append(next, nodes[i])
				continue
			}
			left, right := nodes[i], nodes[i+1]
			next = append(next, &zNode{bounds: unionBounds(left.bounds, right.bounds), left: left, right: right})
		}
		nodes = next
	}
	return nodes[0]
}

func unionBounds(a, b geom.Bounds) geom.Bounds {
	out := geom.Bounds{Min: a.Min.Clone(), Max: a.Max.Clone()}
	out.Grow(b.Min)
	out.Grow(b.Max)
	return out
}

// Locate implements Cache.
func (c *ZCache) Locate(q geom.Point) (Site, bool) {
	site, _, ok := descendZ(c.root, q)
	return site, ok
}

// Seed implements Cache.
func (c *ZCache) Seed(q geom.Point, frontier *pq.Unbounded) {
	if site, ref, ok := descendZ(c.root, q); ok {
		frontier.Push(math.Sqrt(geom.SqDist(site.P, q)), ref)
	}
}

// Stats implements Cache.
func (c *ZCache) Stats() CacheStats { return c.stats }

// descendZ walks the run tree, testing bounding-box containment and
// recursing left-then-right, returning the first terminal leaf whose
// own (not just its ancestors' union) bounds contain q.
func descendZ(n *zNode, q geom.Point) (Site, kdtree.NodeRef, bool) {
	if n == nil || !n.bounds.Contains(q) {
		return Site{}, 0, false
	}
	if n.left == nil && n.right == nil {
		if n.terminal {
			return n.site, n.siteRef, true
		}
		return Site{}, 0, false
	}
	if site, ref, ok := descendZ(n.left, q); ok {
		return site, ref, ok
	}
	return descendZ(n.right, q)
}
