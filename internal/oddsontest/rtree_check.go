// Package oddsontest provides independent spatial-index oracles for
// cross-validating this module's own k-d tree and cache implementations.
// A bug in the hand-rolled range-search or certification code must not
// be able to hide behind a bug in its own test oracle, so these oracles
// are built on a spatial index this module did not write.
package oddsontest

import (
	"math"

	"github.com/tidwall/rtree"
)

// RTreeOracle is a 2-D range-query oracle backed by github.com/tidwall/rtree,
// used to cross-check the k-d tree's RangeSearch/RangeCount and the
// Odds-On cache's certification queries against an independently
// implemented spatial index.
type RTreeOracle struct {
	tr  rtree.RTreeG[int]
	pts [][2]float64
}

// NewRTreeOracle builds an oracle over pts, each indexed by its position
// in pts.
func NewRTreeOracle(pts [][2]float64) *RTreeOracle {
	o := &RTreeOracle{pts: pts}
	for i, p := range pts {
		o.tr.Insert(p, p, i)
	}
	return o
}

// RangeSearch returns the indices of every point within the closed box
// [lo, hi].
func (o *RTreeOracle) RangeSearch(lo, hi [2]float64) []int {
	var out []int
	o.tr.Search(lo, hi, func(min, max [2]float64, data int) bool {
		out = append(out, data)
		return true
	})
	return out
}

// RangeCount returns len(RangeSearch(lo, hi)) without materializing it.
func (o *RTreeOracle) RangeCount(lo, hi [2]float64) int {
	n := 0
	o.tr.Search(lo, hi, func(min, max [2]float64, data int) bool {
		n++
		return true
	})
	return n
}

// NearestWithin scans every point within radius r of q and returns the
// index of the closest one. It is a local cross-check, not a general NN
// oracle: a certification test already holds a candidate site and a
// witness radius, and only needs to confirm that no closer site exists
// within that radius, not to discover the global nearest site from
// scratch.
func (o *RTreeOracle) NearestWithin(q [2]float64, r float64) (idx int, ok bool) {
	lo := [2]float64{q[0] - r, q[1] - r}
	hi := [2]float64{q[0] + r, q[1] + r}
	best := -1
	bestD := math.Inf(1)
	o.tr.Search(lo, hi, func(min, max [2]float64, data int) bool {
		p := o.pts[data]
		dx, dy := p[0]-q[0], p[1]-q[1]
		d := dx*dx + dy*dy
		// Compare in unsquared units: r*r can round below the squared
		// distance of a point lying exactly at radius r.
		if math.Sqrt(d) <= r && d <= bestD {
			best, bestD = data, d
		}
		return true
	})
	return best, best >= 0
}

// Len reports the number of points indexed.
func (o *RTreeOracle) Len() int { return len(o.pts) }
