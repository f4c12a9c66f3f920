// Package oddson implements the Odds-On tree: a spatial cache over
// ℝ^d built from a sample of the query distribution, whose terminal
// cells are certified to have a single unique nearest neighbour among a
// backing set of sites. A Facade composes the cache with an exact
// backing index, checking the cache first and falling through to the
// backing index's kNN search on a miss.
package oddson

import "github.com/azybler/oddson/pkg/geom"

// Site is one point of the reference set P over which nearest-neighbor
// search is computed. ID gives sites identity independent of their
// position in any backing slice, since both the backing index and the
// cache permute their items during construction.
type Site struct {
	ID int
	P  geom.Point
}

// Sites wraps a caller-owned point slice into identity-bearing Sites,
// in input order (ID 0..len(points)-1).
func Sites(points []geom.Point) []Site {
	out := make([]Site, len(points))
	for i, p := range points {
		out[i] = Site{ID: i, P: p}
	}
	return out
}

func sitePoint(s Site) geom.Point { return s.P }
