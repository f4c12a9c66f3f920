package quadtree

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/azybler/oddson/pkg/geom"
)

type taggedPoint struct {
	id int
	p  geom.Point
}

func pointOf(t taggedPoint) geom.Point { return t.p }

func randomItems(n, dim int, rng *rand.Rand) ([]taggedPoint, geom.Bounds) {
	items := make([]taggedPoint, n)
	var bounds geom.Bounds
	for i := range items {
		p := make(geom.Point, dim)
		for d := 0; d < dim; d++ {
			p[d] = rng.Float64() * 100
		}
		items[i] = taggedPoint{id: i, p: p}
		bounds.Grow(p)
	}
	return items, bounds
}

func bruteForceKNN(items []taggedPoint, q geom.Point, k int) []Result[taggedPoint] {
	type cand struct {
		item taggedPoint
		d    float64
	}
	cands := make([]cand, len(items))
	for i, it := range items {
		cands[i] = cand{it, geom.SqDist(it.p, q)}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].d < cands[j].d })
	if k > len(cands) {
		k = len(cands)
	}
	out := make([]Result[taggedPoint], k)
	for i := 0; i < k; i++ {
		out[i] = Result[taggedPoint]{Item: cands[i].item, SqDist: cands[i].d}
	}
	return out
}

func TestKNNMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	dim := 2
	items, bounds := randomItems(200, dim, rng)
	tree := Build(dim, items, pointOf, bounds)

	for trial := 0; trial < 20; trial++ {
		q := geom.Point{rng.Float64() * 100, rng.Float64() * 100}
		k := 5
		got := tree.KNN(q, k, 0)
		want := bruteForceKNN(items, q, k)
		if len(got) != len(want) {
			t.Fatalf("trial %d: KNN returned %d results, want %d", trial, len(got), len(want))
		}
		for i := range want {
			if math.Abs(got[i].SqDist-want[i].SqDist) > 1e-6 {
				t.Errorf("trial %d: result %d sqdist = %v, want %v", trial, i, got[i].SqDist, want[i].SqDist)
			}
		}
	}
}

func TestCompressionCollapsesSingleChildChains(t *testing.T) {
	dim := 2
	// Two points in the same tiny corner of a huge bounding box force a
	// long chain of single-occupant cells before the split that finally
	// separates them; every node in that chain should compress away.
	items := []taggedPoint{
		{0, geom.Point{0.001, 0.001}},
		{1, geom.Point{0.002, 0.002}},
	}
	bounds := geom.Bounds{Min: geom.Point{0, 0}, Max: geom.Point{1000, 1000}}
	tree := Build(dim, items, pointOf, bounds)

	if tree.nodes.Len() > 4 {
		t.Errorf("built %d nodes for 2 points, want a small constant regardless of how deep the uncompressed chain would have been", tree.nodes.Len())
	}
}

func TestLocateFindsContainingCell(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	dim := 2
	items, bounds := randomItems(100, dim, rng)
	tree := Build(dim, items, pointOf, bounds)

	// An item's own point always lies in some leaf's cell; an arbitrary
	// point within bounds may fall in an empty bucket that has no cell.
	q := pointOf(items[0])
	_, ok := tree.Locate(q)
	if !ok {
		t.Fatalf("Locate(%v) = ok false, want true for an item's own point", q)
	}
}
