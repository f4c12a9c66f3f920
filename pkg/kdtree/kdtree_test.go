package kdtree

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/azybler/oddson/internal/arena"
	"github.com/azybler/oddson/pkg/geom"
)

type taggedPoint struct {
	id int
	p  geom.Point
}

func pointOf(t taggedPoint) geom.Point { return t.p }

func randomItems(n, dim int, rng *rand.Rand) []taggedPoint {
	items := make([]taggedPoint, n)
	for i := range items {
		p := make(geom.Point, dim)
		for d := 0; d < dim; d++ {
			p[d] = rng.Float64() * 100
		}
		items[i] = taggedPoint{id: i, p: p}
	}
	return items
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
	rng := rand.New(rand.NewSource(42))
	dim := 3
	items := randomItems(200, dim, rng)
	tree := Build(dim, append([]taggedPoint{}, items...), pointOf)

	for trial := 0; trial < 20; trial++ {
		q := make(geom.Point, dim)
		for d := 0; d < dim; d++ {
			q[d] = rng.Float64() * 100
		}
		k := 5
		got := tree.KNN(q, k, 0)
		want := bruteForceKNN(items, q, k)

		if len(got) != len(want) {
			t.Fatalf("trial %d: KNN returned %d results, want %d", trial, len(got), len(want))
		}
		for i := range want {
			if math.Abs(got[i].SqDist-want[i].SqDist) > 1e-9 {
				t.Errorf("trial %d: result %d sqdist = %v, want %v", trial, i, got[i].SqDist, want[i].SqDist)
			}
		}
	}
}

func TestNNMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	dim := 2
	items := randomItems(100, dim, rng)
	tree := Build(dim, append([]taggedPoint{}, items...), pointOf)

	q := geom.Point{50, 50}
	got, ok := tree.NN(q)
	if !ok {
		t.Fatalf("NN returned ok=false on a non-empty tree")
	}
	want := bruteForceKNN(items, q, 1)[0]
	if math.Abs(got.SqDist-want.SqDist) > 1e-9 {
		t.Errorf("NN sqdist = %v, want %v", got.SqDist, want.SqDist)
	}
}

func TestRangeSearchMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	dim := 2
	items := randomItems(150, dim, rng)
	tree := Build(dim, append([]taggedPoint{}, items...), pointOf)

	lo, hi := geom.Point{20, 20}, geom.Point{60, 60}
	got := tree.RangeSearch(lo, hi)

	inRange := func(p geom.Point) bool {
		for d := range p {
			if p[d] < lo[d] || p[d] > hi[d] {
				return false
			}
		}
		return true
	}
	var want int
	for _, it := range items {
		if inRange(it.p) {
			want++
		}
	}
	if len(got) != want {
		t.Fatalf("RangeSearch returned %d items, want %d", len(got), want)
	}
	if n := tree.RangeCount(lo, hi); n != want {
		t.Errorf("RangeCount = %d, want %d", n, want)
	}
	for _, it := range got {
		if !inRange(it.p) {
			t.Errorf("RangeSearch returned out-of-range item %v", it.p)
		}
	}
}

func TestTreeIsBalanced(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	dim := 2
	n := 1023
	items := randomItems(n, dim, rng)
	tree := Build(dim, items, pointOf)

	depth := tree.Depth()
	maxBalanced := int(math.Ceil(math.Log2(float64(n+1)))) + 1
	if depth > maxBalanced {
		t.Errorf("tree depth = %d, want <= %d for n=%d (even-rank median split)", depth, maxBalanced, n)
	}
}

func TestLocateReturnsAnItem(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	dim := 2
	items := randomItems(500, dim, rng)
	tree := Build(dim, append([]taggedPoint{}, items...), pointOf)

	q := geom.Point{10, 90}
	item, ok := tree.Locate(q)
	if !ok {
		t.Fatalf("Locate returned ok=false")
	}
	_ = item // Locate makes no distance guarantee by itself; presence is the property under test.
}

func TestBuildCachedStopsAtTerminalNodes(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	dim := 2
	items := randomItems(64, dim, rng)
	var bounds geom.Bounds
	for _, it := range items {
		bounds.Grow(it.p)
	}

	var terminalCalls, leaves int
	terminal := func(items []taggedPoint, lo, hi, pivot int, bounds geom.Bounds, depth int) bool {
		terminalCalls++
		return depth >= 2 // force early termination at depth 2 for this test
	}
	tree := BuildCached(dim, items, pointOf, bounds, terminal)

	leaves = tree.countLeavesForTest()
	if leaves == 0 {
		t.Fatalf("expected at least one leaf in a non-empty cached tree")
	}
	if terminalCalls == 0 {
		t.Errorf("terminal predicate was never invoked")
	}
	if d := tree.Depth(); d != 3 {
		t.Errorf("tree depth = %d, want 3 (every node at depth 2 is terminal)", d)
	}
}

func TestSearchStatsAccumulateAcrossQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	dim := 2
	items := randomItems(300, dim, rng)
	tree := Build(dim, items, pointOf)

	if s, v, bt := tree.SearchStats(); s != 0 || v != 0 || bt != 0 {
		t.Fatalf("fresh tree stats = (%d, %d, %d), want all zero", s, v, bt)
	}

	for i := 0; i < 10; i++ {
		q := geom.Point{rng.Float64() * 100, rng.Float64() * 100}
		tree.KNN(q, 3, 0)
	}

	searches, visited, backtrackVisited := tree.SearchStats()
	if searches != 10 {
		t.Errorf("searches = %d, want 10", searches)
	}
	if visited == 0 {
		t.Error("nodesVisited = 0, want at least one node visited per search")
	}
	_ = backtrackVisited // may legitimately be zero for a small, well-pruned tree
}

func (t *Tree[T]) countLeavesForTest() int {
	var count func(ref arena.Ref) int
	count = func(ref arena.Ref) int {
		if ref == arena.Nil {
			return 0
		}
		n := t.nodes.Get(ref)
		if n.left == arena.Nil && n.right == arena.Nil {
			return 1
		}
		return count(n.left) + count(n.right)
	}
	return count(t.root)
}
