package zorder

import "testing"

// TestSortVisitsQuadrantsContiguously checks that sorting the eight
// points of a 2x2 grid of unit squares under Z-order visits each 2x2
// block contiguously (Morton order).
func TestSortVisitsQuadrantsContiguously(t *testing.T) {
	pts := [][]float64{
		{0, 0}, {1, 0}, {0, 1}, {1, 1},
		{2, 0}, {3, 0}, {2, 1}, {3, 1},
	}
	Sort(2, pts)

	// The bottom-left block {0,0},{1,0},{0,1},{1,1} must all appear
	// before the bottom-right block {2,0},{3,0},{2,1},{3,1} — Z-order
	// never interleaves the two blocks, even though sub-order within a
	// block is implementation-defined by the bit-trick tie resolution.
	blockOf := func(p []float64) int {
		if p[0] >= 2 {
			return 1
		}
		return 0
	}

	lastBlock := blockOf(pts[0])
	for _, p := range pts[1:] {
		b := blockOf(p)
		if b < lastBlock {
			t.Fatalf("Z-order interleaved blocks: point %v appeared after block %d started", p, lastBlock)
		}
		lastBlock = b
	}
}

func TestLessIsStrictAndAntisymmetric(t *testing.T) {
	a := []float64{1.0, 2.0}
	b := []float64{1.0, 3.0}

	if Less(2, a, a) {
		t.Errorf("Less(a, a) = true, want false")
	}
	ab, ba := Less(2, a, b), Less(2, b, a)
	if ab == ba {
		t.Errorf("Less(a,b) = %v and Less(b,a) = %v, want exactly one true", ab, ba)
	}
}
