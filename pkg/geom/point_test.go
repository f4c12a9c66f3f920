package geom

import "testing"

func TestSqDist(t *testing.T) {
	tests := []struct {
		name   string
		p, q   Point
		want   float64
	}{
		{name: "same point", p: Point{1, 2, 3}, q: Point{1, 2, 3}, want: 0},
		{name: "unit axis step", p: Point{0, 0}, q: Point{1, 0}, want: 1},
		{name: "3-4-5 triangle", p: Point{0, 0}, q: Point{3, 4}, want: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SqDist(tt.p, tt.q)
			if got != tt.want {
				t.Errorf("SqDist(%v, %v) = %v, want %v", tt.p, tt.q, got, tt.want)
			}
		})
	}
}

func TestLessTieBreak(t *testing.T) {
	tests := []struct {
		name  string
		coord int
		p, q  Point
		want  bool
	}{
		{name: "differs on coord", coord: 0, p: Point{1, 5}, q: Point{2, 0}, want: true},
		{name: "tied on coord, broken by next axis", coord: 0, p: Point{1, 5}, q: Point{1, 6}, want: true},
		{name: "tied on coord, reverse order", coord: 0, p: Point{1, 6}, q: Point{1, 5}, want: false},
		{name: "fully equal", coord: 0, p: Point{1, 1}, q: Point{1, 1}, want: false},
		{name: "wraps around dim", coord: 1, p: Point{3, 1}, q: Point{5, 1}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Less(tt.coord, tt.p, tt.q, tt.p.Dim())
			if got != tt.want {
				t.Errorf("Less(%d, %v, %v) = %v, want %v", tt.coord, tt.p, tt.q, got, tt.want)
			}
		})
	}
}

func TestBoundsGrowFromZeroValue(t *testing.T) {
	var b Bounds
	for _, p := range []Point{{5, 5}, {1, 9}, {8, 2}} {
		b.Grow(p)
	}
	if !b.Min.Equal(Point{1, 2}) || !b.Max.Equal(Point{8, 9}) {
		t.Errorf("bounds = [%v, %v], want [[1 2], [8 9]]", b.Min, b.Max)
	}
}

func TestBoundsContains(t *testing.T) {
	b := Bounds{Min: Point{0, 0}, Max: Point{10, 10}}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{name: "interior", p: Point{5, 5}, want: true},
		{name: "on min corner", p: Point{0, 0}, want: true},
		{name: "on max corner", p: Point{10, 10}, want: true},
		{name: "outside", p: Point{11, 0}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestBoundsCorners(t *testing.T) {
	b := Bounds{Min: Point{0, 0}, Max: Point{1, 1}}
	corners := b.Corners()
	if len(corners) != 4 {
		t.Fatalf("len(corners) = %d, want 4", len(corners))
	}

	want := map[[2]float64]bool{
		{0, 0}: false, {1, 0}: false, {0, 1}: false, {1, 1}: false,
	}
	for _, c := range corners {
		key := [2]float64{c[0], c[1]}
		if _, ok := want[key]; !ok {
			t.Errorf("unexpected corner %v", c)
		}
		want[key] = true
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("corner %v missing", k)
		}
	}
}

func TestNewUnboundedBoundsContainsEverything(t *testing.T) {
	b := NewUnboundedBounds(3)
	if !b.Contains(Point{1e300, -1e300, 0}) {
		t.Error("unbounded Bounds should contain any finite point")
	}
}
