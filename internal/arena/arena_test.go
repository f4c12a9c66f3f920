package arena

import "testing"

func TestAllocAssignsDistinctRefs(t *testing.T) {
	a := New[int](3)
	r1 := a.Alloc()
	r2 := a.Alloc()
	r3 := a.Alloc()

	if r1 == Nil || r2 == Nil || r3 == Nil {
		t.Fatalf("Alloc returned Nil ref: %v %v %v", r1, r2, r3)
	}
	if r1 == r2 || r2 == r3 || r1 == r3 {
		t.Fatalf("Alloc returned duplicate refs: %v %v %v", r1, r2, r3)
	}

	*a.Get(r1) = 10
	*a.Get(r2) = 20
	*a.Get(r3) = 30
	if *a.Get(r1) != 10 || *a.Get(r2) != 20 || *a.Get(r3) != 30 {
		t.Fatalf("Get did not round-trip stored values")
	}
	if a.Len() != 3 {
		t.Errorf("Len() = %d, want 3", a.Len())
	}
}

func TestAllocPanicsWhenExhausted(t *testing.T) {
	a := New[int](1)
	a.Alloc()
	defer func() {
		if recover() == nil {
			t.Fatalf("Alloc past capacity did not panic")
		}
	}()
	a.Alloc()
}
