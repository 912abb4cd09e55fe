package arena

import "testing"

func TestAllocAcrossChunks(t *testing.T) {
	a := New[int](2)
	var ptrs []*int
	for i := range 5 {
		p, gen := a.Alloc(i)
		if gen != a.Generation() {
			t.Fatalf("alloc %d returned generation %d, arena at %d", i, gen, a.Generation())
		}
		ptrs = append(ptrs, p)
	}
	for i, p := range ptrs {
		if *p != i {
			t.Fatalf("value %d clobbered: %d", i, *p)
		}
	}
	if a.Len() != 5 {
		t.Fatalf("len = %d, want 5", a.Len())
	}
}

func TestResetInvalidatesGeneration(t *testing.T) {
	a := New[string](0)
	_, gen := a.Alloc("x")
	if !a.Live(gen) {
		t.Fatalf("fresh allocation reported stale")
	}
	a.Reset()
	if a.Live(gen) {
		t.Fatalf("allocation survived reset")
	}
	if a.Len() != 0 {
		t.Fatalf("len after reset = %d", a.Len())
	}
	if a.Live(0) {
		t.Fatalf("zero generation must never be live")
	}
}
