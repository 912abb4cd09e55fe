package slotmap

import "testing"

func TestInsertGetRemove(t *testing.T) {
	m := New[string](4)
	a := m.MustInsert("a")
	b := m.MustInsert("b")
	if a != 0 || b != 1 {
		t.Fatalf("fresh keys should equal their index, got %v %v", a, b)
	}
	if v, ok := m.Get(b); !ok || v != "b" {
		t.Fatalf("get b = %q, %v", v, ok)
	}
	if v, ok := m.Remove(a); !ok || v != "a" {
		t.Fatalf("remove a = %q, %v", v, ok)
	}
	if m.Contains(a) {
		t.Fatalf("removed key still live")
	}
	if m.Len() != 1 {
		t.Fatalf("len = %d, want 1", m.Len())
	}
}

func TestRecycledSlotRejectsStaleKey(t *testing.T) {
	m := New[int](0)
	old := m.MustInsert(1)
	m.Remove(old)
	fresh := m.MustInsert(2)
	if fresh.Index() != old.Index() {
		t.Fatalf("expected slot %d to be recycled, got %d", old.Index(), fresh.Index())
	}
	if fresh.Gen() != old.Gen()+1 {
		t.Fatalf("generation not bumped: %d -> %d", old.Gen(), fresh.Gen())
	}
	if _, ok := m.Get(old); ok {
		t.Fatalf("stale key aliased the new occupant")
	}
	if m.Set(old, 9) {
		t.Fatalf("Set through a stale key succeeded")
	}
	if v, _ := m.Get(fresh); v != 2 {
		t.Fatalf("fresh value = %d, want 2", v)
	}
	if got := fresh.String(); got != "0@1" {
		t.Fatalf("String() = %q", got)
	}
}

func TestEachVisitsLiveSlotsInOrder(t *testing.T) {
	m := New[int](0)
	keys := []Key{m.MustInsert(10), m.MustInsert(20), m.MustInsert(30)}
	m.Remove(keys[1])
	var seen []int
	m.Each(func(_ Key, v int) bool {
		seen = append(seen, v)
		return true
	})
	if len(seen) != 2 || seen[0] != 10 || seen[1] != 30 {
		t.Fatalf("Each visited %v", seen)
	}
	if NoKey.IsValid() || m.Contains(NoKey) {
		t.Fatalf("NoKey must never be live")
	}
}
