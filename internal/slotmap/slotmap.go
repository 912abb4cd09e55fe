// Package slotmap provides a generational table: values are addressed by a
// key that packs a slot index with the generation the slot had when the value
// was inserted. Freed slots are recycled; stale keys miss instead of aliasing
// the newer occupant.
package slotmap

import (
	"fmt"

	"fortio.org/safecast"
)

// Key addresses a slot: the low 32 bits are the slot index, the high 32 bits
// its generation. Fresh slots start at generation 0, so a first-use key equals
// its index.
type Key uint64

// NoKey never matches a live slot.
const NoKey Key = ^Key(0)

// MakeKey packs an index and a generation.
func MakeKey(index, gen uint32) Key {
	return Key(uint64(gen)<<32 | uint64(index))
}

// Index returns the slot index.
func (k Key) Index() uint32 { return uint32(k) }

// Gen returns the slot generation.
func (k Key) Gen() uint32 { return uint32(k >> 32) }

// IsValid reports whether k is not NoKey.
func (k Key) IsValid() bool { return k != NoKey }

func (k Key) String() string {
	if k == NoKey {
		return "none"
	}
	if k.Gen() == 0 {
		return fmt.Sprintf("%d", k.Index())
	}
	return fmt.Sprintf("%d@%d", k.Index(), k.Gen())
}

type slot[T any] struct {
	value    T
	gen      uint32
	occupied bool
}

// Map is a generational slot table. It is not safe for concurrent use.
type Map[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// New creates a Map with room for capHint values.
func New[T any](capHint int) *Map[T] {
	if capHint < 0 {
		capHint = 0
	}
	return &Map[T]{slots: make([]slot[T], 0, capHint)}
}

// Insert stores value in a free slot (recycling released ones first) and
// returns its key.
func (m *Map[T]) Insert(value T) (Key, error) {
	if n := len(m.free); n > 0 {
		idx := m.free[n-1]
		m.free = m.free[:n-1]
		s := &m.slots[idx]
		s.value = value
		s.occupied = true
		m.live++
		return MakeKey(idx, s.gen), nil
	}
	idx, err := safecast.Conv[uint32](len(m.slots))
	if err != nil || idx == ^uint32(0) {
		return NoKey, fmt.Errorf("slotmap: table full (%d slots)", len(m.slots))
	}
	m.slots = append(m.slots, slot[T]{value: value, occupied: true})
	m.live++
	return MakeKey(idx, 0), nil
}

// MustInsert is Insert that panics on a full table.
func (m *Map[T]) MustInsert(value T) Key {
	k, err := m.Insert(value)
	if err != nil {
		panic(err)
	}
	return k
}

func (m *Map[T]) lookup(k Key) *slot[T] {
	if m == nil || k == NoKey {
		return nil
	}
	idx := k.Index()
	if int(idx) >= len(m.slots) {
		return nil
	}
	s := &m.slots[idx]
	if !s.occupied || s.gen != k.Gen() {
		return nil
	}
	return s
}

// Get returns the value stored under k.
func (m *Map[T]) Get(k Key) (T, bool) {
	s := m.lookup(k)
	if s == nil {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Ptr returns a pointer to the stored value, or nil for a stale key.
// The pointer is invalidated by the next Insert.
func (m *Map[T]) Ptr(k Key) *T {
	s := m.lookup(k)
	if s == nil {
		return nil
	}
	return &s.value
}

// Set overwrites the value under a live key.
func (m *Map[T]) Set(k Key, value T) bool {
	s := m.lookup(k)
	if s == nil {
		return false
	}
	s.value = value
	return true
}

// Contains reports whether k addresses a live value.
func (m *Map[T]) Contains(k Key) bool {
	return m.lookup(k) != nil
}

// Remove releases the slot under k and returns its former value. The slot
// generation is bumped so that k (and copies of it) become stale.
func (m *Map[T]) Remove(k Key) (T, bool) {
	s := m.lookup(k)
	var zero T
	if s == nil {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.occupied = false
	s.gen++
	m.live--
	m.free = append(m.free, k.Index())
	return v, true
}

// Len returns the number of live values.
func (m *Map[T]) Len() int {
	if m == nil {
		return 0
	}
	return m.live
}

// Each calls fn for every live value in slot order until fn returns false.
func (m *Map[T]) Each(fn func(Key, T) bool) {
	if m == nil {
		return
	}
	for i := range m.slots {
		s := &m.slots[i]
		if !s.occupied {
			continue
		}
		if !fn(MakeKey(uint32(i), s.gen), s.value) { //nolint:gosec // bounded by Insert
			return
		}
	}
}
