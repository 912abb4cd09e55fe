package reactive

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Memo is a derived value. It recomputes when a value it read changes and
// notifies its own readers only when the result differs.
type Memo[T any] struct {
	t        *Tracker
	id       uint64
	compute  func() T
	value    T
	equal    func(a, b T) bool
	subs     mapset.Set[SubscriberID]
	valid    bool
	disposed bool
}

// NewMemo creates a memo compared with ==.
func NewMemo[T comparable](t *Tracker, compute func() T) *Memo[T] {
	return NewMemoFunc(t, compute, func(a, b T) bool { return a == b })
}

// NewMemoFunc creates a memo with a custom equality.
func NewMemoFunc[T any](t *Tracker, compute func() T, equal func(a, b T) bool) *Memo[T] {
	if equal == nil {
		equal = func(T, T) bool { return false }
	}
	t.nextMemo++
	m := &Memo[T]{
		t:       t,
		id:      t.nextMemo,
		compute: compute,
		equal:   equal,
		subs:    mapset.NewThreadUnsafeSet[SubscriberID](),
	}
	t.memos[m.id] = m
	return m
}

// Read returns the memoized value, computing it on first use, and subscribes
// the current context.
func (m *Memo[T]) Read() T {
	m.t.track(m.subs)
	if !m.valid {
		m.value = m.run()
		m.valid = true
	}
	return m.value
}

func (m *Memo[T]) run() T {
	var v T
	m.t.RunTracked(SubscriberID{Kind: SubMemo, ID: m.id}, func() { v = m.compute() })
	return v
}

func (m *Memo[T]) changed() {
	if m.disposed {
		return
	}
	if !m.valid {
		return
	}
	next := m.run()
	if m.equal(m.value, next) {
		return
	}
	m.value = next
	m.t.fire(m.subs)
}

// Dispose detaches the memo; later notifications for it are ignored.
func (m *Memo[T]) Dispose() {
	m.disposed = true
	delete(m.t.memos, m.id)
	m.subs.Clear()
}
