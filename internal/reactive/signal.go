package reactive

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Signal is a mutable reactive value.
type Signal[T any] struct {
	t       *Tracker
	value   T
	equal   func(a, b T) bool
	subs    mapset.Set[SubscriberID]
	version uint64
}

// NewSignal creates a signal compared with ==.
func NewSignal[T comparable](t *Tracker, v T) *Signal[T] {
	return NewSignalFunc(t, v, func(a, b T) bool { return a == b })
}

// NewSignalFunc creates a signal with a custom equality. A nil equal treats
// every write as a change.
func NewSignalFunc[T any](t *Tracker, v T, equal func(a, b T) bool) *Signal[T] {
	if equal == nil {
		equal = func(T, T) bool { return false }
	}
	return &Signal[T]{t: t, value: v, equal: equal, subs: mapset.NewThreadUnsafeSet[SubscriberID]()}
}

// Read returns the value and subscribes the current context.
func (s *Signal[T]) Read() T {
	s.t.track(s.subs)
	return s.value
}

// Peek returns the value without subscribing.
func (s *Signal[T]) Peek() T {
	return s.value
}

// Write stores v. Equal values are ignored; otherwise every subscriber is
// notified once and the subscriber set is cleared, so only contexts that read
// the value again are notified next time. Write reports whether v changed
// the value.
func (s *Signal[T]) Write(v T) bool {
	if s.equal(s.value, v) {
		return false
	}
	s.value = v
	s.version++
	s.t.fire(s.subs)
	return true
}

// Update writes fn applied to the current value.
func (s *Signal[T]) Update(fn func(T) T) bool {
	return s.Write(fn(s.value))
}

// Version counts accepted writes.
func (s *Signal[T]) Version() uint64 { return s.version }

// Subscribers returns the number of contexts currently subscribed.
func (s *Signal[T]) Subscribers() int { return s.subs.Cardinality() }

// Unsubscribe drops sub without waiting for the next write.
func (s *Signal[T]) Unsubscribe(sub SubscriberID) { s.subs.Remove(sub) }
