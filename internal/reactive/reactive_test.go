package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ got []SubscriberID }

func (r *recorder) Notify(s SubscriberID) { r.got = append(r.got, s) }

func TestSignal(t *testing.T) {
	t.Run("read outside a context does not subscribe", func(t *testing.T) {
		rec := &recorder{}
		tr := NewTracker(rec)
		s := NewSignal(tr, 1)
		assert.Equal(t, 1, s.Read())
		assert.Equal(t, 0, s.Subscribers())
		assert.True(t, s.Write(2))
		assert.Empty(t, rec.got)
	})

	t.Run("tracked read subscribes once", func(t *testing.T) {
		rec := &recorder{}
		tr := NewTracker(rec)
		s := NewSignal(tr, "a")
		tr.RunTracked(Scope(7), func() {
			s.Read()
			s.Read()
		})
		assert.Equal(t, 1, s.Subscribers())
		s.Write("b")
		assert.Equal(t, []SubscriberID{Scope(7)}, rec.got)
		assert.Equal(t, 0, s.Subscribers(), "write clears the subscriber set")
	})

	t.Run("equal write is a no-op", func(t *testing.T) {
		rec := &recorder{}
		tr := NewTracker(rec)
		s := NewSignal(tr, 3)
		tr.RunTracked(Scope(1), func() { s.Read() })
		assert.False(t, s.Write(3))
		assert.Empty(t, rec.got)
		assert.Equal(t, uint64(0), s.Version())
		assert.Equal(t, 1, s.Subscribers())
	})

	t.Run("notifications are ordered", func(t *testing.T) {
		rec := &recorder{}
		tr := NewTracker(rec)
		s := NewSignal(tr, 0)
		for _, sub := range []SubscriberID{Task(2), Scope(9), Scope(3), Effect(1)} {
			tr.RunTracked(sub, func() { s.Read() })
		}
		s.Update(func(v int) int { return v + 1 })
		assert.Equal(t, []SubscriberID{Scope(3), Scope(9), Task(2), Effect(1)}, rec.got)
	})

	t.Run("untrack and nesting restore the outer context", func(t *testing.T) {
		tr := NewTracker(nil)
		a := NewSignal(tr, 0)
		b := NewSignal(tr, 0)
		tr.RunTracked(Scope(1), func() {
			tr.Untrack(func() { a.Read() })
			tr.RunTracked(Scope(2), func() {})
			b.Read()
		})
		assert.Equal(t, 0, a.Subscribers())
		assert.Equal(t, 1, b.Subscribers())
		_, ok := tr.Current()
		assert.False(t, ok)
	})

	t.Run("custom equality", func(t *testing.T) {
		tr := NewTracker(nil)
		s := NewSignalFunc(tr, []int{1}, func(a, b []int) bool { return len(a) == len(b) })
		assert.False(t, s.Write([]int{2}))
		assert.True(t, s.Write([]int{1, 2}))
	})
}

func TestBatchCoalesces(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)
	a := NewSignal(tr, 0)
	b := NewSignal(tr, 0)
	tr.RunTracked(Scope(1), func() {
		a.Read()
		b.Read()
	})
	tr.Batch(func() {
		a.Write(1)
		b.Write(1)
		assert.Empty(t, rec.got)
	})
	assert.Equal(t, []SubscriberID{Scope(1)}, rec.got)
}

func TestMemo(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)
	n := NewSignal(tr, 2)
	runs := 0
	parity := NewMemo(tr, func() bool {
		runs++
		return n.Read()%2 == 0
	})

	tr.RunTracked(Scope(5), func() {
		require.True(t, parity.Read())
	})
	require.Equal(t, 1, runs)

	n.Write(4)
	assert.Equal(t, 2, runs, "memo recomputes when its input changes")
	assert.Empty(t, rec.got, "unchanged memo result does not notify readers")

	n.Write(5)
	assert.Equal(t, []SubscriberID{Scope(5)}, rec.got)
	assert.False(t, parity.Read())

	parity.Dispose()
	n.Write(6)
	assert.Equal(t, 3, runs, "disposed memo ignores notifications")
}
