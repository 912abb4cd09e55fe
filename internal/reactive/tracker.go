// Package reactive tracks which render contexts read which reactive values
// and notifies them when those values change.
package reactive

import (
	"cmp"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// SubscriberKind says what a subscriber is.
type SubscriberKind uint8

const (
	// SubNone marks an untracked context.
	SubNone SubscriberKind = iota
	// SubScope is a component scope; notifying it marks the scope dirty.
	SubScope
	// SubTask is an async task; notifying it wakes the task.
	SubTask
	// SubEffect is a post-render effect; notifying it schedules a re-run.
	SubEffect
	// SubMemo is a derived value owned by the tracker itself.
	SubMemo
)

func (k SubscriberKind) String() string {
	switch k {
	case SubScope:
		return "scope"
	case SubTask:
		return "task"
	case SubEffect:
		return "effect"
	case SubMemo:
		return "memo"
	default:
		return "none"
	}
}

// SubscriberID identifies a reactive context.
type SubscriberID struct {
	Kind SubscriberKind
	ID   uint64
}

func (s SubscriberID) String() string {
	return fmt.Sprintf("%s:%d", s.Kind, s.ID)
}

// Scope, Task and Effect build subscriber ids.
func Scope(id uint64) SubscriberID  { return SubscriberID{Kind: SubScope, ID: id} }
func Task(id uint64) SubscriberID   { return SubscriberID{Kind: SubTask, ID: id} }
func Effect(id uint64) SubscriberID { return SubscriberID{Kind: SubEffect, ID: id} }

// Notifier receives the subscribers of a changed value. The runtime's
// scheduler implements it; it is expected to drop subscribers that no longer
// exist.
type Notifier interface {
	Notify(sub SubscriberID)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(SubscriberID)

// Notify calls f.
func (f NotifierFunc) Notify(sub SubscriberID) { f(sub) }

type memoNode interface {
	changed()
}

// Tracker holds the stack of active reactive contexts. A runtime owns
// exactly one; it is passed explicitly rather than looked up globally and
// must only be used from the runtime's goroutine.
type Tracker struct {
	stack    []SubscriberID
	notifier Notifier
	memos    map[uint64]memoNode
	nextMemo uint64

	batchDepth int
	pending    mapset.Set[SubscriberID]
	order      []SubscriberID
}

// NewTracker creates a tracker that forwards notifications to n.
func NewTracker(n Notifier) *Tracker {
	return &Tracker{
		notifier: n,
		memos:    make(map[uint64]memoNode),
		pending:  mapset.NewThreadUnsafeSet[SubscriberID](),
	}
}

// RunTracked runs fn with sub as the current context. Reads inside fn
// subscribe sub; the previous context is restored afterwards, also on panic.
func (t *Tracker) RunTracked(sub SubscriberID, fn func()) {
	t.stack = append(t.stack, sub)
	defer func() { t.stack = t.stack[:len(t.stack)-1] }()
	fn()
}

// Untrack runs fn with tracking suspended.
func (t *Tracker) Untrack(fn func()) {
	t.RunTracked(SubscriberID{}, fn)
}

// Current returns the active context, if any.
func (t *Tracker) Current() (SubscriberID, bool) {
	if t == nil || len(t.stack) == 0 {
		return SubscriberID{}, false
	}
	cur := t.stack[len(t.stack)-1]
	return cur, cur.Kind != SubNone
}

// Batch defers notifications until fn returns; a subscriber notified several
// times inside the batch is notified once.
func (t *Tracker) Batch(fn func()) {
	t.batchDepth++
	defer func() {
		t.batchDepth--
		if t.batchDepth == 0 {
			order := t.order
			t.order = nil
			t.pending.Clear()
			t.dispatch(order)
		}
	}()
	fn()
}

// track records the current context on subs.
func (t *Tracker) track(subs mapset.Set[SubscriberID]) {
	if cur, ok := t.Current(); ok {
		subs.Add(cur)
	}
}

// fire drains subs in a deterministic order and notifies each subscriber.
func (t *Tracker) fire(subs mapset.Set[SubscriberID]) {
	if subs.Cardinality() == 0 {
		return
	}
	list := subs.ToSlice()
	subs.Clear()
	slices.SortFunc(list, func(a, b SubscriberID) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if t.batchDepth > 0 {
		for _, s := range list {
			if t.pending.Add(s) {
				t.order = append(t.order, s)
			}
		}
		return
	}
	t.dispatch(list)
}

func (t *Tracker) dispatch(list []SubscriberID) {
	for _, s := range list {
		if s.Kind == SubMemo {
			if m, ok := t.memos[s.ID]; ok {
				m.changed()
			}
			continue
		}
		if t.notifier != nil {
			t.notifier.Notify(s)
		}
	}
}
