package vdom

import (
	"context"
	"fmt"
	"slices"

	"loom/internal/asyncrt"
	"loom/internal/trace"
)

// SuspenseBoundary owns the pending work of the scopes below it. While any
// of it is pending the boundary reports Suspended and is expected to render
// a fallback instead of its children. Results are cached on the boundary,
// so children unmounted by the fallback find them when they mount again.
type SuspenseBoundary struct {
	scope     *Scope
	resources map[string]*suspended
	pending   int
	// implicit boundaries are created on a suspending scope with no
	// boundary above it.
	implicit bool
}

type suspended struct {
	task  asyncrt.TaskID
	done  bool
	value any
	err   error
}

// Suspended reports whether work started under the boundary is pending.
func (b *SuspenseBoundary) Suspended() bool { return b.pending > 0 }

// Pending lists the keys of pending work in sorted order.
func (b *SuspenseBoundary) Pending() []string {
	var keys []string
	for k, r := range b.resources {
		if !r.done {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Invalidate drops the cached result for key and re-renders the boundary,
// so the next Suspend for key starts the work again.
func (b *SuspenseBoundary) Invalidate(key string) {
	r, ok := b.resources[key]
	if !ok {
		return
	}
	if !r.done {
		b.scope.Cancel(r.task)
		b.pending--
	}
	delete(b.resources, key)
	b.scope.MarkDirty()
}

func (b *SuspenseBoundary) resolve(key string, r *suspended, v any, err error) {
	if r.done || b.resources[key] != r {
		return
	}
	r.done, r.value, r.err = true, v, err
	b.pending--
	if b.pending == 0 && !b.scope.dead {
		b.scope.MarkDirty()
	}
}

// UseSuspense turns the scope into a suspense boundary.
func UseSuspense(cx *Scope) *SuspenseBoundary {
	return UseHook(cx, func() *SuspenseBoundary {
		if cx.suspense == nil {
			cx.suspense = newSuspenseBoundary(cx)
		}
		cx.suspense.implicit = false
		return cx.suspense
	})
}

func newSuspenseBoundary(s *Scope) *SuspenseBoundary {
	return &SuspenseBoundary{scope: s, resources: make(map[string]*suspended)}
}

// nearestSuspense finds the closest boundary at or above s. Without one, s
// becomes its own boundary: it renders a placeholder while suspended and
// renders again once the work is done.
func (d *VirtualDom) nearestSuspense(s *Scope) *SuspenseBoundary {
	for b := s; b != nil; b = b.parent {
		if b.suspense != nil && !b.suspense.implicit && !b.dead {
			return b.suspense
		}
	}
	if s.suspense == nil {
		s.suspense = newSuspenseBoundary(s)
		s.suspense.implicit = true
	}
	return s.suspense
}

// Suspend returns the result of work cached under key by the nearest
// suspense boundary. The first call starts work on its own goroutine and
// returns ErrSuspended, which the body returns as its error. Once the work
// is done the boundary renders again and Suspend returns its result. The
// task belongs to the boundary and is cancelled when the boundary unmounts.
// A key names one result type under a boundary.
func Suspend[T any](cx *Scope, key string, work func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	b := cx.dom.nearestSuspense(cx)
	if r, ok := b.resources[key]; ok {
		if !r.done {
			return zero, ErrSuspended
		}
		if r.err != nil {
			return zero, fmt.Errorf("suspense %q: %w", key, r.err)
		}
		return r.value.(T), nil
	}
	r := &suspended{}
	b.resources[key] = r
	b.pending++
	fut := Offload(cx.dom, work, func(v T, err error) {
		b.resolve(key, r, v, err)
	})
	r.task = b.scope.Spawn("suspense:"+key, fut)
	trace.Point(cx.dom.tracer, trace.LayerScope, "suspend:"+key, cx.Name(), cx.dom.cycleSpan)
	if b.scope != cx && b.pending == 1 {
		b.scope.MarkDirty()
	}
	return zero, ErrSuspended
}
