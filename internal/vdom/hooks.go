package vdom

import (
	"context"
	"reflect"

	"loom/internal/asyncrt"
	"loom/internal/reactive"
)

// UseSignal returns a signal owned by the scope.
func UseSignal[T comparable](cx *Scope, init T) *reactive.Signal[T] {
	return UseHook(cx, func() *reactive.Signal[T] {
		return reactive.NewSignal(cx.dom.tracker, init)
	})
}

// UseSignalFunc is UseSignal with a custom equality.
func UseSignalFunc[T any](cx *Scope, init T, equal func(a, b T) bool) *reactive.Signal[T] {
	return UseHook(cx, func() *reactive.Signal[T] {
		return reactive.NewSignalFunc(cx.dom.tracker, init, equal)
	})
}

// UseMemo returns a derived value that recomputes when its inputs change.
// It is disposed when the scope unmounts.
func UseMemo[T comparable](cx *Scope, compute func() T) *reactive.Memo[T] {
	return UseHook(cx, func() *reactive.Memo[T] {
		m := reactive.NewMemo(cx.dom.tracker, compute)
		cx.drops = append(cx.drops, m.Dispose)
		return m
	})
}

// UseDrop registers fn to run when the scope unmounts. Drop hooks run in
// reverse registration order.
func UseDrop(cx *Scope, fn func()) {
	h := UseHook(cx, func() *func() {
		f := fn
		cx.drops = append(cx.drops, func() { f() })
		return &f
	})
	*h = fn
}

// UseEffect runs fn after the drain cycle of the first render, then again
// whenever a signal it read changes. The latest closure is used.
func UseEffect(cx *Scope, fn func()) {
	e := UseHook(cx, func() *effect {
		return cx.dom.newEffect(cx)
	})
	e.fn = fn
}

// FutureHandle controls a task started by UseFuture.
type FutureHandle struct {
	scope *Scope
	make  func() asyncrt.Future
	id    asyncrt.TaskID
	runs  int
}

// ID returns the current task, zero once it finished or was cancelled.
func (h *FutureHandle) ID() asyncrt.TaskID {
	if h.scope.dom.exec.Task(h.id) == nil {
		return 0
	}
	return h.id
}

// Running reports whether the task is still in the table.
func (h *FutureHandle) Running() bool { return h.ID() != 0 }

// Restart cancels the current task and spawns a new one.
func (h *FutureHandle) Restart() {
	h.Cancel()
	h.runs++
	h.id = h.scope.Spawn(h.scope.Name(), h.make())
}

func (h *FutureHandle) Cancel() { h.scope.Cancel(h.id) }

func (h *FutureHandle) Pause() { h.scope.Pause(h.id) }

func (h *FutureHandle) Resume() { h.scope.Resume(h.id) }

// UseFuture spawns the future returned by start on the first render.
func UseFuture(cx *Scope, start func() asyncrt.Future) *FutureHandle {
	return UseHook(cx, func() *FutureHandle {
		h := &FutureHandle{scope: cx, make: start}
		h.Restart()
		return h
	})
}

type ctxKey[T any] struct{}

// ProvideContext makes v visible to every descendant through
// ConsumeContext. The value is provided once; later renders return it.
func ProvideContext[T any](cx *Scope, v T) T {
	return UseHook(cx, func() T {
		cx.contexts[ctxKey[T]{}] = v
		return v
	})
}

// ConsumeContext looks up the closest context value of type T, starting at
// the scope itself.
func ConsumeContext[T any](cx *Scope) (T, bool) {
	for s := cx; s != nil; s = s.parent {
		if v, ok := s.contexts[ctxKey[T]{}]; ok {
			return v.(T), true
		}
	}
	var zero T
	return zero, false
}

// UseContext is ConsumeContext as a hook. It fails the render when no
// ancestor provides T.
func UseContext[T any](cx *Scope) T {
	return UseHook(cx, func() T {
		v, ok := ConsumeContext[T](cx)
		if !ok {
			panic(&ContextError{Type: reflect.TypeFor[T]().String()})
		}
		return v
	})
}

// ErrorBoundary collects errors thrown by descendant scopes and their tasks.
type ErrorBoundary struct {
	scope  *Scope
	errors []CapturedError
}

// Err returns the first captured error.
func (b *ErrorBoundary) Err() error {
	if len(b.errors) == 0 {
		return nil
	}
	return b.errors[0]
}

func (b *ErrorBoundary) Errors() []CapturedError { return b.errors }

// Clear drops captured errors and re-renders the boundary.
func (b *ErrorBoundary) Clear() {
	if len(b.errors) == 0 {
		return
	}
	b.errors = nil
	b.scope.MarkDirty()
}

// UseErrorBoundary turns the scope into an error boundary.
func UseErrorBoundary(cx *Scope) *ErrorBoundary {
	return UseHook(cx, func() *ErrorBoundary {
		cx.boundary = &ErrorBoundary{scope: cx}
		return cx.boundary
	})
}

// Offload runs work on its own goroutine and completes once the result has
// been handed to done on the runtime goroutine. Cancelling the task cancels
// ctx passed to work.
func Offload[T any](d *VirtualDom, work func(ctx context.Context) (T, error), done func(T, error)) asyncrt.Future {
	var (
		started  bool
		finished bool
		cancel   context.CancelFunc
		res      T
		resErr   error
	)
	return asyncrt.FutureFunc(func(cx *asyncrt.Context) (bool, error) {
		if finished {
			if done != nil {
				done(res, resErr)
			}
			return true, nil
		}
		if started {
			return false, nil
		}
		started = true
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		task := cx.Task()
		d.dropOnFinish(task, cancel)
		go func() {
			v, err := work(ctx)
			d.proxy.Post(func(d *VirtualDom) {
				res, resErr, finished = v, err, true
				d.exec.Wake(task)
			})
		}()
		return false, nil
	})
}
