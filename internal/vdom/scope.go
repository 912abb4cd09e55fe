package vdom

import (
	"cmp"
	"errors"
	"reflect"
	"runtime/debug"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"loom/internal/arena"
	"loom/internal/asyncrt"
	"loom/internal/reactive"
	"loom/internal/slotmap"
	"loom/internal/template"
)

// ScopeID identifies a mounted component instance. The root scope is 0.
type ScopeID slotmap.Key

const noScope = ScopeID(slotmap.NoKey)

func (id ScopeID) String() string { return slotmap.Key(id).String() }

func (id ScopeID) owner() asyncrt.OwnerID { return asyncrt.OwnerID(id) }

func (id ScopeID) subscriber() reactive.SubscriberID { return reactive.Scope(uint64(id)) }

// Scope is a mounted component instance and the handle its body receives.
// It is only valid on the runtime goroutine.
type Scope struct {
	dom    *VirtualDom
	id     ScopeID
	parent *Scope
	height int
	def    *Component
	props  Props
	slot   parentRef

	hooks      []any
	hookNames  []string
	hookIdx    int
	hooksFixed bool // set after the first successful render
	renders    int

	arenas [2]*arena.Arena[VNode]
	frame  int
	root   *VNode
	dirty  bool

	children mapset.Set[ScopeID]
	contexts map[any]any
	boundary *ErrorBoundary
	suspense *SuspenseBoundary
	drops    []func()
	effects  []uint64
	dead     bool
}

func (s *Scope) ID() ScopeID { return s.id }

func (s *Scope) Name() string { return s.def.Name }

// Parent returns the parent scope, nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Height is the distance from the root scope.
func (s *Scope) Height() int { return s.height }

func (s *Scope) Props() Props { return s.props }

// Renders counts how often the body ran.
func (s *Scope) Renders() int { return s.renders }

// Tracker returns the runtime's dependency tracker.
func (s *Scope) Tracker() *reactive.Tracker { return s.dom.tracker }

// Dom returns the runtime the scope is mounted in.
func (s *Scope) Dom() *VirtualDom { return s.dom }

// Render builds a render output for tpl in the scope arena.
func (s *Scope) Render(tpl *template.Template, nodes []DynamicNode, attrs []Attribute) *VNode {
	return s.RenderKeyed("", tpl, nodes, attrs)
}

// RenderKeyed builds a keyed render output, for use as a list child.
func (s *Scope) RenderKeyed(key string, tpl *template.Template, nodes []DynamicNode, attrs []Attribute) *VNode {
	a := s.arenas[s.frame]
	v, gen := a.Alloc(VNode{Key: key, Template: tpl, Nodes: nodes, Attrs: attrs})
	v.arena = a
	v.gen = gen
	return v
}

// MarkDirty schedules a re-render.
func (s *Scope) MarkDirty() { s.dom.MarkDirty(s.id) }

// Spawn starts a task owned by the scope. It is cancelled when the scope
// unmounts.
func (s *Scope) Spawn(name string, fut asyncrt.Future) asyncrt.TaskID {
	if s.dead {
		return 0
	}
	return s.dom.exec.Spawn(s.id.owner(), name, fut)
}

// Cancel drops a task.
func (s *Scope) Cancel(id asyncrt.TaskID) { s.dom.exec.Cancel(id) }

// Pause stops a task from being polled until Resume.
func (s *Scope) Pause(id asyncrt.TaskID) { s.dom.exec.Pause(id) }

// Resume re-enables a paused task.
func (s *Scope) Resume(id asyncrt.TaskID) { s.dom.exec.Resume(id) }

// Throw hands err to the nearest error boundary, starting with this scope.
func (s *Scope) Throw(err error) {
	s.dom.throw(s, true, 0, err)
}

// Children lists the child scopes in id order.
func (s *Scope) Children() []ScopeID {
	out := s.children.ToSlice()
	slices.SortFunc(out, func(a, b ScopeID) int { return cmp.Compare(a, b) })
	return out
}

type hookCell[T any] struct{ v T }

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// UseHook returns the hook state at the current call position, creating it
// with init on the first render. Hooks must be called in the same order on
// every render.
func UseHook[T any](cx *Scope, init func() T) T {
	i := cx.hookIdx
	cx.hookIdx++
	if i < len(cx.hooks) {
		cell, ok := cx.hooks[i].(*hookCell[T])
		if !ok {
			panic(&HookOrderError{Scope: cx.id, Component: cx.Name(), Index: i, Want: cx.hookNames[i], Got: typeName[T]()})
		}
		return cell.v
	}
	if cx.hooksFixed {
		panic(&HookOrderError{Scope: cx.id, Component: cx.Name(), Index: i, Got: typeName[T]()})
	}
	cell := &hookCell[T]{v: init()}
	cx.hooks = append(cx.hooks, cell)
	cx.hookNames = append(cx.hookNames, typeName[T]())
	return cell.v
}

// render runs the component body into a fresh arena. Errors are thrown to
// the nearest boundary and the scope renders a placeholder instead.
func (d *VirtualDom) render(s *Scope) *VNode {
	s.frame ^= 1
	s.arenas[s.frame].Reset()
	s.hookIdx = 0
	s.renders++
	d.stats.Renders++

	var (
		out *VNode
		err error
	)
	d.tracker.RunTracked(s.id.subscriber(), func() {
		out, err = d.callBody(s)
	})
	// A suspended body stops early, so its hook count proves nothing.
	suspended := errors.Is(err, ErrSuspended)
	if suspended {
		out, err = nil, nil
	} else if err == nil && s.hooksFixed && s.hookIdx < len(s.hooks) {
		err = &HookOrderError{Scope: s.id, Component: s.Name(), Index: s.hookIdx, Want: s.hookNames[s.hookIdx]}
	}
	if err == nil && !suspended {
		s.hooksFixed = true
		if out != nil {
			err = d.validate(s, out)
		}
	}
	if err != nil {
		d.reportRender(s, err)
		d.throw(s, false, 0, err)
		out = nil
	}
	if out == nil {
		out = s.Render(d.placeholder, Nodes(Placeholder()), nil)
	}
	return out
}

func (d *VirtualDom) callBody(s *Scope) (out *VNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			if he, ok := r.(*HookOrderError); ok {
				err = he
				return
			}
			if ce, ok := r.(*ContextError); ok {
				err = ce
				return
			}
			err = &RenderPanicError{Component: s.Name(), Value: r, Stack: debug.Stack()}
		}
	}()
	return s.def.Render(s)
}
