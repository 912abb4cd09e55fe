package vdom

// RenderFunc is a component body. It must not block: long running work is
// spawned as a task that writes its result into a signal.
type RenderFunc func(cx *Scope) (*VNode, error)

// Component is a component definition. Identity is the pointer: two
// instantiations diff in place only when they use the same *Component.
type Component struct {
	Name   string
	Render RenderFunc
}

// NewComponent defines a component.
func NewComponent(name string, render RenderFunc) *Component {
	return &Component{Name: name, Render: render}
}

// Props is bound to a scope. Memoize receives the props of a newer render
// of the parent. It updates in place whatever must stay current even when
// equal (callbacks) and reports whether the scope can skip re-rendering.
// When it reports false the scope adopts candidate and re-renders.
type Props interface {
	Memoize(candidate Props) bool
}

type noProps struct{}

func (noProps) Memoize(candidate Props) bool {
	_, ok := candidate.(noProps)
	return ok
}

// NoProps is used by components without inputs. They never re-render
// because of their parent.
var NoProps Props = noProps{}

// Value wraps a comparable value as props.
type Value[T comparable] struct {
	V T
}

// ValueOf builds Value props.
func ValueOf[T comparable](v T) Value[T] { return Value[T]{V: v} }

func (p Value[T]) Memoize(candidate Props) bool {
	o, ok := candidate.(Value[T])
	return ok && o.V == p.V
}

// Callback is a func field for props. Its closure lives in a shared cell:
// Memoize implementations call Update to overwrite it in place, so a scope
// that skips re-rendering still calls its parent's newest closure. Callbacks
// never take part in the equality that decides re-rendering.
type Callback[A any] struct {
	fn *func(A)
}

// NewCallback wraps fn.
func NewCallback[A any](fn func(A)) Callback[A] {
	return Callback[A]{fn: &fn}
}

// Call runs the current closure. A zero Callback does nothing.
func (c Callback[A]) Call(arg A) {
	if c.fn != nil && *c.fn != nil {
		(*c.fn)(arg)
	}
}

// Update replaces the closure of c with the one in newer.
func (c Callback[A]) Update(newer Callback[A]) {
	if c.fn == nil || newer.fn == nil {
		return
	}
	*c.fn = *newer.fn
}

// PropsAs returns the scope props converted to P. It panics when the props
// have another type, which only happens when a component is mounted with
// the wrong props.
func PropsAs[P Props](cx *Scope) P {
	return cx.props.(P)
}
