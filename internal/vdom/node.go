package vdom

import (
	"fmt"
	"strconv"

	"loom/internal/arena"
	"loom/internal/mutation"
	"loom/internal/slotmap"
	"loom/internal/template"
)

// ElementID is the renderer-facing node handle.
type ElementID = mutation.ElementID

// Root is the container every root render output is appended to.
const Root = mutation.Root

const noElement = ElementID(slotmap.NoKey)

// VNode is one render output: a template plus the values of its slots.
// VNodes built by Scope.Render belong to the scope's current arena and are
// invalid once that generation is superseded.
type VNode struct {
	Key      string
	Template *template.Template
	Nodes    []DynamicNode
	Attrs    []Attribute

	arena *arena.Arena[VNode]
	gen   arena.Generation
	mount *mount
}

// Keyed reports whether the node carries a key.
func (v *VNode) Keyed() bool { return v.Key != "" }

func (v *VNode) String() string {
	if v == nil {
		return "<nil vnode>"
	}
	if v.Key != "" {
		return fmt.Sprintf("%s[%s]", v.Template, v.Key)
	}
	return v.Template.String()
}

// DynamicKind classifies a dynamic node slot value.
type DynamicKind uint8

const (
	DynPlaceholder DynamicKind = iota
	DynText
	DynFragment
	DynComponent
)

func (k DynamicKind) String() string {
	switch k {
	case DynPlaceholder:
		return "placeholder"
	case DynText:
		return "text"
	case DynFragment:
		return "fragment"
	case DynComponent:
		return "component"
	default:
		return "unknown"
	}
}

// DynamicNode fills one dynamic node slot.
type DynamicNode struct {
	Kind      DynamicKind
	Text      string
	Children  []*VNode
	Component *VComponent
}

// VComponent is a component instantiation inside a render output.
type VComponent struct {
	Def   *Component
	Props Props
}

// Text fills a slot with a text node.
func Text(s string) DynamicNode { return DynamicNode{Kind: DynText, Text: s} }

// Textf fills a slot with formatted text.
func Textf(format string, args ...any) DynamicNode {
	return Text(fmt.Sprintf(format, args...))
}

// Int fills a slot with a decimal number.
func Int(i int) DynamicNode { return Text(strconv.Itoa(i)) }

// Placeholder marks absent content that may appear later.
func Placeholder() DynamicNode { return DynamicNode{Kind: DynPlaceholder} }

// Fragment fills a slot with a list of render outputs. An empty list becomes
// a placeholder so the slot keeps an address.
func Fragment(children ...*VNode) DynamicNode {
	if len(children) == 0 {
		return Placeholder()
	}
	return DynamicNode{Kind: DynFragment, Children: children}
}

// Element nests a single render output.
func Element(v *VNode) DynamicNode {
	if v == nil {
		return Placeholder()
	}
	return Fragment(v)
}

// When returns Element(v()) if cond holds and a placeholder otherwise.
func When(cond bool, v func() *VNode) DynamicNode {
	if !cond {
		return Placeholder()
	}
	return Element(v())
}

// Child mounts a component in a slot.
func Child(def *Component, props Props) DynamicNode {
	if props == nil {
		props = NoProps
	}
	return DynamicNode{Kind: DynComponent, Component: &VComponent{Def: def, Props: props}}
}

// Nodes is sugar for a dynamic node list.
func Nodes(n ...DynamicNode) []DynamicNode { return n }

// ValueKind classifies attribute values.
type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueText
	ValueInt
	ValueFloat
	ValueBool
	ValueListener
)

// AttributeValue is the value of a dynamic attribute. ValueNone removes the
// attribute.
type AttributeValue struct {
	Kind     ValueKind
	Text     string
	Int      int64
	Float    float64
	Bool     bool
	Listener func(*Event)
}

// Attribute fills one dynamic attribute slot.
type Attribute struct {
	Name      string
	Namespace string
	Value     AttributeValue
	// Volatile attributes are written on every render, e.g. an input value
	// the user may have edited renderer-side.
	Volatile bool
}

// Attr builds a text attribute.
func Attr(name, value string) Attribute {
	return Attribute{Name: name, Value: AttributeValue{Kind: ValueText, Text: value}}
}

// AttrNS builds a namespaced text attribute.
func AttrNS(name, value, namespace string) Attribute {
	a := Attr(name, value)
	a.Namespace = namespace
	return a
}

// AttrInt builds an integer attribute.
func AttrInt(name string, v int64) Attribute {
	return Attribute{Name: name, Value: AttributeValue{Kind: ValueInt, Int: v}}
}

// AttrFloat builds a float attribute.
func AttrFloat(name string, v float64) Attribute {
	return Attribute{Name: name, Value: AttributeValue{Kind: ValueFloat, Float: v}}
}

// AttrBool builds a boolean attribute.
func AttrBool(name string, v bool) Attribute {
	return Attribute{Name: name, Value: AttributeValue{Kind: ValueBool, Bool: v}}
}

// AttrNone builds an absent attribute.
func AttrNone(name string) Attribute {
	return Attribute{Name: name}
}

// On binds an event listener.
func On(event string, fn func(*Event)) Attribute {
	return Attribute{Name: event, Value: AttributeValue{Kind: ValueListener, Listener: fn}}
}

// Attrs is sugar for an attribute list.
func Attrs(a ...Attribute) []Attribute { return a }

// IsListener reports whether the value is an event listener.
func (v AttributeValue) IsListener() bool { return v.Kind == ValueListener }

func (v AttributeValue) equal(o AttributeValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueText:
		return v.Text == o.Text
	case ValueInt:
		return v.Int == o.Int
	case ValueFloat:
		return v.Float == o.Float
	case ValueBool:
		return v.Bool == o.Bool
	default:
		return true
	}
}

// wire converts the value to its mutation form.
func (v AttributeValue) wire() mutation.Value {
	switch v.Kind {
	case ValueText:
		return mutation.TextValue(v.Text)
	case ValueInt:
		return mutation.IntValue(v.Int)
	case ValueFloat:
		return mutation.FloatValue(v.Float)
	case ValueBool:
		return mutation.BoolValue(v.Bool)
	default:
		return mutation.Value{}
	}
}

// parentRef locates the dynamic slot a mounted node lives in. A nil mount
// means the root container.
type parentRef struct {
	m    *mount
	slot int
}

// mount is the bookkeeping of a VNode that has been created in the
// renderer. It moves to the newer VNode when the same template is diffed.
type mount struct {
	node   *VNode
	scope  ScopeID
	parent parentRef
	// ids has one entry per template addressable node. Slots filled by a
	// fragment or component hold noElement.
	ids []ElementID
	// extra ids address static elements in inline mode.
	extra []ElementID
	// scopes holds the child scope of each component slot.
	scopes []ScopeID
	dead   bool
}

// elementRef is what the element table stores for an ElementID: the mount
// and the template path of the node.
type elementRef struct {
	m    *mount
	path template.Path
}
