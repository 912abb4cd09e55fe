package template

// NodeKind tags the variants of a template node.
type NodeKind uint8

const (
	// NodeElement is a static element with attributes and children.
	NodeElement NodeKind = iota + 1
	// NodeText is literal text.
	NodeText
	// NodeDynamic is a slot filled at render time by text, a placeholder,
	// a fragment or a component.
	NodeDynamic
	// NodeDynamicText is a slot that always holds text.
	NodeDynamicText
)

func (k NodeKind) String() string {
	switch k {
	case NodeElement:
		return "element"
	case NodeText:
		return "text"
	case NodeDynamic:
		return "dynamic"
	case NodeDynamicText:
		return "dynamic-text"
	default:
		return "unknown"
	}
}

// AttrKind tags template attributes.
type AttrKind uint8

const (
	AttrStatic AttrKind = iota + 1
	AttrDynamic
)

// Attr is an attribute on a template element. Static attributes carry their
// value; dynamic ones refer to an attribute slot of the render output.
type Attr struct {
	Kind      AttrKind
	Name      string
	Value     string
	Namespace string
	Slot      int
}

// Node is one node of a template tree.
type Node struct {
	Kind      NodeKind
	Tag       string
	Namespace string
	Attrs     []Attr
	Children  []Node
	Text      string
	Slot      int
}

// Elem builds an element node.
func Elem(tag string, attrs []Attr, children ...Node) Node {
	return Node{Kind: NodeElement, Tag: tag, Attrs: attrs, Children: children}
}

// ElemNS builds a namespaced element node (svg, mathml).
func ElemNS(tag, namespace string, attrs []Attr, children ...Node) Node {
	return Node{Kind: NodeElement, Tag: tag, Namespace: namespace, Attrs: attrs, Children: children}
}

// Text builds a literal text node.
func Text(s string) Node {
	return Node{Kind: NodeText, Text: s}
}

// Dyn builds a dynamic node slot.
func Dyn(slot int) Node {
	return Node{Kind: NodeDynamic, Slot: slot}
}

// DynText builds a dynamic text slot.
func DynText(slot int) Node {
	return Node{Kind: NodeDynamicText, Slot: slot}
}

// Attrs is sugar for an attribute list.
func Attrs(a ...Attr) []Attr { return a }

// Static builds a static attribute.
func Static(name, value string) Attr {
	return Attr{Kind: AttrStatic, Name: name, Value: value}
}

// StaticNS builds a namespaced static attribute.
func StaticNS(name, value, namespace string) Attr {
	return Attr{Kind: AttrStatic, Name: name, Value: value, Namespace: namespace}
}

// DynAttr builds a dynamic attribute slot.
func DynAttr(slot int) Attr {
	return Attr{Kind: AttrDynamic, Slot: slot}
}

// Path locates a node inside a template: the root index followed by child
// indices.
type Path []uint8

func (p Path) key() string { return string(p) }

// Parent returns the path of the enclosing node, or nil for a root.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return nil
	}
	return p[:len(p)-1]
}

// HasPrefix reports whether q is p or an ancestor of p.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}
