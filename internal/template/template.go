package template

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ID is the store-assigned identifier renderers use to refer to a template.
type ID uint32

// NoID is never assigned.
const NoID ID = 0

// Template is an interned, immutable description of a static node tree with
// holes. Two render outputs built from the same *Template share identity.
type Template struct {
	ID          ID
	Name        string
	Roots       []Node
	Fingerprint uint64

	// NodePaths[slot] locates each dynamic node slot.
	NodePaths []Path
	// AttrPaths[slot] locates the element carrying each dynamic attribute.
	AttrPaths []Path
	// Addressable lists the nodes that receive an element id when the
	// template is instantiated: roots, then elements with dynamic
	// attributes, then dynamic node slots. Duplicates are folded.
	Addressable []Path

	rootAddr []int
	attrAddr []int
	nodeAddr []int
}

// ShapeError reports a malformed template.
type ShapeError struct {
	Template string
	Msg      string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("template %s: %s", e.Template, e.Msg)
}

// RootAddr returns the addressable index of root i.
func (t *Template) RootAddr(i int) int { return t.rootAddr[i] }

// AttrAddr returns the addressable index of the element holding attribute
// slot.
func (t *Template) AttrAddr(slot int) int { return t.attrAddr[slot] }

// NodeAddr returns the addressable index of dynamic node slot.
func (t *Template) NodeAddr(slot int) int { return t.nodeAddr[slot] }

// NumNodeSlots returns the number of dynamic node slots.
func (t *Template) NumNodeSlots() int { return len(t.NodePaths) }

// NumAttrSlots returns the number of dynamic attribute slots.
func (t *Template) NumAttrSlots() int { return len(t.AttrPaths) }

// DynamicRoot reports whether root i is a dynamic slot and returns it.
func (t *Template) DynamicRoot(i int) (int, bool) {
	r := &t.Roots[i]
	if r.Kind == NodeDynamic || r.Kind == NodeDynamicText {
		return r.Slot, true
	}
	return 0, false
}

// NodeAt resolves a path, or returns nil.
func (t *Template) NodeAt(p Path) *Node {
	if len(p) == 0 || int(p[0]) >= len(t.Roots) {
		return nil
	}
	n := &t.Roots[p[0]]
	for _, step := range p[1:] {
		if int(step) >= len(n.Children) {
			return nil
		}
		n = &n.Children[step]
	}
	return n
}

func (t *Template) String() string {
	if t == nil {
		return "<nil template>"
	}
	return fmt.Sprintf("%s#%d", t.Name, t.ID)
}

// compile validates roots and derives slot paths and the addressable list.
func compile(name string, roots []Node) (*Template, error) {
	if len(roots) == 0 {
		return nil, &ShapeError{Template: name, Msg: "template has no roots"}
	}
	if len(roots) > 256 {
		return nil, &ShapeError{Template: name, Msg: "too many roots"}
	}
	t := &Template{Name: name, Roots: roots}
	nodeSlots := map[int]Path{}
	attrSlots := map[int]Path{}

	var walk func(n *Node, p Path) error
	walk = func(n *Node, p Path) error {
		switch n.Kind {
		case NodeElement:
			if n.Tag == "" {
				return &ShapeError{Template: name, Msg: fmt.Sprintf("element at %v has no tag", []uint8(p))}
			}
			for _, a := range n.Attrs {
				if a.Kind != AttrDynamic {
					continue
				}
				if _, dup := attrSlots[a.Slot]; dup || a.Slot < 0 {
					return &ShapeError{Template: name, Msg: fmt.Sprintf("attribute slot %d used twice or negative", a.Slot)}
				}
				attrSlots[a.Slot] = p
			}
			if len(n.Children) > 256 {
				return &ShapeError{Template: name, Msg: fmt.Sprintf("element <%s> has more than 256 children", n.Tag)}
			}
			for i := range n.Children {
				child := append(append(Path(nil), p...), uint8(i)) //nolint:gosec // bounded above
				if err := walk(&n.Children[i], child); err != nil {
					return err
				}
			}
		case NodeText:
		case NodeDynamic, NodeDynamicText:
			if _, dup := nodeSlots[n.Slot]; dup || n.Slot < 0 {
				return &ShapeError{Template: name, Msg: fmt.Sprintf("node slot %d used twice or negative", n.Slot)}
			}
			nodeSlots[n.Slot] = p
		default:
			return &ShapeError{Template: name, Msg: fmt.Sprintf("unknown node kind %d", n.Kind)}
		}
		return nil
	}
	for i := range roots {
		if err := walk(&roots[i], Path{uint8(i)}); err != nil { //nolint:gosec // bounded above
			return nil, err
		}
	}

	var err error
	if t.NodePaths, err = dense(name, "node", nodeSlots); err != nil {
		return nil, err
	}
	if t.AttrPaths, err = dense(name, "attribute", attrSlots); err != nil {
		return nil, err
	}

	index := map[string]int{}
	add := func(p Path) int {
		if i, ok := index[p.key()]; ok {
			return i
		}
		t.Addressable = append(t.Addressable, p)
		index[p.key()] = len(t.Addressable) - 1
		return len(t.Addressable) - 1
	}
	for i := range roots {
		t.rootAddr = append(t.rootAddr, add(Path{uint8(i)})) //nolint:gosec // bounded above
	}
	for _, p := range t.AttrPaths {
		t.attrAddr = append(t.attrAddr, add(p))
	}
	for _, p := range t.NodePaths {
		t.nodeAddr = append(t.nodeAddr, add(p))
	}
	t.Fingerprint = fingerprint(roots)
	return t, nil
}

func dense(name, what string, slots map[int]Path) ([]Path, error) {
	out := make([]Path, len(slots))
	for i := range out {
		p, ok := slots[i]
		if !ok {
			return nil, &ShapeError{Template: name, Msg: fmt.Sprintf("%s slots are not dense: slot %d missing", what, i)}
		}
		out[i] = p
	}
	return out, nil
}

// fingerprint hashes the structure of a template so a name reused for a
// different shape can be detected.
func fingerprint(roots []Node) uint64 {
	d := xxhash.New()
	var walk func(n *Node)
	walk = func(n *Node) {
		fmt.Fprintf(d, "%d|%s|%s|%s|%d|%d(", n.Kind, n.Tag, n.Namespace, n.Text, n.Slot, len(n.Attrs))
		for _, a := range n.Attrs {
			fmt.Fprintf(d, "%d|%s|%s|%s|%d;", a.Kind, a.Name, a.Value, a.Namespace, a.Slot)
		}
		for i := range n.Children {
			walk(&n.Children[i])
		}
		_, _ = d.WriteString(")")
	}
	for i := range roots {
		walk(&roots[i])
	}
	return d.Sum64()
}

// Describe renders the template as compact markup, used by diagnostics and
// the CLI.
func (t *Template) Describe() string {
	var sb strings.Builder
	var walk func(n *Node)
	walk = func(n *Node) {
		switch n.Kind {
		case NodeElement:
			sb.WriteString("<" + n.Tag)
			for _, a := range n.Attrs {
				if a.Kind == AttrStatic {
					fmt.Fprintf(&sb, " %s=%q", a.Name, a.Value)
				} else {
					fmt.Fprintf(&sb, " {attr%d}", a.Slot)
				}
			}
			sb.WriteString(">")
			for i := range n.Children {
				walk(&n.Children[i])
			}
			sb.WriteString("</" + n.Tag + ">")
		case NodeText:
			sb.WriteString(n.Text)
		case NodeDynamic:
			fmt.Fprintf(&sb, "{node%d}", n.Slot)
		case NodeDynamicText:
			fmt.Fprintf(&sb, "{text%d}", n.Slot)
		}
	}
	for i := range t.Roots {
		walk(&t.Roots[i])
	}
	return sb.String()
}
