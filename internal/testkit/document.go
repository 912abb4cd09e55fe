package testkit

import (
	"fmt"
	"slices"

	"loom/internal/mutation"
	"loom/internal/template"
)

// NodeKind tags document nodes.
type NodeKind uint8

const (
	NodeContainer NodeKind = iota
	NodeElement
	NodeText
	NodePlaceholder
)

// Node is one node of the in-memory document.
type Node struct {
	Kind      NodeKind
	Tag       string
	Namespace string
	Text      string
	Attrs     map[string]mutation.Value
	Listeners map[string]bool
	Children  []*Node
	Parent    *Node
}

func (n *Node) index() int {
	if n.Parent == nil {
		return -1
	}
	return slices.Index(n.Parent.Children, n)
}

func (n *Node) detach() {
	if i := n.index(); i >= 0 {
		n.Parent.Children = slices.Delete(n.Parent.Children, i, i+1)
	}
	n.Parent = nil
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// Document is a reference renderer: it applies mutation scripts to an
// in-memory tree exactly as a backend must, including the creation stack
// and the cursor used in inline-template mode. Errors wrap
// mutation.ErrStaleElement or mutation.ErrContract.
type Document struct {
	store      *template.Store
	root       *Node
	ids        map[mutation.ElementID]*Node
	stack      []*Node
	cursor     *Node
	registered map[uint32]bool
	err        error
	applied    int
}

// NewDocument creates an empty document that resolves templates in store;
// nil selects template.Default.
func NewDocument(store *template.Store) *Document {
	if store == nil {
		store = template.Default
	}
	root := &Node{Kind: NodeContainer}
	return &Document{
		store:      store,
		root:       root,
		ids:        map[mutation.ElementID]*Node{mutation.Root: root},
		registered: make(map[uint32]bool),
	}
}

// Root returns the root container.
func (doc *Document) Root() *Node { return doc.root }

// Node returns the node bound to id.
func (doc *Document) Node(id mutation.ElementID) *Node { return doc.ids[id] }

// Err returns the first error seen by Write.
func (doc *Document) Err() error { return doc.err }

// Applied counts mutations applied without error.
func (doc *Document) Applied() int { return doc.applied }

// Write implements mutation.Writer. The first failure is kept in Err and
// later mutations are ignored.
func (doc *Document) Write(m mutation.Mutation) {
	if doc.err != nil {
		return
	}
	doc.err = doc.apply(m)
}

// Apply implements the runtime renderer contract for a whole batch.
func (doc *Document) Apply(b mutation.Batch) error {
	for _, m := range b.Edits {
		if err := doc.apply(m); err != nil {
			return fmt.Errorf("cycle %d: %w", b.Cycle, err)
		}
	}
	return nil
}

func (doc *Document) lookup(m mutation.Mutation, id mutation.ElementID) (*Node, error) {
	n, ok := doc.ids[id]
	if !ok {
		return nil, fmt.Errorf("%s: element %s: %w", m.Op, id, mutation.ErrStaleElement)
	}
	return n, nil
}

func (doc *Document) lookupAll(m mutation.Mutation, ids []mutation.ElementID) ([]*Node, error) {
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		n, err := doc.lookup(m, id)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func contract(m mutation.Mutation, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", m.Op, fmt.Sprintf(format, args...), mutation.ErrContract)
}

func (doc *Document) push(n *Node) {
	doc.stack = append(doc.stack, n)
	doc.cursor = n
}

// take pulls n out of the creation stack or its current parent.
func (doc *Document) take(n *Node) {
	if i := slices.Index(doc.stack, n); i >= 0 {
		doc.stack = slices.Delete(doc.stack, i, i+1)
		return
	}
	n.detach()
}

// unbind forgets every id bound inside the subtree of n.
func (doc *Document) unbind(n *Node) {
	inside := make(map[*Node]bool)
	n.walk(func(c *Node) { inside[c] = true })
	for id, bound := range doc.ids {
		if id != mutation.Root && inside[bound] {
			delete(doc.ids, id)
		}
	}
}

func (doc *Document) apply(m mutation.Mutation) error {
	if err := doc.step(m); err != nil {
		return err
	}
	doc.applied++
	return nil
}

func (doc *Document) step(m mutation.Mutation) error {
	switch m.Op {
	case mutation.OpRegisterTemplate:
		if _, ok := doc.store.Lookup(template.ID(m.Template)); !ok {
			return contract(m, "unknown template %d", m.Template)
		}
		doc.registered[m.Template] = true

	case mutation.OpCloneNodeChildren:
		if !doc.registered[m.Template] {
			return contract(m, "template %d was never registered", m.Template)
		}
		tpl, _ := doc.store.Lookup(template.ID(m.Template))
		if len(m.IDs) != len(tpl.Addressable) {
			return contract(m, "%d ids for %d addressable nodes", len(m.IDs), len(tpl.Addressable))
		}
		roots := make([]*Node, len(tpl.Roots))
		for i := range tpl.Roots {
			roots[i] = cloneTemplate(&tpl.Roots[i])
			doc.push(roots[i])
		}
		for i, p := range tpl.Addressable {
			n := roots[p[0]]
			for _, step := range p[1:] {
				n = n.Children[step]
			}
			doc.ids[m.IDs[i]] = n
		}

	case mutation.OpCreateElement:
		if m.Count > len(doc.stack) {
			return contract(m, "%d children requested, stack holds %d", m.Count, len(doc.stack))
		}
		el := &Node{Kind: NodeElement, Tag: m.Name, Namespace: m.Namespace}
		children := slices.Clone(doc.stack[len(doc.stack)-m.Count:])
		doc.stack = doc.stack[:len(doc.stack)-m.Count]
		for _, c := range children {
			c.Parent = el
		}
		el.Children = children
		doc.push(el)

	case mutation.OpCreateTextNode:
		doc.push(&Node{Kind: NodeText, Text: m.Text})

	case mutation.OpCreatePlaceholder:
		doc.push(&Node{Kind: NodePlaceholder})

	case mutation.OpSetAttribute:
		n, err := doc.lookup(m, m.ID)
		if err != nil {
			return err
		}
		if n.Kind != NodeElement {
			return contract(m, "element %s is not an element", m.ID)
		}
		key := attrKey(m.Name, m.Namespace)
		if m.Value.Kind == mutation.ValueNone {
			delete(n.Attrs, key)
			break
		}
		if n.Attrs == nil {
			n.Attrs = make(map[string]mutation.Value)
		}
		n.Attrs[key] = m.Value

	case mutation.OpSetText:
		n, err := doc.lookup(m, m.ID)
		if err != nil {
			return err
		}
		if n.Kind != NodeText {
			return contract(m, "element %s is not a text node", m.ID)
		}
		n.Text = m.Text

	case mutation.OpAppendChildren:
		parent, err := doc.lookup(m, m.ID)
		if err != nil {
			return err
		}
		nodes, err := doc.lookupAll(m, m.IDs)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			doc.take(n)
			n.Parent = parent
			parent.Children = append(parent.Children, n)
		}

	case mutation.OpInsertBefore, mutation.OpInsertAfter:
		anchor, err := doc.lookup(m, m.ID)
		if err != nil {
			return err
		}
		nodes, err := doc.lookupAll(m, m.IDs)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if n == anchor {
				return contract(m, "element %s is its own anchor", m.ID)
			}
			doc.take(n)
		}
		if anchor.Parent == nil {
			return contract(m, "anchor %s is detached", m.ID)
		}
		at := anchor.index()
		if m.Op == mutation.OpInsertAfter {
			at++
		}
		parent := anchor.Parent
		for _, n := range nodes {
			n.Parent = parent
		}
		parent.Children = slices.Insert(parent.Children, at, nodes...)

	case mutation.OpRemove:
		n, err := doc.lookup(m, m.ID)
		if err != nil {
			return err
		}
		if n == doc.root {
			return contract(m, "the root container cannot be removed")
		}
		doc.take(n)
		doc.unbind(n)

	case mutation.OpReplaceWith:
		old, err := doc.lookup(m, m.ID)
		if err != nil {
			return err
		}
		nodes, err := doc.lookupAll(m, m.IDs)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			doc.take(n)
		}
		switch i := slices.Index(doc.stack, old); {
		case i >= 0:
			doc.stack = slices.Replace(doc.stack, i, i+1, nodes...)
		case old.Parent != nil:
			parent, at := old.Parent, old.index()
			for _, n := range nodes {
				n.Parent = parent
			}
			parent.Children = slices.Replace(parent.Children, at, at+1, nodes...)
			old.Parent = nil
		}
		doc.unbind(old)

	case mutation.OpSetLastNode:
		n, err := doc.lookup(m, m.ID)
		if err != nil {
			return err
		}
		doc.cursor = n

	case mutation.OpFirstChild:
		if doc.cursor == nil || len(doc.cursor.Children) == 0 {
			return contract(m, "cursor has no children")
		}
		doc.cursor = doc.cursor.Children[0]

	case mutation.OpNextSibling:
		if doc.cursor == nil || doc.cursor.Parent == nil {
			return contract(m, "cursor has no parent")
		}
		i := doc.cursor.index()
		if i+1 >= len(doc.cursor.Parent.Children) {
			return contract(m, "cursor is the last child")
		}
		doc.cursor = doc.cursor.Parent.Children[i+1]

	case mutation.OpStoreWithID:
		if doc.cursor == nil {
			return contract(m, "no current node")
		}
		doc.ids[m.ID] = doc.cursor

	case mutation.OpNewEventListener, mutation.OpRemoveEventListener:
		n, err := doc.lookup(m, m.ID)
		if err != nil {
			return err
		}
		if n.Listeners == nil {
			n.Listeners = make(map[string]bool)
		}
		if m.Op == mutation.OpNewEventListener {
			n.Listeners[m.Name] = true
		} else {
			delete(n.Listeners, m.Name)
		}

	default:
		return contract(m, "unsupported op")
	}
	return nil
}

func attrKey(name, namespace string) string {
	if namespace == "" {
		return name
	}
	return namespace + ":" + name
}

// cloneTemplate builds the document form of a template node. Dynamic node
// slots start as placeholders and dynamic text slots as empty text.
func cloneTemplate(t *template.Node) *Node {
	switch t.Kind {
	case template.NodeText:
		return &Node{Kind: NodeText, Text: t.Text}
	case template.NodeDynamicText:
		return &Node{Kind: NodeText}
	case template.NodeDynamic:
		return &Node{Kind: NodePlaceholder}
	}
	n := &Node{Kind: NodeElement, Tag: t.Tag, Namespace: t.Namespace}
	for _, a := range t.Attrs {
		if a.Kind != template.AttrStatic {
			continue
		}
		if n.Attrs == nil {
			n.Attrs = make(map[string]mutation.Value)
		}
		n.Attrs[attrKey(a.Name, a.Namespace)] = mutation.TextValue(a.Value)
	}
	for i := range t.Children {
		c := cloneTemplate(&t.Children[i])
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// IDsWithListener lists bound ids whose node listens for name, in id order.
func (doc *Document) IDsWithListener(name string) []mutation.ElementID {
	var out []mutation.ElementID
	for id, n := range doc.ids {
		if n.Listeners[name] {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// FindText returns the id of the first bound text node with the given text.
func (doc *Document) FindText(text string) (mutation.ElementID, error) {
	var found []mutation.ElementID
	for id, n := range doc.ids {
		if n.Kind == NodeText && n.Text == text {
			found = append(found, id)
		}
	}
	if len(found) == 0 {
		return 0, fmt.Errorf("no bound text node %q", text)
	}
	slices.Sort(found)
	return found[0], nil
}

// Find returns the bound ids whose node satisfies match, in document order.
func (doc *Document) Find(match func(*Node) bool) []mutation.ElementID {
	order := make(map[*Node]int)
	doc.root.walk(func(n *Node) { order[n] = len(order) })
	var out []mutation.ElementID
	for id, n := range doc.ids {
		if _, ok := order[n]; ok && id != mutation.Root && match(n) {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, func(a, b mutation.ElementID) int {
		return order[doc.ids[a]] - order[doc.ids[b]]
	})
	return out
}

// Attr returns the text form of an attribute, or "" if unset.
func (n *Node) Attr(name string) string {
	v, ok := n.Attrs[name]
	if !ok {
		return ""
	}
	return v.String()
}
