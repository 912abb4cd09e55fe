package vdom

import (
	"slices"

	"loom/internal/mutation"
	"loom/internal/slotmap"
	"loom/internal/template"
)

func (d *VirtualDom) newElement(m *mount, path template.Path) ElementID {
	return ElementID(d.elements.MustInsert(elementRef{m: m, path: path}))
}

func (d *VirtualDom) freeElement(id ElementID) {
	if id == noElement || id == Root {
		return
	}
	d.elements.Remove(slotmap.Key(id))
}

// createVNode instantiates v in the renderer and returns its root ids. The
// roots are left detached for the caller to attach. s is the scope that
// rendered v.
func (d *VirtualDom) createVNode(s *Scope, v *VNode, parent parentRef, w mutation.Writer) []ElementID {
	tpl := v.Template
	m := &mount{
		node:   v,
		scope:  s.id,
		parent: parent,
		ids:    make([]ElementID, len(tpl.Addressable)),
		scopes: make([]ScopeID, tpl.NumNodeSlots()),
	}
	for i := range m.scopes {
		m.scopes[i] = noScope
	}
	v.mount = m
	for i, p := range tpl.Addressable {
		m.ids[i] = d.newElement(m, p)
	}

	if d.cfg.InlineTemplates {
		d.createInline(m, w)
	} else {
		if !d.registered[tpl.ID] {
			d.registered[tpl.ID] = true
			w.Write(mutation.RegisterTemplate(uint32(tpl.ID), tpl.Name))
		}
		w.Write(mutation.CloneNodeChildren(uint32(tpl.ID), slices.Clone(m.ids)))
	}

	for i, a := range v.Attrs {
		d.createAttr(m.ids[tpl.AttrAddr(i)], a, w)
	}
	for slot := range v.Nodes {
		d.createSlot(s, m, slot, w)
	}
	return d.rootIDs(v)
}

func (d *VirtualDom) createChildren(s *Scope, children []*VNode, parent parentRef, w mutation.Writer) []ElementID {
	var roots []ElementID
	for _, c := range children {
		roots = append(roots, d.createVNode(s, c, parent, w)...)
	}
	return roots
}

func (d *VirtualDom) createAttr(id ElementID, a Attribute, w mutation.Writer) {
	switch a.Value.Kind {
	case ValueListener:
		w.Write(mutation.NewEventListener(id, a.Name))
	case ValueNone:
	default:
		w.Write(mutation.SetAttribute(id, a.Name, a.Value.wire(), a.Namespace))
	}
}

func (d *VirtualDom) removeAttr(id ElementID, a *Attribute, w mutation.Writer) {
	switch a.Value.Kind {
	case ValueListener:
		w.Write(mutation.RemoveEventListener(id, a.Name))
	case ValueNone:
	default:
		w.Write(mutation.SetAttribute(id, a.Name, mutation.Value{}, a.Namespace))
	}
}

// createSlot fills dynamic node slot with its content. A fresh clone holds
// a placeholder in node slots and an empty text node in text slots.
func (d *VirtualDom) createSlot(s *Scope, m *mount, slot int, w mutation.Writer) {
	tpl := m.node.Template
	addr := tpl.NodeAddr(slot)
	standIn := m.ids[addr]
	dn := &m.node.Nodes[slot]
	ref := parentRef{m: m, slot: slot}

	var roots []ElementID
	switch dn.Kind {
	case DynPlaceholder:
		return
	case DynText:
		if tpl.NodeAt(tpl.NodePaths[slot]).Kind == template.NodeDynamicText {
			if dn.Text != "" {
				w.Write(mutation.SetText(standIn, dn.Text))
			}
			return
		}
		roots = []ElementID{d.createLeaf(m, addr, dn, w)}
	case DynFragment:
		roots = d.createChildren(s, dn.Children, ref, w)
		m.ids[addr] = noElement
	case DynComponent:
		m.scopes[slot], roots = d.mountComponent(s, dn.Component, ref, w)
		m.ids[addr] = noElement
	}
	w.Write(mutation.ReplaceWith(standIn, roots))
	d.freeElement(standIn)
}

// createLeaf creates a detached text node or placeholder for a node slot
// and records its id in the mount.
func (d *VirtualDom) createLeaf(m *mount, addr int, dn *DynamicNode, w mutation.Writer) ElementID {
	id := d.newElement(m, m.node.Template.Addressable[addr])
	if dn.Kind == DynText {
		w.Write(mutation.CreateTextNode(dn.Text))
	} else {
		w.Write(mutation.CreatePlaceholder())
	}
	w.Write(mutation.StoreWithID(id))
	m.ids[addr] = id
	return id
}

// mountComponent creates a child scope, renders it and creates its output.
func (d *VirtualDom) mountComponent(parent *Scope, vc *VComponent, ref parentRef, w mutation.Writer) (ScopeID, []ElementID) {
	cs := d.newScope(parent, vc.Def, vc.Props, ref)
	cs.root = d.render(cs)
	return cs.id, d.createVNode(cs, cs.root, ref, w)
}

// createInline expands the template of m node by node. Addressable nodes
// are bound either right after creation, when a static attribute needs the
// id, or afterwards by walking from their root.
func (d *VirtualDom) createInline(m *mount, w mutation.Writer) {
	tpl := m.node.Template
	index := make(map[string]int, len(tpl.Addressable))
	for i, p := range tpl.Addressable {
		index[string(p)] = i
	}
	bound := make([]bool, len(tpl.Addressable))

	var build func(n *template.Node, path template.Path)
	build = func(n *template.Node, path template.Path) {
		switch n.Kind {
		case template.NodeElement:
			for i := range n.Children {
				build(&n.Children[i], append(slices.Clip(path), uint8(i)))
			}
			w.Write(mutation.CreateElement(n.Tag, n.Namespace, len(n.Children)))
			var static []template.Attr
			for _, a := range n.Attrs {
				if a.Kind == template.AttrStatic {
					static = append(static, a)
				}
			}
			if len(static) == 0 {
				return
			}
			var id ElementID
			if a, ok := index[string(path)]; ok {
				id = m.ids[a]
				bound[a] = true
			} else {
				id = d.newElement(m, slices.Clone(path))
				m.extra = append(m.extra, id)
			}
			w.Write(mutation.StoreWithID(id))
			for _, a := range static {
				w.Write(mutation.SetAttribute(id, a.Name, mutation.TextValue(a.Value), a.Namespace))
			}
		case template.NodeText:
			w.Write(mutation.CreateTextNode(n.Text))
		case template.NodeDynamicText:
			w.Write(mutation.CreateTextNode(""))
		case template.NodeDynamic:
			w.Write(mutation.CreatePlaceholder())
		}
	}

	for i := range tpl.Roots {
		build(&tpl.Roots[i], template.Path{uint8(i)})
		if a := tpl.RootAddr(i); !bound[a] {
			w.Write(mutation.StoreWithID(m.ids[a]))
			bound[a] = true
		}
	}
	for a, p := range tpl.Addressable {
		if bound[a] {
			continue
		}
		w.Write(mutation.SetLastNode(m.ids[tpl.RootAddr(int(p[0]))]))
		for _, step := range p[1:] {
			w.Write(mutation.FirstChild())
			for range int(step) {
				w.Write(mutation.NextSibling())
			}
		}
		w.Write(mutation.StoreWithID(m.ids[a]))
	}
}

// rootIDs lists the renderer nodes v occupies at the top level, looking
// through dynamic roots.
func (d *VirtualDom) rootIDs(v *VNode) []ElementID {
	m := v.mount
	tpl := m.node.Template
	var out []ElementID
	for i := range tpl.Roots {
		if slot, ok := tpl.DynamicRoot(i); ok {
			out = append(out, d.slotRoots(m, slot, &m.node.Nodes[slot], m.scopes[slot])...)
			continue
		}
		out = append(out, m.ids[tpl.RootAddr(i)])
	}
	return out
}

// slotRoots lists the top-level renderer nodes of a slot holding dn.
func (d *VirtualDom) slotRoots(m *mount, slot int, dn *DynamicNode, scope ScopeID) []ElementID {
	switch dn.Kind {
	case DynFragment:
		var out []ElementID
		for _, c := range dn.Children {
			out = append(out, d.rootIDs(c)...)
		}
		return out
	case DynComponent:
		if cs := d.scope(scope); cs != nil && cs.root != nil {
			return d.rootIDs(cs.root)
		}
		return nil
	default:
		return []ElementID{m.ids[m.node.Template.NodeAddr(slot)]}
	}
}

func (d *VirtualDom) firstRoot(v *VNode) ElementID { return d.rootIDs(v)[0] }

func (d *VirtualDom) lastRoot(v *VNode) ElementID {
	ids := d.rootIDs(v)
	return ids[len(ids)-1]
}

// removeVNode removes v from the renderer and releases everything it owns.
func (d *VirtualDom) removeVNode(v *VNode, w mutation.Writer) {
	for _, id := range d.rootIDs(v) {
		w.Write(mutation.Remove(id))
	}
	d.cleanupVNode(v)
}

// cleanupVNode releases ids and child scopes without emitting edits; the
// caller has already detached the nodes.
func (d *VirtualDom) cleanupVNode(v *VNode) {
	m := v.mount
	if m == nil || m.dead {
		return
	}
	m.dead = true
	for slot := range m.node.Nodes {
		d.cleanupDynamic(&m.node.Nodes[slot], m.scopes[slot])
		m.scopes[slot] = noScope
	}
	for _, id := range m.ids {
		d.freeElement(id)
	}
	for _, id := range m.extra {
		d.freeElement(id)
	}
}

func (d *VirtualDom) cleanupDynamic(dn *DynamicNode, scope ScopeID) {
	switch dn.Kind {
	case DynFragment:
		for _, c := range dn.Children {
			d.cleanupVNode(c)
		}
	case DynComponent:
		d.dropScope(d.scope(scope))
	}
}
