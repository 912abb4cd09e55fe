package vdom

import (
	"loom/internal/mutation"
)

// diffNode reconciles the mounted old with new, moving the mount to new.
// s is the scope that rendered new.
func (d *VirtualDom) diffNode(s *Scope, old, new *VNode, w mutation.Writer) {
	if old == new {
		return
	}
	if old.Template != new.Template || old.Key != new.Key {
		d.replaceVNode(s, old, new, w)
		return
	}
	m := old.mount
	new.mount = m
	m.node = new
	tpl := new.Template
	for i := range new.Attrs {
		d.diffAttr(m.ids[tpl.AttrAddr(i)], &old.Attrs[i], &new.Attrs[i], w)
	}
	for slot := range new.Nodes {
		d.diffSlot(s, m, slot, &old.Nodes[slot], &new.Nodes[slot], w)
	}
}

// replaceVNode creates new and swaps it in at the position of old.
func (d *VirtualDom) replaceVNode(s *Scope, old, new *VNode, w mutation.Writer) {
	oldRoots := d.rootIDs(old)
	roots := d.createVNode(s, new, old.mount.parent, w)
	d.swap(oldRoots, roots, w)
	d.cleanupVNode(old)
}

func (d *VirtualDom) swap(oldRoots, roots []ElementID, w mutation.Writer) {
	w.Write(mutation.ReplaceWith(oldRoots[0], roots))
	for _, id := range oldRoots[1:] {
		w.Write(mutation.Remove(id))
	}
}

func (d *VirtualDom) diffAttr(id ElementID, old, new *Attribute, w mutation.Writer) {
	if old.Name != new.Name || old.Namespace != new.Namespace {
		d.removeAttr(id, old, w)
		d.createAttr(id, *new, w)
		return
	}
	oldL, newL := old.Value.IsListener(), new.Value.IsListener()
	switch {
	case oldL && newL:
		// Dispatch reads the listener from the latest output.
	case oldL:
		w.Write(mutation.RemoveEventListener(id, old.Name))
		d.createAttr(id, *new, w)
	case newL:
		d.removeAttr(id, old, w)
		w.Write(mutation.NewEventListener(id, new.Name))
	case new.Volatile || !old.Value.equal(new.Value):
		w.Write(mutation.SetAttribute(id, new.Name, new.Value.wire(), new.Namespace))
	}
}

func (d *VirtualDom) diffSlot(s *Scope, m *mount, slot int, old, new *DynamicNode, w mutation.Writer) {
	switch {
	case old.Kind == DynText && new.Kind == DynText:
		if old.Text != new.Text {
			w.Write(mutation.SetText(m.ids[m.node.Template.NodeAddr(slot)], new.Text))
		}
	case old.Kind == DynPlaceholder && new.Kind == DynPlaceholder:
	case old.Kind == DynFragment && new.Kind == DynFragment:
		d.diffChildren(s, parentRef{m: m, slot: slot}, old.Children, new.Children, w)
	case old.Kind == DynComponent && new.Kind == DynComponent && old.Component.Def == new.Component.Def:
		d.diffComponent(m.scopes[slot], new.Component, w)
	default:
		d.replaceSlot(s, m, slot, old, new, w)
	}
}

// diffComponent re-renders a child scope unless its props memoize.
func (d *VirtualDom) diffComponent(id ScopeID, vc *VComponent, w mutation.Writer) {
	cs := d.scope(id)
	if cs == nil {
		return
	}
	if cs.props.Memoize(vc.Props) {
		return
	}
	cs.props = vc.Props
	d.rerender(cs, w)
}

// replaceSlot swaps the content of a slot whose kind or component changed.
func (d *VirtualDom) replaceSlot(s *Scope, m *mount, slot int, old, new *DynamicNode, w mutation.Writer) {
	addr := m.node.Template.NodeAddr(slot)
	oldScope := m.scopes[slot]
	oldID := m.ids[addr]
	oldRoots := d.slotRoots(m, slot, old, oldScope)
	ref := parentRef{m: m, slot: slot}

	var roots []ElementID
	m.scopes[slot] = noScope
	switch new.Kind {
	case DynText, DynPlaceholder:
		roots = []ElementID{d.createLeaf(m, addr, new, w)}
	case DynFragment:
		roots = d.createChildren(s, new.Children, ref, w)
		m.ids[addr] = noElement
	case DynComponent:
		m.scopes[slot], roots = d.mountComponent(s, new.Component, ref, w)
		m.ids[addr] = noElement
	}
	d.swap(oldRoots, roots, w)
	d.freeElement(oldID)
	d.cleanupDynamic(old, oldScope)
}

// diffChildren reconciles a fragment. Both lists are non-empty; render
// validation turns empty fragments into placeholders.
func (d *VirtualDom) diffChildren(s *Scope, ref parentRef, old, new []*VNode, w mutation.Writer) {
	if old[0].Keyed() && new[0].Keyed() {
		d.diffKeyed(s, ref, old, new, w)
		return
	}
	d.diffUnkeyed(s, ref, old, new, w)
}

// diffUnkeyed pairs children by position. Only the tail grows or shrinks.
func (d *VirtualDom) diffUnkeyed(s *Scope, ref parentRef, old, new []*VNode, w mutation.Writer) {
	n := min(len(old), len(new))
	for i := range n {
		d.diffNode(s, old[i], new[i], w)
	}
	if len(new) > n {
		roots := d.createChildren(s, new[n:], ref, w)
		w.Write(mutation.InsertAfter(d.lastRoot(new[n-1]), roots))
		return
	}
	for _, o := range old[n:] {
		d.removeVNode(o, w)
	}
}
