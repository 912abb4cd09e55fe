package vdom

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"loom/internal/template"
)

// validate checks a render output of s against its template and normalises
// it in place: empty fragments become placeholders and, when enabled, text
// is NFC-normalised. Child components are validated by their own render.
// Every node must come from the arena of the render in progress; the other
// arena still holds the previous output and stays live until the next
// render resets it.
func (d *VirtualDom) validate(s *Scope, v *VNode) error {
	tpl := v.Template
	if tpl == nil {
		return &SlotMismatchError{Template: "<nil>", Msg: "render output has no template"}
	}
	if v.arena != nil && (v.arena != s.arenas[s.frame] || !v.arena.Live(v.gen)) {
		return &StaleOutputError{Node: v.String()}
	}
	if len(v.Nodes) != tpl.NumNodeSlots() {
		return &SlotMismatchError{Template: tpl.Name, Msg: fmt.Sprintf("%d node values for %d slots", len(v.Nodes), tpl.NumNodeSlots())}
	}
	if len(v.Attrs) != tpl.NumAttrSlots() {
		return &SlotMismatchError{Template: tpl.Name, Msg: fmt.Sprintf("%d attribute values for %d slots", len(v.Attrs), tpl.NumAttrSlots())}
	}
	for i := range v.Attrs {
		a := &v.Attrs[i]
		if a.Value.Kind == ValueListener && a.Value.Listener == nil {
			a.Value = AttributeValue{}
		}
		if d.cfg.NormalizeText && a.Value.Kind == ValueText {
			a.Value.Text = norm.NFC.String(a.Value.Text)
		}
	}
	for i := range v.Nodes {
		dn := &v.Nodes[i]
		if tpl.NodeAt(tpl.NodePaths[i]).Kind == template.NodeDynamicText && dn.Kind != DynText {
			return &SlotMismatchError{Template: tpl.Name, Msg: fmt.Sprintf("text slot %d holds a %s", i, dn.Kind)}
		}
		switch dn.Kind {
		case DynText:
			if d.cfg.NormalizeText {
				dn.Text = norm.NFC.String(dn.Text)
			}
		case DynFragment:
			if len(dn.Children) == 0 {
				*dn = Placeholder()
				continue
			}
			if err := d.validateChildren(s, dn.Children); err != nil {
				return err
			}
		case DynComponent:
			if dn.Component == nil || dn.Component.Def == nil {
				return &SlotMismatchError{Template: tpl.Name, Msg: fmt.Sprintf("component slot %d has no definition", i)}
			}
			if dn.Component.Props == nil {
				dn.Component.Props = NoProps
			}
		}
	}
	return nil
}

// validateChildren enforces that a list is either fully keyed with unique
// keys or fully unkeyed.
func (d *VirtualDom) validateChildren(s *Scope, children []*VNode) error {
	keyed := 0
	seen := make(map[string]int, len(children))
	for i, c := range children {
		if c == nil {
			return &SlotMismatchError{Template: "<fragment>", Msg: fmt.Sprintf("child %d is nil", i)}
		}
		if c.Key != "" {
			keyed++
			if first, dup := seen[c.Key]; dup {
				return &DuplicateKeyError{Key: c.Key, First: first, Second: i}
			}
			seen[c.Key] = i
		}
		if err := d.validate(s, c); err != nil {
			return err
		}
	}
	if keyed != 0 && keyed != len(children) {
		return &MixedKeysError{Keyed: keyed, Unkeyed: len(children) - keyed}
	}
	return nil
}
