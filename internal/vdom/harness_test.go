package vdom_test

import (
	"testing"

	"loom/internal/diag"
	"loom/internal/mutation"
	"loom/internal/template"
	"loom/internal/testkit"
	"loom/internal/vdom"
)

type harness struct {
	t   *testing.T
	dom *vdom.VirtualDom
	doc *testkit.Document
}

func newHarness(t *testing.T, root *vdom.Component, cfg vdom.Config) *harness {
	t.Helper()
	return &harness{
		t:   t,
		dom: vdom.New(root, nil, cfg),
		doc: testkit.NewDocument(cfg.Store),
	}
}

func (h *harness) check(s *mutation.Script) {
	h.t.Helper()
	if err := h.doc.Err(); err != nil {
		h.t.Fatalf("document rejected script: %v\n%s", err, s)
	}
	if err := h.doc.CheckInvariants(); err != nil {
		h.t.Fatalf("document invariants: %v\n%s", err, s)
	}
}

func (h *harness) rebuild() *mutation.Script {
	h.t.Helper()
	s := &mutation.Script{}
	if err := h.dom.Rebuild(mutation.Tee(s, h.doc)); err != nil {
		h.t.Fatalf("rebuild: %v", err)
	}
	h.check(s)
	return s
}

func (h *harness) drain() *mutation.Script {
	h.t.Helper()
	s := &mutation.Script{}
	if err := h.dom.Drain(mutation.Tee(s, h.doc)); err != nil {
		h.t.Fatalf("drain: %v", err)
	}
	h.check(s)
	if h.dom.HasWork() {
		h.t.Fatalf("drain left work behind")
	}
	return s
}

func (h *harness) html() string { return h.doc.HTML() }

func (h *harness) click(id mutation.ElementID) {
	h.t.Helper()
	if err := h.dom.HandleEvent("click", nil, id, true); err != nil {
		h.t.Fatalf("click %s: %v", id, err)
	}
}

// listener finds the single element with a listener for event whose tag is
// tag.
func (h *harness) listener(event, tag string) mutation.ElementID {
	h.t.Helper()
	var found []mutation.ElementID
	for _, id := range h.doc.IDsWithListener(event) {
		if h.doc.Node(id).Tag == tag {
			found = append(found, id)
		}
	}
	if len(found) != 1 {
		h.t.Fatalf("want one <%s> listening for %s, found %v", tag, event, found)
	}
	return found[0]
}

func (h *harness) wantDiag(code diag.Code) {
	h.t.Helper()
	if !h.dom.Diagnostics().Has(code) {
		h.t.Fatalf("missing diagnostic %s, have:\n%s", code.ID(), diag.FormatShort(h.dom.Diagnostics().Items()))
	}
}

func (h *harness) wantNoDiags() {
	h.t.Helper()
	if items := h.dom.Diagnostics().Items(); len(items) != 0 {
		h.t.Fatalf("unexpected diagnostics: %v", items)
	}
}

var (
	textTpl = template.MustNew("test:text", template.DynText(0))
	itemTpl = template.MustNew("test:item", template.Elem("li", nil, template.DynText(0)))
	listTpl = template.MustNew("test:list", template.Elem("ul", nil, template.Dyn(0)))
	slotTpl = template.MustNew("test:slot", template.Dyn(0))

	buttonTpl  = template.MustNew("test:button", template.Elem("button", template.Attrs(template.DynAttr(0)), template.Text("go")))
	counterTpl = template.MustNew("test:counter", template.Elem("button", template.Attrs(template.DynAttr(0)), template.DynText(0)))
	panelTpl   = template.MustNew("test:panel", template.Elem("section", template.Attrs(template.DynAttr(0)),
		template.Elem("div", template.Attrs(template.DynAttr(1)), template.Dyn(0)),
	))
)

func item(cx *vdom.Scope, key, text string) *vdom.VNode {
	return cx.RenderKeyed(key, itemTpl, vdom.Nodes(vdom.Text(text)), nil)
}
