package testkit

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"loom/internal/mutation"
	"loom/internal/template"
)

func apply(t *testing.T, doc *Document, edits ...mutation.Mutation) {
	t.Helper()
	for _, m := range edits {
		doc.Write(m)
	}
	if err := doc.Err(); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := doc.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestCloneBindsAddressableNodes(t *testing.T) {
	store := template.NewStore()
	tpl, err := store.Intern("card",
		template.Elem("div", template.Attrs(template.Static("class", "card")),
			template.Elem("h1", nil, template.DynText(0)),
			template.Elem("p", template.Attrs(template.DynAttr(0)), template.Text("body")),
			template.Dyn(1),
		),
	)
	if err != nil {
		t.Fatal(err)
	}
	doc := NewDocument(store)
	// Addressable order: root, attribute element, then node slots.
	apply(t, doc,
		mutation.RegisterTemplate(uint32(tpl.ID), tpl.Name),
		mutation.CloneNodeChildren(uint32(tpl.ID), []mutation.ElementID{1, 2, 3, 4}),
		mutation.SetText(3, "title"),
		mutation.SetAttribute(2, "id", mutation.TextValue("x"), ""),
		mutation.AppendChildren(mutation.Root, []mutation.ElementID{1}),
	)
	want := `<div class="card"><h1>title</h1><p id="x">body</p><!--placeholder--></div>`
	if diff := cmp.Diff(want, doc.HTML()); diff != "" {
		t.Fatalf("html (-want +got):\n%s", diff)
	}
	if doc.Node(4).Kind != NodePlaceholder {
		t.Fatalf("slot 1 bound to %v", doc.Node(4).Kind)
	}
}

func TestInlineScriptWithNavigation(t *testing.T) {
	doc := NewDocument(template.NewStore())
	apply(t, doc,
		mutation.CreateTextNode("a"),
		mutation.CreatePlaceholder(),
		mutation.CreateElement("li", "", 2),
		mutation.StoreWithID(1),
		mutation.SetLastNode(1),
		mutation.FirstChild(),
		mutation.StoreWithID(2),
		mutation.NextSibling(),
		mutation.StoreWithID(3),
		mutation.AppendChildren(mutation.Root, []mutation.ElementID{1}),
		mutation.CreateTextNode("b"),
		mutation.StoreWithID(4),
		mutation.ReplaceWith(3, []mutation.ElementID{4}),
	)
	if diff := cmp.Diff("<li>ab</li>", doc.HTML()); diff != "" {
		t.Fatalf("html (-want +got):\n%s", diff)
	}
	if doc.Bound(3) {
		t.Fatalf("replaced placeholder still bound")
	}
	if got := doc.TextContent(); got != "ab" {
		t.Fatalf("text = %q", got)
	}
}

func TestReplaceWithOnCreationStack(t *testing.T) {
	doc := NewDocument(nil)
	apply(t, doc,
		mutation.CreatePlaceholder(),
		mutation.StoreWithID(1),
		mutation.CreateTextNode("x"),
		mutation.StoreWithID(2),
		mutation.ReplaceWith(1, []mutation.ElementID{2}),
		mutation.AppendChildren(mutation.Root, []mutation.ElementID{2}),
	)
	if got := doc.HTML(); got != "x" {
		t.Fatalf("html = %q", got)
	}
}

func TestMoves(t *testing.T) {
	doc := NewDocument(nil)
	var (
		ids   []mutation.ElementID
		edits []mutation.Mutation
	)
	for i, s := range []string{"a", "b", "c"} {
		id := mutation.ElementID(i + 1)
		ids = append(ids, id)
		edits = append(edits, mutation.CreateTextNode(s), mutation.StoreWithID(id))
	}
	edits = append(edits, mutation.AppendChildren(mutation.Root, ids))
	apply(t, doc, edits...)
	apply(t, doc,
		mutation.InsertBefore(1, []mutation.ElementID{3}),
		mutation.InsertAfter(3, []mutation.ElementID{2}),
		mutation.Remove(1),
	)
	if got := doc.HTML(); got != "cb" {
		t.Fatalf("html = %q", got)
	}
	bound, nodes, err := doc.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if bound != 2 || nodes != 2 {
		t.Fatalf("stats = %d ids, %d nodes", bound, nodes)
	}
}

func TestContractViolations(t *testing.T) {
	tests := []struct {
		name  string
		edits []mutation.Mutation
		want  error
	}{
		{
			name:  "unknown id",
			edits: []mutation.Mutation{mutation.SetText(9, "x")},
			want:  mutation.ErrStaleElement,
		},
		{
			name:  "removed id",
			edits: []mutation.Mutation{mutation.CreateTextNode("x"), mutation.StoreWithID(1), mutation.AppendChildren(mutation.Root, []mutation.ElementID{1}), mutation.Remove(1), mutation.SetText(1, "y")},
			want:  mutation.ErrStaleElement,
		},
		{
			name:  "stack underflow",
			edits: []mutation.Mutation{mutation.CreateElement("div", "", 1)},
			want:  mutation.ErrContract,
		},
		{
			name:  "unregistered template",
			edits: []mutation.Mutation{mutation.CloneNodeChildren(7, nil)},
			want:  mutation.ErrContract,
		},
		{
			name:  "text on placeholder",
			edits: []mutation.Mutation{mutation.CreatePlaceholder(), mutation.StoreWithID(1), mutation.SetText(1, "x")},
			want:  mutation.ErrContract,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument(template.NewStore())
			for _, m := range tt.edits {
				doc.Write(m)
			}
			if !errors.Is(doc.Err(), tt.want) {
				t.Fatalf("err = %v, want %v", doc.Err(), tt.want)
			}
		})
	}
}

func TestApplyBatchAndListeners(t *testing.T) {
	doc := NewDocument(nil)
	err := doc.Apply(mutation.Batch{Cycle: 1, Edits: []mutation.Mutation{
		mutation.CreateElement("button", "", 0),
		mutation.StoreWithID(1),
		mutation.AppendChildren(mutation.Root, []mutation.ElementID{1}),
		mutation.NewEventListener(1, "click"),
	}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]mutation.ElementID{1}, doc.IDsWithListener("click")); diff != "" {
		t.Fatalf("listeners (-want +got):\n%s", diff)
	}
	err = doc.Apply(mutation.Batch{Cycle: 2, Edits: []mutation.Mutation{mutation.Remove(5)}})
	if !errors.Is(err, mutation.ErrStaleElement) {
		t.Fatalf("err = %v", err)
	}
}
