package template

import (
	"errors"
	"testing"
)

func TestInternReturnsCanonicalPointer(t *testing.T) {
	s := NewStore()
	roots := []Node{Elem("div", Attrs(Static("class", "a"), DynAttr(0)), DynText(0))}
	a, err := s.Intern("app.go:10:2", roots...)
	if err != nil {
		t.Fatalf("intern: %v", err)
	}
	b, err := s.Intern("app.go:10:2", roots...)
	if err != nil {
		t.Fatalf("intern again: %v", err)
	}
	if a != b {
		t.Fatalf("same template interned twice yields different pointers")
	}
	if a.ID != 1 {
		t.Fatalf("first ID = %d, want 1", a.ID)
	}
	if got, ok := s.Lookup(a.ID); !ok || got != a {
		t.Fatalf("lookup by id failed")
	}
}

func TestInternRejectsShapeChangeUnderSameName(t *testing.T) {
	s := NewStore()
	if _, err := s.Intern("x", Elem("p", nil)); err != nil {
		t.Fatalf("intern: %v", err)
	}
	_, err := s.Intern("x", Elem("span", nil))
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
}

func TestSlotValidation(t *testing.T) {
	tests := []struct {
		name  string
		roots []Node
		ok    bool
	}{
		{"dense", []Node{Elem("div", nil, Dyn(0), DynText(1))}, true},
		{"gap", []Node{Elem("div", nil, Dyn(0), Dyn(2))}, false},
		{"duplicate", []Node{Elem("div", nil, Dyn(0), Dyn(0))}, false},
		{"attr gap", []Node{Elem("div", Attrs(DynAttr(1)))}, false},
		{"empty", nil, false},
		{"no tag", []Node{{Kind: NodeElement}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStore().Intern(tt.name, tt.roots...)
			if (err == nil) != tt.ok {
				t.Fatalf("ok=%v, err=%v", tt.ok, err)
			}
		})
	}
}

func TestAddressableLayout(t *testing.T) {
	tmpl, err := NewStore().Intern("layout",
		Elem("ul", Attrs(DynAttr(0)),
			Elem("li", Attrs(DynAttr(1), DynAttr(2)), DynText(0)),
			Dyn(1),
		),
		Dyn(2),
	)
	if err != nil {
		t.Fatalf("intern: %v", err)
	}
	// roots: [0] [1]; attrs: [0] (folded) [0 0]; nodes: [0 0 0] [0 1] [1] (folded)
	want := []string{"\x00", "\x01", "\x00\x00", "\x00\x00\x00", "\x00\x01"}
	if len(tmpl.Addressable) != len(want) {
		t.Fatalf("addressable = %v", tmpl.Addressable)
	}
	for i, p := range tmpl.Addressable {
		if string(p) != want[i] {
			t.Fatalf("addressable[%d] = %v", i, []uint8(p))
		}
	}
	if tmpl.AttrAddr(0) != tmpl.RootAddr(0) {
		t.Fatalf("attribute on root must share the root id")
	}
	if tmpl.AttrAddr(1) != tmpl.AttrAddr(2) {
		t.Fatalf("two attributes on one element must share an id")
	}
	if tmpl.NodeAddr(2) != tmpl.RootAddr(1) {
		t.Fatalf("dynamic root must share the root id")
	}
	if slot, ok := tmpl.DynamicRoot(1); !ok || slot != 2 {
		t.Fatalf("DynamicRoot(1) = %d, %v", slot, ok)
	}
	if n := tmpl.NodeAt(Path{0, 1}); n == nil || n.Kind != NodeDynamic {
		t.Fatalf("NodeAt([0 1]) = %+v", n)
	}
}

func TestDescribe(t *testing.T) {
	tmpl, err := NewStore().Intern("d", Elem("p", Attrs(Static("id", "x"), DynAttr(0)), Text("n="), DynText(0)))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := tmpl.Describe(), `<p id="x" {attr0}>n={text0}</p>`; got != want {
		t.Fatalf("Describe() = %s, want %s", got, want)
	}
}
