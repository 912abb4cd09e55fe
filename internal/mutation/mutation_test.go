package mutation

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleBatch() Batch {
	return Batch{Cycle: 3, Edits: []Mutation{
		RegisterTemplate(1, "app.go:3:1"),
		CloneNodeChildren(1, []ElementID{1, 2, 3}),
		SetAttribute(1, "class", TextValue("big"), ""),
		SetAttribute(1, "hidden", Value{}, ""),
		SetText(3, "count: 1"),
		NewEventListener(2, "click"),
		AppendChildren(Root, []ElementID{1}),
		InsertBefore(ElementID(4)|ElementID(2)<<32, []ElementID{5}),
		Remove(7),
	}}
}

func TestRoundTripBinaryFormats(t *testing.T) {
	for _, format := range []Format{FormatMsgpack, FormatJSON} {
		t.Run(format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			enc := NewEncoder(&buf, format)
			want := []Batch{sampleBatch(), {Cycle: 4, Edits: []Mutation{Remove(1)}}}
			for _, b := range want {
				if err := enc.Encode(b); err != nil {
					t.Fatalf("encode: %v", err)
				}
			}
			dec, err := NewDecoder(&buf, format)
			if err != nil {
				t.Fatalf("decoder: %v", err)
			}
			var got []Batch
			for {
				b, err := dec.Decode()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				got = append(got, b)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf, FormatText).Encode(sampleBatch()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"# cycle 3 (9 edits)",
		`RegisterTemplate template=1 name="app.go:3:1"`,
		"CloneNodeChildren template=1 ids=[1 2 3]",
		`SetAttribute id=1 name=class value="big"`,
		"SetAttribute id=1 name=hidden value=none",
		`SetText id=3 text="count: 1"`,
		"InsertBefore id=4@2 nodes=[5]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if _, err := NewDecoder(&buf, FormatText); err == nil {
		t.Fatalf("text format must not be decodable")
	}
}

func TestScriptHelpers(t *testing.T) {
	var s Script
	for _, m := range sampleBatch().Edits {
		s.Write(m)
	}
	if s.Count(OpSetAttribute) != 2 {
		t.Fatalf("Count(SetAttribute) = %d", s.Count(OpSetAttribute))
	}
	edits := s.Take()
	if len(edits) != 9 || s.Len() != 0 {
		t.Fatalf("Take returned %d, left %d", len(edits), s.Len())
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Fatalf("ParseFormat accepted yaml")
	}
}
