package diagfmt

import (
	"encoding/json"
	"io"

	"loom/internal/diag"
)

// SiteJSON is the JSON form of a diag.Site.
type SiteJSON struct {
	Scope     *uint64 `json:"scope,omitempty"`
	Component string  `json:"component,omitempty"`
	Template  string  `json:"template,omitempty"`
	Element   uint64  `json:"element,omitempty"`
	Task      uint64  `json:"task,omitempty"`
}

type NoteJSON struct {
	Message string   `json:"message"`
	Site    SiteJSON `json:"site"`
}

type DiagnosticJSON struct {
	Severity string     `json:"severity"`
	Code     string     `json:"code"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	Site     SiteJSON   `json:"site"`
	Notes    []NoteJSON `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of the JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Dropped     int              `json:"dropped,omitempty"`
}

func makeSite(s diag.Site) SiteJSON {
	out := SiteJSON{
		Component: s.Component,
		Template:  s.Template,
		Element:   s.Element,
		Task:      s.Task,
	}
	if s.HasScope {
		scope := s.Scope
		out.Scope = &scope
	}
	return out
}

// BuildDiagnosticsOutput assembles the JSON structure without serializing it.
func BuildDiagnosticsOutput(bag *diag.Bag, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	n := len(items)
	if opts.Max > 0 && opts.Max < n {
		n = opts.Max
	}
	out := DiagnosticsOutput{
		Diagnostics: make([]DiagnosticJSON, 0, n),
		Dropped:     bag.Dropped() + len(items) - n,
	}
	for _, d := range items[:n] {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Site:     makeSite(d.Primary),
		}
		if opts.IncludeNotes && len(d.Notes) > 0 {
			dj.Notes = make([]NoteJSON, len(d.Notes))
			for j, note := range d.Notes {
				dj.Notes[j] = NoteJSON{Message: note.Msg, Site: makeSite(note.Site)}
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	out.Count = len(out.Diagnostics)
	return out
}

// JSON writes diagnostics as a single JSON document.
func JSON(w io.Writer, bag *diag.Bag, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	if opts.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(BuildDiagnosticsOutput(bag, opts))
}
