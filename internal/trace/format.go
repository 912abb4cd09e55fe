package trace

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format is how a stream tracer serialises events.
type Format uint8

const (
	// FormatAuto picks a format from the output path.
	FormatAuto Format = iota
	FormatText
	FormatNDJSON
	// FormatChrome is the chrome://tracing JSON object format.
	FormatChrome
)

// ParseFormat parses auto, text, ndjson or chrome.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson":
		return FormatNDJSON, nil
	case "chrome":
		return FormatChrome, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format %q (expected auto|text|ndjson|chrome)", s)
}

func formatFor(path string) Format {
	switch {
	case strings.HasSuffix(path, ".ndjson"):
		return FormatNDJSON
	case strings.HasSuffix(path, ".json"):
		return FormatChrome
	}
	return FormatText
}

// Append appends ev encoded in f to buf.
func Append(buf []byte, ev *Event, f Format) []byte {
	switch f {
	case FormatNDJSON:
		return appendNDJSON(buf, ev)
	case FormatChrome:
		return appendChrome(buf, ev)
	}
	return appendText(buf, ev)
}

var marks = [...]string{
	KindBegin:     "▸",
	KindEnd:       "◂",
	KindPoint:     "·",
	KindHeartbeat: "♥",
}

// appendText writes one line:
//
//	[    42] c3     ◂ render:Counter (detail) edits=2 renders=4
func appendText(buf []byte, ev *Event) []byte {
	buf = fmt.Appendf(buf, "[%6d] c%-4d ", ev.Seq, ev.Cycle)
	if ev.Layer > LayerRun {
		buf = append(buf, strings.Repeat("  ", int(ev.Layer-LayerRun))...)
	}
	mark := "?"
	if int(ev.Kind) < len(marks) && marks[ev.Kind] != "" {
		mark = marks[ev.Kind]
	}
	buf = append(buf, mark...)
	buf = append(buf, ' ')
	buf = append(buf, ev.Name...)
	if ev.Detail != "" {
		buf = fmt.Appendf(buf, " (%s)", ev.Detail)
	}
	if ev.Kind == KindEnd && ev.Edits > 0 {
		buf = fmt.Appendf(buf, " edits=%d", ev.Edits)
	}
	for _, a := range ev.Attrs {
		buf = fmt.Appendf(buf, " %s=%s", a.Key, a.Value)
	}
	return append(buf, '\n')
}

type jsonEvent struct {
	Time   string            `json:"time"`
	Seq    uint64            `json:"seq"`
	Kind   string            `json:"kind"`
	Layer  string            `json:"layer"`
	Span   uint64            `json:"span,omitempty"`
	Parent uint64            `json:"parent,omitempty"`
	GID    uint64            `json:"gid,omitempty"`
	Cycle  uint64            `json:"cycle"`
	Name   string            `json:"name"`
	Detail string            `json:"detail,omitempty"`
	Edits  int               `json:"edits,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

func attrMap(attrs []Attr) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

func appendNDJSON(buf []byte, ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:   ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:    ev.Seq,
		Kind:   ev.Kind.String(),
		Layer:  ev.Layer.String(),
		Span:   ev.Span,
		Parent: ev.Parent,
		GID:    ev.GID,
		Cycle:  ev.Cycle,
		Name:   ev.Name,
		Detail: ev.Detail,
		Edits:  ev.Edits,
		Attrs:  attrMap(ev.Attrs),
	})
	if err != nil {
		return buf
	}
	buf = append(buf, data...)
	return append(buf, '\n')
}

type chromeEvent struct {
	Name  string         `json:"name"`
	Cat   string         `json:"cat"`
	Ph    string         `json:"ph"`
	Ts    int64          `json:"ts"`
	Pid   int            `json:"pid"`
	Tid   uint64         `json:"tid"`
	Scope string         `json:"s,omitempty"`
	Args  map[string]any `json:"args,omitempty"`
}

// appendChrome writes one array element. The stream tracer writes the
// enclosing object and separators.
func appendChrome(buf []byte, ev *Event) []byte {
	ce := chromeEvent{
		Name: ev.Name,
		Cat:  ev.Layer.String(),
		Ts:   ev.Time.UnixMicro(),
		Pid:  1,
		Tid:  ev.GID,
	}
	switch ev.Kind {
	case KindBegin:
		ce.Ph = "B"
	case KindEnd:
		ce.Ph = "E"
	default:
		ce.Ph, ce.Scope = "i", "g"
	}
	if ev.Kind != KindBegin {
		args := map[string]any{"cycle": ev.Cycle}
		if ev.Detail != "" {
			args["detail"] = ev.Detail
		}
		if ev.Edits > 0 {
			args["edits"] = ev.Edits
		}
		for _, a := range ev.Attrs {
			args[a.Key] = a.Value
		}
		ce.Args = args
	}
	data, err := json.Marshal(ce)
	if err != nil {
		return buf
	}
	return append(buf, data...)
}
