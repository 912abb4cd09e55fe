package trace

import (
	"strconv"
	"time"
)

// Kind is what an event marks.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{
	KindBegin:     "begin",
	KindEnd:       "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Layer is the granularity of an event. Lower layers are coarser.
type Layer uint8

const (
	// LayerRun covers the run loop and CLI commands.
	LayerRun Layer = iota + 1
	// LayerCycle covers rebuilds, drain cycles and event dispatch.
	LayerCycle
	// LayerScope covers one scope render or one task poll.
	LayerScope
	// LayerNode covers diffing of single nodes.
	LayerNode
)

var layerNames = [...]string{
	LayerRun:   "run",
	LayerCycle: "cycle",
	LayerScope: "scope",
	LayerNode:  "node",
}

func (l Layer) String() string {
	if int(l) < len(layerNames) && layerNames[l] != "" {
		return layerNames[l]
	}
	return "unknown"
}

// Attr is one key/value pair attached to an event. Attributes keep the
// order they were added in.
type Attr struct {
	Key   string
	Value string
}

// Event is one trace record.
type Event struct {
	Time   time.Time
	Seq    uint64
	Kind   Kind
	Layer  Layer
	Span   uint64
	Parent uint64
	GID    uint64
	// Cycle is the runtime's drain counter when the event was emitted.
	Cycle uint64
	// Name is e.g. "drain", "render:Counter", "poll:ticker", "event:click".
	Name   string
	Detail string
	// Edits is the number of mutations written inside the span. Only end
	// events carry it.
	Edits int
	Attrs []Attr
}

// Attr returns the value of key and whether it was set.
func (ev *Event) Attr(key string) (string, bool) {
	for _, a := range ev.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func itoa(n int) string { return strconv.Itoa(n) }
