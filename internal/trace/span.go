package trace

import (
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

var (
	seq   atomic.Uint64
	spans atomic.Uint64
	// open counts spans begun and not yet ended, for heartbeats.
	open atomic.Int64
)

func nextSeq() uint64 { return seq.Add(1) }

func gid() uint64 {
	if id := goid.Get(); id > 0 {
		return uint64(id)
	}
	return 0
}

// Span is an open interval. A nil *Span is valid and records nothing, so
// callers never check whether tracing is on.
type Span struct {
	t      Tracer
	id     uint64
	parent uint64
	gid    uint64
	layer  Layer
	name   string
	cycle  uint64
	start  time.Time
	edits  int
	attrs  []Attr
}

// Begin opens a span below parent, which may be nil. It returns nil when t
// does not record layer.
func Begin(t Tracer, layer Layer, name string, parent *Span) *Span {
	if !Enabled(t) || !t.Level().Allows(layer) {
		return nil
	}
	s := &Span{
		t:      t,
		id:     spans.Add(1),
		parent: parent.ID(),
		gid:    gid(),
		layer:  layer,
		name:   name,
		start:  time.Now(),
	}
	if parent != nil {
		s.cycle = parent.cycle
	}
	open.Add(1)
	t.Emit(&Event{
		Time:   s.start,
		Seq:    nextSeq(),
		Kind:   KindBegin,
		Layer:  layer,
		Span:   s.id,
		Parent: s.parent,
		GID:    s.gid,
		Cycle:  s.cycle,
		Name:   name,
	})
	return s
}

// Cycle stamps the span and its later children with a drain cycle.
func (s *Span) Cycle(n uint64) *Span {
	if s != nil {
		s.cycle = n
	}
	return s
}

// Str attaches an attribute to the end event.
func (s *Span) Str(key, value string) *Span {
	if s != nil {
		s.attrs = append(s.attrs, Attr{Key: key, Value: value})
	}
	return s
}

// Int attaches an integer attribute to the end event.
func (s *Span) Int(key string, n int) *Span { return s.Str(key, itoa(n)) }

// Edits records how many mutations the span wrote.
func (s *Span) Edits(n int) *Span {
	if s != nil {
		s.edits = n
	}
	return s
}

// ID is 0 for a nil span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// End closes the span and returns how long it was open.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	now := time.Now()
	open.Add(-1)
	s.t.Emit(&Event{
		Time:   now,
		Seq:    nextSeq(),
		Kind:   KindEnd,
		Layer:  s.layer,
		Span:   s.id,
		Parent: s.parent,
		GID:    s.gid,
		Cycle:  s.cycle,
		Name:   s.name,
		Detail: detail,
		Edits:  s.edits,
		Attrs:  s.attrs,
	})
	return now.Sub(s.start)
}

// Point emits an instant event below parent.
func Point(t Tracer, layer Layer, name, detail string, parent *Span) {
	if !Enabled(t) || !t.Level().Allows(layer) {
		return
	}
	ev := &Event{
		Time:   time.Now(),
		Seq:    nextSeq(),
		Kind:   KindPoint,
		Layer:  layer,
		Parent: parent.ID(),
		GID:    gid(),
		Name:   name,
		Detail: detail,
	}
	if parent != nil {
		ev.Cycle = parent.cycle
	}
	t.Emit(ev)
}
