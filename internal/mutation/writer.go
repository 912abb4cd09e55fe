package mutation

import (
	"errors"
	"strings"
)

var (
	// ErrStaleElement is returned by renderers handed an ElementID they do
	// not know. It is a backend contract violation.
	ErrStaleElement = errors.New("stale or unknown element id")
	// ErrContract covers other malformed scripts (stack underflow, bad
	// template id, navigation off the tree).
	ErrContract = errors.New("mutation contract violation")
)

// Writer receives mutations in order. The reconciler is its only caller.
type Writer interface {
	Write(m Mutation)
}

// Script collects the mutations of one drain cycle.
type Script struct {
	Edits []Mutation
}

// Write appends m.
func (s *Script) Write(m Mutation) {
	s.Edits = append(s.Edits, m)
}

// Len returns the number of collected edits.
func (s *Script) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Edits)
}

// Reset empties the script, keeping its capacity.
func (s *Script) Reset() {
	s.Edits = s.Edits[:0]
}

// Take returns the collected edits and empties the script.
func (s *Script) Take() []Mutation {
	out := s.Edits
	s.Edits = nil
	return out
}

// Count returns how many edits use op.
func (s *Script) Count(op Op) int {
	n := 0
	for _, m := range s.Edits {
		if m.Op == op {
			n++
		}
	}
	return n
}

// String renders the script one edit per line.
func (s *Script) String() string {
	var sb strings.Builder
	for _, m := range s.Edits {
		sb.WriteString(m.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

type tee []Writer

func (t tee) Write(m Mutation) {
	for _, w := range t {
		w.Write(m)
	}
}

// Tee forwards every mutation to each writer in order.
func Tee(ws ...Writer) Writer { return tee(ws) }

type discard struct{}

func (discard) Write(Mutation) {}

// Discard drops every mutation.
var Discard Writer = discard{}

// Batch is one drain cycle's worth of edits as carried over a transport.
type Batch struct {
	Cycle uint64     `msgpack:"cycle" json:"cycle"`
	Edits []Mutation `msgpack:"edits" json:"edits"`
}

// ChannelSink is a renderer that forwards batches into a channel, for
// backends that apply them on another goroutine.
type ChannelSink struct {
	Ch chan<- Batch
}

// Apply sends b unless the sink has no channel.
func (s ChannelSink) Apply(b Batch) error {
	if s.Ch == nil {
		return nil
	}
	s.Ch <- b
	return nil
}
