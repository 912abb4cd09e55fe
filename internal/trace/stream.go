package trace

import (
	"io"
	"sync"
)

// StreamTracer writes every event as it arrives. Write errors are dropped;
// tracing never fails a drain.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	buf    []byte
	n      int
	closed bool
}

// NewStream writes to w. FormatAuto is treated as text.
func NewStream(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	t := &StreamTracer{w: w, level: level, format: format}
	if format == FormatChrome {
		_, _ = io.WriteString(w, "{\"traceEvents\":[\n")
	}
	return t
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.Allows(ev.Layer) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.buf = t.buf[:0]
	if t.format == FormatChrome && t.n > 0 {
		t.buf = append(t.buf, ",\n"...)
	}
	t.buf = Append(t.buf, ev, t.format)
	t.n++
	_, _ = t.w.Write(t.buf)
}

// Flush flushes w when it buffers.
func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close terminates the Chrome document, flushes and closes w when it is a
// Closer. Later events are dropped.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.format == FormatChrome {
		_, _ = io.WriteString(t.w, "\n]}\n")
	}
	t.mu.Unlock()
	if err := t.Flush(); err != nil {
		return err
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level { return t.level }

// Events returns how many events were written.
func (t *StreamTracer) Events() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}
