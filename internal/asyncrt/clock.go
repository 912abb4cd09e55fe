package asyncrt

import (
	"math"
	"time"

	"fortio.org/safecast"
)

// Clock supplies time to timers.
type Clock interface {
	NowMs() uint64
}

// VirtualClock advances only when the executor jumps to the next timer, which
// makes timer-driven tests deterministic.
type VirtualClock struct {
	ex *Executor
}

func (c *VirtualClock) NowMs() uint64 {
	if c == nil || c.ex == nil {
		return 0
	}
	return c.ex.nowMs
}

// RealClock reads a monotonic clock. A nil NowFunc measures from the clock's
// first use.
type RealClock struct {
	NowFunc func() uint64
	start   time.Time
}

func (c *RealClock) NowMs() uint64 {
	if c == nil {
		return 0
	}
	if c.NowFunc != nil {
		return c.NowFunc()
	}
	if c.start.IsZero() {
		c.start = time.Now()
	}
	ms, err := safecast.Conv[uint64](time.Since(c.start).Milliseconds())
	if err != nil {
		return 0
	}
	return ms
}

// NowMs returns the executor's current time.
func (e *Executor) NowMs() uint64 {
	if e == nil {
		return 0
	}
	if e.Virtual() {
		return e.nowMs
	}
	e.nowMs = e.clock.NowMs()
	return e.nowMs
}

// durationMs converts d to whole milliseconds, clamping negatives to zero.
func durationMs(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms == 0 {
		ms = 1
	}
	out, err := safecast.Conv[uint64](ms)
	if err != nil {
		return math.MaxUint64
	}
	return out
}

// Virtual reports whether the executor runs on a virtual clock.
func (e *Executor) Virtual() bool {
	if e == nil {
		return false
	}
	_, virtual := e.clock.(*VirtualClock)
	return virtual
}
