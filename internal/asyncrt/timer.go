package asyncrt

import (
	"container/heap"
	"time"
)

// TimerID identifies a scheduled wake. Zero is never issued.
type TimerID uint64

type timer struct {
	id        TimerID
	at        uint64
	task      TaskID
	cancelled bool
}

// timerQueue orders timers by deadline, then by scheduling order so timers
// due at the same instant fire in the order they were set.
type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }
func (q timerQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].id < q[j].id
}
func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *timerQueue) Push(x any)   { *q = append(*q, x.(*timer)) }
func (q *timerQueue) Pop() any {
	old := *q
	t := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return t
}

// ScheduleWake wakes task once delay has elapsed on the executor clock.
func (e *Executor) ScheduleWake(task TaskID, delay time.Duration) TimerID {
	if e == nil {
		return 0
	}
	e.lastTimerID++
	t := &timer{id: e.lastTimerID, at: e.NowMs() + durationMs(delay), task: task}
	e.pending[t.id] = t
	heap.Push(&e.timers, t)
	return t.id
}

// CancelWake drops a scheduled wake. Unknown or fired ids are ignored.
func (e *Executor) CancelWake(id TimerID) {
	if e == nil {
		return
	}
	if t := e.pending[id]; t != nil {
		t.cancelled = true
		delete(e.pending, id)
	}
}

// WakeDue reports whether the wake id is no longer pending, either because
// it fired or because it was cancelled.
func (e *Executor) WakeDue(id TimerID) bool {
	if e == nil || id == 0 {
		return false
	}
	_, pending := e.pending[id]
	return !pending
}

// PendingTimers is the number of scheduled wakes not yet fired or cancelled.
func (e *Executor) PendingTimers() int {
	if e == nil {
		return 0
	}
	return len(e.pending)
}

// dropStale discards cancelled timers and timers of finished tasks from the
// front of the queue.
func (e *Executor) dropStale() {
	for len(e.timers) > 0 {
		t := e.timers[0]
		if !t.cancelled && e.tasks[t.task] != nil {
			return
		}
		heap.Pop(&e.timers)
		delete(e.pending, t.id)
	}
}

// NextDeadline returns the earliest live deadline in clock milliseconds.
func (e *Executor) NextDeadline() (uint64, bool) {
	if e == nil {
		return 0, false
	}
	e.dropStale()
	if len(e.timers) == 0 {
		return 0, false
	}
	return e.timers[0].at, true
}

// FireDueTimers wakes the task of every timer whose deadline has passed and
// returns how many fired.
func (e *Executor) FireDueTimers() int {
	if e == nil {
		return 0
	}
	now := e.NowMs()
	fired := 0
	for e.dropStale(); len(e.timers) > 0 && e.timers[0].at <= now; e.dropStale() {
		t := heap.Pop(&e.timers).(*timer)
		delete(e.pending, t.id)
		e.Wake(t.task)
		fired++
	}
	return fired
}

// AdvanceToNextTimer moves a virtual clock to the earliest deadline and
// fires what is due then. It reports false on a wall clock or when no timer
// is pending.
func (e *Executor) AdvanceToNextTimer() bool {
	deadline, ok := e.NextDeadline()
	if !ok || !e.Virtual() {
		return false
	}
	e.nowMs = max(e.nowMs, deadline)
	return e.FireDueTimers() > 0
}

// AdvanceBy moves a virtual clock forward by d, then fires due timers. On a
// wall clock it only fires.
func (e *Executor) AdvanceBy(d time.Duration) int {
	if e == nil {
		return 0
	}
	if e.Virtual() {
		e.nowMs += durationMs(d)
	}
	return e.FireDueTimers()
}

// Sleep completes once d has elapsed on the executor clock.
func Sleep(d time.Duration) Future {
	var id TimerID
	return FutureFunc(func(cx *Context) (bool, error) {
		if id == 0 {
			id = cx.ex.ScheduleWake(cx.task, d)
			return false, nil
		}
		return cx.ex.WakeDue(id), nil
	})
}
