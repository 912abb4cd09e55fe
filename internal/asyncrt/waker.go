package asyncrt

// PollOutcomeKind reports how a poll iteration completed.
type PollOutcomeKind uint8

const (
	// PollPending indicates the task is waiting for a wake.
	PollPending PollOutcomeKind = iota
	// PollDone indicates the task completed successfully.
	PollDone
	// PollFailed indicates the task returned an error or panicked.
	PollFailed
	// PollCancelled indicates the task was cancelled.
	PollCancelled
	// PollSkipped indicates a stale or paused notification.
	PollSkipped
)

func (k PollOutcomeKind) String() string {
	switch k {
	case PollPending:
		return "pending"
	case PollDone:
		return "done"
	case PollFailed:
		return "failed"
	case PollCancelled:
		return "cancelled"
	case PollSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// PollOutcome describes the outcome of polling a task once.
type PollOutcome struct {
	Kind PollOutcomeKind
	Err  error
}

// Waker re-schedules one task. It must be used on the runtime goroutine;
// other goroutines go through the runtime's proxy.
type Waker struct {
	ex   *Executor
	task TaskID
}

// Wake schedules the task.
func (w Waker) Wake() {
	w.ex.Wake(w.task)
}

// Task returns the task the waker belongs to.
func (w Waker) Task() TaskID { return w.task }

// IsValid reports whether the waker is bound to a task.
func (w Waker) IsValid() bool { return w.ex != nil && w.task != 0 }
