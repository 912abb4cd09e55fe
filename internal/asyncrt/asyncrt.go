package asyncrt

import (
	"fmt"
	"runtime/debug"
)

// Executor owns the task table of one runtime. It never runs tasks on its
// own: wakes are handed to a notify hook (the runtime's scheduler queue) or,
// when none is installed, to the executor's internal FIFO ready list.
type Executor struct {
	cfg      Config
	nextID   TaskID
	tasks    map[TaskID]*Task
	byOwner  map[OwnerID][]TaskID
	ready    []TaskID
	current  TaskID
	notify   func(TaskID)
	onFinish func(*Task, PollOutcome)

	clock       Clock
	nowMs       uint64
	timers      timerQueue
	pending     map[TimerID]*timer
	lastTimerID TimerID
	nextChanID  ChannelID
}

// TaskID identifies a spawned task. Zero is never assigned.
type TaskID uint64

// OwnerID identifies the scope that owns a task.
type OwnerID uint64

// TaskStatus describes task scheduling state.
type TaskStatus uint8

const (
	// TaskPending has been spawned but not polled yet.
	TaskPending TaskStatus = iota
	// TaskActive has been polled and waits for a wake.
	TaskActive
	// TaskPaused ignores wakes until resumed; a wake received meanwhile is
	// remembered.
	TaskPaused
	// TaskCompleted finished, failed or was cancelled; it is no longer in
	// the table.
	TaskCompleted
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskActive:
		return "active"
	case TaskPaused:
		return "paused"
	case TaskCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Task stores executor-visible task state.
type Task struct {
	ID       TaskID
	Owner    OwnerID
	Parent   TaskID
	Name     string
	Status   TaskStatus
	Polls    int
	Children []TaskID

	future   Future
	queued   bool
	woken    bool
	resumeTo TaskStatus
}

// Config configures the executor.
type Config struct {
	// Clock drives timers. Nil selects a virtual clock that advances only
	// when AdvanceToNextTimer is called.
	Clock Clock
	// Notify receives every accepted wake. Nil keeps wakes in the
	// executor's own ready list (see NextReady).
	Notify func(TaskID)
	// OnFinish observes tasks leaving the table for any reason.
	OnFinish func(*Task, PollOutcome)
}

// NewExecutor constructs an executor.
func NewExecutor(cfg Config) *Executor {
	ex := &Executor{
		cfg:       cfg,
		nextID:    1,
		tasks:     make(map[TaskID]*Task),
		byOwner:   make(map[OwnerID][]TaskID),
		notify:    cfg.Notify,
		onFinish:  cfg.OnFinish,
		pending:   make(map[TimerID]*timer),
	}
	ex.clock = cfg.Clock
	if ex.clock == nil {
		ex.clock = &VirtualClock{ex: ex}
	}
	return ex
}

// SetNotify installs the wake hook.
func (e *Executor) SetNotify(fn func(TaskID)) {
	if e == nil {
		return
	}
	e.notify = fn
}

// Current returns the ID of the task being polled, or zero.
func (e *Executor) Current() TaskID {
	if e == nil {
		return 0
	}
	return e.current
}

// Task returns a live task by ID.
func (e *Executor) Task(id TaskID) *Task {
	if e == nil {
		return nil
	}
	return e.tasks[id]
}

// Len returns the number of live tasks.
func (e *Executor) Len() int {
	if e == nil {
		return 0
	}
	return len(e.tasks)
}

// Spawn registers a task owned by owner and schedules its first poll. A task
// spawned while another is being polled becomes that task's child.
func (e *Executor) Spawn(owner OwnerID, name string, fut Future) TaskID {
	if e == nil || fut == nil {
		return 0
	}
	id := e.nextID
	e.nextID++
	task := &Task{
		ID:     id,
		Owner:  owner,
		Name:   name,
		Status: TaskPending,
		future: fut,
	}
	if e.current != 0 {
		if parent := e.tasks[e.current]; parent != nil {
			task.Parent = parent.ID
			parent.Children = append(parent.Children, id)
		}
	}
	e.tasks[id] = task
	e.byOwner[owner] = append(e.byOwner[owner], id)
	e.Wake(id)
	return id
}

// Wake asks for id to be polled. Wakes of completed tasks are ignored; wakes
// of paused tasks are remembered until Resume; a task already queued is not
// queued twice.
func (e *Executor) Wake(id TaskID) {
	if e == nil {
		return
	}
	task := e.tasks[id]
	if task == nil {
		return
	}
	if task.Status == TaskPaused {
		task.woken = true
		return
	}
	if task.queued {
		return
	}
	task.queued = true
	if e.notify != nil {
		e.notify(id)
		return
	}
	e.ready = append(e.ready, id)
}

// NextReady pops the oldest queued task from the internal ready list.
func (e *Executor) NextReady() (TaskID, bool) {
	if e == nil {
		return 0, false
	}
	for len(e.ready) > 0 {
		id := e.ready[0]
		e.ready = e.ready[1:]
		if task := e.tasks[id]; task != nil && task.queued {
			return id, true
		}
	}
	return 0, false
}

// Pause stops a task from being polled. Idempotent.
func (e *Executor) Pause(id TaskID) {
	task := e.Task(id)
	if task == nil || task.Status == TaskPaused {
		return
	}
	task.resumeTo = task.Status
	task.Status = TaskPaused
	if task.queued {
		task.queued = false
		task.woken = true
	}
}

// Resume undoes Pause and re-delivers a wake swallowed while paused.
// Idempotent.
func (e *Executor) Resume(id TaskID) {
	task := e.Task(id)
	if task == nil || task.Status != TaskPaused {
		return
	}
	task.Status = task.resumeTo
	if task.woken {
		task.woken = false
		e.Wake(id)
	}
}

// Cancel drops the task's future, along with every descendant task. Pending
// notifications for it become no-ops.
func (e *Executor) Cancel(id TaskID) {
	task := e.Task(id)
	if task == nil {
		return
	}
	for _, child := range task.Children {
		e.Cancel(child)
	}
	e.finish(task, PollOutcome{Kind: PollCancelled})
}

// CancelOwned cancels every task owned by owner.
func (e *Executor) CancelOwned(owner OwnerID) int {
	if e == nil {
		return 0
	}
	ids := append([]TaskID(nil), e.byOwner[owner]...)
	n := 0
	for _, id := range ids {
		if e.tasks[id] != nil {
			e.Cancel(id)
			n++
		}
	}
	delete(e.byOwner, owner)
	return n
}

// Owned lists the live tasks owned by owner.
func (e *Executor) Owned(owner OwnerID) []TaskID {
	if e == nil {
		return nil
	}
	var out []TaskID
	for _, id := range e.byOwner[owner] {
		if e.tasks[id] != nil {
			out = append(out, id)
		}
	}
	return out
}

// Poll polls a task that was queued by a wake. Stale notifications (task
// gone or no longer queued) are skipped with PollSkipped.
func (e *Executor) Poll(id TaskID) PollOutcome {
	task := e.Task(id)
	if task == nil || !task.queued {
		return PollOutcome{Kind: PollSkipped}
	}
	task.queued = false
	return e.poll(task)
}

// PollNow polls a task out of band, regardless of whether it was woken.
// Paused tasks are not polled.
func (e *Executor) PollNow(id TaskID) PollOutcome {
	task := e.Task(id)
	if task == nil {
		return PollOutcome{Kind: PollSkipped}
	}
	return e.poll(task)
}

func (e *Executor) poll(task *Task) (out PollOutcome) {
	if task.Status == TaskPaused {
		task.woken = true
		return PollOutcome{Kind: PollSkipped}
	}
	prev := e.current
	e.current = task.ID
	task.Status = TaskActive
	task.Polls++
	defer func() {
		e.current = prev
		if r := recover(); r != nil {
			out = PollOutcome{Kind: PollFailed, Err: &TaskPanicError{Task: task.ID, Name: task.Name, Value: r, Stack: debug.Stack()}}
			e.finish(task, out)
		}
	}()

	cx := &Context{ex: e, task: task.ID}
	done, err := task.future.Poll(cx)
	switch {
	case err != nil:
		out = PollOutcome{Kind: PollFailed, Err: fmt.Errorf("task %d (%s): %w", task.ID, task.Name, err)}
		e.finish(task, out)
	case done:
		out = PollOutcome{Kind: PollDone}
		e.finish(task, out)
	default:
		out = PollOutcome{Kind: PollPending}
	}
	return out
}

func (e *Executor) finish(task *Task, out PollOutcome) {
	if _, ok := e.tasks[task.ID]; !ok {
		return
	}
	task.Status = TaskCompleted
	task.future = nil
	task.queued = false
	delete(e.tasks, task.ID)
	ids := e.byOwner[task.Owner]
	for i, id := range ids {
		if id == task.ID {
			e.byOwner[task.Owner] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(e.byOwner[task.Owner]) == 0 {
		delete(e.byOwner, task.Owner)
	}
	if e.onFinish != nil {
		e.onFinish(task, out)
	}
}

// DrainTasks polls queued tasks from the internal ready list until none
// remain, advancing virtual time when only timers are left. It is used when
// the executor runs without a runtime attached.
func (e *Executor) DrainTasks() {
	if e == nil {
		return
	}
	for {
		id, ok := e.NextReady()
		if !ok {
			e.FireDueTimers()
			if len(e.ready) > 0 {
				continue
			}
			if e.AdvanceToNextTimer() {
				continue
			}
			return
		}
		e.Poll(id)
	}
}

// TaskPanicError wraps a panic recovered at the poll boundary.
type TaskPanicError struct {
	Task  TaskID
	Name  string
	Value any
	Stack []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("task %d (%s) panicked: %v", e.Task, e.Name, e.Value)
}
