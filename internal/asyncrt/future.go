package asyncrt

// Future is a cooperative unit of async work. Poll is called on the runtime
// goroutine; it returns done=true when finished, or arranges for a wake
// (through cx.Waker) and returns false.
type Future interface {
	Poll(cx *Context) (done bool, err error)
}

// FutureFunc adapts a poll function to Future.
type FutureFunc func(cx *Context) (bool, error)

// Poll calls f.
func (f FutureFunc) Poll(cx *Context) (bool, error) { return f(cx) }

// Context is handed to Future.Poll.
type Context struct {
	ex   *Executor
	task TaskID
}

// Waker returns a waker for the polled task.
func (c *Context) Waker() Waker { return Waker{ex: c.ex, task: c.task} }

// Task returns the polled task's ID.
func (c *Context) Task() TaskID { return c.task }

// Executor returns the executor running the task.
func (c *Context) Executor() *Executor { return c.ex }

// NowMs returns the executor clock.
func (c *Context) NowMs() uint64 { return c.ex.NowMs() }

// Ready completes on its first poll after running fn.
func Ready(fn func() error) Future {
	return FutureFunc(func(*Context) (bool, error) {
		if fn == nil {
			return true, nil
		}
		return true, fn()
	})
}

// Yield returns pending once, waking itself, then completes. It lets other
// queued work run in between.
func Yield() Future {
	yielded := false
	return FutureFunc(func(cx *Context) (bool, error) {
		if yielded {
			return true, nil
		}
		yielded = true
		cx.Waker().Wake()
		return false, nil
	})
}

// Sequence runs futures one after another.
func Sequence(steps ...Future) Future {
	i := 0
	return FutureFunc(func(cx *Context) (bool, error) {
		for i < len(steps) {
			done, err := steps[i].Poll(cx)
			if err != nil {
				return false, err
			}
			if !done {
				return false, nil
			}
			i++
		}
		return true, nil
	})
}

// Repeat polls the future produced by next until next returns nil.
func Repeat(next func() Future) Future {
	var cur Future
	return FutureFunc(func(cx *Context) (bool, error) {
		for {
			if cur == nil {
				if cur = next(); cur == nil {
					return true, nil
				}
			}
			done, err := cur.Poll(cx)
			if err != nil || !done {
				return false, err
			}
			cur = nil
		}
	})
}
