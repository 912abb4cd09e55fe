package asyncrt

// ChannelID identifies a channel instance.
type ChannelID uint64

// RecvStatus is the result of a receive attempt.
type RecvStatus uint8

const (
	RecvOK RecvStatus = iota
	RecvPending
	RecvClosed
)

// Channel is an unbounded single-goroutine FIFO between event handlers and
// tasks. A receiver that finds it empty is woken by the next Send.
type Channel[T any] struct {
	id      ChannelID
	ex      *Executor
	buf     []T
	closed  bool
	waiters []Waker
}

// NewChannel allocates a channel on ex.
func NewChannel[T any](ex *Executor) *Channel[T] {
	ex.nextChanID++
	return &Channel[T]{id: ex.nextChanID, ex: ex}
}

// ID returns the channel id.
func (c *Channel[T]) ID() ChannelID { return c.id }

// Len returns the number of buffered values.
func (c *Channel[T]) Len() int { return len(c.buf) }

// Send buffers v and wakes waiting receivers. It reports false on a closed
// channel.
func (c *Channel[T]) Send(v T) bool {
	if c.closed {
		return false
	}
	c.buf = append(c.buf, v)
	c.wakeAll()
	return true
}

// Close closes the channel and wakes receivers so they observe RecvClosed
// once the buffer drains.
func (c *Channel[T]) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.wakeAll()
}

// Recv takes the next value, or registers the polled task for a wake.
func (c *Channel[T]) Recv(cx *Context) (T, RecvStatus) {
	var zero T
	if len(c.buf) > 0 {
		v := c.buf[0]
		c.buf[0] = zero
		c.buf = c.buf[1:]
		return v, RecvOK
	}
	if c.closed {
		return zero, RecvClosed
	}
	w := cx.Waker()
	for _, existing := range c.waiters {
		if existing.task == w.task {
			return zero, RecvPending
		}
	}
	c.waiters = append(c.waiters, w)
	return zero, RecvPending
}

func (c *Channel[T]) wakeAll() {
	waiters := c.waiters
	c.waiters = nil
	for _, w := range waiters {
		w.Wake()
	}
}

// ForEach builds a future that handles every value until the channel closes.
func ForEach[T any](c *Channel[T], fn func(T) error) Future {
	return FutureFunc(func(cx *Context) (bool, error) {
		for {
			v, st := c.Recv(cx)
			switch st {
			case RecvOK:
				if err := fn(v); err != nil {
					return false, err
				}
			case RecvClosed:
				return true, nil
			default:
				return false, nil
			}
		}
	})
}
