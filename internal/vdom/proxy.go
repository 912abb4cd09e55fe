package vdom

import (
	"sync"

	"loom/internal/asyncrt"
)

// Proxy is the thread-safe way into a runtime. Posted functions run on the
// runtime goroutine at the start of the next Drain or inside WaitForWork.
type Proxy struct {
	mu     sync.Mutex
	items  []func(*VirtualDom)
	signal chan struct{}
}

func newProxy() *Proxy {
	return &Proxy{signal: make(chan struct{}, 1)}
}

// Post queues fn and wakes a runtime blocked in WaitForWork.
func (p *Proxy) Post(fn func(*VirtualDom)) {
	p.mu.Lock()
	p.items = append(p.items, fn)
	p.mu.Unlock()
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// Wake schedules a poll of task.
func (p *Proxy) Wake(task asyncrt.TaskID) {
	p.Post(func(d *VirtualDom) { d.exec.Wake(task) })
}

// Waker returns a function that wakes task from any goroutine.
func (p *Proxy) Waker(task asyncrt.TaskID) func() {
	return func() { p.Wake(task) }
}

// MarkDirty schedules a re-render of scope.
func (p *Proxy) MarkDirty(scope ScopeID) {
	p.Post(func(d *VirtualDom) { d.MarkDirty(scope) })
}

func (p *Proxy) take() []func(*VirtualDom) {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := p.items
	p.items = nil
	return items
}

func (p *Proxy) pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items) > 0
}
