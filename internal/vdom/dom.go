package vdom

import (
	"context"
	"errors"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/petermattis/goid"

	"loom/internal/arena"
	"loom/internal/asyncrt"
	"loom/internal/diag"
	"loom/internal/mutation"
	"loom/internal/reactive"
	"loom/internal/slotmap"
	"loom/internal/template"
	"loom/internal/trace"
)

const (
	defaultMaxDrainIterations = 10_000
	defaultMaxDiagnostics     = 256
)

// Config tunes a VirtualDom.
type Config struct {
	// InlineTemplates expands templates into CreateElement/CreateTextNode
	// edits for renderers that cannot clone registered templates.
	InlineTemplates bool
	// NormalizeText applies Unicode NFC to dynamic text and attribute
	// values before they are compared.
	NormalizeText bool
	// CheckThread rejects calls from goroutines other than the creator.
	CheckThread bool
	// MaxDrainIterations bounds the work items one Drain processes.
	MaxDrainIterations int
	// MaxDiagnostics caps the diagnostic bag.
	MaxDiagnostics int
	// Store resolves templates; nil selects template.Default.
	Store *template.Store
	// Tracer receives cycle, render and poll spans.
	Tracer trace.Tracer
	// Clock drives task timers; nil selects a virtual clock.
	Clock asyncrt.Clock
	// OnError observes diagnostics as they are reported.
	OnError func(diag.Diagnostic)
}

// WithDefaults fills unset limits, the template store and the tracer. The
// clock stays nil, which selects a virtual clock.
func (c Config) WithDefaults() Config {
	if c.MaxDrainIterations <= 0 {
		c.MaxDrainIterations = defaultMaxDrainIterations
	}
	if c.MaxDiagnostics <= 0 {
		c.MaxDiagnostics = defaultMaxDiagnostics
	}
	if c.Store == nil {
		c.Store = template.Default
	}
	if c.Tracer == nil {
		c.Tracer = trace.Nop
	}
	return c
}

// Renderer applies mutation batches. A renderer that finds a stale element
// id returns an error wrapping mutation.ErrStaleElement.
type Renderer interface {
	Apply(b mutation.Batch) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(mutation.Batch) error

func (f RendererFunc) Apply(b mutation.Batch) error { return f(b) }

type workKind uint8

const (
	workScope workKind = iota
	workTask
)

type work struct {
	kind  workKind
	scope ScopeID
	task  asyncrt.TaskID
}

type effect struct {
	id     uint64
	scope  *Scope
	fn     func()
	queued bool
}

// Stats summarises runtime tables and counters.
type Stats struct {
	Scopes      int
	Elements    int
	Tasks       int
	Templates   int
	Renders     uint64
	Cycles      uint64
	Edits       uint64
	Polls       uint64
	Events      uint64
	Diagnostics int
	// Suppressed counts repeated diagnostics that were not recorded.
	Suppressed int
}

// VirtualDom is the runtime: the scope and element tables, the scheduler
// queue, the task executor and the reconciler. All methods except those of
// its Proxy must be called from one goroutine.
type VirtualDom struct {
	cfg         Config
	store       *template.Store
	placeholder *template.Template
	registered  map[template.ID]bool

	scopes   *slotmap.Map[*Scope]
	elements *slotmap.Map[elementRef]
	root     ScopeID
	built    bool

	tracker *reactive.Tracker
	exec    *asyncrt.Executor
	queue   []work
	head    int

	effects     map[uint64]*effect
	nextEffect  uint64
	effectQueue []uint64
	taskDrops   map[asyncrt.TaskID][]func()

	proxy    *Proxy
	diags    *diag.Bag
	reporter diag.Reporter
	tracer   trace.Tracer
	// runSpan is open while Run loops; cycleSpan while a cycle drains.
	runSpan   *trace.Span
	cycleSpan *trace.Span
	owner    int64
	stats    Stats
}

// New creates a runtime for root. Nothing is rendered until Rebuild.
func New(root *Component, props Props, cfg Config) *VirtualDom {
	cfg = cfg.WithDefaults()
	if props == nil {
		props = NoProps
	}
	d := &VirtualDom{
		cfg:        cfg,
		store:      cfg.Store,
		registered: make(map[template.ID]bool),
		scopes:     slotmap.New[*Scope](16),
		elements:   slotmap.New[elementRef](64),
		effects:    make(map[uint64]*effect),
		taskDrops:  make(map[asyncrt.TaskID][]func()),
		proxy:      newProxy(),
		diags:      diag.NewBag(cfg.MaxDiagnostics),
		tracer:     cfg.Tracer,
		owner:      goid.Get(),
	}
	var reporters diag.MultiReporter
	reporters = append(reporters, diag.BagReporter{Bag: d.diags})
	if cfg.OnError != nil {
		reporters = append(reporters, diag.FuncReporter(cfg.OnError))
	}
	d.reporter = diag.NewDedupReporter(reporters)

	tpl, err := d.store.Intern("loom:placeholder", template.Dyn(0))
	if err != nil {
		panic(err)
	}
	d.placeholder = tpl
	// The root container owns element id 0.
	d.elements.MustInsert(elementRef{})

	d.tracker = reactive.NewTracker(d)
	d.exec = asyncrt.NewExecutor(asyncrt.Config{
		Clock:    cfg.Clock,
		Notify:   d.queueTask,
		OnFinish: d.taskFinished,
	})
	d.root = d.newScope(nil, root, props, parentRef{}).id
	return d
}

// Tracker returns the dependency tracker. Signals created outside any
// component must use it.
func (d *VirtualDom) Tracker() *reactive.Tracker { return d.tracker }

// Executor returns the task executor.
func (d *VirtualDom) Executor() *asyncrt.Executor { return d.exec }

// Proxy returns the thread-safe ingress.
func (d *VirtualDom) Proxy() *Proxy { return d.proxy }

// Diagnostics returns every diagnostic reported so far.
func (d *VirtualDom) Diagnostics() *diag.Bag { return d.diags }

// Store returns the template store renderers must resolve ids against.
func (d *VirtualDom) Store() *template.Store { return d.store }

// RootScope returns the root scope id.
func (d *VirtualDom) RootScope() ScopeID { return d.root }

// LookupScope returns a mounted scope.
func (d *VirtualDom) LookupScope(id ScopeID) *Scope { return d.scope(id) }

func (d *VirtualDom) scope(id ScopeID) *Scope {
	s, ok := d.scopes.Get(slotmap.Key(id))
	if !ok {
		return nil
	}
	return s
}

func (d *VirtualDom) newScope(parent *Scope, def *Component, props Props, slot parentRef) *Scope {
	s := &Scope{
		dom:      d,
		parent:   parent,
		def:      def,
		props:    props,
		slot:     slot,
		arenas:   [2]*arena.Arena[VNode]{arena.New[VNode](16), arena.New[VNode](16)},
		children: mapset.NewThreadUnsafeSet[ScopeID](),
		contexts: make(map[any]any),
	}
	s.id = ScopeID(d.scopes.MustInsert(s))
	if parent != nil {
		s.height = parent.height + 1
		parent.children.Add(s.id)
	}
	return s
}

// dropScope unmounts s in post-order: child scopes, owned tasks, drop
// hooks, arenas, then the table slot.
func (d *VirtualDom) dropScope(s *Scope) {
	if s == nil || s.dead {
		return
	}
	if s.root != nil {
		d.cleanupVNode(s.root)
	}
	for _, c := range s.Children() {
		d.dropScope(d.scope(c))
	}
	d.exec.CancelOwned(s.id.owner())
	for i := len(s.drops) - 1; i >= 0; i-- {
		d.guard(s, diag.RenderEffectPanic, s.drops[i])
	}
	for _, id := range s.effects {
		delete(d.effects, id)
	}
	s.arenas[0].Reset()
	s.arenas[1].Reset()
	s.dead = true
	s.dirty = false
	s.root = nil
	d.scopes.Remove(slotmap.Key(s.id))
	if s.parent != nil {
		s.parent.children.Remove(s.id)
	}
}

// MarkDirty queues a re-render of id. A scope already queued is not queued
// again.
func (d *VirtualDom) MarkDirty(id ScopeID) {
	s := d.scope(id)
	if s == nil || s.dirty {
		return
	}
	s.dirty = true
	d.queue = append(d.queue, work{kind: workScope, scope: id})
}

// Notify implements reactive.Notifier. Subscribers that no longer exist
// are dropped here.
func (d *VirtualDom) Notify(sub reactive.SubscriberID) {
	switch sub.Kind {
	case reactive.SubScope:
		d.MarkDirty(ScopeID(sub.ID))
	case reactive.SubTask:
		d.exec.Wake(asyncrt.TaskID(sub.ID))
	case reactive.SubEffect:
		d.queueEffect(sub.ID)
	}
}

func (d *VirtualDom) queueTask(id asyncrt.TaskID) {
	d.queue = append(d.queue, work{kind: workTask, task: id})
}

func (d *VirtualDom) newEffect(s *Scope) *effect {
	d.nextEffect++
	e := &effect{id: d.nextEffect, scope: s}
	d.effects[e.id] = e
	s.effects = append(s.effects, e.id)
	d.queueEffect(e.id)
	return e
}

func (d *VirtualDom) queueEffect(id uint64) {
	e := d.effects[id]
	if e == nil || e.queued {
		return
	}
	e.queued = true
	d.effectQueue = append(d.effectQueue, id)
}

func (d *VirtualDom) runEffects() {
	queue := d.effectQueue
	d.effectQueue = nil
	for _, id := range queue {
		e := d.effects[id]
		if e == nil {
			continue
		}
		e.queued = false
		if e.fn == nil {
			continue
		}
		d.tracker.RunTracked(reactive.Effect(id), func() {
			d.guard(e.scope, diag.RenderEffectPanic, e.fn)
		})
	}
}

// dropOnFinish runs fn when task leaves the table.
func (d *VirtualDom) dropOnFinish(task asyncrt.TaskID, fn func()) {
	d.taskDrops[task] = append(d.taskDrops[task], fn)
}

func (d *VirtualDom) taskFinished(task *asyncrt.Task, out asyncrt.PollOutcome) {
	if drops, ok := d.taskDrops[task.ID]; ok {
		delete(d.taskDrops, task.ID)
		for _, fn := range drops {
			fn()
		}
	}
	if out.Kind != asyncrt.PollFailed {
		return
	}
	s := d.scope(ScopeID(task.Owner))
	code := diag.TaskFailed
	var panicErr *asyncrt.TaskPanicError
	if errors.As(out.Err, &panicErr) {
		code = diag.TaskPanicked
	}
	site := diag.Site{Task: uint64(task.ID)}
	if s != nil {
		site = d.site(s)
		site.Task = uint64(task.ID)
	}
	sev := diag.SevWarning
	if !d.hasBoundary(s, true) {
		sev = diag.SevError
	}
	d.reporter.Report(code, sev, site, out.Err.Error(), nil)
	if s != nil {
		d.throw(s, true, task.ID, out.Err)
	}
}

func (d *VirtualDom) pollTask(id asyncrt.TaskID) {
	task := d.exec.Task(id)
	if task == nil {
		return
	}
	span := trace.Begin(d.tracer, trace.LayerScope, "poll:"+task.Name, d.cycleSpan)
	d.stats.Polls++
	var out asyncrt.PollOutcome
	d.tracker.RunTracked(reactive.Task(uint64(id)), func() {
		out = d.exec.Poll(id)
	})
	span.End(out.Kind.String())
}

// rerender renders s again and diffs it against its previous output.
func (d *VirtualDom) rerender(s *Scope, w mutation.Writer) {
	s.dirty = false
	span := trace.Begin(d.tracer, trace.LayerScope, "render:"+s.Name(), d.cycleSpan)
	edits := d.stats.Edits
	old := s.root
	next := d.render(s)
	d.diffNode(s, old, next, w)
	s.root = next
	span.Int("renders", s.renders).Edits(int(d.stats.Edits - edits)).End("")
}

func (d *VirtualDom) processScope(id ScopeID, w mutation.Writer) {
	s := d.scope(id)
	if s == nil || !s.dirty {
		return
	}
	d.rerender(s, w)
}

// throw delivers err to the nearest error boundary. Render errors start at
// the parent of s; task errors and explicit throws start at s itself.
// Without a boundary the error is reported as unhandled.
func (d *VirtualDom) throw(s *Scope, self bool, task asyncrt.TaskID, err error) {
	captured := CapturedError{Scope: s.id, Component: s.Name(), Task: task, Err: err}
	start := s
	if !self {
		start = s.parent
	}
	for b := start; b != nil; b = b.parent {
		if b.boundary != nil && !b.dead {
			b.boundary.errors = append(b.boundary.errors, captured)
			d.MarkDirty(b.id)
			return
		}
	}
	d.reporter.Report(diag.RenderUnhandled, diag.SevError, d.site(s), captured.Error(), nil)
}

func (d *VirtualDom) hasBoundary(s *Scope, self bool) bool {
	if s == nil {
		return false
	}
	start := s
	if !self {
		start = s.parent
	}
	for b := start; b != nil; b = b.parent {
		if b.boundary != nil {
			return true
		}
	}
	return false
}

// guard runs fn, turning a panic into a diagnostic thrown from s.
func (d *VirtualDom) guard(s *Scope, code diag.Code, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s: panic: %v", code.Title(), r)
			d.reporter.Report(code, diag.SevError, d.site(s), err.Error(), nil)
			if s != nil && !s.dead {
				d.throw(s, true, 0, err)
			}
		}
	}()
	fn()
}

func (d *VirtualDom) site(s *Scope) diag.Site {
	if s == nil {
		return diag.Site{}
	}
	tpl := ""
	if s.root != nil && s.root.Template != nil {
		tpl = s.root.Template.Name
	}
	return diag.AtScope(uint64(s.id), s.Name(), tpl)
}

func (d *VirtualDom) reportRender(s *Scope, err error) {
	code := diag.RenderFailed
	var (
		hookErr  *HookOrderError
		dupErr   *DuplicateKeyError
		mixErr   *MixedKeysError
		slotErr  *SlotMismatchError
		staleErr *StaleOutputError
		panicErr *RenderPanicError
		ctxErr   *ContextError
	)
	switch {
	case errors.As(err, &hookErr):
		code = diag.RenderHookOrder
		if hookErr.Want == "" || hookErr.Got == "" {
			code = diag.RenderHookCount
		}
	case errors.As(err, &dupErr):
		code = diag.RenderDuplicateKey
	case errors.As(err, &mixErr):
		code = diag.RenderMixedKeys
	case errors.As(err, &slotErr):
		code = diag.TplSlotMismatch
	case errors.As(err, &staleErr):
		code = diag.RenderStaleOutput
	case errors.As(err, &panicErr):
		code = diag.RenderPanic
	case errors.As(err, &ctxErr):
		code = diag.RenderContextAbsent
	}
	sev := diag.SevError
	if code == diag.RenderFailed && d.hasBoundary(s, false) {
		sev = diag.SevWarning
	}
	diag.NewReportBuilder(d.reporter, sev, code, d.site(s), err.Error()).
		WithNote(d.site(s), fmt.Sprintf("render #%d of %s", s.renders, s.Name())).
		Emit()
}

func (d *VirtualDom) checkOwner(op string) error {
	if !d.cfg.CheckThread || goid.Get() == d.owner {
		return nil
	}
	msg := fmt.Sprintf("%s called from goroutine %d, runtime belongs to %d", op, goid.Get(), d.owner)
	d.reporter.Report(diag.RuntimeWrongOwner, diag.SevError, diag.Site{}, msg, nil)
	return fmt.Errorf("%s: %w", op, ErrWrongGoroutine)
}

type countingWriter struct {
	w mutation.Writer
	n *uint64
}

func (c countingWriter) Write(m mutation.Mutation) {
	*c.n++
	c.w.Write(m)
}

// Rebuild renders the root component and appends it to the root
// container, then drains the work the first render produced.
func (d *VirtualDom) Rebuild(w mutation.Writer) error {
	if err := d.checkOwner("Rebuild"); err != nil {
		return err
	}
	if d.built {
		return errors.New("rebuild: runtime already built")
	}
	d.built = true
	span := trace.Begin(d.tracer, trace.LayerCycle, "rebuild", d.runSpan).Cycle(d.stats.Cycles)
	d.cycleSpan = span
	cw := countingWriter{w: w, n: &d.stats.Edits}
	s := d.scope(d.root)
	s.root = d.render(s)
	roots := d.createVNode(s, s.root, s.slot, cw)
	cw.Write(mutation.AppendChildren(Root, roots))
	d.cycleSpan = nil
	span.Int("elements", d.elements.Len()-1).Edits(int(d.stats.Edits)).End("")
	return d.Drain(w)
}

// HasWork reports whether Drain would do anything.
func (d *VirtualDom) HasWork() bool {
	if d.head < len(d.queue) || len(d.effectQueue) > 0 || d.proxy.pending() {
		return true
	}
	deadline, ok := d.exec.NextDeadline()
	return ok && deadline <= d.exec.NowMs()
}

// Drain processes queued scope and task work until the queue is empty,
// runs pending effects and repeats until nothing is left. One call is a
// fixed point.
func (d *VirtualDom) Drain(w mutation.Writer) error {
	if err := d.checkOwner("Drain"); err != nil {
		return err
	}
	if !d.built {
		return d.Rebuild(w)
	}
	d.ingest()
	d.exec.FireDueTimers()
	d.stats.Cycles++
	span := trace.Begin(d.tracer, trace.LayerCycle, "drain", d.runSpan).Cycle(d.stats.Cycles)
	d.cycleSpan = span
	defer func() { d.cycleSpan = nil }()
	edits := d.stats.Edits
	cw := countingWriter{w: w, n: &d.stats.Edits}
	steps := 0
	for {
		for d.head < len(d.queue) {
			if steps >= d.cfg.MaxDrainIterations {
				d.abortLoop(steps)
				span.Int("steps", steps).End("update loop")
				return fmt.Errorf("drain after %d steps: %w", steps, ErrUpdateLoop)
			}
			steps++
			it := d.queue[d.head]
			d.head++
			switch it.kind {
			case workScope:
				d.processScope(it.scope, cw)
			case workTask:
				d.pollTask(it.task)
			}
		}
		d.queue = d.queue[:0]
		d.head = 0
		if len(d.effectQueue) == 0 {
			break
		}
		if steps >= d.cfg.MaxDrainIterations {
			d.abortLoop(steps)
			span.Int("steps", steps).End("update loop")
			return fmt.Errorf("drain after %d steps: %w", steps, ErrUpdateLoop)
		}
		steps += len(d.effectQueue)
		d.runEffects()
	}
	span.Int("steps", steps).Edits(int(d.stats.Edits - edits)).End("")
	return nil
}

func (d *VirtualDom) abortLoop(steps int) {
	var culprits []string
	for _, it := range d.queue[d.head:] {
		if it.kind != workScope {
			continue
		}
		if s := d.scope(it.scope); s != nil {
			s.dirty = false
			if len(culprits) < 3 {
				culprits = append(culprits, s.Name())
			}
		}
	}
	d.queue = d.queue[:0]
	d.head = 0
	for _, id := range d.effectQueue {
		if e := d.effects[id]; e != nil {
			e.queued = false
		}
	}
	d.effectQueue = nil
	b := diag.ReportError(d.reporter, diag.RuntimeUpdateLoop, diag.Site{}, fmt.Sprintf("drain stopped after %d steps", steps))
	for _, name := range culprits {
		b.WithNote(diag.Site{Component: name}, "still dirty")
	}
	b.Emit()
}

// RenderImmediate drains synchronously, for hosts that must paint the
// converged state before returning to their event loop.
func (d *VirtualDom) RenderImmediate(w mutation.Writer) error {
	return d.Drain(w)
}

func (d *VirtualDom) ingest() {
	for _, fn := range d.proxy.take() {
		fn(d)
	}
}

// WaitForWork blocks until Drain has something to do or ctx is done. A
// virtual clock is advanced to the next timer instead of sleeping.
func (d *VirtualDom) WaitForWork(ctx context.Context) error {
	if err := d.checkOwner("WaitForWork"); err != nil {
		return err
	}
	for {
		d.ingest()
		if d.HasWork() {
			return nil
		}
		deadline, hasTimer := d.exec.NextDeadline()
		if hasTimer && d.exec.Virtual() {
			d.exec.AdvanceToNextTimer()
			continue
		}
		var (
			timer  *time.Timer
			expiry <-chan time.Time
		)
		if hasTimer {
			wait := time.Duration(0)
			if now := d.exec.NowMs(); deadline > now {
				wait = time.Duration(deadline-now) * time.Millisecond
			}
			timer = time.NewTimer(wait)
			expiry = timer.C
		}
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-d.proxy.signal:
		case <-expiry:
			d.exec.FireDueTimers()
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Run is a host loop: rebuild, then wait and drain until ctx is done,
// handing every non-empty batch to r. A renderer contract violation is
// reported and ends only that cycle.
func (d *VirtualDom) Run(ctx context.Context, r Renderer) error {
	script := &mutation.Script{}
	flush := func() error {
		if script.Len() == 0 {
			return nil
		}
		b := mutation.Batch{Cycle: d.stats.Cycles, Edits: script.Take()}
		err := r.Apply(b)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, mutation.ErrStaleElement):
			d.reporter.Report(diag.RendererStaleElement, diag.SevError, diag.Site{}, err.Error(), nil)
			return nil
		case errors.Is(err, mutation.ErrContract):
			d.reporter.Report(diag.RendererContract, diag.SevError, diag.Site{}, err.Error(), nil)
			return nil
		default:
			return err
		}
	}
	d.runSpan = trace.Begin(d.tracer, trace.LayerRun, "run", nil)
	defer func() {
		d.runSpan.Int("cycles", int(d.stats.Cycles)).End("")
		d.runSpan = nil
	}()
	if !d.built {
		if err := d.Rebuild(script); err != nil {
			return err
		}
		if err := flush(); err != nil {
			return err
		}
	}
	for {
		if err := d.WaitForWork(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if err := d.Drain(script); err != nil && !errors.Is(err, ErrUpdateLoop) {
			return err
		}
		if err := flush(); err != nil {
			return err
		}
	}
}

// Stats returns table sizes and counters.
func (d *VirtualDom) Stats() Stats {
	st := d.stats
	st.Scopes = d.scopes.Len()
	st.Elements = d.elements.Len() - 1
	st.Tasks = d.exec.Len()
	st.Templates = len(d.registered)
	st.Diagnostics = d.diags.Len()
	if dr, ok := d.reporter.(*diag.DedupReporter); ok {
		st.Suppressed = dr.Suppressed()
	}
	return st
}

// ScopeInfo describes a mounted scope.
type ScopeInfo struct {
	ID        ScopeID
	Parent    ScopeID
	Name      string
	Height    int
	Hooks     int
	Renders   int
	Tasks     int
	Children  int
	Template  string
	Boundary  bool
	// Suspended is set on a suspense boundary with pending work.
	Suspended bool
	HasParent bool
}

// EachScope visits mounted scopes in table order.
func (d *VirtualDom) EachScope(fn func(ScopeInfo)) {
	d.scopes.Each(func(_ slotmap.Key, s *Scope) bool {
		info := ScopeInfo{
			ID:       s.id,
			Name:     s.Name(),
			Height:   s.height,
			Hooks:    len(s.hooks),
			Renders:  s.renders,
			Tasks:    len(d.exec.Owned(s.id.owner())),
			Children: s.children.Cardinality(),
			Boundary: s.boundary != nil,
		}
		if s.suspense != nil {
			info.Suspended = s.suspense.Suspended()
		}
		if s.parent != nil {
			info.Parent = s.parent.id
			info.HasParent = true
		}
		if s.root != nil {
			info.Template = s.root.Template.Name
		}
		fn(info)
		return true
	})
}
