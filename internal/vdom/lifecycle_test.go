package vdom_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"loom/internal/asyncrt"
	"loom/internal/diag"
	"loom/internal/mutation"
	"loom/internal/reactive"
	"loom/internal/vdom"
)

func TestHookOrder(t *testing.T) {
	tests := []struct {
		name        string
		conditional bool
	}{
		{name: "unconditional", conditional: false},
		{name: "conditional", conditional: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flag *reactive.Signal[bool]
			app := vdom.NewComponent("Hooks", func(cx *vdom.Scope) (*vdom.VNode, error) {
				flag = vdom.UseSignal(cx, false)
				on := flag.Read()
				if on || !tt.conditional {
					vdom.UseSignal(cx, 0)
				}
				return cx.Render(countTpl, vdom.Nodes(vdom.Textf("%v", on)), nil), nil
			})
			h := newHarness(t, app, vdom.Config{})
			h.rebuild()
			flag.Write(true)
			h.drain()
			if !tt.conditional {
				h.wantNoDiags()
				if got := h.html(); got != "<div>true</div>" {
					t.Fatalf("html = %q", got)
				}
				return
			}
			h.wantDiag(diag.RenderHookCount)
			if got := h.html(); got != "<!--placeholder-->" {
				t.Fatalf("failed render should leave a placeholder, html = %q", got)
			}
		})
	}
}

func TestHookTypeChangeIsReported(t *testing.T) {
	var flag *reactive.Signal[bool]
	app := vdom.NewComponent("Types", func(cx *vdom.Scope) (*vdom.VNode, error) {
		flag = vdom.UseSignal(cx, false)
		if flag.Read() {
			vdom.UseSignal(cx, "text")
		} else {
			vdom.UseSignal(cx, 0)
		}
		return cx.Render(textTpl, vdom.Nodes(vdom.Text("x")), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	flag.Write(true)
	h.drain()
	h.wantDiag(diag.RenderHookOrder)
}

func TestDirtyScopeConvergesInOneDrain(t *testing.T) {
	var (
		a            *reactive.Signal[int]
		parentRender int
		childRender  int
	)
	child := vdom.NewComponent("Child", func(cx *vdom.Scope) (*vdom.VNode, error) {
		childRender++
		b := vdom.UseContext[*reactive.Signal[int]](cx)
		return cx.Render(textTpl, vdom.Nodes(vdom.Int(b.Read())), nil), nil
	})
	app := vdom.NewComponent("Parent", func(cx *vdom.Scope) (*vdom.VNode, error) {
		parentRender++
		a = vdom.UseSignal(cx, 1)
		b := vdom.ProvideContext(cx, reactive.NewSignal(cx.Tracker(), 0))
		// A write during render reaches the child in the same drain.
		b.Write(a.Read() * 2)
		return cx.Render(listTpl, vdom.Nodes(vdom.Child(child, nil)), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	if got := h.html(); got != "<ul>2</ul>" {
		t.Fatalf("html = %q", got)
	}
	parents, children := parentRender, childRender

	a.Write(5)
	a.Write(6)
	h.drain()
	if parentRender != parents+1 {
		t.Fatalf("parent rendered %d times for two writes, want 1", parentRender-parents)
	}
	if childRender != children+1 {
		t.Fatalf("child rendered %d times, want 1", childRender-children)
	}
	if got := h.html(); got != "<ul>12</ul>" {
		t.Fatalf("html = %q", got)
	}
}

func TestUnmountCancelsTasks(t *testing.T) {
	var (
		show    *reactive.Signal[bool]
		task    asyncrt.TaskID
		dropped []string
		polls   int
	)
	child := vdom.NewComponent("Worker", func(cx *vdom.Scope) (*vdom.VNode, error) {
		h := vdom.UseFuture(cx, func() asyncrt.Future {
			return asyncrt.FutureFunc(func(*asyncrt.Context) (bool, error) {
				polls++
				return false, nil
			})
		})
		task = h.ID()
		vdom.UseDrop(cx, func() { dropped = append(dropped, "first") })
		vdom.UseDrop(cx, func() { dropped = append(dropped, "second") })
		return cx.Render(textTpl, vdom.Nodes(vdom.Text("working")), nil), nil
	})
	app := vdom.NewComponent("Host", func(cx *vdom.Scope) (*vdom.VNode, error) {
		show = vdom.UseSignal(cx, true)
		if show.Read() {
			return cx.Render(slotTpl, vdom.Nodes(vdom.Child(child, nil)), nil), nil
		}
		return cx.Render(slotTpl, vdom.Nodes(vdom.Placeholder()), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	if polls != 1 {
		t.Fatalf("task polled %d times during rebuild, want 1", polls)
	}
	if h.dom.Executor().Task(task) == nil {
		t.Fatalf("task %d not running", task)
	}

	show.Write(false)
	h.drain()
	if h.dom.Executor().Task(task) != nil {
		t.Fatalf("task %d survived unmount", task)
	}
	if h.dom.Executor().Len() != 0 {
		t.Fatalf("executor still holds %d tasks", h.dom.Executor().Len())
	}
	if !slices.Equal(dropped, []string{"second", "first"}) {
		t.Fatalf("drop order = %v", dropped)
	}
	if st := h.dom.Stats(); st.Scopes != 1 {
		t.Fatalf("scopes = %d, want 1", st.Scopes)
	}
	h.dom.Executor().Wake(task)
	h.drain()
	if polls != 1 {
		t.Fatalf("cancelled task was polled again")
	}
}

func TestTimerTaskUpdatesSignal(t *testing.T) {
	var ticks *reactive.Signal[int]
	app := vdom.NewComponent("Clock", func(cx *vdom.Scope) (*vdom.VNode, error) {
		ticks = vdom.UseSignal(cx, 0)
		vdom.UseFuture(cx, func() asyncrt.Future {
			return asyncrt.Repeat(func() asyncrt.Future {
				return asyncrt.Sequence(asyncrt.Sleep(time.Second), asyncrt.Ready(func() error {
					ticks.Update(func(n int) int { return n + 1 })
					return nil
				}))
			})
		})
		return cx.Render(countTpl, vdom.Nodes(vdom.Int(ticks.Read())), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	for want := 1; want <= 3; want++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := h.dom.WaitForWork(ctx); err != nil {
			cancel()
			t.Fatalf("wait: %v", err)
		}
		cancel()
		h.drain()
		if got := h.html(); got != fmt.Sprintf("<div>%d</div>", want) {
			t.Fatalf("after tick %d html = %q", want, got)
		}
	}
	if now := h.dom.Executor().NowMs(); now != 3000 {
		t.Fatalf("virtual clock = %dms, want 3000", now)
	}
}

func TestEffectsRunAfterDrainAndTrackReads(t *testing.T) {
	var (
		count *reactive.Signal[int]
		seen  []int
	)
	app := vdom.NewComponent("Effects", func(cx *vdom.Scope) (*vdom.VNode, error) {
		count = vdom.UseSignal(cx, 0)
		mirror := vdom.UseSignal(cx, -1)
		vdom.UseEffect(cx, func() {
			v := count.Read()
			seen = append(seen, v)
			mirror.Write(v)
		})
		return cx.Render(countTpl, vdom.Nodes(vdom.Int(mirror.Read())), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	if got := h.html(); got != "<div>0</div>" {
		t.Fatalf("effect write did not converge, html = %q", got)
	}
	count.Write(4)
	h.drain()
	if !slices.Equal(seen, []int{0, 4}) {
		t.Fatalf("effect runs = %v", seen)
	}
	if got := h.html(); got != "<div>4</div>" {
		t.Fatalf("html = %q", got)
	}
}

func TestMissingContextFailsRender(t *testing.T) {
	child := vdom.NewComponent("Needy", func(cx *vdom.Scope) (*vdom.VNode, error) {
		theme := vdom.UseContext[string](cx)
		return cx.Render(textTpl, vdom.Nodes(vdom.Text(theme)), nil), nil
	})
	app := vdom.NewComponent("Bare", func(cx *vdom.Scope) (*vdom.VNode, error) {
		return cx.Render(slotTpl, vdom.Nodes(vdom.Child(child, nil)), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	h.wantDiag(diag.RenderContextAbsent)
	h.wantDiag(diag.RenderUnhandled)
	if got := h.html(); got != "<!--placeholder-->" {
		t.Fatalf("html = %q", got)
	}
}

var errBoom = errors.New("boom")

func TestErrorBoundaryCatchesRenderAndTaskErrors(t *testing.T) {
	tests := []struct {
		name  string
		child *vdom.Component
	}{
		{
			name: "render error",
			child: vdom.NewComponent("Broken", func(cx *vdom.Scope) (*vdom.VNode, error) {
				return nil, errBoom
			}),
		},
		{
			name: "render panic",
			child: vdom.NewComponent("Panics", func(cx *vdom.Scope) (*vdom.VNode, error) {
				panic(errBoom)
			}),
		},
		{
			name: "task error",
			child: vdom.NewComponent("Fails", func(cx *vdom.Scope) (*vdom.VNode, error) {
				vdom.UseFuture(cx, func() asyncrt.Future {
					return asyncrt.Ready(func() error { return errBoom })
				})
				return cx.Render(textTpl, vdom.Nodes(vdom.Text("ok")), nil), nil
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var boundary *vdom.ErrorBoundary
			app := vdom.NewComponent("Boundary", func(cx *vdom.Scope) (*vdom.VNode, error) {
				boundary = vdom.UseErrorBoundary(cx)
				if err := boundary.Err(); err != nil {
					return cx.Render(countTpl, vdom.Nodes(vdom.Text("caught")), nil), nil
				}
				return cx.Render(slotTpl, vdom.Nodes(vdom.Child(tt.child, nil)), nil), nil
			})
			h := newHarness(t, app, vdom.Config{})
			h.rebuild()
			if got := h.html(); got != "<div>caught</div>" {
				t.Fatalf("html = %q", got)
			}
			if h.dom.Diagnostics().Has(diag.RenderUnhandled) {
				t.Fatalf("error escaped the boundary")
			}
			captured := boundary.Errors()
			if len(captured) != 1 || captured[0].Component != tt.child.Name {
				t.Fatalf("captured = %v", captured)
			}
			if tt.name != "render panic" && !errors.Is(captured[0], errBoom) {
				t.Fatalf("captured error %v does not wrap errBoom", captured[0])
			}
			if st := h.dom.Stats(); st.Scopes != 1 {
				t.Fatalf("child scope not dropped, scopes = %d", st.Scopes)
			}
		})
	}
}

func TestInvalidListsAreReported(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		code diag.Code
	}{
		{name: "duplicate", keys: []string{"a", "b", "a"}, code: diag.RenderDuplicateKey},
		{name: "mixed", keys: []string{"a", "", "c"}, code: diag.RenderMixedKeys},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := vdom.NewComponent("List", func(cx *vdom.Scope) (*vdom.VNode, error) {
				var items []*vdom.VNode
				for _, k := range tt.keys {
					items = append(items, item(cx, k, k))
				}
				return cx.Render(listTpl, vdom.Nodes(vdom.Fragment(items...)), nil), nil
			})
			h := newHarness(t, app, vdom.Config{})
			h.rebuild()
			h.wantDiag(tt.code)
		})
	}
}

func TestSlotMismatchIsReported(t *testing.T) {
	app := vdom.NewComponent("Short", func(cx *vdom.Scope) (*vdom.VNode, error) {
		return cx.Render(countTpl, nil, nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	h.wantDiag(diag.TplSlotMismatch)
}

func TestUpdateLoopIsBounded(t *testing.T) {
	app := vdom.NewComponent("Spin", func(cx *vdom.Scope) (*vdom.VNode, error) {
		n := vdom.UseSignal(cx, 0)
		v := n.Read()
		n.Write(v + 1)
		return cx.Render(countTpl, vdom.Nodes(vdom.Int(v)), nil), nil
	})
	h := newHarness(t, app, vdom.Config{MaxDrainIterations: 50})
	err := h.dom.Rebuild(mutation.Discard)
	if !errors.Is(err, vdom.ErrUpdateLoop) {
		t.Fatalf("rebuild err = %v, want ErrUpdateLoop", err)
	}
	h.wantDiag(diag.RuntimeUpdateLoop)
	if h.dom.HasWork() {
		t.Fatalf("queue not cleared after the guard tripped")
	}
}

func TestMemoizedPropsSkipRender(t *testing.T) {
	var (
		label   *reactive.Signal[string]
		other   *reactive.Signal[int]
		renders int
	)
	child := vdom.NewComponent("Label", func(cx *vdom.Scope) (*vdom.VNode, error) {
		renders++
		p := vdom.PropsAs[vdom.Value[string]](cx)
		return cx.Render(textTpl, vdom.Nodes(vdom.Text(p.V)), nil), nil
	})
	app := vdom.NewComponent("Parent", func(cx *vdom.Scope) (*vdom.VNode, error) {
		label = vdom.UseSignal(cx, "a")
		other = vdom.UseSignal(cx, 0)
		return cx.Render(listTpl, vdom.Nodes(vdom.Child(child, vdom.ValueOf(label.Read()+fmt.Sprint(other.Read()*0)))), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	other.Write(1)
	h.drain()
	if renders != 1 {
		t.Fatalf("equal props re-rendered the child, renders = %d", renders)
	}
	label.Write("b")
	s := h.drain()
	if renders != 2 || h.html() != "<ul>b0</ul>" {
		t.Fatalf("renders = %d html = %q\n%s", renders, h.html(), s)
	}
}

func TestEventsBubbleAcrossComponents(t *testing.T) {
	var log []string
	var stop bool
	button := vdom.NewComponent("Button", func(cx *vdom.Scope) (*vdom.VNode, error) {
		return cx.Render(buttonTpl, nil, vdom.Attrs(vdom.On("click", func(e *vdom.Event) {
			log = append(log, "button")
			if stop {
				e.StopPropagation()
			}
		}))), nil
	})
	app := vdom.NewComponent("Panel", func(cx *vdom.Scope) (*vdom.VNode, error) {
		return cx.Render(panelTpl, vdom.Nodes(vdom.Child(button, nil)), vdom.Attrs(
			vdom.On("click", func(*vdom.Event) { log = append(log, "outer") }),
			vdom.On("click", func(*vdom.Event) { log = append(log, "inner") }),
		)), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	target := h.listener("click", "button")

	h.click(target)
	if !slices.Equal(log, []string{"button", "inner", "outer"}) {
		t.Fatalf("bubbling order = %v", log)
	}

	log, stop = nil, true
	h.click(target)
	if !slices.Equal(log, []string{"button"}) {
		t.Fatalf("stopped event reached %v", log)
	}

	log = nil
	if err := h.dom.HandleEvent("click", nil, h.listener("click", "div"), false); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(log, []string{"inner"}) {
		t.Fatalf("non-bubbling event reached %v", log)
	}
}

func TestEventWritesRenderOnNextDrain(t *testing.T) {
	counter := vdom.NewComponent("Counter", func(cx *vdom.Scope) (*vdom.VNode, error) {
		n := vdom.UseSignal(cx, 0)
		return cx.Render(counterTpl, vdom.Nodes(vdom.Int(n.Read())), vdom.Attrs(vdom.On("click", func(*vdom.Event) {
			n.Update(func(v int) int { return v + 1 })
			n.Update(func(v int) int { return v + 1 })
		}))), nil
	})
	h := newHarness(t, counter, vdom.Config{})
	h.rebuild()
	h.click(h.listener("click", "button"))
	s := h.drain()
	if s.Len() != 1 || h.html() != "<button>2</button>" {
		t.Fatalf("html = %q\n%s", h.html(), s)
	}
}

func TestStaleEventTarget(t *testing.T) {
	var show *reactive.Signal[bool]
	app := vdom.NewComponent("Gone", func(cx *vdom.Scope) (*vdom.VNode, error) {
		show = vdom.UseSignal(cx, true)
		return cx.Render(listTpl, vdom.Nodes(vdom.When(show.Read(), func() *vdom.VNode {
			return cx.Render(counterTpl, vdom.Nodes(vdom.Text("x")), vdom.Attrs(vdom.On("click", func(*vdom.Event) {})))
		})), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	target := h.listener("click", "button")
	show.Write(false)
	h.drain()
	err := h.dom.HandleEvent("click", nil, target, true)
	if !errors.Is(err, mutation.ErrStaleElement) {
		t.Fatalf("err = %v, want ErrStaleElement", err)
	}
	h.wantDiag(diag.RendererUnknownTarget)
}

func TestOffloadCompletesThroughProxy(t *testing.T) {
	var result *reactive.Signal[string]
	release := make(chan struct{})
	app := vdom.NewComponent("Fetch", func(cx *vdom.Scope) (*vdom.VNode, error) {
		result = vdom.UseSignal(cx, "loading")
		vdom.UseFuture(cx, func() asyncrt.Future {
			return vdom.Offload(cx.Dom(), func(ctx context.Context) (string, error) {
				<-release
				return "loaded", nil
			}, func(v string, err error) { result.Write(v) })
		})
		return cx.Render(countTpl, vdom.Nodes(vdom.Text(result.Read())), nil), nil
	})
	h := newHarness(t, app, vdom.Config{CheckThread: true})
	h.rebuild()
	if got := h.html(); got != "<div>loading</div>" {
		t.Fatalf("html = %q", got)
	}
	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for h.html() != "<div>loaded</div>" {
		if err := h.dom.WaitForWork(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
		h.drain()
	}
	if h.dom.Executor().Len() != 0 {
		t.Fatalf("offload task still running")
	}
}

func TestForeignGoroutineIsRejected(t *testing.T) {
	h := newHarness(t, vdom.NewComponent("Owned", func(cx *vdom.Scope) (*vdom.VNode, error) {
		return cx.Render(textTpl, vdom.Nodes(vdom.Text("x")), nil), nil
	}), vdom.Config{CheckThread: true})
	h.rebuild()
	errc := make(chan error, 1)
	go func() { errc <- h.dom.Drain(mutation.Discard) }()
	if err := <-errc; !errors.Is(err, vdom.ErrWrongGoroutine) {
		t.Fatalf("err = %v, want ErrWrongGoroutine", err)
	}
	h.wantDiag(diag.RuntimeWrongOwner)

	done := make(chan struct{})
	go func() {
		h.dom.Proxy().MarkDirty(h.dom.RootScope())
		close(done)
	}()
	<-done
	if !h.dom.HasWork() {
		t.Fatalf("proxy post not visible")
	}
	h.drain()
}

func TestRunAppliesBatches(t *testing.T) {
	var (
		count   *reactive.Signal[int]
		batches []mutation.Batch
	)
	app := vdom.NewComponent("Run", func(cx *vdom.Scope) (*vdom.VNode, error) {
		count = vdom.UseSignal(cx, 0)
		return cx.Render(countTpl, vdom.Nodes(vdom.Int(count.Read())), nil), nil
	})
	dom := vdom.New(app, nil, vdom.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	err := dom.Run(ctx, vdom.RendererFunc(func(b mutation.Batch) error {
		batches = append(batches, b)
		switch len(batches) {
		case 1:
			dom.Proxy().Post(func(*vdom.VirtualDom) { count.Write(7) })
		case 2:
			cancel()
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}
	want := mutation.SetText(2, "7")
	if got := batches[1].Edits; len(got) != 1 || got[0].Op != want.Op || got[0].Text != want.Text {
		t.Fatalf("second batch = %v", got)
	}
}

func TestRunIntoChannelSink(t *testing.T) {
	var count *reactive.Signal[int]
	app := vdom.NewComponent("Sink", func(cx *vdom.Scope) (*vdom.VNode, error) {
		count = vdom.UseSignal(cx, 0)
		return cx.Render(countTpl, vdom.Nodes(vdom.Int(count.Read())), nil), nil
	})
	dom := vdom.New(app, nil, vdom.Config{})
	ch := make(chan mutation.Batch, 1)
	got := make(chan mutation.Batch, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		got <- <-ch
		cancel()
	}()
	if err := dom.Run(ctx, mutation.ChannelSink{Ch: ch}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if b := <-got; len(b.Edits) == 0 {
		t.Fatalf("rebuild batch is empty")
	}

	count.Write(3)
	script := &mutation.Script{}
	if err := dom.RenderImmediate(script); err != nil {
		t.Fatal(err)
	}
	if script.Len() != 1 || script.Count(mutation.OpSetText) != 1 {
		t.Fatalf("immediate render:\n%v", script)
	}
	if dom.HasWork() {
		t.Fatalf("work left after immediate render")
	}
}

func TestReusedOutputIsStale(t *testing.T) {
	var (
		n      *reactive.Signal[int]
		cached *vdom.VNode
	)
	app := vdom.NewComponent("Cache", func(cx *vdom.Scope) (*vdom.VNode, error) {
		n = vdom.UseSignal(cx, 0)
		v := n.Read()
		if cached == nil {
			cached = cx.Render(countTpl, vdom.Nodes(vdom.Int(v)), nil)
		}
		return cached, nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	h.wantNoDiags()
	// The first output still sits in the scope's other arena.
	n.Write(1)
	h.drain()
	h.wantDiag(diag.RenderStaleOutput)
	if got := h.html(); got != "<!--placeholder-->" {
		t.Fatalf("html = %q", got)
	}
}

type pickProps struct {
	Label  string
	OnPick vdom.Callback[string]
}

func (p *pickProps) Memoize(candidate vdom.Props) bool {
	o, ok := candidate.(*pickProps)
	if !ok {
		return false
	}
	p.OnPick.Update(o.OnPick)
	return p.Label == o.Label
}

func TestMemoizedChildCallsNewestCallback(t *testing.T) {
	var (
		label   *reactive.Signal[string]
		version *reactive.Signal[int]
		renders int
		picked  []string
	)
	child := vdom.NewComponent("Pick", func(cx *vdom.Scope) (*vdom.VNode, error) {
		renders++
		p := vdom.PropsAs[*pickProps](cx)
		return cx.Render(counterTpl, vdom.Nodes(vdom.Text(p.Label)), vdom.Attrs(
			vdom.On("click", func(*vdom.Event) { p.OnPick.Call(p.Label) }),
		)), nil
	})
	app := vdom.NewComponent("Picker", func(cx *vdom.Scope) (*vdom.VNode, error) {
		label = vdom.UseSignal(cx, "a")
		version = vdom.UseSignal(cx, 1)
		v := version.Read()
		return cx.Render(listTpl, vdom.Nodes(vdom.Child(child, &pickProps{
			Label:  label.Read(),
			OnPick: vdom.NewCallback(func(s string) {
				picked = append(picked, fmt.Sprintf("%s@%d", s, v))
			}),
		})), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()

	version.Write(2)
	if s := h.drain(); s.Len() != 0 {
		t.Fatalf("callback swap produced edits:\n%s", s)
	}
	if renders != 1 {
		t.Fatalf("memoized child re-rendered, renders = %d", renders)
	}
	h.click(h.listener("click", "button"))
	if !slices.Equal(picked, []string{"a@2"}) {
		t.Fatalf("picked = %v", picked)
	}

	label.Write("b")
	version.Write(3)
	h.drain()
	if renders != 2 || h.html() != "<ul><button>b</button></ul>" {
		t.Fatalf("renders = %d html = %q", renders, h.html())
	}
	h.click(h.listener("click", "button"))
	if !slices.Equal(picked, []string{"a@2", "b@3"}) {
		t.Fatalf("picked = %v", picked)
	}
}

// settle waits for offloaded work and drains until cond holds.
func settle(t *testing.T, h *harness, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for !cond() {
		if err := h.dom.WaitForWork(ctx); err != nil {
			t.Fatalf("wait: %v (html %q)", err, h.html())
		}
		h.drain()
	}
}

func TestSuspenseShowsFallbackUntilResolved(t *testing.T) {
	release := make(chan struct{})
	var (
		boundary *vdom.SuspenseBoundary
		starts   atomic.Int32
	)
	article := vdom.NewComponent("Article", func(cx *vdom.Scope) (*vdom.VNode, error) {
		body, err := vdom.Suspend(cx, "article", func(ctx context.Context) (string, error) {
			starts.Add(1)
			select {
			case <-release:
				return "hello", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})
		if err != nil {
			return nil, err
		}
		return cx.Render(countTpl, vdom.Nodes(vdom.Text(body)), nil), nil
	})
	app := vdom.NewComponent("Suspense", func(cx *vdom.Scope) (*vdom.VNode, error) {
		boundary = vdom.UseSuspense(cx)
		if boundary.Suspended() {
			return cx.Render(textTpl, vdom.Nodes(vdom.Text("loading")), nil), nil
		}
		return cx.Render(slotTpl, vdom.Nodes(vdom.Child(article, nil)), nil), nil
	})
	h := newHarness(t, app, vdom.Config{CheckThread: true})
	h.rebuild()
	if got := h.html(); got != "loading" {
		t.Fatalf("html = %q", got)
	}
	if got := boundary.Pending(); !slices.Equal(got, []string{"article"}) {
		t.Fatalf("pending = %v", got)
	}
	if st := h.dom.Stats(); st.Scopes != 1 || st.Tasks != 1 {
		t.Fatalf("fallback kept %d scopes and %d tasks", st.Scopes, st.Tasks)
	}
	h.wantNoDiags()

	close(release)
	settle(t, h, func() bool { return h.html() == "<div>hello</div>" })
	if boundary.Suspended() || h.dom.Executor().Len() != 0 {
		t.Fatalf("boundary still suspended or task left behind")
	}
	if n := starts.Load(); n != 1 {
		t.Fatalf("work started %d times", n)
	}
	if st := h.dom.Stats(); st.Scopes != 2 {
		t.Fatalf("scopes = %d, want boundary and article", st.Scopes)
	}
	h.wantNoDiags()
}

func TestSuspendWithoutBoundaryRendersPlaceholder(t *testing.T) {
	release := make(chan struct{})
	app := vdom.NewComponent("Lazy", func(cx *vdom.Scope) (*vdom.VNode, error) {
		base := vdom.UseSignal(cx, 1)
		v, err := vdom.Suspend(cx, "answer", func(context.Context) (int, error) {
			<-release
			return 41, nil
		})
		if err != nil {
			return nil, err
		}
		// Registered by the first render that gets past Suspend.
		suffix := vdom.UseSignal(cx, "!")
		return cx.Render(countTpl, vdom.Nodes(vdom.Textf("%d%s", v+base.Read(), suffix.Read())), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	if got := h.html(); got != "<!--placeholder-->" {
		t.Fatalf("html = %q", got)
	}
	close(release)
	settle(t, h, func() bool { return h.html() == "<div>42!</div>" })
	h.wantNoDiags()
}

func TestFailedSuspenseReachesErrorBoundary(t *testing.T) {
	var boundary *vdom.ErrorBoundary
	child := vdom.NewComponent("Broken", func(cx *vdom.Scope) (*vdom.VNode, error) {
		v, err := vdom.Suspend(cx, "broken", func(context.Context) (string, error) {
			return "", errBoom
		})
		if err != nil {
			return nil, err
		}
		return cx.Render(countTpl, vdom.Nodes(vdom.Text(v)), nil), nil
	})
	app := vdom.NewComponent("Guarded", func(cx *vdom.Scope) (*vdom.VNode, error) {
		boundary = vdom.UseErrorBoundary(cx)
		sb := vdom.UseSuspense(cx)
		switch {
		case boundary.Err() != nil:
			return cx.Render(textTpl, vdom.Nodes(vdom.Text("caught")), nil), nil
		case sb.Suspended():
			return cx.Render(textTpl, vdom.Nodes(vdom.Text("loading")), nil), nil
		}
		return cx.Render(slotTpl, vdom.Nodes(vdom.Child(child, nil)), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()
	settle(t, h, func() bool { return h.html() == "caught" })
	if !errors.Is(boundary.Err(), errBoom) {
		t.Fatalf("captured %v", boundary.Err())
	}
	if h.dom.Diagnostics().Has(diag.RenderUnhandled) {
		t.Fatalf("error escaped the boundary")
	}
}

func TestChildDirtyBeforeParentThatDropsIt(t *testing.T) {
	var (
		show    *reactive.Signal[bool]
		n       *reactive.Signal[int]
		renders int
		dropped int
	)
	child := vdom.NewComponent("Row", func(cx *vdom.Scope) (*vdom.VNode, error) {
		renders++
		n = vdom.UseSignal(cx, 0)
		vdom.UseDrop(cx, func() { dropped++ })
		return cx.Render(countTpl, vdom.Nodes(vdom.Int(n.Read())), nil), nil
	})
	app := vdom.NewComponent("Rows", func(cx *vdom.Scope) (*vdom.VNode, error) {
		show = vdom.UseSignal(cx, true)
		if show.Read() {
			return cx.Render(slotTpl, vdom.Nodes(vdom.Child(child, nil)), nil), nil
		}
		return cx.Render(slotTpl, vdom.Nodes(vdom.Placeholder()), nil), nil
	})
	h := newHarness(t, app, vdom.Config{})
	h.rebuild()

	// The child is queued first, so it renders before the parent unmounts it.
	n.Write(1)
	show.Write(false)
	h.drain()
	if renders != 2 || dropped != 1 {
		t.Fatalf("renders = %d dropped = %d", renders, dropped)
	}
	if got := h.html(); got != "<!--placeholder-->" {
		t.Fatalf("html = %q", got)
	}
	if st := h.dom.Stats(); st.Scopes != 1 {
		t.Fatalf("scopes = %d, want only the parent", st.Scopes)
	}
	h.wantNoDiags()
}
