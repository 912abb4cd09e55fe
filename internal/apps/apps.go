// Package apps holds scripted demo applications. Each one mounts a
// component tree headless, applies scripted user actions and records the
// mutation batch every action produced. The CLI prints, replays and
// benchmarks them; tests use them as end-to-end scenarios.
package apps

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"loom/internal/mutation"
	"loom/internal/observ"
	"loom/internal/testkit"
	"loom/internal/trace"
	"loom/internal/vdom"
)

// Step is one scripted action. The runtime is drained after Do returns.
type Step struct {
	Name string
	Do   func(ctx context.Context, h *Host) error
}

// Instance is a freshly built app: a root component and the steps that
// drive it. Steps close over the instance's state.
type Instance struct {
	Root  *vdom.Component
	Props vdom.Props
	Steps []Step
}

// StepNames lists the rebuild pseudo-step followed by every step name.
func (in Instance) StepNames() []string {
	names := make([]string, 0, len(in.Steps)+1)
	names = append(names, RebuildStep)
	for _, s := range in.Steps {
		names = append(names, s.Name)
	}
	return names
}

// App describes a demo.
type App struct {
	Name    string
	Summary string
	Build   func() Instance
}

// RebuildStep names the initial render in results.
const RebuildStep = "rebuild"

var registry = map[string]*App{}

func register(a *App) *App {
	if _, dup := registry[a.Name]; dup {
		panic(fmt.Sprintf("apps: %q registered twice", a.Name))
	}
	registry[a.Name] = a
	return a
}

// All returns every demo sorted by name.
func All() []*App {
	out := make([]*App, 0, len(registry))
	for _, a := range registry {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b *App) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Names returns the sorted demo names.
func Names() []string {
	var names []string
	for _, a := range All() {
		names = append(names, a.Name)
	}
	return names
}

// Lookup finds a demo by name.
func Lookup(name string) (*App, error) {
	if a, ok := registry[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("unknown demo %q (expected one of: %s)", name, strings.Join(Names(), ", "))
}

// Host gives steps access to the runtime and the document it renders into.
type Host struct {
	Dom *vdom.VirtualDom
	Doc *testkit.Document

	w mutation.Writer
}

// Settle drains pending work into the current step's batch. Steps that
// advance time several times call it between advances.
func (h *Host) Settle() error {
	if err := h.Dom.Drain(h.w); err != nil {
		return err
	}
	return h.Doc.Err()
}

// Await waits for and drains work until no task is left or ctx ends.
func (h *Host) Await(ctx context.Context) error {
	for h.Dom.Executor().Len() > 0 {
		if err := h.Dom.WaitForWork(ctx); err != nil {
			return err
		}
		if err := h.Settle(); err != nil {
			return err
		}
	}
	return nil
}

// Elements returns ids with a listener for event whose class is class, in
// document order.
func (h *Host) Elements(event, class string) []mutation.ElementID {
	return h.Doc.Find(func(n *testkit.Node) bool {
		return n.Listeners[event] && hasClass(n.Attr("class"), class)
	})
}

// Emit dispatches event to the nth element (0-based, document order)
// listening for it with class.
func (h *Host) Emit(event, class string, nth int, data any) error {
	ids := h.Elements(event, class)
	if nth >= len(ids) {
		return fmt.Errorf("%s: no element .%s #%d listening (found %d)", event, class, nth, len(ids))
	}
	return h.Dom.HandleEvent(event, data, ids[nth], true)
}

// Click clicks the first element with class.
func (h *Host) Click(class string) error { return h.Emit("click", class, 0, nil) }

func hasClass(list, class string) bool {
	return slices.Contains(strings.Fields(list), class)
}

// Result is what one step produced.
type Result struct {
	Step  string
	Batch mutation.Batch
	HTML  string
	// Tree is the document with one node per line.
	Tree  string
	Stats vdom.Stats
}

// Options tune Run.
type Options struct {
	Config vdom.Config
	// Before is called as a step starts, After once its batch is applied.
	Before func(step string)
	After  func(Result)
	Timer  *observ.Timer
}

// ErrStep wraps failures of scripted steps.
var ErrStep = errors.New("demo step failed")

// Run mounts in, performs the rebuild and every step, and returns one
// result per step. The runtime must be driven from the calling goroutine.
// Without a configured tracer the one attached to ctx is used.
func Run(ctx context.Context, in Instance, opts Options) ([]Result, *Host, error) {
	if opts.Config.Tracer == nil {
		opts.Config.Tracer = trace.FromContext(ctx)
	}
	h := &Host{
		Dom: vdom.New(in.Root, in.Props, opts.Config),
		Doc: testkit.NewDocument(opts.Config.Store),
	}
	results := make([]Result, 0, len(in.Steps)+1)
	record := func(name string, do func() error) error {
		if opts.Before != nil {
			opts.Before(name)
		}
		script := &mutation.Script{}
		h.w = mutation.Tee(script, h.Doc)
		idx := opts.Timer.Begin(name)
		err := do()
		opts.Timer.EndEdits(idx, "", script.Len())
		if err == nil {
			err = h.Doc.Err()
		}
		if err != nil {
			return fmt.Errorf("%s: %w: %w", name, ErrStep, err)
		}
		res := Result{
			Step:  name,
			Batch: mutation.Batch{Cycle: h.Dom.Stats().Cycles, Edits: script.Take()},
			HTML:  h.Doc.HTML(),
			Tree:  h.Doc.Indented(),
			Stats: h.Dom.Stats(),
		}
		results = append(results, res)
		if opts.After != nil {
			opts.After(res)
		}
		return nil
	}

	if err := record(RebuildStep, func() error { return h.Dom.Rebuild(h.w) }); err != nil {
		return results, h, err
	}
	for _, step := range in.Steps {
		if err := ctx.Err(); err != nil {
			return results, h, err
		}
		err := record(step.Name, func() error {
			if err := step.Do(ctx, h); err != nil {
				return err
			}
			return h.Settle()
		})
		if err != nil {
			return results, h, err
		}
	}
	return results, h, nil
}
