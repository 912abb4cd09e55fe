package vdom

import (
	"fmt"
	"slices"

	"loom/internal/diag"
	"loom/internal/mutation"
	"loom/internal/slotmap"
	"loom/internal/template"
	"loom/internal/trace"
)

// Event is a user event routed to listeners. Listeners run on the runtime
// goroutine; signal writes they make are coalesced until the dispatch ends.
type Event struct {
	Name    string
	Data    any
	Target  ElementID
	Bubbles bool
	// Current is the element whose listener is running.
	Current ElementID

	stopped   bool
	prevented bool
}

// StopPropagation keeps the event from reaching further listeners.
func (e *Event) StopPropagation() { e.stopped = true }

// PreventDefault records that the renderer should skip its default action.
func (e *Event) PreventDefault() { e.prevented = true }

func (e *Event) Stopped() bool { return e.stopped }

func (e *Event) DefaultPrevented() bool { return e.prevented }

// HandleEvent dispatches a renderer event to the listener on target and,
// when bubbles is set, to listeners on its ancestors.
func (d *VirtualDom) HandleEvent(name string, data any, target ElementID, bubbles bool) error {
	return d.Dispatch(&Event{Name: name, Data: data, Target: target, Bubbles: bubbles})
}

// Dispatch routes ev. Unknown or stale targets are reported and rejected
// with mutation.ErrStaleElement.
func (d *VirtualDom) Dispatch(ev *Event) error {
	if err := d.checkOwner("Dispatch"); err != nil {
		return err
	}
	ref, ok := d.elements.Get(slotmap.Key(ev.Target))
	if !ok || ref.m == nil || ref.m.dead {
		code := diag.RendererStaleElement
		if !ok {
			code = diag.RendererUnknownTarget
		}
		msg := fmt.Sprintf("event %q targets element %s", ev.Name, ev.Target)
		d.reporter.Report(code, diag.SevWarning, diag.Site{Element: uint64(ev.Target)}, msg, nil)
		return fmt.Errorf("%s: %w", msg, mutation.ErrStaleElement)
	}
	d.stats.Events++
	span := trace.Begin(d.tracer, trace.LayerCycle, "event:"+ev.Name, d.runSpan).
		Cycle(d.stats.Cycles).
		Str("target", ev.Target.String())
	d.tracker.Batch(func() {
		d.bubble(ev, ref.m, ref.path)
	})
	detail := ""
	if ev.Stopped() {
		detail = "stopped"
	}
	span.End(detail)
	return nil
}

type listenerHit struct {
	depth int
	slot  int
}

func (d *VirtualDom) bubble(ev *Event, m *mount, path template.Path) {
	for m != nil {
		v := m.node
		tpl := v.Template
		var hits []listenerHit
		for i, ap := range tpl.AttrPaths {
			a := &v.Attrs[i]
			if !a.Value.IsListener() || a.Name != ev.Name {
				continue
			}
			if !path.HasPrefix(ap) || (!ev.Bubbles && len(ap) != len(path)) {
				continue
			}
			hits = append(hits, listenerHit{depth: len(ap), slot: i})
		}
		slices.SortStableFunc(hits, func(a, b listenerHit) int { return b.depth - a.depth })
		for _, h := range hits {
			ev.Current = m.ids[tpl.AttrAddr(h.slot)]
			fn := v.Attrs[h.slot].Value.Listener
			d.guard(d.scope(m.scope), diag.RenderHandlerPanic, func() { fn(ev) })
			if ev.stopped {
				return
			}
		}
		if !ev.Bubbles || m.parent.m == nil {
			return
		}
		path = m.parent.m.node.Template.NodePaths[m.parent.slot]
		m = m.parent.m
	}
}
