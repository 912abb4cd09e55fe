package apps

import (
	"context"
	"fmt"
	"time"

	"loom/internal/asyncrt"
	"loom/internal/template"
	"loom/internal/vdom"
)

var clockTpl = template.MustNew("demo:clock",
	template.Elem("div", template.Attrs(template.Static("class", "clock"), template.DynAttr(0)),
		template.Elem("time", nil, template.DynText(0)),
		template.Elem("button", template.Attrs(template.Static("class", "toggle"), template.DynAttr(1)), template.DynText(1)),
	),
)

func clockFace(sec int) string {
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}

// Clock runs a repeating timer task on the virtual clock. Pausing the task
// swallows its wakes; resuming replays the one it missed.
var Clock = register(&App{
	Name:    "clock",
	Summary: "timer task owned by a scope, pause/resume, virtual time",
	Build: func() Instance {
		root := vdom.NewComponent("Clock", func(cx *vdom.Scope) (*vdom.VNode, error) {
			elapsed := vdom.UseSignal(cx, 0)
			paused := vdom.UseSignal(cx, false)
			ticker := vdom.UseFuture(cx, func() asyncrt.Future {
				return asyncrt.Repeat(func() asyncrt.Future {
					return asyncrt.Sequence(asyncrt.Sleep(time.Second), asyncrt.Ready(func() error {
						elapsed.Update(func(n int) int { return n + 1 })
						return nil
					}))
				})
			})
			label := "pause"
			if paused.Read() {
				label = "resume"
			}
			return cx.Render(clockTpl,
				vdom.Nodes(vdom.Text(clockFace(elapsed.Read())), vdom.Text(label)),
				vdom.Attrs(
					vdom.AttrBool("data-paused", paused.Read()),
					vdom.On("click", func(*vdom.Event) {
						if paused.Peek() {
							ticker.Resume()
						} else {
							ticker.Pause()
						}
						paused.Write(!paused.Peek())
					}),
				),
			), nil
		})
		advance := func(seconds int) func(context.Context, *Host) error {
			return func(_ context.Context, h *Host) error {
				for range seconds {
					h.Dom.Executor().AdvanceBy(time.Second)
					if err := h.Settle(); err != nil {
						return err
					}
				}
				return nil
			}
		}
		return Instance{
			Root: root,
			Steps: []Step{
				{Name: "one second", Do: advance(1)},
				{Name: "a minute", Do: advance(60)},
				{Name: "pause", Do: func(_ context.Context, h *Host) error { return h.Click("toggle") }},
				{Name: "three seconds paused", Do: advance(3)},
				{Name: "resume", Do: func(_ context.Context, h *Host) error { return h.Click("toggle") }},
				{Name: "one more second", Do: advance(1)},
			},
		}
	},
})
