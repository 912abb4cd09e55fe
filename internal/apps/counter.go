package apps

import (
	"context"

	"loom/internal/template"
	"loom/internal/vdom"
)

var counterTpl = template.MustNew("demo:counter",
	template.Elem("div", template.Attrs(template.Static("class", "counter")),
		template.Elem("button", template.Attrs(template.Static("class", "dec"), template.DynAttr(0)), template.Text("-")),
		template.Elem("span", template.Attrs(template.DynAttr(1)), template.DynText(0)),
		template.Elem("button", template.Attrs(template.Static("class", "inc"), template.DynAttr(2)), template.Text("+")),
	),
)

// Counter is the smallest demo: two buttons around a number. The sign
// attribute is derived through a memo so it only changes when the sign
// flips.
var Counter = register(&App{
	Name:    "counter",
	Summary: "click handlers, one SetText per update, memoized attribute",
	Build: func() Instance {
		root := vdom.NewComponent("Counter", func(cx *vdom.Scope) (*vdom.VNode, error) {
			count := vdom.UseSignal(cx, 0)
			sign := vdom.UseMemo(cx, func() string {
				switch n := count.Read(); {
				case n < 0:
					return "negative"
				case n > 0:
					return "positive"
				default:
					return "zero"
				}
			})
			return cx.Render(counterTpl,
				vdom.Nodes(vdom.Int(count.Read())),
				vdom.Attrs(
					vdom.On("click", func(*vdom.Event) { count.Update(func(n int) int { return n - 1 }) }),
					vdom.Attr("data-sign", sign.Read()),
					vdom.On("click", func(*vdom.Event) { count.Update(func(n int) int { return n + 1 }) }),
				),
			), nil
		})
		click := func(class string) func(context.Context, *Host) error {
			return func(_ context.Context, h *Host) error { return h.Click(class) }
		}
		return Instance{
			Root: root,
			Steps: []Step{
				{Name: "increment", Do: click("inc")},
				{Name: "increment again", Do: click("inc")},
				{Name: "decrement", Do: click("dec")},
				{Name: "back to zero", Do: click("dec")},
				{Name: "below zero", Do: click("dec")},
			},
		}
	},
})
