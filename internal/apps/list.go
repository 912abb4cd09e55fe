package apps

import (
	"context"
	"strings"

	"loom/internal/reactive"
	"loom/internal/template"
	"loom/internal/vdom"
)

var (
	listTpl = template.MustNew("demo:list",
		template.Elem("ul", template.Attrs(template.Static("class", "letters"), template.DynAttr(0)), template.Dyn(0)),
	)
	letterTpl = template.MustNew("demo:letter",
		template.Elem("li", nil, template.DynText(0)),
	)
)

// List reorders a keyed list. Every step rewrites the whole key string;
// the reconciler turns it into the fewest moves it can find.
var List = register(&App{
	Name:    "list",
	Summary: "keyed reconciliation: swaps, reversal, inserts, removals, empty list",
	Build: func() Instance {
		var keys *reactive.Signal[string]
		root := vdom.NewComponent("Letters", func(cx *vdom.Scope) (*vdom.VNode, error) {
			keys = vdom.UseSignal(cx, "abcde")
			ks := keys.Read()
			items := make([]*vdom.VNode, 0, len(ks))
			for _, r := range ks {
				k := string(r)
				items = append(items, cx.RenderKeyed(k, letterTpl, vdom.Nodes(vdom.Text(strings.ToUpper(k))), nil))
			}
			return cx.Render(listTpl,
				vdom.Nodes(vdom.Fragment(items...)),
				vdom.Attrs(vdom.AttrInt("data-len", int64(len(ks)))),
			), nil
		})
		set := func(v string) func(context.Context, *Host) error {
			return func(context.Context, *Host) error {
				keys.Write(v)
				return nil
			}
		}
		return Instance{
			Root: root,
			Steps: []Step{
				{Name: "swap b and d", Do: set("adcbe")},
				{Name: "reverse", Do: set("ebcda")},
				{Name: "drop the ends", Do: set("bcd")},
				{Name: "insert around", Do: set("xbcdy")},
				{Name: "rotate", Do: set("bcdyx")},
				{Name: "clear", Do: set("")},
				{Name: "refill", Do: set("abc")},
			},
		}
	},
})
