package apps

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"loom/internal/asyncrt"
	"loom/internal/template"
	"loom/internal/vdom"
)

var (
	todoTpl = template.MustNew("demo:todo",
		template.Elem("section", template.Attrs(template.Static("class", "todo"), template.DynAttr(0)),
			template.Elem("form", template.Attrs(template.Static("class", "new"), template.DynAttr(1))),
			template.Elem("ul", nil, template.Dyn(0)),
			template.Elem("footer", nil,
				template.Elem("span", nil, template.DynText(1)),
				template.Elem("button", template.Attrs(template.Static("class", "show-all"), template.DynAttr(2)), template.Text("all")),
				template.Elem("button", template.Attrs(template.Static("class", "show-active"), template.DynAttr(3)), template.Text("active")),
				template.Elem("button", template.Attrs(template.Static("class", "clear"), template.DynAttr(4)), template.Text("clear done")),
			),
		),
	)
	todoRowTpl  = template.MustNew("demo:todo-row", template.Dyn(0))
	todoItemTpl = template.MustNew("demo:todo-item",
		template.Elem("li", template.Attrs(template.DynAttr(0)),
			template.Elem("button", template.Attrs(template.Static("class", "toggle"), template.DynAttr(1)), template.Text("✓")),
			template.Elem("span", nil, template.DynText(0)),
			template.Elem("button", template.Attrs(template.Static("class", "remove"), template.DynAttr(2)), template.Text("×")),
		),
	)
	loadingTpl = template.MustNew("demo:todo-loading",
		template.Elem("p", template.Attrs(template.Static("class", "loading")), template.Text("loading…")),
	)
)

type todo struct {
	ID    int
	Title string
	Done  bool
}

// todoActions is provided by the app scope and consumed by every row.
type todoActions struct {
	toggle func(id int)
	remove func(id int)
}

var todoItem = vdom.NewComponent("TodoItem", func(cx *vdom.Scope) (*vdom.VNode, error) {
	t := vdom.PropsAs[vdom.Value[todo]](cx).V
	act := vdom.UseContext[*todoActions](cx)
	class := "item"
	if t.Done {
		class = "item done"
	}
	return cx.Render(todoItemTpl,
		vdom.Nodes(vdom.Text(t.Title)),
		vdom.Attrs(
			vdom.Attr("class", class),
			vdom.On("click", func(*vdom.Event) { act.toggle(t.ID) }),
			vdom.On("click", func(ev *vdom.Event) {
				ev.StopPropagation()
				act.remove(t.ID)
			}),
		),
	), nil
})

// seedTodos is what the background loader returns.
var seedTodos = []string{"read the docs", "write a component"}

// Todo exercises components in keyed lists, context, memoized props,
// bubbling with stopPropagation and a background load finished through
// the runtime proxy.
var Todo = register(&App{
	Name:    "todo",
	Summary: "components in keyed lists, context, memoized props, offloaded load",
	Build: func() Instance {
		var clicks int
		root := vdom.NewComponent("TodoApp", func(cx *vdom.Scope) (*vdom.VNode, error) {
			items := vdom.UseSignalFunc(cx, []todo(nil), slices.Equal[[]todo])
			loaded := vdom.UseSignal(cx, false)
			activeOnly := vdom.UseSignal(cx, false)
			nextID := vdom.UseHook(cx, func() *int { n := 0; return &n })

			add := func(title string) {
				*nextID++
				items.Update(func(ts []todo) []todo {
					return append(slices.Clone(ts), todo{ID: *nextID, Title: title})
				})
			}
			vdom.UseFuture(cx, func() asyncrt.Future {
				return vdom.Offload(cx.Dom(), func(ctx context.Context) ([]string, error) {
					select {
					case <-time.After(time.Millisecond):
						return slices.Clone(seedTodos), nil
					case <-ctx.Done():
						return nil, ctx.Err()
					}
				}, func(titles []string, err error) {
					if err != nil {
						cx.Throw(fmt.Errorf("load todos: %w", err))
						return
					}
					for _, t := range titles {
						add(t)
					}
					loaded.Write(true)
				})
			})
			vdom.ProvideContext(cx, &todoActions{
				toggle: func(id int) {
					items.Update(func(ts []todo) []todo {
						out := slices.Clone(ts)
						for i := range out {
							if out[i].ID == id {
								out[i].Done = !out[i].Done
							}
						}
						return out
					})
				},
				remove: func(id int) {
					items.Update(func(ts []todo) []todo {
						return slices.DeleteFunc(slices.Clone(ts), func(t todo) bool { return t.ID == id })
					})
				},
			})

			if !loaded.Read() {
				return cx.Render(loadingTpl, nil, nil), nil
			}

			var rows []*vdom.VNode
			left := 0
			for _, t := range items.Read() {
				if !t.Done {
					left++
				}
				if activeOnly.Read() && t.Done {
					continue
				}
				rows = append(rows, cx.RenderKeyed(strconv.Itoa(t.ID), todoRowTpl,
					vdom.Nodes(vdom.Child(todoItem, vdom.ValueOf(t))), nil))
			}
			return cx.Render(todoTpl,
				vdom.Nodes(vdom.Fragment(rows...), vdom.Textf("%d left", left)),
				vdom.Attrs(
					vdom.On("click", func(*vdom.Event) { clicks++ }),
					vdom.On("submit", func(ev *vdom.Event) {
						if title, ok := ev.Data.(string); ok && title != "" {
							add(title)
						}
						ev.PreventDefault()
					}),
					vdom.On("click", func(*vdom.Event) { activeOnly.Write(false) }),
					vdom.On("click", func(*vdom.Event) { activeOnly.Write(true) }),
					vdom.On("click", func(*vdom.Event) {
						items.Update(func(ts []todo) []todo {
							return slices.DeleteFunc(slices.Clone(ts), func(t todo) bool { return t.Done })
						})
					}),
				),
			), nil
		})
		submit := func(title string) func(context.Context, *Host) error {
			return func(_ context.Context, h *Host) error { return h.Emit("submit", "new", 0, title) }
		}
		on := func(class string, nth int) func(context.Context, *Host) error {
			return func(_ context.Context, h *Host) error { return h.Emit("click", class, nth, nil) }
		}
		return Instance{
			Root: root,
			Steps: []Step{
				{Name: "load", Do: func(ctx context.Context, h *Host) error { return h.Await(ctx) }},
				{Name: "add", Do: submit("ship it")},
				{Name: "toggle first", Do: on("toggle", 0)},
				{Name: "show active", Do: on("show-active", 0)},
				{Name: "remove first visible", Do: on("remove", 0)},
				{Name: "show all", Do: on("show-all", 0)},
				{Name: "clear done", Do: on("clear", 0)},
				{Name: "count section clicks", Do: func(context.Context, *Host) error {
					// remove stops propagation, every other click bubbles
					// to the section.
					if clicks != 4 {
						return fmt.Errorf("section saw %d clicks, want 4", clicks)
					}
					return nil
				}},
			},
		}
	},
})
