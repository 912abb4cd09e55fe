package apps

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"loom/internal/mutation"
	"loom/internal/observ"
	"loom/internal/vdom"
)

func run(t *testing.T, a *App, cfg vdom.Config) ([]Result, *Host) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, h, err := Run(ctx, a.Build(), Options{Config: cfg})
	if err != nil {
		t.Fatalf("%s: %v", a.Name, err)
	}
	if items := h.Dom.Diagnostics().Items(); len(items) != 0 {
		t.Fatalf("%s: diagnostics: %v", a.Name, items)
	}
	if err := h.Doc.CheckInvariants(); err != nil {
		t.Fatalf("%s: %v", a.Name, err)
	}
	return res, h
}

func byStep(res []Result) map[string]Result {
	out := make(map[string]Result, len(res))
	for _, r := range res {
		out[r.Step] = r
	}
	return out
}

func TestEveryDemoRunsInBothModes(t *testing.T) {
	for _, a := range All() {
		for _, inline := range []bool{false, true} {
			name := a.Name
			if inline {
				name += "/inline"
			}
			t.Run(name, func(t *testing.T) {
				res, _ := run(t, a, vdom.Config{InlineTemplates: inline})
				if want := len(a.Build().Steps) + 1; len(res) != want {
					t.Fatalf("results = %d, want %d", len(res), want)
				}
				if res[0].Step != RebuildStep || len(res[0].Batch.Edits) == 0 {
					t.Fatalf("rebuild produced no edits")
				}
			})
		}
	}
}

func TestCounterSteps(t *testing.T) {
	res, h := run(t, Counter, vdom.Config{})
	steps := byStep(res)

	inc := steps["increment"].Batch.Edits
	if len(inc) != 2 || inc[0].Op != mutation.OpSetText && inc[1].Op != mutation.OpSetText {
		t.Fatalf("increment edits:\n%v", inc)
	}
	again := steps["increment again"].Batch.Edits
	if len(again) != 1 || again[0].Op != mutation.OpSetText || again[0].Text != "2" {
		t.Fatalf("second increment should only set text:\n%v", again)
	}
	want := `<div class="counter"><button class="dec">-</button><span data-sign="negative">-1</span><button class="inc">+</button></div>`
	if got := h.Doc.HTML(); got != want {
		t.Fatalf("html = %s", got)
	}
}

func TestListMinimalMoves(t *testing.T) {
	res, h := run(t, List, vdom.Config{})
	steps := byStep(res)

	swap := steps["swap b and d"].Batch.Edits
	moves := 0
	for _, m := range swap {
		switch m.Op {
		case mutation.OpInsertBefore, mutation.OpInsertAfter:
			moves++
		case mutation.OpRemove, mutation.OpCloneNodeChildren, mutation.OpCreateElement:
			t.Fatalf("swap created or removed nodes:\n%v", swap)
		}
	}
	if moves > 2 {
		t.Fatalf("swap used %d moves", moves)
	}
	if got := steps["clear"].HTML; got != `<ul class="letters" data-len="0"><!--placeholder--></ul>` {
		t.Fatalf("clear html = %s", got)
	}
	if got := h.Doc.TextContent(); got != "ABC" {
		t.Fatalf("final text = %q", got)
	}
}

func TestClockPauseSwallowsTicks(t *testing.T) {
	res, h := run(t, Clock, vdom.Config{})
	steps := byStep(res)
	if !strings.Contains(steps["a minute"].HTML, "00:01:01") {
		t.Fatalf("after a minute: %s", steps["a minute"].HTML)
	}
	if paused := steps["three seconds paused"]; len(paused.Batch.Edits) != 0 {
		t.Fatalf("paused clock rendered:\n%v", paused.Batch.Edits)
	}
	if !strings.Contains(steps["resume"].HTML, "00:01:02") {
		t.Fatalf("resume should replay the missed tick: %s", steps["resume"].HTML)
	}
	if !strings.Contains(h.Doc.HTML(), "00:01:03") {
		t.Fatalf("final: %s", h.Doc.HTML())
	}
	if h.Dom.Executor().Len() != 1 {
		t.Fatalf("ticker task missing")
	}
}

func TestTodoFlow(t *testing.T) {
	res, h := run(t, Todo, vdom.Config{})
	steps := byStep(res)
	if got := steps[RebuildStep].HTML; !strings.Contains(got, "loading") {
		t.Fatalf("rebuild html = %s", got)
	}
	if got := steps["load"].HTML; !strings.Contains(got, "read the docs") || !strings.Contains(got, "2 left") {
		t.Fatalf("load html = %s", got)
	}
	if got := steps["show active"].HTML; strings.Contains(got, "read the docs") {
		t.Fatalf("done item still shown: %s", got)
	}
	text := h.Doc.TextContent()
	if !strings.Contains(text, "ship it") || strings.Contains(text, "read the docs") || strings.Contains(text, "write a component") {
		t.Fatalf("final text = %q", text)
	}
	if !strings.Contains(text, "1 left") {
		t.Fatalf("final text = %q", text)
	}
	if st := h.Dom.Stats(); st.Scopes != 2 {
		t.Fatalf("scopes = %d, want app plus one item", st.Scopes)
	}
}

func TestRunRecordsTimings(t *testing.T) {
	tm := observ.NewTimer()
	var before []string
	_, _, err := Run(context.Background(), Counter.Build(), Options{
		Timer:  tm,
		Before: func(s string) { before = append(before, s) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if tm.Len() != len(Counter.Build().Steps)+1 || len(before) != tm.Len() {
		t.Fatalf("timer phases = %d, before calls = %d", tm.Len(), len(before))
	}
}

func TestFailingStepIsWrapped(t *testing.T) {
	in := Counter.Build()
	in.Steps = append(in.Steps, Step{Name: "missing", Do: func(_ context.Context, h *Host) error {
		return h.Click("nope")
	}})
	_, _, err := Run(context.Background(), in, Options{})
	if !errors.Is(err, ErrStep) || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("err = %v", err)
	}
}

func TestLookup(t *testing.T) {
	if _, err := Lookup("counter"); err != nil {
		t.Fatal(err)
	}
	if _, err := Lookup("nope"); err == nil || !strings.Contains(err.Error(), "todo") {
		t.Fatalf("err = %v", err)
	}
}
