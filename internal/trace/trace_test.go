package trace

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelAllows(t *testing.T) {
	tests := []struct {
		level Level
		layer Layer
		want  bool
	}{
		{LevelOff, LayerRun, false},
		{LevelError, LayerRun, false},
		{LevelPhase, LayerCycle, true},
		{LevelPhase, LayerScope, false},
		{LevelDetail, LayerScope, true},
		{LevelDetail, LayerNode, false},
		{LevelDebug, LayerNode, true},
	}
	for _, tt := range tests {
		if got := tt.level.Allows(tt.layer); got != tt.want {
			t.Errorf("%s.Allows(%s) = %v, want %v", tt.level, tt.layer, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	if l, err := ParseLevel(" Detail "); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if m, err := ParseMode("BOTH"); err != nil || m != ModeBoth {
		t.Fatalf("ParseMode = %v, %v", m, err)
	}
	if f, err := ParseFormat("chrome"); err != nil || f != FormatChrome {
		t.Fatalf("ParseFormat = %v, %v", f, err)
	}
	if formatFor("t.ndjson") != FormatNDJSON || formatFor("t.json") != FormatChrome || formatFor("-") != FormatText {
		t.Fatal("formatFor")
	}
}

func TestStreamText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStream(&buf, LevelDetail, FormatText)
	cycle := Begin(tr, LayerCycle, "drain", nil).Cycle(7)
	Begin(tr, LayerScope, "render:Counter", cycle).Int("renders", 2).Edits(1).End("")
	if sp := Begin(tr, LayerNode, "diff", cycle); sp != nil {
		t.Fatal("node span emitted at detail level")
	}
	cycle.Edits(3).End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[2], "c7") || !strings.Contains(lines[2], "◂ render:Counter edits=1 renders=2") {
		t.Fatalf("unexpected line %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "◂ drain edits=3") {
		t.Fatalf("unexpected line %q", lines[3])
	}
}

func TestStreamNDJSONCarriesParent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStream(&buf, LevelDebug, FormatNDJSON)
	run := Begin(tr, LayerRun, "run", nil)
	Point(tr, LayerNode, "keyed", "old=3 new=3", run)
	run.End("")

	var events []jsonEvent
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		var ev jsonEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad line %q: %v", line, err)
		}
		events = append(events, ev)
	}
	if len(events) != 3 || events[1].Parent != run.ID() || events[1].Layer != "node" {
		t.Fatalf("events = %+v", events)
	}
}

func TestStreamChromeIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStream(&buf, LevelDebug, FormatChrome)
	Begin(tr, LayerRun, "run", nil).End("")
	Point(tr, LayerCycle, "event:click", "", nil)
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	tr.Emit(&Event{Kind: KindPoint, Layer: LayerRun, Name: "late"})

	var doc struct {
		TraceEvents []map[string]any `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid chrome json: %v\n%s", err, buf.String())
	}
	if len(doc.TraceEvents) != 3 || doc.TraceEvents[2]["ph"] != "i" {
		t.Fatalf("unexpected events %v", doc.TraceEvents)
	}
}

func TestRingKeepsNewest(t *testing.T) {
	tr := NewRing(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d"} {
		Point(tr, LayerCycle, name, "", nil)
	}
	snap := tr.Snapshot()
	if len(snap) != 3 || snap[0].Name != "b" || snap[2].Name != "d" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if tr.Dropped() != 1 {
		t.Fatalf("dropped = %d", tr.Dropped())
	}
	var buf bytes.Buffer
	if err := tr.Dump(&buf, FormatChrome); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("dump:\n%s", buf.String())
	}
}

func TestNewModes(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || Enabled(tr) {
		t.Fatalf("off tracer: %v %v", tr, err)
	}
	if sp := Begin(tr, LayerRun, "x", nil); sp != nil || sp.ID() != 0 {
		t.Fatal("disabled span must be nil")
	}

	var buf bytes.Buffer
	tr, err = New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf, RingSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	Point(tr, LayerCycle, "tick", "", nil)
	ring, ok := Ring(tr)
	if !ok || len(ring.Snapshot()) != 1 || buf.Len() == 0 {
		t.Fatalf("both mode: ring=%v stream=%q", ok, buf.String())
	}
}

func TestHeartbeatReportsOpenSpans(t *testing.T) {
	tr := NewRing(64, LevelPhase)
	sp := Begin(tr, LayerCycle, "stuck", nil)
	hb := StartHeartbeat(tr, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for {
		beats := 0
		for _, ev := range tr.Snapshot() {
			if ev.Kind == KindHeartbeat {
				beats++
				if !strings.Contains(ev.Detail, "open=") {
					t.Fatalf("detail = %q", ev.Detail)
				}
			}
		}
		if beats > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no heartbeat")
		}
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()
	sp.End("")
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatal("heartbeat on a disabled tracer")
	}
}

func TestContext(t *testing.T) {
	tr := NewRing(1, LevelPhase)
	if FromContext(WithTracer(t.Context(), tr)) != Tracer(tr) {
		t.Fatal("tracer lost")
	}
	if FromContext(t.Context()) != Nop {
		t.Fatal("missing tracer must be Nop")
	}
}
