package observ

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Phase records the duration of one runtime phase: a rebuild, a scripted
// step, a drain cycle.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
	Edits int
}

// Timer tracks the phases of one CLI session.
type Timer struct {
	phases []Phase
	now    func() time.Time
}

// NewTimer creates an empty Timer on the wall clock.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8), now: time.Now} }

// Begin starts a phase and returns its index.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.phases = append(t.phases, Phase{Name: name, Start: t.now()})
	return len(t.phases) - 1
}

// End finishes a phase by index. Out of range indices are ignored.
func (t *Timer) End(idx int, note string) {
	t.EndEdits(idx, note, 0)
}

// EndEdits finishes a phase and records how many mutations it emitted.
func (t *Timer) EndEdits(idx int, note string, edits int) {
	if t == nil || idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = t.now().Sub(p.Start)
	p.Note = note
	p.Edits = edits
}

// Len returns the number of recorded phases.
func (t *Timer) Len() int {
	if t == nil {
		return 0
	}
	return len(t.phases)
}

// Summary renders the recorded phases for a terminal.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-20s %9.3f ms", p.Name, p.DurationMS)
		if p.Edits > 0 {
			fmt.Fprintf(&sb, "  %s edits", humanize.Comma(int64(p.Edits)))
		}
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-20s %9.3f ms\n", "total", report.TotalMS)
	return sb.String()
}

// PhaseReport is the serialisable form of a Phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
	Edits      int     `json:"edits,omitempty"`
}

// Report aggregates every phase and the total in milliseconds.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report builds the phase list and the total duration.
func (t *Timer) Report() Report {
	if t.Len() == 0 {
		return Report{}
	}
	report := Report{
		Phases: make([]PhaseReport, len(t.phases)),
	}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
			Edits:      phase.Edits,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
