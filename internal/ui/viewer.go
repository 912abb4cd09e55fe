package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"loom/internal/mutation"
)

// Status is the state of one scripted step.
type Status uint8

const (
	StatusQueued Status = iota
	StatusRunning
	StatusDone
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	default:
		return ""
	}
}

// Event reports progress of a demo step. Batch carries the edits the step
// produced once it is done; HTML is the document after applying them.
type Event struct {
	Step   string
	Status Status
	Batch  mutation.Batch
	HTML   string
	Err    error
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

// OnEvent sends ev unless the sink has no channel.
func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

type viewerModel struct {
	title   string
	events  <-chan Event
	spinner spinner.Model
	prog    progress.Model
	items   []stepItem
	index   map[string]int
	html    string
	width   int
	done    bool
}

type stepItem struct {
	name   string
	status Status
	edits  int
	ops    string
}

type eventMsg Event
type doneMsg struct{}

// NewViewerModel returns a Bubble Tea model that renders demo steps, the
// size of each mutation batch and the latest document.
func NewViewerModel(title string, steps []string, events <-chan Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]stepItem, 0, len(steps))
	index := make(map[string]int, len(steps))
	for i, step := range steps {
		items = append(items, stepItem{name: step})
		index[step] = i
	}
	return &viewerModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *viewerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *viewerModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := 24
	opsWidth := max(m.width-nameWidth-26, 10)
	for _, item := range m.items {
		status := styleStatus(item.status).Render(fmt.Sprintf("%8s", item.status))
		edits := ""
		if item.status == StatusDone {
			edits = fmt.Sprintf("%4d edits", item.edits)
		}
		fmt.Fprintf(&b, "  %s %-*s %10s  %s\n", status, nameWidth, truncate(item.name, nameWidth), edits, truncate(item.ops, opsWidth))
	}

	if m.html != "" {
		docStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).PaddingLeft(2)
		b.WriteString("\n")
		b.WriteString(docStyle.Render(truncate(m.html, m.width-4)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *viewerModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *viewerModel) applyEvent(ev Event) tea.Cmd {
	idx, ok := m.index[ev.Step]
	if !ok {
		m.items = append(m.items, stepItem{name: ev.Step})
		idx = len(m.items) - 1
		m.index[ev.Step] = idx
	}
	item := &m.items[idx]
	item.status = ev.Status
	switch ev.Status {
	case StatusDone:
		item.edits = len(ev.Batch.Edits)
		item.ops = summarize(ev.Batch.Edits)
		m.html = ev.HTML
	case StatusError:
		if ev.Err != nil {
			item.ops = ev.Err.Error()
		}
	}

	finished := 0
	for _, it := range m.items {
		if it.status == StatusDone || it.status == StatusError {
			finished++
		}
	}
	return m.prog.SetPercent(float64(finished) / float64(len(m.items)))
}

// summarize counts edits per op in first-seen order: "SetText×2 Remove×1".
func summarize(edits []mutation.Mutation) string {
	var order []mutation.Op
	counts := make(map[mutation.Op]int)
	for _, e := range edits {
		if counts[e.Op] == 0 {
			order = append(order, e.Op)
		}
		counts[e.Op]++
	}
	parts := make([]string, len(order))
	for i, op := range order {
		parts[i] = fmt.Sprintf("%s×%d", op, counts[op])
	}
	return strings.Join(parts, " ")
}

func styleStatus(status Status) lipgloss.Style {
	switch status {
	case StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case StatusRunning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
