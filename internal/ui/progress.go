// Package ui renders the live progress of a fuzzing run in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Event is a snapshot of the run after one loop pull.
type Event struct {
	Attempts      int
	Programs      int
	Target        int // requested program count, negative when unbounded
	Covered       int
	Total         int
	Bugs          int
	ParseFailures int
	File          string // last written file
	Note          string // optional log line
}

const maxNotes = 5

type progressModel struct {
	title   string
	events  <-chan Event
	spinner spinner.Model
	prog    progress.Model
	last    Event
	notes   []string
	width   int
	done    bool
}

type eventMsg Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model fed by events. The model
// quits when the channel is closed.
func NewProgressModel(title string, events <-chan Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 60

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.apply(Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
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
			m.prog.Width = max(msg.Width-4, 10)
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) apply(ev Event) tea.Cmd {
	m.last = ev
	if ev.Note != "" {
		m.notes = append(m.notes, ev.Note)
		if len(m.notes) > maxNotes {
			m.notes = m.notes[len(m.notes)-maxNotes:]
		}
	}
	return m.prog.SetPercent(coverageRatio(ev))
}

func coverageRatio(ev Event) float64 {
	if ev.Total <= 0 {
		return 0
	}
	return float64(ev.Covered) / float64(ev.Total)
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	header := m.title
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	ev := m.last
	programs := fmt.Sprintf("%d", ev.Programs)
	if ev.Target >= 0 {
		programs = fmt.Sprintf("%d/%d", ev.Programs, ev.Target)
	}
	fmt.Fprintf(&b, "  %-10s %s\n", "programs", programs)
	fmt.Fprintf(&b, "  %-10s %d\n", "attempts", ev.Attempts)
	fmt.Fprintf(&b, "  %-10s %s\n", "bugs", countStyle(ev.Bugs, "1").Render(fmt.Sprintf("%d", ev.Bugs)))
	fmt.Fprintf(&b, "  %-10s %s\n", "rejected", countStyle(ev.ParseFailures, "3").Render(fmt.Sprintf("%d", ev.ParseFailures)))
	if ev.File != "" {
		fmt.Fprintf(&b, "  %-10s %s\n", "last", truncate(ev.File, m.width-15))
	}
	for _, note := range m.notes {
		b.WriteString("  ")
		b.WriteString(dim.Render(truncate(note, m.width-4)))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n  coverage %d/%d\n", ev.Covered, ev.Total)
	if m.done {
		b.WriteString(m.prog.ViewAs(coverageRatio(ev)))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func countStyle(n int, color string) lipgloss.Style {
	if n == 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
