package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "out/pr...", truncate("out/program_42.txt", 9))
	assert.Equal(t, "ou", truncate("out/program_42.txt", 2))
	assert.Equal(t, "anything", truncate("anything", 0))
}

func TestModelAppliesEventsAndQuits(t *testing.T) {
	events := make(chan Event, 2)
	m := NewProgressModel("fuzzing expr.yaml", events).(*progressModel)

	events <- Event{Attempts: 3, Programs: 2, Target: 10, Covered: 4, Total: 8, Bugs: 1, File: "out/p_1.txt", Note: "[i] program triggers a bug => keep program"}
	close(events)

	msg := m.listenForEvent()()
	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "2/10")
	assert.Contains(t, view, "coverage 4/8")
	assert.Contains(t, view, "out/p_1.txt")
	assert.Contains(t, view, "keep program")
	assert.InDelta(t, 0.5, coverageRatio(m.last), 1e-9)

	msg = m.listenForEvent()()
	assert.IsType(t, doneMsg{}, msg)
	m.Update(msg)
	assert.True(t, strings.HasPrefix(m.View(), "\x1b") || strings.Contains(m.View(), "done: fuzzing expr.yaml"))
	_, cmd = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Nil(t, cmd)
	assert.Equal(t, 120, m.width)
}

func TestNotesAreBounded(t *testing.T) {
	m := NewProgressModel("x", nil).(*progressModel)
	for i := range 12 {
		m.apply(Event{Note: strings.Repeat("n", i+1)})
	}
	assert.Len(t, m.notes, maxNotes)
	assert.Equal(t, strings.Repeat("n", 12), m.notes[maxNotes-1])
}
