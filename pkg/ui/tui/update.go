package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"guideprogress/pkg/progress"
	"guideprogress/pkg/ui"
)

// RecordMsg carries a fresh snapshot of the learner's record
type RecordMsg struct {
	Record progress.Record
}

// AchievementMsg is sent when an achievement unlocks
type AchievementMsg struct {
	ID string
}

// StorageErrorMsg is sent when the store could not persist a change
type StorageErrorMsg struct {
	Err error
}

// TickMsg is sent every second to advance the session clock
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case RecordMsg:
		m.SetRecord(msg.Record)
		m.AddEvent(LevelSaved, fmt.Sprintf("Progress saved (%d%%)", m.Completion()))
		return m, nil

	case AchievementMsg:
		m.AddEvent(LevelAchievement, "Unlocked: "+ui.AchievementTitle(msg.ID))
		return m, nil

	case StorageErrorMsg:
		m.failures++
		m.AddEvent(LevelError, "Not saved: "+msg.Err.Error())
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "esc", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.events = []Event{}
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
