package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"guideprogress/pkg/progress"
)

// TUI is the full-screen session dashboard. It satisfies ui.SessionView.
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a dashboard showing rec
func NewTUI(rec progress.Record, totalSections int, opts ...tea.ProgramOption) *TUI {
	model := NewModel(rec, totalSections)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	program := tea.NewProgram(&model, opts...)

	return &TUI{
		program: program,
		model:   &model,
	}
}

// Run blocks until the user quits or Stop is called
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Refresh shows a new snapshot of the record
func (t *TUI) Refresh(rec progress.Record) {
	t.Send(RecordMsg{Record: rec})
}

// Unlocked announces an achievement
func (t *TUI) Unlocked(id string) {
	t.Send(AchievementMsg{ID: id})
}

// StorageFailed reports a write that did not reach storage
func (t *TUI) StorageFailed(err error) {
	t.Send(StorageErrorMsg{Err: err})
}
