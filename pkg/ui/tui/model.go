package tui

import (
	"time"

	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"guideprogress/pkg/progress"
)

// Event levels shown in the activity panel
const (
	LevelInfo        = "INFO"
	LevelAchievement = "UNLOCK"
	LevelSaved       = "SAVED"
	LevelError       = "ERROR"
)

// Event is an entry in the activity panel
type Event struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the session dashboard state
type Model struct {
	spinner spinner.Model
	bar     bar.Model

	record        progress.Record
	totalSections int
	sessionStart  time.Time
	now           func() time.Time
	failures      int

	width     int
	height    int
	showHelp  bool
	events    []Event
	maxEvents int
}

// NewModel creates a dashboard for rec against a catalog of totalSections
func NewModel(rec progress.Record, totalSections int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(teal)

	b := bar.New(bar.WithGradient(string(teal), string(accent)), bar.WithoutPercentage())
	b.Width = 40

	return Model{
		spinner:       s,
		bar:           b,
		record:        rec,
		totalSections: totalSections,
		sessionStart:  time.Now(),
		now:           time.Now,
		events:        []Event{},
		maxEvents:     50,
	}
}

// Init starts the spinner and the clock
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetRecord replaces the displayed record
func (m *Model) SetRecord(rec progress.Record) {
	m.record = rec
}

// Record returns the displayed record
func (m *Model) Record() progress.Record {
	return m.record
}

// Completion returns the displayed completion percentage
func (m *Model) Completion() int {
	return progress.CompletionPercentage(m.record, m.totalSections)
}

// Elapsed returns the time since the dashboard started
func (m *Model) Elapsed() time.Duration {
	return m.now().Sub(m.sessionStart)
}

// Failures returns how many storage writes failed during the session
func (m *Model) Failures() int {
	return m.failures
}

// AddEvent appends to the activity panel, keeping the newest maxEvents
func (m *Model) AddEvent(level, message string) {
	m.events = append(m.events, Event{
		Time:    m.now(),
		Level:   level,
		Message: message,
	})

	if len(m.events) > m.maxEvents {
		m.events = m.events[len(m.events)-m.maxEvents:]
	}
}

// Events returns a copy of the activity panel entries
func (m *Model) Events() []Event {
	events := make([]Event, len(m.events))
	copy(events, m.events)
	return events
}
