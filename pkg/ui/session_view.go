package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"guideprogress/pkg/progress"
)

// SessionView shows a running study session
type SessionView interface {
	Refresh(rec progress.Record)
	Unlocked(id string)
	StorageFailed(err error)
}

// LineSession redraws a single status line. It is used when stdout is not
// a terminal that can host the full-screen dashboard.
type LineSession struct {
	mu            sync.Mutex
	record        progress.Record
	totalSections int
	startTime     time.Time
	now           func() time.Time
	failures      int
	interactive   bool
}

// NewLineSession creates a line view. With interactive set the line is
// redrawn in place; otherwise each update prints a new line.
func NewLineSession(rec progress.Record, totalSections int, interactive bool) *LineSession {
	return &LineSession{
		record:        rec,
		totalSections: totalSections,
		startTime:     time.Now(),
		now:           time.Now,
		interactive:   interactive,
	}
}

// Refresh replaces the displayed record
func (l *LineSession) Refresh(rec progress.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record = rec
	l.print()
}

// Unlocked prints an achievement line below the status
func (l *LineSession) Unlocked(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.interactive {
		fmt.Fprintln(Output())
	}
	fmt.Fprintf(Output(), "%s %s\n", Magenta("★"), AchievementTitle(id))
	l.print()
}

// StorageFailed counts a failed write
func (l *LineSession) StorageFailed(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures++
	l.print()
}

// Tick redraws the elapsed time
func (l *LineSession) Tick() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.print()
}

// Line renders the current status line without printing it
func (l *LineSession) Line() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.line()
}

func (l *LineSession) line() string {
	pct := progress.CompletionPercentage(l.record, l.totalSections)
	elapsed := l.now().Sub(l.startTime)

	line := fmt.Sprintf("%s %s • %d/%d sections • %s total • %s",
		Cyan("session"),
		CompletionBar(pct, DefaultBarWidth),
		len(l.record.SectionsVisited),
		l.totalSections,
		FormatMinutes(l.record.TotalTimeSpent),
		formatClock(elapsed),
	)
	if l.failures > 0 {
		line += " • " + Red(fmt.Sprintf("%d unsaved", l.failures))
	}
	return line
}

func (l *LineSession) print() {
	if l.interactive {
		fmt.Fprintf(Output(), "\r%s\r%s", strings.Repeat(" ", 100), l.line())
		return
	}
	fmt.Fprintln(Output(), l.line())
}

// formatClock renders d as mm:ss or hh:mm:ss
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
