package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"guideprogress/pkg/config"
	"guideprogress/pkg/progress"
)

// capture redirects output to a buffer with colours off for the test
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	prevOut, prevColor := Output(), ColorEnabled()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	SetColorEnabled(false)
	t.Cleanup(func() {
		SetOutput(prevOut)
		SetColorEnabled(prevColor)
	})
	return buf
}

type recordingSender struct {
	titles   []string
	messages []string
	err      error
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return r.err
}

func TestColorToggle(t *testing.T) {
	capture(t)

	assert.Equal(t, "plain", Green("plain"))

	SetColorEnabled(true)
	assert.Equal(t, "\033[32mplain\033[0m", Green("plain"))
}

func TestPrintHelpers(t *testing.T) {
	buf := capture(t)

	PrintError("Failed to save", errors.New("boom"))
	PrintWarning("Careful")
	PrintInfo("Backend", "sqlite")
	PrintSuccess("Done")

	assert.Equal(t, "Failed to save: boom\nCareful\nBackend: sqlite\nDone\n", buf.String())
}

func TestCompletionBar(t *testing.T) {
	capture(t)

	tests := []struct {
		pct   int
		width int
		want  string
	}{
		{0, 10, "[░░░░░░░░░░]   0%"},
		{50, 10, "[█████░░░░░]  50%"},
		{100, 10, "[██████████] 100%"},
		{150, 4, "[████] 100%"},
		{-5, 4, "[░░░░]   0%"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CompletionBar(tt.pct, tt.width))
	}

	assert.Equal(t, DefaultBarWidth, strings.Count(CompletionBar(30, 0), ProgressBar)+strings.Count(CompletionBar(30, 0), ProgressEmpty))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "0m", FormatMinutes(0))
	assert.Equal(t, "45m", FormatMinutes(45))
	assert.Equal(t, "1h 00m", FormatMinutes(60))
	assert.Equal(t, "2h 05m", FormatMinutes(125))
}

func TestPrintStatus(t *testing.T) {
	buf := capture(t)

	rec := progress.DefaultRecord()
	rec.SectionsVisited = []string{"intro", "setup"}
	rec.TotalTimeSpent = 90
	rec.LastVisited = "setup"
	rec.Achievements = []string{progress.AchievementFirstSection, "night-owl"}

	PrintStatus(rec, 6)
	out := buf.String()

	assert.Contains(t, out, "33%")
	assert.Contains(t, out, "2/6")
	assert.Contains(t, out, "1h 30m")
	assert.Contains(t, out, "Last visit: setup")
	assert.Contains(t, out, "First Steps")
	assert.Contains(t, out, "night-owl")
}

func TestPrintStatusEmpty(t *testing.T) {
	buf := capture(t)
	PrintStatus(progress.DefaultRecord(), 6)

	assert.Contains(t, buf.String(), "none yet")
	assert.NotContains(t, buf.String(), "Last visit")
}

func TestNotifierAchievement(t *testing.T) {
	buf := capture(t)
	sender := &recordingSender{err: errors.New("no notification daemon")}

	n := NewNotifierWithSender(sender)
	n.Achievement(progress.AchievementHandsOnLearner)

	assert.Contains(t, buf.String(), "Hands-on Learner")
	require.Len(t, sender.messages, 1)
	assert.Equal(t, "Hands-on Learner", sender.messages[0])
}

func TestNotifierDisabledOrQuiet(t *testing.T) {
	buf := capture(t)

	NewNotifier(config.NotificationConfig{Enabled: false, Desktop: true}, false).Achievement("x")
	assert.Empty(t, buf.String())

	n := NewNotifier(config.NotificationConfig{Enabled: true}, true)
	n.Achievement("x")
	n.StorageError(errors.New("disk full"))
	assert.Empty(t, buf.String())
}

func TestNotifierStorageError(t *testing.T) {
	buf := capture(t)
	NewNotifier(config.NotificationConfig{Enabled: true}, false).StorageError(errors.New("disk full"))
	assert.Equal(t, "Progress may not be saved: disk full\n", buf.String())
}

func TestAchievementTitle(t *testing.T) {
	assert.Equal(t, "First Steps", AchievementTitle(progress.AchievementFirstSection))
	assert.Equal(t, "custom-badge", AchievementTitle("custom-badge"))
}

func TestShellSafeStrings(t *testing.T) {
	assert.Equal(t, `it''s`, powershellSafe(`it's`))
	assert.Equal(t, `say 'hi' /o/`, appleScriptSafe(`say "hi" \o\`))
}

func TestLineSession(t *testing.T) {
	buf := capture(t)

	rec := progress.DefaultRecord()
	rec.SectionsVisited = []string{"intro", "setup", "basics"}
	rec.TotalTimeSpent = 20

	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	l := NewLineSession(rec, 6, false)
	l.startTime = start
	l.now = func() time.Time { return start.Add(2*time.Minute + 5*time.Second) }

	assert.Equal(t, "session [██████████░░░░░░░░░░]  50% • 3/6 sections • 20m total • 02:05", l.Line())

	l.StorageFailed(errors.New("disk full"))
	assert.Contains(t, l.Line(), "1 unsaved")

	l.Unlocked(progress.AchievementFirstSection)
	assert.Contains(t, buf.String(), "★ First Steps\n")

	rec.TotalTimeSpent = 22
	l.Refresh(rec)
	assert.Contains(t, l.Line(), "22m total")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4, "non-interactive mode prints one line per update")
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", formatClock(-time.Minute))
	assert.Equal(t, "59:59", formatClock(time.Hour-time.Second))
	assert.Equal(t, "01:00:00", formatClock(time.Hour))
}
