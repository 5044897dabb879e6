package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"guideprogress/pkg/progress"
	"guideprogress/pkg/ui"
)

// View renders the dashboard
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	width := (m.width - 4) / 2
	if width < 30 {
		width = m.width - 2
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderProgressPanel(width),
		m.renderAchievementsPanel(width),
	)
	right := m.renderEventsPanel(width)

	var body string
	if width == m.width-2 {
		body = lipgloss.JoinVertical(lipgloss.Left, left, right)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
	}

	sections := []string{
		headerStyle.Render(m.spinner.View() + " Study session " + ui.FormatMinutes(m.record.TotalTimeSpent) + " logged"),
		body,
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("q quit • ? help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderProgressPanel renders completion and counters
func (m *Model) renderProgressPanel(width int) string {
	title := titleStyle.Render(" PROGRESS ")

	b := m.bar
	b.Width = width - 8
	if b.Width < 10 {
		b.Width = 10
	}

	pct := m.Completion()
	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Completion:"), statsValueStyle.Render(fmt.Sprintf("%d%%", pct))),
		b.ViewAs(float64(pct) / 100),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Sections:"), statsValueStyle.Render(fmt.Sprintf("%d/%d", len(m.record.SectionsVisited), m.totalSections))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Exercises:"), statsValueStyle.Render(fmt.Sprintf("%d", len(m.record.ExercisesCompleted)))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("This session:"), statsValueStyle.Render(formatDuration(m.Elapsed()))),
	}
	if m.record.LastVisited != "" {
		stats = append(stats, fmt.Sprintf("%s %s", statsLabelStyle.Render("Last visit:"), statsValueStyle.Render(m.record.LastVisited)))
	}
	if m.failures > 0 {
		stats = append(stats, errorStyle.Render(fmt.Sprintf("%d change(s) not saved", m.failures)))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(stats, "\n")),
	)
}

// renderAchievementsPanel lists unlocked achievements, then the built-in
// ones still locked
func (m *Model) renderAchievementsPanel(width int) string {
	title := titleStyle.Render(" ACHIEVEMENTS ")

	var items []string
	for _, id := range m.record.Achievements {
		items = append(items, achievementStyle.Render("★ "+ui.AchievementTitle(id)))
	}
	for _, rule := range progress.DefaultRules() {
		if !m.record.HasAchievement(rule.Achievement) {
			items = append(items, lockedStyle.Render("☆ "+ui.AchievementTitle(rule.Achievement)))
		}
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(items, "\n")),
	)
}

// renderEventsPanel renders the newest activity entries
func (m *Model) renderEventsPanel(width int) string {
	title := titleStyle.Render(" ACTIVITY ")

	start := len(m.events) - 10
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, e := range m.events[start:] {
		timestamp := eventTimestampStyle.Render(e.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(levelColor(e.Level)).Bold(true).Render(fmt.Sprintf("[%-6s]", e.Level))

		msg := e.Message
		if limit := width - 25; limit > 3 && len(msg) > limit {
			msg = msg[:limit-3] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", timestamp, level, eventMessageStyle.Render(msg)))
	}

	content := strings.Join(lines, "\n")
	if content == "" {
		content = lockedStyle.Render("Nothing yet. Time is saved every few minutes.")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  q/esc    - End the session and save the time spent
  ?        - Toggle this help
  ctrl+l   - Clear the activity panel
`
	return panelStyle.Width(m.width - 2).Render(help)
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
