package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Palette
	accent     = lipgloss.Color("#7D56F4")
	teal       = lipgloss.Color("#2DD4BF")
	amber      = lipgloss.Color("#FBBF24")
	green      = lipgloss.Color("#4ADE80")
	red        = lipgloss.Color("#F87171")
	dimWhite   = lipgloss.Color("#B0B0B0")
	panelBg    = lipgloss.AdaptiveColor{Light: "#F4F4F5", Dark: "#1C1C24"}
	subtleGrey = lipgloss.Color("#626262")

	headerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(1, 0, 0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Background(panelBg).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Background(accent).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(teal).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(amber)

	achievementStyle = lipgloss.NewStyle().
				Foreground(amber).
				Bold(true)

	lockedStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Faint(true)

	eventTimestampStyle = lipgloss.NewStyle().
				Foreground(subtleGrey)

	eventMessageStyle = lipgloss.NewStyle().
				Foreground(dimWhite)

	errorStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(subtleGrey).
			Padding(1, 0, 0, 2)
)

// levelColor returns the colour used for an event level
func levelColor(level string) lipgloss.Color {
	switch level {
	case LevelAchievement:
		return amber
	case LevelError:
		return red
	case LevelSaved:
		return green
	default:
		return teal
	}
}
