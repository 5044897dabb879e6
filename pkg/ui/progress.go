package ui

import (
	"fmt"
	"strings"

	"guideprogress/pkg/progress"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"

	// DefaultBarWidth is the number of cells in a completion bar
	DefaultBarWidth = 20
)

// CompletionBar renders pct (clamped to 0-100) as a bar of width cells
func CompletionBar(pct, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100

	return fmt.Sprintf("[%s%s] %3d%%",
		Green(strings.Repeat(ProgressBar, filled)),
		Dim(strings.Repeat(ProgressEmpty, width-filled)),
		pct)
}

// FormatMinutes renders a minute count as "45m" or "2h 05m"
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

// PrintStatus prints the learner's progress card
func PrintStatus(rec progress.Record, totalSections int) {
	pct := progress.CompletionPercentage(rec, totalSections)
	w := Output()

	fmt.Fprintf(w, "%s %s\n", Cyan("Completion:"), CompletionBar(pct, DefaultBarWidth))
	fmt.Fprintf(w, "%s %s\n", Cyan("Sections:  "), Yellow(fmt.Sprintf("%d/%d", len(rec.SectionsVisited), totalSections)))
	fmt.Fprintf(w, "%s %s\n", Cyan("Exercises: "), Yellow(fmt.Sprintf("%d", len(rec.ExercisesCompleted))))
	fmt.Fprintf(w, "%s %s\n", Cyan("Time spent:"), Yellow(FormatMinutes(rec.TotalTimeSpent)))
	if rec.LastVisited != "" {
		fmt.Fprintf(w, "%s %s\n", Cyan("Last visit:"), Yellow(rec.LastVisited))
	}

	if len(rec.Achievements) == 0 {
		fmt.Fprintf(w, "%s %s\n", Cyan("Achievements:"), Dim("none yet"))
		return
	}
	fmt.Fprintf(w, "%s\n", Cyan("Achievements:"))
	for _, id := range rec.Achievements {
		fmt.Fprintf(w, "  %s %s\n", Magenta("★"), AchievementTitle(id))
	}
}
