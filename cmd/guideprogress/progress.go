package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"guideprogress/pkg/progress"
	"guideprogress/pkg/ui"
)

// identifierArg validates the single section, exercise or achievement id
func identifierArg(kind string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one %s id", kind)
		}
		if strings.TrimSpace(args[0]) == "" {
			return fmt.Errorf("%s id must not be empty", kind)
		}
		return nil
	}
}

func newVisitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "visit <section>",
		Short: "Record a visit to a guide section",
		Long: `Record that you have visited a guide section.

Visiting the same section again changes nothing. Your first visit unlocks
"First Steps"; visiting every section unlocks "Completionist".`,
		Example: `  guideprogress visit getting-started
  guideprogress visit advanced-topics --profile work`,
		Args: identifierArg("section"),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer w.Close()

			id := strings.TrimSpace(args[0])
			rec := w.store.MarkSectionVisited(id)
			a.say(fmt.Sprintf("Visited %s (%d%% complete)", id, progress.CompletionPercentage(rec, w.store.TotalSections())))
			return nil
		},
	}
}

func newCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "complete <exercise>",
		Short:   "Mark an exercise as completed",
		Example: `  guideprogress complete ex-3-1`,
		Args:    identifierArg("exercise"),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer w.Close()

			id := strings.TrimSpace(args[0])
			rec := w.store.MarkExerciseCompleted(id)
			a.say(fmt.Sprintf("Completed %s (%d exercise(s) done)", id, len(rec.ExercisesCompleted)))
			return nil
		},
	}
}

// maxTimeArg bounds a single time entry to one year of minutes
const maxTimeArg = 365 * 24 * 60

func newTimeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "time <minutes>",
		Short:   "Add study time in whole minutes",
		Example: `  guideprogress time 25`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("minutes must be a whole number: %w", err)
			}
			if minutes < 0 {
				return errors.New("minutes must not be negative")
			}
			if minutes > maxTimeArg {
				return fmt.Errorf("minutes must be at most %d", maxTimeArg)
			}

			w, err := a.openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer w.Close()

			rec := w.store.UpdateTimeSpent(minutes)
			a.say(fmt.Sprintf("Added %s (total %s)", ui.FormatMinutes(minutes), ui.FormatMinutes(rec.TotalTimeSpent)))
			return nil
		},
	}
}

func newAchieveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "achieve <achievement>",
		Short: "Unlock an achievement directly",
		Long: `Unlock an achievement that is not derived from the section or exercise
counters. Unlocking an achievement you already have changes nothing.`,
		Example: `  guideprogress achieve night-owl`,
		Args:    identifierArg("achievement"),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer w.Close()

			id := strings.TrimSpace(args[0])
			before := w.store.Snapshot()
			w.store.AddAchievement(id)
			if before.HasAchievement(id) {
				a.say("Already unlocked: " + ui.AchievementTitle(id))
			}
			return nil
		},
	}
}

// statusJSON is the machine-readable form of the status command
type statusJSON struct {
	progress.Record
	Completion    int    `json:"completionPercentage"`
	TotalSections int    `json:"totalSections"`
	Key           string `json:"storageKey"`
}

func newStatusCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show your progress and achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer w.Close()

			rec := w.store.Snapshot()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(statusJSON{
					Record:        rec.Clone(),
					Completion:    w.store.CompletionPercentage(),
					TotalSections: w.store.TotalSections(),
					Key:           w.store.Key(),
				})
			}

			if !a.quiet {
				ui.PrintBanner()
			}
			ui.PrintStatus(rec, w.store.TotalSections())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all progress for the current profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Fprint(cmd.OutOrStdout(), "This erases all progress for this profile. Type 'yes' to continue: ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
					return errors.New("reset cancelled")
				}
			}

			w, err := a.openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer w.Close()

			w.store.Reset()
			a.say("Progress reset")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
