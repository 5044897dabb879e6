package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"guideprogress/pkg/progress"
	"guideprogress/pkg/ui"
	"guideprogress/pkg/ui/tui"
)

func newSessionCmd(a *app) *cobra.Command {
	var (
		plain    bool
		autosave time.Duration
	)

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Time a study session",
		Long: `Start a study session. The time you spend is added to your total when
the session ends: press q in the dashboard, or Ctrl+C, or send SIGTERM.

Whole minutes are saved every --autosave interval so a crash loses at most
one interval. Leftover seconds carry over to the next save.`,
		Example: `  guideprogress session
  guideprogress session --plain --autosave 1m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.openWorkspace(cmd)
			if err != nil {
				return err
			}
			defer w.Close()

			return a.runSession(cmd, w, plain || !isTerminal(os.Stdout) || !isTerminal(os.Stdin), autosave)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print status lines instead of the dashboard")
	cmd.Flags().DurationVar(&autosave, "autosave", 5*time.Minute, "how often elapsed minutes are saved (0 disables)")
	return cmd
}

func (a *app) runSession(cmd *cobra.Command, w *workspace, plain bool, autosave time.Duration) error {
	start := w.store.Snapshot()
	total := w.store.TotalSections()

	session := progress.WatchSession(cmd.Context(), w.store, os.Interrupt, syscall.SIGTERM)

	var (
		view    ui.SessionView
		runView func() error
	)
	if plain {
		line := ui.NewLineSession(start, total, false)
		view = line
		runView = func() error {
			if !a.quiet {
				ui.PrintInfo("Session started", time.Now().Format("15:04")+" (Ctrl+C to end)")
			}
			<-session.Done()
			return nil
		}
	} else {
		dash := tui.NewTUI(start, total)
		view = dash
		runView = func() error {
			go func() {
				<-session.Done()
				dash.Stop()
			}()
			return dash.Run()
		}
	}
	w.watch(view)

	stopAutosave := make(chan struct{})
	autosaveDone := make(chan struct{})
	go func() {
		defer close(autosaveDone)
		if autosave <= 0 {
			return
		}
		ticker := time.NewTicker(autosave)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if w.store.FlushSession() > 0 {
					view.Refresh(w.store.Snapshot())
				}
			case <-stopAutosave:
				return
			case <-session.Done():
				return
			}
		}
	}()

	viewErr := runView()

	close(stopAutosave)
	<-autosaveDone
	session.Stop()

	end := w.store.Snapshot()
	added := end.TotalTimeSpent - start.TotalTimeSpent
	a.log.InfoWithFields("Session ended", map[string]interface{}{
		"minutes": added,
		"total":   end.TotalTimeSpent,
	})
	if !a.quiet {
		ui.PrintSuccess(fmt.Sprintf("Session ended: %s added (total %s)", ui.FormatMinutes(added), ui.FormatMinutes(end.TotalTimeSpent)))
	}

	if viewErr != nil {
		return fmt.Errorf("dashboard failed: %w", viewErr)
	}
	return nil
}
