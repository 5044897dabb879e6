package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"guideprogress/pkg/config"
	"guideprogress/pkg/logger"
	"guideprogress/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// app holds the global flags and the state shared by subcommands
type app struct {
	configFile    string
	logLevel      string
	backend       string
	profile       string
	dataDir       string
	noColor       bool
	quiet         bool
	notifications bool

	log logger.Logger
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "guideprogress",
		Short: "Track your progress through the guide",
		Long: `guideprogress records which guide sections you have visited, which
exercises you have completed and how long you have studied, and unlocks
achievements as you go.

Progress is saved after every change to the configured storage backend:
  - file       plain JSON files in the data directory (default)
  - encrypted  AES-GCM sealed files, key derived with PBKDF2
  - keyring    the system keychain
  - sqlite     a local SQLite database
  - memory     nothing is saved (useful for trying things out)`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.SetOutput(cmd.OutOrStdout())
			if a.noColor {
				ui.SetColorEnabled(false)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (default is ./.guideprogress.yaml or ~/.config/guideprogress/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.backend, "backend", "", "storage backend (file, encrypted, keyring, sqlite, memory)")
	rootCmd.PersistentFlags().StringVar(&a.profile, "profile", "", "learner profile; each profile has its own progress")
	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory for file-based backends")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&a.notifications, "notifications", true, "announce unlocked achievements")

	rootCmd.SetVersionTemplate(`guideprogress {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newVisitCmd(a),
		newCompleteCmd(a),
		newTimeCmd(a),
		newAchieveCmd(a),
		newStatusCmd(a),
		newResetCmd(a),
		newSessionCmd(a),
		newConfigCmd(a),
	)

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		ui.SetOutput(os.Stderr)
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration from file, environment and flags and
// sets up logging
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := make(map[string]interface{})
	if a.backend != "" {
		flags["backend"] = a.backend
	}
	if a.profile != "" {
		flags["profile"] = a.profile
	}
	if a.dataDir != "" {
		flags["data-dir"] = a.dataDir
	}
	if a.logLevel != "" {
		flags["log-level"] = a.logLevel
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = a.notifications
	}

	cfg, err := config.Load(a.configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = logger.GetLogger().WithField("command", cmd.Name())

	return cfg, nil
}

// say prints a success line unless --quiet is set
func (a *app) say(msg string) {
	if !a.quiet {
		ui.PrintSuccess(msg)
	}
}
