package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"guideprogress/pkg/config"
	"guideprogress/pkg/progress"
	"guideprogress/pkg/storage"
	"guideprogress/pkg/ui"
)

const exampleConfig = `# guideprogress configuration file
#
# Environment variables prefixed with GUIDEPROGRESS_ override these values,
# for example GUIDEPROGRESS_BACKEND=sqlite or GUIDEPROGRESS_PROFILE=work.
# Command line flags override both.

storage:
  # file, encrypted, keyring, sqlite or memory
  backend: "file"

  # Directory for the file and encrypted backends.
  # Empty means the platform data directory.
  directory: ""

  # Database file for the sqlite backend.
  # Empty means progress.db in the platform data directory.
  database_path: ""

  # Key the progress record is saved under
  key: "guide-progress"

  # Each profile keeps separate progress. "default" uses the key as is.
  profile: "default"

  # Passphrase for the encrypted backend. Prefer GUIDEPROGRESS_PASSPHRASE.
  # Empty means a random key file is generated next to the data.
  # passphrase: ""

progress:
  # Number of sections in the guide
  total_sections: 6

  # Achievement table. Leave out to use the built-in one:
  # achievements:
  #   - counter: sections     # sections or exercises
  #     threshold: 1
  #     match: exact          # exact or at_least
  #     achievement: first-section
  #   - counter: sections
  #     threshold: 6
  #     match: exact
  #     achievement: completionist
  #   - counter: exercises
  #     threshold: 1
  #     match: exact
  #     achievement: first-exercise
  #   - counter: exercises
  #     threshold: 10
  #     match: at_least
  #     achievement: hands-on-learner

notifications:
  # Announce unlocked achievements
  enabled: true

  # Also send a desktop notification
  desktop: false

logging:
  # debug, info, warn, error or disabled
  level: "warn"

  # Log file path. Empty logs to stderr.
  file: ""
`

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage guideprogress configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (GUIDEPROGRESS_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create an example configuration file",
		Long: `Create an example configuration file with all available options.

The file is created as '.guideprogress.yaml' in the current directory
unless a different path is given with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigInit(force)
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging all sources.

The passphrase is masked.`,
		Args: cobra.NoArgs,
		RunE: a.runConfigShow,
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Validate the configuration for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Storage backend and key
  - Achievement rules
  - Log level and file location`,
		Args: cobra.NoArgs,
		RunE: a.runConfigValidate,
	}

	configCmd.AddCommand(initCmd, showCmd, validateCmd)
	return configCmd
}

func (a *app) runConfigInit(force bool) error {
	configPath := a.configFile
	if configPath == "" {
		configPath = ".guideprogress.yaml"
	}

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	a.say("Configuration file created: " + configPath)
	if !a.quiet {
		out := ui.Output()
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "1. Pick a storage backend and edit the file")
		fmt.Fprintln(out, "2. Run 'guideprogress config validate' to check it")
		fmt.Fprintln(out, "3. Record progress with 'guideprogress visit <section>'")
	}
	return nil
}

// maskedConfig returns a copy of cfg that is safe to print
func maskedConfig(cfg *config.Config) config.Config {
	display := *cfg
	if display.Storage.Passphrase != "" {
		display.Storage.Passphrase = "***"
	}
	return display
}

func (a *app) runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}

	display := maskedConfig(cfg)
	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	out := ui.Output()
	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(out)
	fmt.Fprint(out, string(data))

	fmt.Fprintln(out)
	ui.PrintInfo("Storage key", cfg.Storage.ResolvedKey())
	source := a.configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found, using defaults)"
	}
	ui.PrintInfo("Configuration file", source)
	return nil
}

func (a *app) runConfigValidate(cmd *cobra.Command, args []string) error {
	path := a.configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path != "" && !a.quiet {
		ui.PrintInfo("Validating configuration", path)
	}

	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	var problems []error
	if _, err := progress.RulesFromConfig(cfg.Progress.Achievements); err != nil {
		problems = append(problems, err)
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Errorf("cannot create log directory: %w", err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("configuration is invalid: %w", errors.Join(problems...))
	}

	var warnings []string
	if cfg.Storage.Backend == config.BackendMemory {
		warnings = append(warnings, "memory backend selected, progress will not be saved")
	}
	if cfg.Storage.Backend == config.BackendEncrypted && cfg.Storage.Passphrase == "" {
		warnings = append(warnings, "no passphrase configured, a generated key file will be used")
	}
	if cfg.Notifications.Desktop && !cfg.Notifications.Enabled {
		warnings = append(warnings, "desktop notifications are set but notifications are disabled")
	}

	if !a.quiet {
		out := ui.Output()
		for _, w := range warnings {
			ui.PrintWarning("Warning", w)
		}
		ui.PrintSuccess("Configuration is valid")

		fmt.Fprintln(out, "\nConfiguration summary:")
		fmt.Fprintf(out, "  Backend: %s\n", cfg.Storage.Backend)
		fmt.Fprintf(out, "  Storage key: %s\n", cfg.Storage.ResolvedKey())
		if dir, err := dataLocation(cfg); err == nil && dir != "" {
			fmt.Fprintf(out, "  Data location: %s\n", dir)
		}
		fmt.Fprintf(out, "  Sections: %d\n", cfg.Progress.TotalSections)
		fmt.Fprintf(out, "  Log level: %s\n", cfg.Logging.Level)
	}
	return nil
}

// dataLocation describes where the configured backend keeps its data
func dataLocation(cfg *config.Config) (string, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile, config.BackendEncrypted:
		if cfg.Storage.Directory != "" {
			return cfg.Storage.Directory, nil
		}
		dir, err := storage.DataDirectory()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "progress"), nil
	case config.BackendSQLite:
		if cfg.Storage.DatabasePath != "" {
			return cfg.Storage.DatabasePath, nil
		}
		dir, err := storage.DataDirectory()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "progress.db"), nil
	case config.BackendKeyring:
		return "system keychain", nil
	default:
		return "", nil
	}
}
