package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "GUIDEPROGRESS_"

// Supported storage backends
const (
	BackendFile      = "file"
	BackendEncrypted = "encrypted"
	BackendKeyring   = "keyring"
	BackendSQLite    = "sqlite"
	BackendMemory    = "memory"
)

// Config holds all configuration options for guideprogress
type Config struct {
	// Where the progress record is persisted
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Catalog size and achievement table
	Progress ProgressConfig `yaml:"progress" json:"progress"`

	// Achievement notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// StorageConfig selects and configures the key-value backend
type StorageConfig struct {
	Backend      string `yaml:"backend" json:"backend"`
	Directory    string `yaml:"directory" json:"directory"`
	DatabasePath string `yaml:"database_path" json:"database_path"`
	Key          string `yaml:"key" json:"key"`
	Profile      string `yaml:"profile" json:"profile"`
	Passphrase   string `yaml:"passphrase,omitempty" json:"-"`
}

// ProgressConfig holds the guide catalog size and achievement rules.
// An empty Achievements list means the built-in table.
type ProgressConfig struct {
	TotalSections int               `yaml:"total_sections" json:"total_sections"`
	Achievements  []AchievementRule `yaml:"achievements,omitempty" json:"achievements,omitempty"`
}

// AchievementRule maps a counter threshold to an achievement identifier
type AchievementRule struct {
	Counter     string `yaml:"counter" json:"counter"`
	Threshold   int    `yaml:"threshold" json:"threshold"`
	Match       string `yaml:"match" json:"match"`
	Achievement string `yaml:"achievement" json:"achievement"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Desktop bool `yaml:"desktop" json:"desktop"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendFile,
			Key:     "guide-progress",
		},
		Progress: ProgressConfig{
			TotalSections: 6,
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Desktop: false,
		},
		Logging: LoggingConfig{
			Level: "warn",
			File:  "",
		},
	}
}

// ResolvedKey returns the storage key for the configured profile
func (s StorageConfig) ResolvedKey() string {
	if s.Profile == "" || s.Profile == "default" {
		return s.Key
	}
	return s.Key + "." + s.Profile
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if backend := os.Getenv(envPrefix + "BACKEND"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if dir := os.Getenv(envPrefix + "DATA_DIR"); dir != "" {
		c.Storage.Directory = dir
	}
	if dbPath := os.Getenv(envPrefix + "DB_PATH"); dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
	if key := os.Getenv(envPrefix + "STORAGE_KEY"); key != "" {
		c.Storage.Key = key
	}
	if profile := os.Getenv(envPrefix + "PROFILE"); profile != "" {
		c.Storage.Profile = profile
	}
	if pass := os.Getenv(envPrefix + "PASSPHRASE"); pass != "" {
		c.Storage.Passphrase = pass
	}

	if total := os.Getenv(envPrefix + "TOTAL_SECTIONS"); total != "" {
		val, err := strconv.Atoi(total)
		if err != nil {
			return fmt.Errorf("invalid %sTOTAL_SECTIONS: %w", envPrefix, err)
		}
		c.Progress.TotalSections = val
	}

	if enabled := os.Getenv(envPrefix + "NOTIFICATIONS_ENABLED"); enabled != "" {
		c.Notifications.Enabled = strings.ToLower(enabled) == "true"
	}
	if desktop := os.Getenv(envPrefix + "DESKTOP_NOTIFICATIONS"); desktop != "" {
		c.Notifications.Desktop = strings.ToLower(desktop) == "true"
	}

	if logLevel := os.Getenv(envPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv(envPrefix + "LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in the standard locations and
// returns "" when there is none
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".guideprogress.yaml",
		".guideprogress.yml",
		filepath.Join(home, ".config", "guideprogress", "config.yaml"),
		filepath.Join(home, ".config", "guideprogress", "config.yml"),
		filepath.Join(home, ".guideprogress.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	validBackends := map[string]bool{
		BackendFile: true, BackendEncrypted: true, BackendKeyring: true,
		BackendSQLite: true, BackendMemory: true,
	}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Storage.Key == "" {
		errs = append(errs, errors.New("storage key is required"))
	}
	if strings.ContainsAny(c.Storage.Profile, `/\`) {
		errs = append(errs, errors.New("profile must not contain path separators"))
	}

	if c.Progress.TotalSections <= 0 {
		errs = append(errs, errors.New("total sections must be positive"))
	}
	for i, rule := range c.Progress.Achievements {
		if rule.Achievement == "" {
			errs = append(errs, fmt.Errorf("achievement rule %d has no achievement id", i))
		}
		if rule.Threshold < 1 {
			errs = append(errs, fmt.Errorf("achievement rule %d threshold must be at least 1", i))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if backend, ok := flags["backend"].(string); ok && backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if profile, ok := flags["profile"].(string); ok && profile != "" {
		c.Storage.Profile = profile
	}
	if dir, ok := flags["data-dir"].(string); ok && dir != "" {
		c.Storage.Directory = dir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".guideprogress.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
