package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ProfileConfig identifies the user whose data the gateway is scoped to.
type ProfileConfig struct {
	UserID string `mapstructure:"user_id" yaml:"user_id"`
}

// DatabaseConfig holds the location of the local gateway database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// AIConfig holds settings for the AI gateway integration.
type AIConfig struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	Model      string `mapstructure:"model" yaml:"model"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// SyncConfig controls background re-aggregation.
type SyncConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// TaskConfig holds behavioural switches for task state rules.
type TaskConfig struct {
	// UncheckResetsProgress makes un-completing a task reset its progress
	// to 0 instead of leaving it unchanged.
	UncheckResetsProgress bool `mapstructure:"uncheck_resets_progress" yaml:"uncheck_resets_progress"`
}

// SummaryConfig controls the scheduled weekly summary job.
type SummaryConfig struct {
	// Schedule is a six-field cron spec (with seconds). Empty disables the job.
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Profile  ProfileConfig  `mapstructure:"profile" yaml:"profile"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Tasks    TaskConfig     `mapstructure:"tasks" yaml:"tasks"`
	Summary  SummaryConfig  `mapstructure:"summary" yaml:"summary"`
}

const (
	defaultAIBaseURL  = "https://ai.gateway.lovable.dev/v1/chat/completions"
	defaultAIModel    = "google/gemini-2.5-flash"
	defaultSchedule   = "0 0 20 * * 6"
	defaultServerAddr = ":8080"
)

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/studytrack/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultDatabasePath returns ~/.config/studytrack/studytrack.db.
func DefaultDatabasePath() string {
	return filepath.Join(configDir(), "studytrack.db")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "studytrack")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	user := os.Getenv("USER")
	if user == "" {
		user = "local"
	}
	return &AppConfig{
		Profile:  ProfileConfig{UserID: user},
		Database: DatabaseConfig{Path: DefaultDatabasePath()},
		AI: AIConfig{
			BaseURL:    defaultAIBaseURL,
			Model:      defaultAIModel,
			TimeoutSec: 60,
		},
		Sync:    SyncConfig{PollIntervalSec: 120},
		Server:  ServerConfig{Addr: defaultServerAddr},
		Summary: SummaryConfig{Schedule: defaultSchedule, Timezone: "Local"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("profile.user_id", cfg.Profile.UserID)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("ai.base_url", cfg.AI.BaseURL)
	v.SetDefault("ai.model", cfg.AI.Model)
	v.SetDefault("ai.timeout_sec", cfg.AI.TimeoutSec)
	v.SetDefault("sync.poll_interval_sec", cfg.Sync.PollIntervalSec)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("summary.schedule", cfg.Summary.Schedule)
	v.SetDefault("summary.timezone", cfg.Summary.Timezone)

	// Environment overrides, e.g. STUDYTRACK_AI_MODEL.
	v.SetEnvPrefix("STUDYTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Sync.PollIntervalSec <= 0 {
		cfg.Sync.PollIntervalSec = 120
	}
	if cfg.AI.TimeoutSec <= 0 {
		cfg.AI.TimeoutSec = 60
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("profile", cfg.Profile)
	v.Set("database", cfg.Database)
	v.Set("ai", cfg.AI)
	v.Set("sync", cfg.Sync)
	v.Set("server", cfg.Server)
	v.Set("tasks", cfg.Tasks)
	v.Set("summary", cfg.Summary)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
