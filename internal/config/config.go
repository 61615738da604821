package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/notexe/proofpal/internal/deadline"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nested keys: PROOFPAL_SCHEDULER__TELEGRAM__CHAT_ID.
const EnvPrefix = "PROOFPAL_"

type Config struct {
	Database  string          `koanf:"database"`
	FilesDir  string          `koanf:"files_dir"`
	ExportDir string          `koanf:"export_dir"`
	Defaults  DefaultsConfig  `koanf:"defaults"`
	Reminders RemindersConfig `koanf:"reminders"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	Dossier   DossierConfig   `koanf:"dossier"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// DefaultsConfig pre-fills new purchases.
type DefaultsConfig struct {
	ReturnDays     int `koanf:"return_days"`
	WarrantyMonths int `koanf:"warranty_months"`
}

type RemindersConfig struct {
	Thresholds  []int `koanf:"thresholds"`    // Days before a deadline, 0 = deadline day
	DueSoonDays int   `koanf:"due_soon_days"` // Upper bound of the due soon band
}

type SchedulerConfig struct {
	Interval int            `koanf:"interval"` // Seconds between scans
	Console  bool           `koanf:"console"`
	Telegram TelegramConfig `koanf:"telegram"`
}

type TelegramConfig struct {
	BotToken   string  `koanf:"bot_token"`
	ChatID     string  `koanf:"chat_id"`
	RatePerSec float64 `koanf:"rate_per_sec"`
}

// Enabled reports whether both credentials are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type DashboardConfig struct {
	ActivityLimit int `koanf:"activity_limit"`
	ActivityDays  int `koanf:"activity_days"`
	UrgentLimit   int `koanf:"urgent_limit"`
}

type DossierConfig struct {
	Timeout   int  `koanf:"timeout"` // Seconds, 0 = no limit
	Workers   int  `koanf:"workers"`
	Compress  bool `koanf:"compress"`
	MaxPixels int  `koanf:"max_pixels"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // console or json
}

type MetricsConfig struct {
	Listen string `koanf:"listen"` // e.g. ":9090"; empty disables the endpoint
}

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		configPath = expandPath(configPath)

		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database = expandPath(cfg.Database)
	cfg.FilesDir = expandPath(cfg.FilesDir)
	cfg.ExportDir = expandPath(cfg.ExportDir)

	return &cfg, nil
}

// envKey maps PROOFPAL_DOSSIER__TIMEOUT to dossier.timeout.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	if c.FilesDir == "" {
		return fmt.Errorf("files_dir is required")
	}
	if c.ExportDir == "" {
		return fmt.Errorf("export_dir is required")
	}

	if c.Defaults.ReturnDays < 0 || c.Defaults.WarrantyMonths < 0 {
		return fmt.Errorf("default return and warranty periods must not be negative")
	}

	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("invalid reminders config: %w", err)
	}

	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}
	if (c.Scheduler.Telegram.BotToken == "") != (c.Scheduler.Telegram.ChatID == "") {
		return fmt.Errorf("telegram needs both bot_token and chat_id")
	}

	if c.Dashboard.ActivityLimit <= 0 || c.Dashboard.ActivityDays <= 0 || c.Dashboard.UrgentLimit <= 0 {
		return fmt.Errorf("dashboard limits must be positive")
	}

	if c.Dossier.Timeout < 0 {
		return fmt.Errorf("dossier timeout must not be negative")
	}
	if c.Dossier.Workers <= 0 {
		return fmt.Errorf("dossier workers must be positive")
	}
	if c.Dossier.MaxPixels <= 0 {
		return fmt.Errorf("dossier max_pixels must be positive")
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format: %s (supported: console, json)", c.Log.Format)
	}

	return nil
}

// Policy builds the reminder policy from the reminders section.
func (c *Config) Policy() (deadline.Policy, error) {
	return deadline.NewPolicy(c.Reminders.Thresholds, c.Reminders.DueSoonDays)
}

// ScanInterval is the time between scheduled scans.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scheduler.Interval) * time.Second
}

// DossierTimeout is the limit on one dossier build.
func (c *Config) DossierTimeout() time.Duration {
	return time.Duration(c.Dossier.Timeout) * time.Second
}

// ActivityAge is how far back the dashboard feed reaches.
func (c *Config) ActivityAge() time.Duration {
	return time.Duration(c.Dashboard.ActivityDays) * 24 * time.Hour
}

func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}
