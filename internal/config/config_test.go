package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".proofpal", "proofpal.db"), cfg.Database)
	assert.Equal(t, 14, cfg.Defaults.ReturnDays)
	assert.Equal(t, 24, cfg.Defaults.WarrantyMonths)
	assert.Equal(t, []int{14, 7, 3, 1, 0}, cfg.Reminders.Thresholds)
	assert.Equal(t, time.Minute, cfg.ScanInterval())
	assert.Equal(t, 30*time.Second, cfg.DossierTimeout())
	assert.Equal(t, 30*24*time.Hour, cfg.ActivityAge())
	assert.False(t, cfg.Scheduler.Telegram.Enabled())

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 7, p.DueSoonDays)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database: /data/pp.db
reminders:
  thresholds: [30, 10, 2]
  due_soon_days: 10
scheduler:
  interval: 600
  telegram:
    bot_token: abc
    chat_id: "123"
dossier:
  workers: 2
`), 0o644))

	t.Setenv("PROOFPAL_DOSSIER__TIMEOUT", "5")
	t.Setenv("PROOFPAL_LOG__FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/pp.db", cfg.Database)
	assert.Equal(t, 10*time.Minute, cfg.ScanInterval())
	assert.True(t, cfg.Scheduler.Telegram.Enabled())
	assert.Equal(t, 2, cfg.Dossier.Workers)
	assert.Equal(t, 5*time.Second, cfg.DossierTimeout(), "env overrides defaults")
	assert.Equal(t, "json", cfg.Log.Format)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, []int{30, 10, 2, 0}, p.Thresholds)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Scheduler.Interval)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no_database", func(c *Config) { c.Database = "" }},
		{"negative_threshold", func(c *Config) { c.Reminders.Thresholds = []int{7, -1} }},
		{"due_soon_beyond_thresholds", func(c *Config) { c.Reminders.DueSoonDays = 30 }},
		{"zero_interval", func(c *Config) { c.Scheduler.Interval = 0 }},
		{"half_telegram", func(c *Config) { c.Scheduler.Telegram.BotToken = "abc" }},
		{"zero_workers", func(c *Config) { c.Dossier.Workers = 0 }},
		{"zero_max_pixels", func(c *Config) { c.Dossier.MaxPixels = 0 }},
		{"bad_log_format", func(c *Config) { c.Log.Format = "xml" }},
		{"negative_default_period", func(c *Config) { c.Defaults.ReturnDays = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "scheduler.telegram.chat_id", envKey("PROOFPAL_SCHEDULER__TELEGRAM__CHAT_ID"))
	assert.Equal(t, "files_dir", envKey("PROOFPAL_FILES_DIR"))
}
