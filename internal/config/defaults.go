package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"database":   "~/.proofpal/proofpal.db",
		"files_dir":  "~/.proofpal/files",
		"export_dir": "~/.proofpal/exports",
		"defaults": map[string]interface{}{
			"return_days":     14,
			"warranty_months": 24,
		},
		"reminders": map[string]interface{}{
			"thresholds":    []int{14, 7, 3, 1, 0},
			"due_soon_days": 7,
		},
		"scheduler": map[string]interface{}{
			"interval": 60,
			"console":  true,
			"telegram": map[string]interface{}{
				"bot_token":    "",
				"chat_id":      "",
				"rate_per_sec": 1.0,
			},
		},
		"dashboard": map[string]interface{}{
			"activity_limit": 20,
			"activity_days":  30,
			"urgent_limit":   5,
		},
		"dossier": map[string]interface{}{
			"timeout":    30,
			"workers":    4,
			"compress":   true,
			"max_pixels": 50_000_000,
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "console",
		},
		"metrics": map[string]interface{}{
			"listen": "",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

func GetDefaultConfigPath() string {
	return "~/.proofpal/config.yaml"
}
