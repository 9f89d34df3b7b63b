package config

import (
	"fmt"
)

// HistoryConfig defines where committed cycles are recorded.
type HistoryConfig struct {
	// Backend selects the log store type: "memory", "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the jsonl and sqlite stores.
	Path string `json:"path"`
	// Limit bounds the number of records kept by the memory store.
	Limit int `json:"limit"`
	// MaxSizeMB enables rotation of the jsonl file. MaxBackups and
	// MaxAgeDays bound the rotated files kept.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *HistoryConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "cycles.jsonl"
		case "sqlite":
			c.Path = "cycles.db"
		}
	}
}

// Validate checks mandatory fields.
func (c HistoryConfig) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("path is required")
		}
		if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
			return fmt.Errorf("rotation limits must not be negative")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
}
