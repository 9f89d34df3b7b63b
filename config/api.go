package config

import "fmt"

// APIConfig configures the HTTP API.
type APIConfig struct {
	Disabled       bool     `json:"disabled"`
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
	// Token, when set, is required as a bearer token on write endpoints.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
}

// Validate checks mandatory fields.
func (c APIConfig) Validate() error {
	if !c.Disabled && c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}

// DisplayConfig configures the console panel.
type DisplayConfig struct {
	Enabled bool `json:"enabled"`
	// Every renders one panel per Every cycles.
	Every int `json:"every"`
}

// SetDefaults applies sane defaults.
func (c *DisplayConfig) SetDefaults() {
	if c.Every <= 0 {
		c.Every = 1
	}
}
