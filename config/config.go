package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/metrics"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/mqtt"
)

type Config struct {
	MQTT    mqtt.Config    `json:"mqtt"`
	Bay     BayConfig      `json:"bay"`
	Demand  PluginConfig   `json:"demand"`
	Arrival PluginConfig   `json:"arrival"`
	Metrics metrics.Config `json:"metrics"`
	History HistoryConfig  `json:"history"`
	API     APIConfig      `json:"api"`
	Sentry  SentryConfig   `json:"sentry"`
	Display DisplayConfig  `json:"display"`
}

// MQTTEnabled reports whether a broker is configured. Without one the bay
// runs on local inputs only.
func (c Config) MQTTEnabled() bool { return c.MQTT.Broker != "" }

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Bay.SetDefaults()
	c.History.SetDefaults()
	c.API.SetDefaults()
	c.Display.SetDefaults()
	if c.MQTTEnabled() {
		c.MQTT.SetDefaults()
	}
	if c.Demand.Type == "" {
		c.Demand.Type = "static"
		if c.MQTTEnabled() {
			c.Demand.Type = "mqtt"
		}
	}
	if c.Arrival.Type == "" {
		c.Arrival = PluginConfig{Type: "random", Conf: map[string]any{"min_units": 20, "max_units": 80}}
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Bay.Validate(); err != nil {
		return fmt.Errorf("bay: %w", err)
	}
	if c.MQTTEnabled() {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if c.Demand.Type == "mqtt" && !c.MQTTEnabled() {
		return fmt.Errorf("demand: type mqtt requires mqtt.broker")
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
