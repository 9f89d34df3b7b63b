package config

import "github.com/kristi80/Datakomm-prosjekt-2022/core/factory"

// PluginConfig stores the type name of the plugin and raw configuration data
// for that plugin. Each plugin is responsible for decoding the raw map into its
// own concrete configuration struct.
type PluginConfig = factory.ModuleConfig
