package extension

import (
	"github.com/xraph/economy"
)

// Config holds the economy extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.economy" or "economy" keys).
type Config struct {
	// Config carries the economy engine settings.
	economy.Config `json:",inline" mapstructure:",squash" yaml:",inline"`

	// DisableRoutes prevents the HTTP API from being registered.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration and bootstrapping on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for economy routes (default: "/economy").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// The store backend follows the grove driver (pg, sqlite or mongo).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Config:   economy.DefaultConfig(),
		BasePath: "/economy",
	}
}
