package extension

import (
	"github.com/xraph/economy"
	"github.com/xraph/economy/plugin"
	"github.com/xraph/economy/store"
)

// Option configures the economy Forge extension.
type Option func(*Extension)

// WithStore sets the store for the economy engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEconomyOption passes an economy.Option through to the underlying engine.
// Pass-through options are applied after the ones derived from Config.
func WithEconomyOption(opt economy.Option) Option {
	return func(e *Extension) {
		e.economyOpts = append(e.economyOpts, opt)
	}
}

// WithPlugin registers an economy plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.economyOpts = append(e.economyOpts, economy.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for economy routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithFundAllocations sets the per-fund yearly allocations.
func WithFundAllocations(allocations map[string]int64) Option {
	return func(e *Extension) { e.config.Allocations = allocations }
}

// WithTimezone sets the calendar used for month and year boundaries.
func WithTimezone(name string) Option {
	return func(e *Extension) { e.config.Timezone = name }
}

// WithGroveDatabase sets the name of the grove.DB to resolve from the DI container.
// The extension builds its store from that DB, choosing the backend
// based on the grove driver type. Pass an empty string to use the default (unnamed) grove.DB.
// A store set with WithStore takes precedence.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
