// Package extension provides the Forge extension adapter for the economy
// engine.
//
// It implements the forge.Extension interface to integrate the engine
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.economy" or "economy" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/economy"
	"github.com/xraph/economy/api"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/store/memory"
	"github.com/xraph/economy/store/mongo"
	"github.com/xraph/economy/store/postgres"
	"github.com/xraph/economy/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "economy"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Points economy ledger with funds, taxation and scheduled jobs"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the economy engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	engine      *economy.Economy
	server      *api.Server
	store       store.Store
	economyOpts []economy.Option
	useGrove    bool
}

// New creates a new economy Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Economy instance.
// This is nil until Register is called.
func (e *Extension) Engine() *economy.Economy { return e.engine }

// Handler returns the HTTP API mounted under the configured base path, or
// nil when routes are disabled or Register has not run.
func (e *Extension) Handler() http.Handler {
	if e.server == nil {
		return nil
	}
	r := chi.NewRouter()
	r.Mount(e.config.BasePath, e.server.Handler())
	return r
}

// Register implements [forge.Extension]. It loads configuration,
// initializes the economy engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Resolve the store from a grove.DB in the container when one was
	// requested; otherwise fall back to the memory store.
	if e.store == nil && e.useGrove {
		s, err := e.resolveGroveStore(fapp)
		if err != nil {
			return err
		}
		e.store = s
	}
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildEconomyOpts()
	if err != nil {
		return err
	}
	e.engine = economy.New(e.store, opts...)

	if err := vessel.Provide(fapp.Container(), func() (*economy.Economy, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes {
		return nil
	}
	e.server = api.NewServer(e.engine)
	return vessel.Provide(fapp.Container(), func() (*api.Server, error) {
		return e.server, nil
	})
}

// resolveGroveStore builds a store over the grove.DB registered in the DI
// container, named by Config.GroveDatabase or the default one.
func (e *Extension) resolveGroveStore(fapp forge.App) (store.Store, error) {
	var (
		db  *grove.DB
		err error
	)
	if e.config.GroveDatabase != "" {
		db, err = vessel.InjectNamed[*grove.DB](fapp.Container(), e.config.GroveDatabase)
	} else {
		db, err = vessel.Inject[*grove.DB](fapp.Container())
	}
	if err != nil {
		return nil, fmt.Errorf("economy: resolve grove database: %w", err)
	}
	return storeForGrove(db)
}

// storeForGrove picks the store backend from the grove driver behind db.
func storeForGrove(db *grove.DB) (store.Store, error) {
	switch name := db.Driver().Name(); name {
	case "pg":
		return postgres.New(db), nil
	case "sqlite":
		return sqlite.New(db), nil
	case "mongo":
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("economy: unsupported grove driver %q", name)
	}
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("economy: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("economy: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEconomyOpts constructs economy.Option values from the resolved config.
func (e *Extension) buildEconomyOpts() ([]economy.Option, error) {
	opts, err := e.config.Options()
	if err != nil {
		return nil, err
	}
	return append(opts, e.economyOpts...), nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("economy: configuration is required but not found in config files; " +
				"ensure 'extensions.economy' or 'economy' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("economy: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("timezone", e.config.Timezone),
		forge.F("annual_allocation", e.config.AnnualAllocation),
		forge.F("weekly_bonus", e.config.WeeklyBonus),
		forge.F("scheduler", e.config.Schedule.Enabled),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.economy", "economy"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("economy: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("economy: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaults.Timezone
	}
	if cfg.AnnualAllocation == 0 {
		cfg.AnnualAllocation = defaults.AnnualAllocation
	}
	if cfg.WeeklyBonus == 0 {
		cfg.WeeklyBonus = defaults.WeeklyBonus
	}
	if cfg.WeeklyBonusInterval == 0 {
		cfg.WeeklyBonusInterval = defaults.WeeklyBonusInterval
	}
	if cfg.MonthlyTaxRate == "" {
		cfg.MonthlyTaxRate = defaults.MonthlyTaxRate
	}
	if cfg.PurchaseTaxRate == "" {
		cfg.PurchaseTaxRate = defaults.PurchaseTaxRate
	}
	if cfg.AdjustmentStep == "" {
		cfg.AdjustmentStep = defaults.AdjustmentStep
	}
	if cfg.Schedule == (economy.Schedule{}) {
		cfg.Schedule = defaults.Schedule
	}
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = defaults.JobTimeout
	}
	if cfg.JobPageSize == 0 {
		cfg.JobPageSize = defaults.JobPageSize
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.Timezone == "" {
		yamlConfig.Timezone = programmaticConfig.Timezone
	}
	if yamlConfig.GroveDatabase == "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}
	if yamlConfig.WeeklyBonusFund == "" {
		yamlConfig.WeeklyBonusFund = programmaticConfig.WeeklyBonusFund
	}

	// Map and numeric fields: YAML takes precedence, programmatic fills gaps.
	if len(yamlConfig.Allocations) == 0 {
		yamlConfig.Allocations = programmaticConfig.Allocations
	}
	if yamlConfig.AnnualAllocation == 0 {
		yamlConfig.AnnualAllocation = programmaticConfig.AnnualAllocation
	}
	if yamlConfig.OperationTimeout == 0 {
		yamlConfig.OperationTimeout = programmaticConfig.OperationTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
