// Package config loads the standalone server configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/xraph/economy"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "ECONOMY_CONFIG"

// DefaultPath is read when no path is given and EnvPath is unset.
const DefaultPath = "economy.toml"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig   `toml:"server"`
	Store   StoreConfig    `toml:"store"`
	Redis   RedisConfig    `toml:"redis"`
	Log     LogConfig      `toml:"log"`
	Economy economy.Config `toml:"economy"`
}

type ServerConfig struct {
	Addr            string        `toml:"addr"`
	Metrics         bool          `toml:"metrics"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// StoreConfig selects the ledger backend. DSN is a file path for sqlite,
// a connection string for postgres and a URI for mongo.
type StoreConfig struct {
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	Database string `toml:"database"`
}

// RedisConfig enables the shared job lock when Addr is set.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	LockPrefix string `toml:"lock_prefix"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Metrics:         true,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			DSN:    "economy.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Economy: economy.DefaultConfig(),
	}
}

// Path resolves the config file location: explicit, then $ECONOMY_CONFIG,
// then DefaultPath.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads the file at Path(explicit) over Default. A missing DefaultPath
// is not an error; a missing explicit or environment path is.
func Load(explicit string) (Config, error) {
	cfg := Default()
	path := Path(explicit)

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath && explicit == "" && os.Getenv(EnvPath) == "" {
			return cfg, cfg.Validate()
		}
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	return cfg, cfg.Validate()
}

// Validate checks settings that would otherwise fail at startup.
func (c Config) Validate() error {
	drivers := []string{DriverMemory, DriverSQLite, DriverPostgres, DriverMongo}
	if !slices.Contains(drivers, c.Store.Driver) {
		return fmt.Errorf("config: store.driver %q must be one of %s", c.Store.Driver, strings.Join(drivers, ", "))
	}
	if c.Store.Driver != DriverMemory && c.Store.DSN == "" {
		return fmt.Errorf("config: store.dsn is required for driver %q", c.Store.Driver)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format %q must be text or json", c.Log.Format)
	}
	if _, err := c.Economy.Options(); err != nil {
		return fmt.Errorf("config: economy: %w", err)
	}
	return nil
}
