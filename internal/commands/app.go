package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/xraph/economy"
	"github.com/xraph/economy/internal/config"
	"github.com/xraph/economy/joblock"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/store/memory"
	"github.com/xraph/economy/store/mongo"
	"github.com/xraph/economy/store/postgres"
	"github.com/xraph/economy/store/sqlite"
)

// app holds what every command needs: configuration, a logger and an
// engine over the configured store.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	engine *economy.Economy
	redis  redis.UniversalClient
}

// openApp loads configuration and builds the engine. The scheduler only
// runs when withScheduler is set; one-shot commands leave it off.
func openApp(ctx context.Context, configPath string, withScheduler bool, extra ...economy.Option) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(os.Stderr, cfg.Log)
	if err != nil {
		return nil, err
	}

	s, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	opts, err := cfg.Economy.Options()
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	opts = append(opts, economy.WithLogger(logger))
	if !withScheduler {
		opts = append(opts, economy.WithoutScheduler())
	}

	a := &app{cfg: cfg, logger: logger}
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		var lockOpts []joblock.RedisOption
		if cfg.Redis.LockPrefix != "" {
			lockOpts = append(lockOpts, joblock.WithPrefix(cfg.Redis.LockPrefix))
		}
		opts = append(opts, economy.WithJobLocker(joblock.NewRedis(a.redis, lockOpts...)))
	} else if withScheduler {
		opts = append(opts, economy.WithJobLocker(joblock.NewLocal()))
	}

	a.engine = economy.New(s, append(opts, extra...)...)
	return a, nil
}

// start migrates and bootstraps the engine.
func (a *app) start(ctx context.Context) error {
	return a.engine.Start(ctx)
}

func (a *app) close() {
	if err := a.engine.Stop(); err != nil {
		a.logger.Warn("economy: stop", "error", err)
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DSN)
	case config.DriverMongo:
		return mongo.Open(ctx, cfg.DSN, cfg.Database)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
