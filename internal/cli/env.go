package cli

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/tokensender/internal/address"
	"github.com/roach88/tokensender/internal/config"
	"github.com/roach88/tokensender/internal/engine"
	"github.com/roach88/tokensender/internal/ledger"
	"github.com/roach88/tokensender/internal/metrics"
	"github.com/roach88/tokensender/internal/oracle"
	"github.com/roach88/tokensender/internal/store"
)

// environment is an engine opened from configuration, with the resources
// it holds.
type environment struct {
	cfg    config.Config
	store  *store.Store
	engine *engine.Engine
	redis  *redis.Client
	oracle *oracle.RedisOracle
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

// openEnvironment opens the store, resumes the clock after the last audit
// record and wires the configured balance oracle. The oracle is not
// contacted here; commands that can read balances call checkOracle.
func openEnvironment(ctx context.Context, opts *RootOptions) (*environment, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	slog.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	env := &environment{cfg: cfg, store: st}

	clock, err := engine.ResumeClock(ctx, st)
	if err != nil {
		env.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read audit log", err)
	}

	engineOpts := []engine.Option{
		engine.WithClock(clock),
		engine.WithObserver(metrics.Ledger{}),
	}

	if cfg.Oracle.Kind == config.OracleRedis {
		env.redis = redis.NewClient(&redis.Options{
			Addr: cfg.Oracle.RedisAddr,
			DB:   cfg.Oracle.RedisDB,
		})
		env.oracle = oracle.NewRedisOracle(env.redis, oracle.WithPrefix(cfg.Oracle.RedisPrefix))
		slog.Debug("using redis balance oracle", "addr", cfg.Oracle.RedisAddr, "key", env.oracle.Key(cfg.Denom))
		engineOpts = append(engineOpts, engine.WithOracle(env.oracle))
	}

	env.engine = engine.New(st,
		address.NewValidator(cfg.Bech32Prefix),
		ledger.Config{ContractAddress: cfg.Contract(), Denom: cfg.Denom},
		engineOpts...,
	)
	return env, nil
}

// checkOracle pings the Redis oracle when one is configured.
func (e *environment) checkOracle(ctx context.Context) error {
	if e.oracle == nil {
		return nil
	}
	if err := e.oracle.Ping(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to reach redis oracle", err)
	}
	return nil
}

// Close releases the store and the redis client.
func (e *environment) Close() {
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			slog.Error("error closing redis client", "error", err)
		}
	}
	if err := e.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// commandContext returns the command's context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
