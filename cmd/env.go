package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/territory-cli/internal/resilience"
	"github.com/sells-group/territory-cli/internal/store"
	"github.com/sells-group/territory-cli/internal/territory"
)

// backend is what every concrete store implements.
type backend interface {
	store.Store
	store.Directory
	store.Pinger
}

// appEnv holds the store and service a command runs against.
type appEnv struct {
	Store   store.Store
	Base    backend
	Pinger  store.Pinger
	Service *territory.Service

	// PoolStat is set for the postgres driver.
	PoolStat func() *pgxpool.Stat

	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

// initEnv validates the config for mode and opens the configured store,
// wrapped in the redis snapshot cache when one is configured.
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	base, poolStat, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &appEnv{Store: base, Base: base, Pinger: base, PoolStat: poolStat}
	env.closers = append(env.closers, base.Close)

	if cfg.Redis.URL != "" {
		client, err := store.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.closers = append(env.closers, client.Close)

		cached := store.NewCached(base, client,
			store.WithSnapshotKey(cfg.Redis.Key),
			store.WithTTL(time.Duration(cfg.Redis.TTLSecs)*time.Second),
		)
		env.Store, env.Pinger = cached, cached
		zap.L().Info("assignment snapshot cache enabled", zap.String("key", cfg.Redis.Key))
	}

	r := cfg.Resolver.Retry
	env.Service = territory.New(env.Store,
		territory.WithFallbackInstaller(cfg.Resolver.FallbackInstallerID),
		territory.WithBatchConcurrency(cfg.Resolver.BatchConcurrency),
		territory.WithDirectory(base),
		territory.WithRetry(resilience.FromRetryConfig(
			r.MaxAttempts,
			time.Duration(r.InitialBackoffMs)*time.Millisecond,
			time.Duration(r.MaxBackoffMs)*time.Millisecond,
			r.Multiplier,
			r.JitterFraction,
		)),
	)
	return env, nil
}

func openStore(ctx context.Context) (backend, func() *pgxpool.Stat, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, nil, eris.Wrap(err, "open postgres store")
		}
		return pg, pg.Stat, nil
	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, eris.Wrap(err, "open sqlite store")
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, nil, eris.Wrap(err, "migrate sqlite store")
		}
		return s, nil, nil
	case "memory":
		return store.NewMemory(), nil, nil
	default:
		return nil, nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
