package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Tiliavir/ttt-timesheet/internal/config"
	"github.com/Tiliavir/ttt-timesheet/internal/keylock"
	"github.com/Tiliavir/ttt-timesheet/internal/logger"
	"github.com/Tiliavir/ttt-timesheet/internal/sqlstore"
	"github.com/Tiliavir/ttt-timesheet/internal/storage"
	"github.com/Tiliavir/ttt-timesheet/internal/tracker"
)

// App bundles what a command needs: configuration, the resolved owner and
// the tracker service over the configured store and locker.
type App struct {
	Config     config.Config
	ConfigPath string
	Owner      string
	Log        *zap.Logger
	Service    *tracker.Service

	closers []io.Closer
}

// NewApp loads configuration from configPath (default location when empty)
// and wires the service. owner overrides timesheet.owner.
func NewApp(ctx context.Context, configPath, owner string) (*App, error) {
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, internal(err)
		}
		configPath = p
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, internal(fmt.Errorf("loading config: %w", err))
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, internal(fmt.Errorf("building logger: %w", err))
	}

	a := &App{Config: cfg, ConfigPath: configPath, Owner: cfg.Timesheet.Owner, Log: log}
	if owner != "" {
		a.Owner = owner
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, internal(err)
	}
	a.closers = append(a.closers, store)

	locker, err := newLocker(ctx, cfg, log)
	if err != nil {
		_ = a.Close()
		return nil, internal(err)
	}
	if c, ok := locker.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.Service = tracker.New(store, locker, tracker.Options{
		ReviewWindow:       cfg.Timesheet.ReviewWindow(),
		ManualActivityRate: cfg.Timesheet.ManualActivityRate,
		StoreRetries:       cfg.Timesheet.StoreRetries,
	}, log)

	log.Debug("app ready",
		zap.String("owner", a.Owner),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("lock", cfg.Lock.Backend))
	return a, nil
}

// Close releases the store and lock backend and flushes the logger.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	_ = a.Log.Sync()
	return internal(first)
}

type closableStore interface {
	tracker.Store
	io.Closer
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (closableStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		opts := sqlstore.Options{Dialect: sqlstore.SQLite, MaxConns: cfg.Storage.MaxConns}
		if cfg.Storage.Driver == config.DriverPostgres {
			opts.Dialect = sqlstore.Postgres
			opts.DSN = cfg.Storage.DSN
		} else {
			path, err := cfg.StoragePath()
			if err != nil {
				return nil, err
			}
			opts.DSN = path
		}
		s, err := sqlstore.Open(ctx, opts, log)
		if err != nil {
			return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Driver, err)
		}
		return s, nil
	default:
		base, err := cfg.StoragePath()
		if err != nil {
			return nil, err
		}
		return storage.New(base), nil
	}
}

// redisLocker closes its client with the app.
type redisLocker struct {
	*keylock.RedisLocker
	client *redis.Client
}

func (r redisLocker) Close() error { return r.client.Close() }

func newLocker(ctx context.Context, cfg config.Config, log *zap.Logger) (keylock.Locker, error) {
	if cfg.Lock.Backend != config.LockRedis {
		return keylock.NewMemoryLocker(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Lock.RedisAddr,
		Password: cfg.Lock.RedisPassword,
		DB:       cfg.Lock.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Lock.RedisAddr, err)
	}
	var opts []keylock.RedisOption
	if cfg.Lock.TTLSeconds > 0 {
		opts = append(opts, keylock.WithTTL(time.Duration(cfg.Lock.TTLSeconds)*time.Second))
	}
	return redisLocker{RedisLocker: keylock.NewRedisLocker(client, log, opts...), client: client}, nil
}
