package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BuzzLyutic/task-sync/internal/config"
	"github.com/BuzzLyutic/task-sync/internal/remote"
	"github.com/BuzzLyutic/task-sync/internal/repo"
	"github.com/BuzzLyutic/task-sync/internal/service"
	"github.com/BuzzLyutic/task-sync/internal/worker"
)

// app holds the wiring shared by every subcommand.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *repo.Store
	callbacks *worker.Pool
	sync      *service.SyncService
	tasks     *service.TaskService
}

func (a *app) open(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)
	a.cfg = cfg

	a.logger, err = newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	backend, err := openBackend(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.store = repo.NewStore(backend, a.logger)

	client, err := remote.NewClient(cfg.RemoteBaseURL, a.logger, remote.WithUserAgent(cfg.UserAgent))
	if err != nil {
		return err
	}

	// one worker: completions never overlap
	a.callbacks = worker.NewPool(a.logger, 1)
	a.callbacks.Start(context.Background())

	a.sync = service.NewSyncService(a.store, client, a.callbacks, a.logger)
	a.tasks = service.NewTaskService(a.store, a.sync, a.logger)
	return nil
}

func (a *app) close() error {
	if a.sync != nil {
		a.sync.Wait()
		a.sync = nil
	}
	if a.callbacks != nil {
		a.callbacks.Stop()
		a.callbacks = nil
	}
	var err error
	if a.store != nil {
		err = a.store.Close()
		a.store = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("remote") {
		cfg.RemoteBaseURL, _ = flags.GetString("remote")
	}
	if flags.Changed("store") {
		cfg.StoreDriver, _ = flags.GetString("store")
	}
	if flags.Changed("sqlite-path") {
		cfg.SQLitePath, _ = flags.GetString("sqlite-path")
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL, _ = flags.GetString("database-url")
	}
	if noPull, _ := flags.GetBool("no-pull"); noPull {
		cfg.PullOnStart = false
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func openBackend(ctx context.Context, cfg config.Config) (repo.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repo.NewMemoryBackend(), nil
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if err := repo.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return repo.NewPostgresBackend(pool), nil
	case config.DriverSQLite:
		backend, err := repo.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
