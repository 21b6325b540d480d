// Package app wires a case together with fx.
package app

import (
	"context"
	"time"

	"github.com/matheus3301/waforensic/internal/acquire"
	"github.com/matheus3301/waforensic/internal/bus"
	"github.com/matheus3301/waforensic/internal/config"
	"github.com/matheus3301/waforensic/internal/ingest"
	"github.com/matheus3301/waforensic/internal/lock"
	"github.com/matheus3301/waforensic/internal/logging"
	"github.com/matheus3301/waforensic/internal/pipeline"
	"github.com/matheus3301/waforensic/internal/status"
	"github.com/matheus3301/waforensic/internal/store"
	"github.com/matheus3301/waforensic/internal/workspace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Params holds the resolved settings passed to the fx module.
type Params struct {
	Config *config.Config
	// CaseID overrides the configured default case; empty uses the default
	// or a fresh id.
	CaseID string
	// Runner overrides the adb command runner; nil runs real commands.
	Runner acquire.Runner
}

// Module returns the fx module for one case, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("waforensic",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideCase,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideAcquirer,
			provideIngestEngine,
			provideCheckpoints,
			pipeline.NewRunner,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: logger}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, p.Config.Validate()
	}
	return config.LoadOrDefault(workspace.ConfigPath())
}

func provideCase(p Params, cfg *config.Config) (*workspace.Case, error) {
	id := workspace.Resolve(p.CaseID, cfg.DefaultCase, time.Now())
	c, err := workspace.Open(cfg.OutputDir, id)
	if err != nil {
		return nil, err
	}
	if err := c.EnsureDirs(); err != nil {
		return nil, err
	}
	return c, nil
}

func provideLogger(c *workspace.Case, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(c.LogPath(), c.ID, cfg.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(c *workspace.Case, logger *zap.Logger) (*lock.Lock, error) {
	logger.Debug("acquiring case lock", zap.String("case", c.ID))
	l, err := lock.Acquire(c.Root)
	if err != nil {
		return nil, err
	}
	logger.Debug("case lock acquired", zap.String("path", l.Path()))
	return l, nil
}

// provideStore depends on the lock so that the archive is only opened by
// the lock holder.
func provideStore(c *workspace.Case, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(c.ArchivePath())
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("from", result.Previous), zap.Uint("version", result.Version))
	} else {
		logger.Debug("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Debug("archive opened", zap.String("path", c.ArchivePath()))
	return db, nil
}

func provideAcquirer(p Params, cfg *config.Config, logger *zap.Logger) *acquire.Acquirer {
	opts := []acquire.Option{acquire.WithADB(cfg.Acquire.ADBPath, cfg.Acquire.ADBTimeout.Duration)}
	if p.Runner != nil {
		opts = append(opts, acquire.WithRunner(p.Runner))
	}
	return acquire.New(logger, opts...)
}

func provideIngestEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *ingest.Engine {
	return ingest.NewEngine(db, b, logger)
}

func provideCheckpoints(db *store.DB, logger *zap.Logger) *ingest.Checkpoints {
	return ingest.NewCheckpoints(db, logger)
}

func registerLifecycle(lc fx.Lifecycle, c *workspace.Case, db *store.DB, lk *lock.Lock, b *bus.Bus, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logger.Info("case opened", zap.String("case", c.ID), zap.String("root", c.Root))
			return nil
		},
		OnStop: func(_ context.Context) error {
			if err := db.Close(); err != nil {
				logger.Warn("error closing archive", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			if n := b.Dropped(); n > 0 {
				logger.Debug("bus events dropped", zap.Int64("count", n))
			}
			logger.Info("case closed", zap.String("case", c.ID))
			_ = logger.Sync()
			return nil
		},
	})
}
