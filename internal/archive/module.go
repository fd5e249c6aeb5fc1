package archive

import (
	"context"
	"time"

	"github.com/matheus3301/chatarc/internal/bookmarks"
	"github.com/matheus3301/chatarc/internal/bus"
	"github.com/matheus3301/chatarc/internal/config"
	"github.com/matheus3301/chatarc/internal/lock"
	"github.com/matheus3301/chatarc/internal/logging"
	"github.com/matheus3301/chatarc/internal/migration"
	"github.com/matheus3301/chatarc/internal/parser"
	"github.com/matheus3301/chatarc/internal/perf"
	"github.com/matheus3301/chatarc/internal/store"
	"github.com/matheus3301/chatarc/internal/workspace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
}

// Module returns the fx module for the archive, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("archive",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideTracker,
			provideHandle,
			provideWorker,
			provideCoordinator,
			bookmarks.NewService,
			NewService,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() (*config.Config, error) {
	return config.Load(workspace.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := workspace.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	return logging.New(workspace.LogPath(p.Profile), p.Profile)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(workspace.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideTracker(cfg *config.Config, logger *zap.Logger) *perf.Tracker {
	return perf.New(logger, time.Duration(cfg.SlowOpMs)*time.Millisecond)
}

func provideHandle(p Params, _ *lock.Lock) *store.Handle {
	// The lock dependency orders handle creation after lock acquisition.
	return store.NewHandle(workspace.DBPath(p.Profile))
}

func provideWorker(cfg *config.Config) *parser.Worker {
	return parser.NewWorker(parser.New(cfg.ParserChunkSize))
}

func provideCoordinator(p Params, h *store.Handle, logger *zap.Logger) *migration.Coordinator {
	return migration.New(h,
		workspace.LegacyDBPath(p.Profile),
		workspace.MigrationFlagPath(p.Profile),
		logger)
}

func registerLifecycle(lc fx.Lifecycle, h *store.Handle, coord *migration.Coordinator, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Opening the handle up front runs schema migrations before any
			// operation touches the store.
			if _, err := h.Acquire(); err != nil {
				return err
			}

			needed, err := coord.NeedsMigration()
			if err != nil {
				// A broken legacy store must not keep the archive from
				// opening; the current store is intact either way.
				logger.Warn("legacy migration check failed", zap.Error(err))
				return nil
			}
			if needed {
				res, err := coord.Run()
				if err != nil {
					logger.Error("legacy migration failed", zap.Error(err))
					return nil
				}
				logger.Info("legacy store migrated",
					zap.Int("chats", res.MigratedChats),
					zap.Int("messages", res.MigratedMessages),
					zap.Int("bookmarks", res.MigratedBookmarks),
					zap.Int("skipped_bookmarks", res.SkippedBookmarks))
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			if err := h.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("archive stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
