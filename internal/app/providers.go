// Package app assembles the guild simulator from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/guildmaster/internal/api"
	"github.com/cory-johannsen/guildmaster/internal/config"
	"github.com/cory-johannsen/guildmaster/internal/game/battle"
	"github.com/cory-johannsen/guildmaster/internal/game/dice"
	"github.com/cory-johannsen/guildmaster/internal/game/ruleset"
	"github.com/cory-johannsen/guildmaster/internal/game/unit"
	"github.com/cory-johannsen/guildmaster/internal/guild"
	"github.com/cory-johannsen/guildmaster/internal/scripting"
	"github.com/cory-johannsen/guildmaster/internal/server"
	"github.com/cory-johannsen/guildmaster/internal/storage/postgres"
	"github.com/cory-johannsen/guildmaster/internal/storage/sqlite"
)

// App is a fully wired simulator.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Service *guild.Service
	HTTP    *http.Server
}

// ProvideStore opens the roster store selected by cfg.Storage.Driver.
//
// Postcondition: Returns the store and a cleanup func that releases it, or an error.
func ProvideStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (guild.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; saves are lost on exit")
		return guild.NewMemoryStore(), func() {}, nil

	case config.DriverPostgres:
		dbStart := time.Now()
		if err := postgres.MigrateUp(cfg.Database.DSN()); err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		return postgres.NewUnitRepository(pool.DB()), pool.Close, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing sqlite store", zap.Error(err))
			}
		}
		return store, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// ProvideTable returns the built-in table, with cfg.Game.JobTable overrides applied when set.
func ProvideTable(cfg config.Config, logger *zap.Logger) (*unit.Table, error) {
	if cfg.Game.JobTable == "" {
		return unit.DefaultTable(), nil
	}
	table, err := ruleset.LoadJobTable(cfg.Game.JobTable)
	if err != nil {
		return nil, err
	}
	logger.Info("job table loaded", zap.String("path", cfg.Game.JobTable))
	return table, nil
}

// ProvideSource returns the roll source. A zero seed selects crypto randomness.
func ProvideSource(cfg config.Config, logger *zap.Logger) dice.Source {
	src := dice.NewSource(cfg.Game.RandomSeed)
	if cfg.Game.LogRolls {
		return dice.NewLoggedSource(src, logger)
	}
	return src
}

// ProvideScripts loads the Lua hook directory. Returns a nil manager when no
// directory is configured.
func ProvideScripts(cfg config.Config, roster *guild.Roster, src dice.Source, logger *zap.Logger) (*scripting.Manager, func(), error) {
	if cfg.Game.ScriptDir == "" {
		return nil, func() {}, nil
	}
	mgr := scripting.NewManager(cfg.Game.ScriptInstructionLimit, roster.Get, src, logger)
	if _, err := mgr.Load(cfg.Game.ScriptDir); err != nil {
		mgr.Close()
		return nil, nil, err
	}
	return mgr, mgr.Close, nil
}

// ProvideService builds the guild service, attaching scripts when present.
func ProvideService(
	roster *guild.Roster,
	store guild.Store,
	engine *battle.Engine,
	src dice.Source,
	table *unit.Table,
	scripts *scripting.Manager,
	logger *zap.Logger,
) *guild.Service {
	opts := []guild.Option{guild.WithTable(table)}
	if scripts != nil {
		opts = append(opts, guild.WithObserver(scripts))
	}
	return guild.NewService(roster, store, engine, src, logger, opts...)
}

// ProvideHTTPServer builds the roster API server.
func ProvideHTTPServer(cfg config.Config, svc *guild.Service, logger *zap.Logger) *http.Server {
	return &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      api.NewRouter(svc, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
}

// Run loads the saved roster and serves until ctx is cancelled, a signal
// arrives, or a service fails. Autosave stops last so its final save sees
// every request.
func (a *App) Run(ctx context.Context) error {
	n, err := a.Service.Load(ctx)
	if err != nil {
		return err
	}
	a.Logger.Info("guild ready", zap.Int("units", n), zap.String("http_addr", a.HTTP.Addr))

	lifecycle := server.NewLifecycle(a.Logger)
	if interval := a.Config.Game.AutosaveInterval; interval > 0 {
		lifecycle.Add("autosave", guild.NewAutoSaver(a.Service, interval, a.Logger))
	}
	lifecycle.Add("http", server.NewHTTPService(a.HTTP, 10*time.Second, a.Logger))
	return lifecycle.Run(ctx)
}
