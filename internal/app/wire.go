//go:build wireinject

package app

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/guildmaster/internal/config"
	"github.com/cory-johannsen/guildmaster/internal/game/battle"
	"github.com/cory-johannsen/guildmaster/internal/guild"
)

// Initialize wires an App from cfg.
func Initialize(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, func(), error) {
	wire.Build(
		ProvideStore,
		ProvideTable,
		ProvideSource,
		ProvideScripts,
		ProvideService,
		ProvideHTTPServer,
		guild.NewRoster,
		battle.NewEngine,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
