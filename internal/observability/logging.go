// Package observability provides logger construction for the guild simulator.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/guildmaster/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
// Every entry carries an "app" field set to app.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger and its adjustable level, or a non-nil error.
func NewLogger(cfg config.LoggingConfig, app string) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	atom := zap.NewAtomicLevelAt(level)
	zapCfg.Level = atom
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if app != "" {
		zapCfg.InitialFields = map[string]interface{}{"app": app}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("building logger: %w", err)
	}
	return logger, atom, nil
}
