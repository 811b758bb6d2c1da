// Package app provides the top-level application lifecycle. It wires the
// stores, API clients, rate limiter, and optional archive together and runs
// the requested mode: collect, backtest, or watch.
package app

import (
	"log/slog"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/config"
)

// App is the root application object. It owns the configuration and logger;
// dependency lifecycles are managed by Wire's cleanup function.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}
