// Package app holds process-wide state for the client.
package app

import (
	"time"

	"github.com/rs/zerolog"

	"voice-practice-client/internal/config"
	"voice-practice-client/internal/observability/logging"
)

// Application holds process-wide state for the client.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
}

// New constructs a new Application from the provided configuration and
// initializes the global logger.
func New(cfg *config.Configuration) *Application {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	a := &Application{
		Cfg: cfg,
		Logger: logging.Logger().With().
			Str("service", cfg.Service.Principal).
			Logger(),
	}

	a.Logger.Info().
		Str("logLevel", cfg.Observability.LogLevel).
		Msg("Voice practice client created")
	return a
}

// Start performs any startup work required before the session loop.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Voice practice client starting")
	return nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.Logger.Info().Msg("Voice practice client shutting down")
}
