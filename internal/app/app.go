// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chorus-audio/chorus/internal/adapter/output/beep"
	"github.com/chorus-audio/chorus/internal/adapter/output/mock"
	"github.com/chorus-audio/chorus/internal/adapter/repository/memory"
	"github.com/chorus-audio/chorus/internal/adapter/source/local"
	"github.com/chorus-audio/chorus/internal/config"
	"github.com/chorus-audio/chorus/internal/hub"
	"github.com/chorus-audio/chorus/internal/logger"
	"github.com/chorus-audio/chorus/internal/player"
	"github.com/chorus-audio/chorus/internal/ports"
	"github.com/chorus-audio/chorus/internal/queue"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
type Application struct {
	// Core dependencies
	logger *slog.Logger

	// Infrastructure
	hub    *hub.Hub
	queue  *queue.Queue
	driver ports.OutputDriver

	// Playback core
	engine *player.Engine
	player *player.Player
}

// Config holds application configuration.
type Config struct {
	// LogLevel controls logging verbosity
	LogLevel slog.Level

	// LogFormat is "text" or "json"
	LogFormat string

	// OutputDriver selects the output backend ("beep" or "mock")
	OutputDriver string

	// DefaultVolume is the startup volume in [0, 1]
	DefaultVolume float64

	// ProgressInterval is the progress sampling period
	ProgressInterval time.Duration

	// MusicDirs are the directories the local source scans
	MusicDirs []string
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	loggerCfg := logger.DefaultConfig()
	return Config{
		LogLevel:         loggerCfg.Level,
		LogFormat:        loggerCfg.Format,
		OutputDriver:     config.DriverBeep,
		DefaultVolume:    0.8,
		ProgressInterval: player.DefaultSampleInterval,
	}
}

// ConfigFromFile maps a loaded file configuration onto the application
// configuration.
func ConfigFromFile(fc *config.Config) Config {
	return Config{
		LogLevel:         logger.ParseLevel(fc.Log.Level),
		LogFormat:        fc.Log.Format,
		OutputDriver:     fc.Output.Driver,
		DefaultVolume:    fc.Playback.DefaultVolume,
		ProgressInterval: fc.ProgressInterval(),
		MusicDirs:        fc.MusicDirs,
	}
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(cfg Config) (*Application, error) {
	app := &Application{}

	// Step 1: Create logger
	app.logger = logger.NewLogger(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	app.logger.Info("initializing application",
		slog.String("version", GetVersionInfo().Version),
		slog.String("output_driver", cfg.OutputDriver))

	// Step 2: Create the notification hub
	app.hub = hub.New(app.logger.With(slog.String("component", "hub")))

	// Step 3: Create the queue, with the hub as its notifier
	app.queue = queue.New(app.hub)

	// Step 4: Create the output driver
	switch cfg.OutputDriver {
	case config.DriverMock:
		app.driver = mock.NewDriver(app.logger.With(slog.String("driver", "mock")))
	case config.DriverBeep, "":
		driver, err := beep.NewDriver(app.logger.With(slog.String("driver", "beep")))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize output driver: %w", err)
		}
		app.driver = driver
	default:
		return nil, fmt.Errorf("unknown output driver %q", cfg.OutputDriver)
	}

	// Step 5: Create the engine
	app.engine = player.NewEngine(
		app.logger.With(slog.String("component", "engine")),
		app.driver,
		app.queue,
		app.hub,
		cfg.ProgressInterval,
	)
	app.engine.SetVolume(cfg.DefaultVolume)

	// Step 6: Create the facade with playlist persistence
	app.player = player.New(
		app.logger.With(slog.String("component", "player")),
		app.queue,
		app.engine,
		app.hub,
		memory.NewRepository(),
	)

	// Step 7: Register sources
	src := local.NewSource(
		app.logger.With(slog.String("source", "local")),
		cfg.MusicDirs,
	)
	if err := src.Initialize(context.Background()); err != nil {
		// Non-fatal: an empty catalog still plays explicitly enqueued paths.
		app.logger.Warn("failed to build local catalog", slog.Any("error", err))
	}
	app.player.RegisterSource(src)

	app.logger.Info("all components initialized successfully")
	return app, nil
}

// Player returns the playback facade.
func (a *Application) Player() *player.Player {
	return a.player
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Shutdown gracefully shuts down the application.
// This should be called via deferring in main.go.
func (a *Application) Shutdown() {
	a.logger.Info("shutting down application")

	if a.player != nil {
		if err := a.player.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown player", slog.Any("error", err))
		}
	}

	a.logger.Info("application shutdown complete")
}
