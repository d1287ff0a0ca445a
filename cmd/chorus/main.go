// Package main is the production entry point for the Chorus playback
// controller.
//
// Build:
//
//	go build -o build/chorus ./cmd/chorus
//
// Run:
//
//	./build/chorus [file ...]
//
// Files given on the command line are enqueued and playback starts from the
// first one. Without arguments Chorus builds its catalog from the configured
// music directories and waits for interrupt.
package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chorus-audio/chorus/internal/adapter/source/local"
	"github.com/chorus-audio/chorus/internal/app"
	"github.com/chorus-audio/chorus/internal/config"
	"github.com/chorus-audio/chorus/internal/domain"
)

func main() {
	fileCfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.NewApplication(app.ConfigFromFile(fileCfg))
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer application.Shutdown()

	logger := application.Logger()
	logger.Info(app.GetVersionInfo().FullString())

	player := application.Player()
	player.AddListener(&consoleListener{logger: logger.With(slog.String("component", "console"))})

	if args := os.Args[1:]; len(args) > 0 {
		src := local.NewSource(logger.With(slog.String("source", "local")), nil)
		tracks := make([]domain.Track, 0, len(args))
		for _, path := range args {
			tracks = append(tracks, src.TrackFromPath(path))
		}
		if err := player.SetQueue(tracks, 0); err != nil {
			logger.Error("failed to start playback", slog.Any("error", err))
		}
	}

	// Block until interrupted.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("interrupt received, exiting")
}

// consoleListener logs playback notifications. It demonstrates the listener
// capability set end to end.
type consoleListener struct {
	logger *slog.Logger
}

func (c *consoleListener) OnStateChange(state domain.PlayerState) {
	if state.Status == domain.StatusFailed {
		c.logger.Warn("playback failed", slog.String("reason", state.Reason))
		return
	}
	c.logger.Info("state changed", slog.String("state", state.Status.String()))
}

func (c *consoleListener) OnProgress(progress domain.Progress) {
	c.logger.Debug("progress",
		slog.String("position", domain.FormatDuration(progress.Position)),
		slog.String("duration", domain.FormatDuration(progress.Duration)))
}

func (c *consoleListener) OnQueueChange(tracks []domain.Track) {
	c.logger.Info("queue changed", slog.Int("tracks", len(tracks)))
}

func (c *consoleListener) OnCurrentTrackChange(track *domain.Track) {
	if track == nil {
		c.logger.Info("queue emptied")
		return
	}
	c.logger.Info("now playing", slog.String("track", track.DisplayString()))
}

func (c *consoleListener) OnShuffleChange(shuffled bool) {
	c.logger.Info("shuffle changed", slog.Bool("shuffled", shuffled))
}

func (c *consoleListener) OnRepeatModeChange(mode domain.RepeatMode) {
	c.logger.Info("repeat mode changed", slog.String("mode", mode.String()))
}
