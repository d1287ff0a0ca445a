// Package config loads the application configuration from TOML files.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Output driver names accepted in the config file.
const (
	DriverBeep = "beep"
	DriverMock = "mock"
)

type Config struct {
	Log      LogConfig      `koanf:"log"`
	Output   OutputConfig   `koanf:"output"`
	Playback PlaybackConfig `koanf:"playback"`

	// MusicDirs are the directories the local source scans for tracks.
	MusicDirs []string `koanf:"music_dirs"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
	Format string `koanf:"format"` // "text" or "json"
}

// OutputConfig selects and configures the output driver.
type OutputConfig struct {
	Driver string `koanf:"driver"` // "beep" or "mock"
}

// PlaybackConfig holds playback defaults.
type PlaybackConfig struct {
	DefaultVolume      float64 `koanf:"default_volume"`       // 0.0-1.0 (default: 0.8)
	ProgressIntervalMs int     `koanf:"progress_interval_ms"` // progress sample period (default: 333)
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Expand ~ in music_dirs
	for i, dir := range cfg.MusicDirs {
		cfg.MusicDirs[i] = expandPath(dir)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills in the zero values left by missing config keys.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Output.Driver == "" {
		c.Output.Driver = DriverBeep
	}
	if c.Playback.DefaultVolume <= 0 || c.Playback.DefaultVolume > 1 {
		c.Playback.DefaultVolume = 0.8
	}
	if c.Playback.ProgressIntervalMs <= 0 {
		c.Playback.ProgressIntervalMs = 333
	}
}

// ProgressInterval returns the progress sample period as a duration.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Playback.ProgressIntervalMs) * time.Millisecond
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/chorus/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "chorus", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
