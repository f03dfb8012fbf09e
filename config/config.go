// Package config loads the player configuration. Values come from
// Default, then an optional esvideo.yaml|json|toml file, then environment
// variables prefixed with ESVIDEO_ (for example ESVIDEO_AUDIO_VOLUME).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kkyr/fig"
)

const (
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "ESVIDEO"
	// FileName is the configuration file searched for when no explicit
	// path is given.
	FileName = "esvideo.yaml"
)

// Config is the complete player configuration.
type Config struct {
	Video    VideoConfig    `fig:"video"`
	Audio    AudioConfig    `fig:"audio"`
	Window   WindowConfig   `fig:"window"`
	Metrics  MetricsConfig  `fig:"metrics"`
	Snapshot SnapshotConfig `fig:"snapshot"`
}

// VideoConfig controls playback and decoding.
type VideoConfig struct {
	Loop  bool `fig:"loop"`
	Muted bool `fig:"muted"`
	// MaxWidth and MaxHeight bound converted pictures; 0 keeps the source
	// size.
	MaxWidth        int     `fig:"maxWidth"`
	MaxHeight       int     `fig:"maxHeight"`
	MinQueueSeconds float64 `fig:"minQueueSeconds"`
}

// AudioConfig controls the output device.
type AudioConfig struct {
	SampleRate int     `fig:"sampleRate"`
	Volume     float64 `fig:"volume"`
	BufferMs   int     `fig:"bufferMs"`
}

// WindowConfig is the initial host window.
type WindowConfig struct {
	Width  int `fig:"width"`
	Height int `fig:"height"`
	TPS    int `fig:"tps"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `fig:"enabled"`
	Addr    string `fig:"addr"`
}

// SnapshotConfig controls PNG snapshots. An empty Dir resolves to the
// snapshots directory under the data dir.
type SnapshotConfig struct {
	Dir      string `fig:"dir"`
	MaxWidth int    `fig:"maxWidth"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Video: VideoConfig{
			MinQueueSeconds: 0.4,
		},
		Audio: AudioConfig{
			SampleRate: 48000,
			Volume:     1.0,
			BufferMs:   100,
		},
		Window: WindowConfig{
			Width:  960,
			Height: 540,
			TPS:    60,
		},
		Metrics: MetricsConfig{
			Addr: ":9108",
		},
		Snapshot: SnapshotConfig{
			MaxWidth: 1280,
		},
	}
}

// Load reads the configuration. An explicit path must exist. Without one
// the file is searched for in the working directory, ./configs and the
// data dir; when none is found only defaults and environment apply. Keys
// absent from the file keep their defaults, so an explicit zero such as
// audio.volume: 0 is preserved.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		err := fig.Load(cfg, fig.File(filepath.Base(path)), fig.Dirs(filepath.Dir(path)), fig.UseEnv(EnvPrefix))
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		return cfg, nil
	}

	err := fig.Load(cfg, fig.File(FileName), fig.Dirs(searchDirs()...), fig.UseEnv(EnvPrefix))
	if errors.Is(err, fig.ErrFileNotFound) {
		err = fig.Load(cfg, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func searchDirs() []string {
	dirs := []string{".", "configs"}
	if base, err := GetBaseDir(); err == nil {
		dirs = append(dirs, base)
	}
	return dirs
}

// SnapshotDir returns the configured snapshot directory, defaulting to
// the snapshots directory under the data dir.
func (c *Config) SnapshotDir() (string, error) {
	if c.Snapshot.Dir != "" {
		return c.Snapshot.Dir, nil
	}
	base, err := GetBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, snapshotDir), nil
}
