package config

import (
	"fmt"
	"slices"
)

// SampleRates lists the output rates the audio device accepts.
var SampleRates = []int{22050, 32000, 44100, 48000}

const (
	maxPictureWidth  = 7680
	maxPictureHeight = 4320
)

// Validate checks every field against its valid range and returns
// human-readable problems. An empty slice means the config is valid.
func Validate(c *Config) []string {
	var errs []string

	if c.Video.MaxWidth < 0 || c.Video.MaxWidth > maxPictureWidth {
		errs = append(errs, fmt.Sprintf("video.maxWidth: %d (valid: 0-%d)", c.Video.MaxWidth, maxPictureWidth))
	}
	if c.Video.MaxHeight < 0 || c.Video.MaxHeight > maxPictureHeight {
		errs = append(errs, fmt.Sprintf("video.maxHeight: %d (valid: 0-%d)", c.Video.MaxHeight, maxPictureHeight))
	}
	if c.Video.MinQueueSeconds < 0.1 || c.Video.MinQueueSeconds > 5 {
		errs = append(errs, fmt.Sprintf("video.minQueueSeconds: %.2f (valid: 0.1-5.0)", c.Video.MinQueueSeconds))
	}

	if !slices.Contains(SampleRates, c.Audio.SampleRate) {
		errs = append(errs, fmt.Sprintf("audio.sampleRate: %d (valid: %v)", c.Audio.SampleRate, SampleRates))
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 2.0 {
		errs = append(errs, fmt.Sprintf("audio.volume: %.2f (valid: 0.0-2.0)", c.Audio.Volume))
	}
	if c.Audio.BufferMs < 20 || c.Audio.BufferMs > 1000 {
		errs = append(errs, fmt.Sprintf("audio.bufferMs: %d (valid: 20-1000)", c.Audio.BufferMs))
	}

	if c.Window.Width < 320 {
		errs = append(errs, fmt.Sprintf("window.width: %d (valid: >= 320)", c.Window.Width))
	}
	if c.Window.Height < 240 {
		errs = append(errs, fmt.Sprintf("window.height: %d (valid: >= 240)", c.Window.Height))
	}
	if c.Window.TPS < 24 || c.Window.TPS > 240 {
		errs = append(errs, fmt.Sprintf("window.tps: %d (valid: 24-240)", c.Window.TPS))
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr: empty (required when metrics.enabled)")
	}

	if c.Snapshot.MaxWidth != 0 && c.Snapshot.MaxWidth < 16 {
		errs = append(errs, fmt.Sprintf("snapshot.maxWidth: %d (valid: 0 or >= 16)", c.Snapshot.MaxWidth))
	}

	return errs
}

// ApplyDefaults resets every invalid field to its default. Valid fields
// are kept.
func ApplyDefaults(c *Config) *Config {
	d := Default()

	if c.Video.MaxWidth < 0 || c.Video.MaxWidth > maxPictureWidth {
		c.Video.MaxWidth = d.Video.MaxWidth
	}
	if c.Video.MaxHeight < 0 || c.Video.MaxHeight > maxPictureHeight {
		c.Video.MaxHeight = d.Video.MaxHeight
	}
	if c.Video.MinQueueSeconds < 0.1 || c.Video.MinQueueSeconds > 5 {
		c.Video.MinQueueSeconds = d.Video.MinQueueSeconds
	}

	if !slices.Contains(SampleRates, c.Audio.SampleRate) {
		c.Audio.SampleRate = d.Audio.SampleRate
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 2.0 {
		c.Audio.Volume = d.Audio.Volume
	}
	if c.Audio.BufferMs < 20 || c.Audio.BufferMs > 1000 {
		c.Audio.BufferMs = d.Audio.BufferMs
	}

	if c.Window.Width < 320 {
		c.Window.Width = d.Window.Width
	}
	if c.Window.Height < 240 {
		c.Window.Height = d.Window.Height
	}
	if c.Window.TPS < 24 || c.Window.TPS > 240 {
		c.Window.TPS = d.Window.TPS
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		c.Metrics.Addr = d.Metrics.Addr
	}

	if c.Snapshot.MaxWidth != 0 && c.Snapshot.MaxWidth < 16 {
		c.Snapshot.MaxWidth = d.Snapshot.MaxWidth
	}

	return c
}
