// Command esvideo plays a video file, or the first video inside an
// archive, in a desktop window.
//
//	esvideo [flags] <file>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
	"github.com/RetroDECK/ES-DE-sub002/config"
	"github.com/RetroDECK/ES-DE-sub002/ffmpeg"
	"github.com/RetroDECK/ES-DE-sub002/medialoader"
	"github.com/RetroDECK/ES-DE-sub002/metrics"
	"github.com/RetroDECK/ES-DE-sub002/standalone"
	"github.com/RetroDECK/ES-DE-sub002/videoplayer"
)

type flags struct {
	configPath  string
	loop        bool
	mute        bool
	volume      float64
	debug       bool
	metricsAddr string
}

func (f *flags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Set custom configuration file path")
	fs.BoolVarP(&f.loop, "loop", "l", false, "Restart playback when the video ends")
	fs.BoolVarP(&f.mute, "mute", "m", false, "Start muted")
	fs.Float64Var(&f.volume, "volume", 1.0, "Audio volume (0.0-2.0)")
	fs.BoolVarP(&f.debug, "debug", "d", false, "Enable debug logging")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

// apply overrides cfg with every flag set on the command line.
func (f *flags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("loop") {
		cfg.Video.Loop = f.loop
	}
	if fs.Changed("mute") {
		cfg.Video.Muted = f.mute
	}
	if fs.Changed("volume") {
		cfg.Audio.Volume = f.volume
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Enabled = f.metricsAddr != ""
		cfg.Metrics.Addr = f.metricsAddr
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	return zerolog.New(out).With().Timestamp().Logger()
}

func main() {
	var f flags
	fs := pflag.NewFlagSet("esvideo", pflag.ExitOnError)
	f.register(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: esvideo [flags] <file>\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	log := newLogger(f.debug)
	if err := run(fs.Arg(0), &f, fs, log); err != nil {
		log.Error().Err(err).Msg("esvideo failed")
		os.Exit(1)
	}
}

func run(path string, f *flags, fs *pflag.FlagSet, log zerolog.Logger) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	f.apply(fs, cfg)
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			log.Warn().Str("field", e).Msg("invalid config value, using default")
		}
		config.ApplyDefaults(cfg)
	}

	media, err := medialoader.LoadVideo(path)
	if err != nil {
		return fmt.Errorf("failed to load video: %w", err)
	}

	format := avcore.OutputFormat{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   avcore.DefaultChannels,
		Format:     avcore.SampleS16LE,
	}
	opts := videoplayer.Options{
		Logger:          &log,
		Loop:            cfg.Video.Loop,
		Muted:           cfg.Video.Muted,
		OutputFormat:    format,
		Video:           avcore.VideoOptions{MaxWidth: cfg.Video.MaxWidth, MaxHeight: cfg.Video.MaxHeight},
		MinQueueSeconds: cfg.Video.MinQueueSeconds,
		Listener:        eventLogger(log),
	}

	audio, err := standalone.NewAudioPlayer(format, cfg.Audio.Volume, cfg.Audio.BufferMs)
	if err != nil {
		log.Warn().Err(err).Msg("audio unavailable, playing silently")
	} else {
		defer audio.Close()
		opts.AudioSink = audio
	}

	engine := videoplayer.New(ffmpeg.New(log), opts)
	if media.InMemory() {
		err = engine.StartData(media.Name, media.Data)
	} else {
		err = engine.Start(media.Path)
	}
	if err != nil {
		return err
	}
	defer engine.Stop()

	if info, err := engine.Info(); err == nil {
		ev := log.Info().
			Str("file", info.Name).
			Str("video", info.Video.Codec).
			Int("width", info.Video.Width).
			Int("height", info.Video.Height).
			Float64("fps", info.Video.FrameRate.Float64())
		if info.HasAudio {
			ev = ev.Str("audio", info.Audio.Codec).Int("rate", info.Audio.SampleRate)
		}
		ev.Msg("playing")
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(sigCtx)
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(ctx, cfg.Metrics.Addr, metrics.NewRegistry(engine), log)
		})
	}

	var snaps *standalone.SnapshotManager
	if dir, err := cfg.SnapshotDir(); err != nil {
		log.Warn().Err(err).Msg("snapshots disabled")
	} else {
		snaps = standalone.NewSnapshotManager(dir, cfg.Snapshot.MaxWidth)
	}

	player := standalone.NewPlayer(engine, standalone.PlayerOptions{
		Name:      media.Name,
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		TPS:       cfg.Window.TPS,
		Snapshots: snaps,
		Done:      sigCtx.Done(),
		Logger:    log,
	})
	start := time.Now()
	runErr := player.Run()
	stop()

	st := engine.Stats()
	log.Info().
		Dur("elapsed", time.Since(start)).
		Int64("frames", st.FramesPresented).
		Int64("skipped", st.FramesSkipped).
		Int64("decodeErrors", st.DecodeErrors+st.ResampleErrors).
		Msg("playback ended")

	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("metrics server")
	}
	return runErr
}

func eventLogger(log zerolog.Logger) videoplayer.Listener {
	return func(ev videoplayer.Event) {
		switch ev.Type {
		case videoplayer.EventLooped:
			log.Debug().Msg("looped")
		case videoplayer.EventFinished:
			log.Info().Msg("finished")
		case videoplayer.EventFailed:
			log.Error().Err(ev.Err).Msg("playback failed")
		}
	}
}
