// Package ffmpeg implements the avcore decode backend on top of FFmpeg
// through go-astiav. Decoded pictures are converted to RGBA with swscale and
// audio is resampled with swresample to the engine's output format.
package ffmpeg

import (
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/rs/zerolog"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
)

// DefaultIOBufferSize is the read buffer handed to FFmpeg for in-memory
// media.
const DefaultIOBufferSize = 64 * 1024

// Backend opens media files with FFmpeg. It implements avcore.Backend and
// avcore.DataOpener.
type Backend struct {
	log     zerolog.Logger
	threads int
}

// Option configures a Backend.
type Option func(*Backend)

// WithThreads sets the decoder thread count. Zero lets FFmpeg decide.
func WithThreads(n int) Option {
	return func(b *Backend) {
		b.threads = n
	}
}

// New creates a backend. FFmpeg's own log output is limited to errors.
func New(logger zerolog.Logger, opts ...Option) *Backend {
	astiav.SetLogLevel(astiav.LogLevelError)
	b := &Backend{log: logger.With().Str("component", "ffmpeg").Logger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open opens the container at path.
func (b *Backend) Open(path string) (avcore.Container, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, avcore.NewStreamError(avcore.ErrContainerOpen, "open", avcore.StreamVideo, fmt.Errorf("failed to allocate format context"))
	}
	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, avcore.NewStreamError(avcore.ErrContainerOpen, "open", avcore.StreamVideo, fmt.Errorf("failed to open %s: %w", path, err))
	}
	return b.probe(path, fc, nil)
}

// OpenData opens media held in memory through a custom IO context.
func (b *Backend) OpenData(name string, data []byte) (avcore.Container, error) {
	if len(data) == 0 {
		return nil, avcore.NewStreamError(avcore.ErrContainerOpen, "open", avcore.StreamVideo, fmt.Errorf("%s is empty", name))
	}

	r := newMemReader(data)
	ioc, err := astiav.AllocIOContext(DefaultIOBufferSize, false, r.read, r.seek, nil)
	if err != nil {
		return nil, avcore.NewStreamError(avcore.ErrContainerOpen, "open", avcore.StreamVideo, fmt.Errorf("failed to allocate io context: %w", err))
	}

	fc := astiav.AllocFormatContext()
	if fc == nil {
		ioc.Free()
		return nil, avcore.NewStreamError(avcore.ErrContainerOpen, "open", avcore.StreamVideo, fmt.Errorf("failed to allocate format context"))
	}
	fc.SetPb(ioc)
	if err := fc.OpenInput("", nil, nil); err != nil {
		fc.Free()
		ioc.Free()
		return nil, avcore.NewStreamError(avcore.ErrContainerOpen, "open", avcore.StreamVideo, fmt.Errorf("failed to open %s: %w", name, err))
	}
	return b.probe(name, fc, ioc)
}

// probe reads stream info and selects the first video and audio streams.
// On error the format context and io context are released.
func (b *Backend) probe(name string, fc *astiav.FormatContext, ioc *astiav.IOContext) (avcore.Container, error) {
	c := &container{
		name:    name,
		fc:      fc,
		ioc:     ioc,
		threads: b.threads,
		log:     b.log.With().Str("path", name).Logger(),
		video:   -1,
		audio:   -1,
	}

	if err := fc.FindStreamInfo(nil); err != nil {
		c.Close()
		return nil, avcore.NewStreamError(avcore.ErrContainerOpen, "probe", avcore.StreamVideo, fmt.Errorf("failed to find stream info: %w", err))
	}

	for i, s := range fc.Streams() {
		switch s.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			if c.video < 0 {
				c.video = i
			}
		case astiav.MediaTypeAudio:
			if c.audio < 0 {
				c.audio = i
			}
		}
	}
	if c.video < 0 {
		c.Close()
		return nil, avcore.NewStreamError(avcore.ErrStreamNotFound, "probe", avcore.StreamVideo, nil)
	}

	c.videoInfo = videoStreamInfo(fc.Streams()[c.video])
	if c.audio >= 0 {
		c.audioInfo = audioStreamInfo(fc.Streams()[c.audio])
	}
	c.next = make(map[int]int64, 2)

	ev := c.log.Debug().
		Str("video", c.videoInfo.Codec).
		Int("width", c.videoInfo.Width).
		Int("height", c.videoInfo.Height)
	if c.audio >= 0 {
		ev = ev.Str("audio", c.audioInfo.Codec).Int("channels", c.audioInfo.Channels)
	}
	ev.Msg("container opened")
	return c, nil
}

func videoStreamInfo(s *astiav.Stream) avcore.StreamInfo {
	par := s.CodecParameters()
	fr := s.AvgFrameRate()
	if fr.Num() <= 0 || fr.Den() <= 0 {
		fr = s.RFrameRate()
	}
	return avcore.StreamInfo{
		Index:     s.Index(),
		Codec:     codecName(par.CodecID()),
		TimeBase:  rational(s.TimeBase()),
		FrameRate: rational(fr),
		Width:     par.Width(),
		Height:    par.Height(),
	}
}

func audioStreamInfo(s *astiav.Stream) avcore.StreamInfo {
	par := s.CodecParameters()
	return avcore.StreamInfo{
		Index:      s.Index(),
		Codec:      codecName(par.CodecID()),
		TimeBase:   rational(s.TimeBase()),
		SampleRate: par.SampleRate(),
		Channels:   par.ChannelLayout().Channels(),
	}
}

func codecName(id astiav.CodecID) string {
	if d := astiav.FindDecoder(id); d != nil {
		return d.Name()
	}
	return "unknown"
}

func rational(r astiav.Rational) avcore.Rational {
	return avcore.Rational{Num: r.Num(), Den: r.Den()}
}
