// Package videoplayer decodes a media file into renderer-ready RGBA pictures
// and player-ready PCM chunks and paces both against an audio-master clock.
//
// One Engine plays one file at a time. Start opens the file and spins up a
// single decode goroutine that keeps a video and an audio queue above their
// low-water marks. The host drives playback by calling Tick from its frame
// loop, which forwards due audio to the AudioSink and moves due video into a
// single-slot OutputPicture. The render side takes that picture with Present.
package videoplayer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of an Engine.
type State int

const (
	StateStopped State = iota
	StateOpening
	StatePlaying
	StatePaused
	StateFailed
)

// String returns the display name of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateOpening:
		return "opening"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyStarted is returned by Start while a file is open.
	ErrAlreadyStarted = errors.New("engine already started")
	// ErrNotStarted is returned by Info when no file is open.
	ErrNotStarted = errors.New("engine not started")
	// ErrNoDataOpener is returned by StartData when the backend cannot
	// open in-memory media.
	ErrNoDataOpener = errors.New("backend cannot open in-memory media")
)

// VideoFrame is a decoded, converted picture waiting in the video queue.
type VideoFrame struct {
	Width         int
	Height        int
	PTS           float64
	FrameDuration float64
	// Pixels is tightly packed RGBA, Width*Height*4 bytes.
	Pixels []byte
}

// AudioFrame is a resampled PCM chunk waiting in the audio queue.
type AudioFrame struct {
	PTS     float64
	Samples []byte
}

// ByteLength returns the chunk size in bytes.
func (f AudioFrame) ByteLength() int {
	return len(f.Samples)
}

type videoStream struct {
	info          avcore.StreamInfo
	decoder       avcore.VideoDecoder
	lowWater      int
	frameDuration float64
}

type audioStream struct {
	info     avcore.StreamInfo
	decoder  avcore.AudioDecoder
	lowWater int
}

// Engine is the decode and synchronization engine for one media file.
type Engine struct {
	backend avcore.Backend
	opts    Options
	log     zerolog.Logger

	// lifecycleMu serializes Start and Stop.
	lifecycleMu sync.Mutex

	// mu guards state, clock and the end-of-stream bookkeeping. Tick holds
	// it for its whole pass so Stop cannot interleave with an emission.
	mu       sync.Mutex
	state    State
	clock    PlaybackClock
	finished bool
	name     string

	// presentMu lets Stop wait out a Present that is mid sink call.
	presentMu    sync.Mutex
	presentBuf   []byte
	presentedPTS float64

	container  avcore.Container
	video      *videoStream
	audio      *audioStream
	videoQueue *FrameQueue[VideoFrame]
	audioQueue *FrameQueue[AudioFrame]
	picture    *OutputPicture
	ctl        *decodeControl
	group      *errgroup.Group

	// Owned by the decode goroutine
	lastQueuedPTS float64
	nextVideoPTS  float64
	nextAudioPTS  float64
	lastDuration  float64

	// Owned by Tick
	lastEmittedPTS float64

	muted atomic.Bool
	loop  atomic.Bool
	stats Stats
}

// New creates a stopped engine that opens files through backend.
func New(backend avcore.Backend, opts Options) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		backend:    backend,
		opts:       opts,
		log:        *opts.Logger,
		videoQueue: NewFrameQueue[VideoFrame](32),
		audioQueue: NewFrameQueue[AudioFrame](64),
		picture:    NewOutputPicture(),
	}
	e.muted.Store(opts.Muted)
	e.loop.Store(opts.Loop)
	return e
}

// Start opens path and begins decoding. Fatal open errors are returned
// synchronously and leave the engine in StateFailed without a goroutine.
func (e *Engine) Start(path string) error {
	return e.start(path, func() (avcore.Container, error) {
		return e.backend.Open(path)
	})
}

// StartData is Start for media already loaded into memory, such as a video
// extracted from an archive. The backend must implement avcore.DataOpener.
func (e *Engine) StartData(name string, data []byte) error {
	opener, ok := e.backend.(avcore.DataOpener)
	if !ok {
		return fmt.Errorf("%w: %w", ErrNoDataOpener, avcore.ErrContainerOpen)
	}
	return e.start(name, func() (avcore.Container, error) {
		return opener.OpenData(name, data)
	})
}

func (e *Engine) start(name string, open func() (avcore.Container, error)) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	e.mu.Lock()
	if e.state != StateStopped && e.state != StateFailed {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.state = StateOpening
	e.name = name
	e.mu.Unlock()

	log := e.log.With().Str("component", "engine").Str("path", name).Logger()

	if err := e.open(open, log); err != nil {
		e.mu.Lock()
		e.state = StateFailed
		e.mu.Unlock()

		log.Error().Err(err).Msg("failed to open media")
		e.emit(Event{Type: EventFailed, Err: err})
		return err
	}

	e.stats.reset()
	e.videoQueue.Clear()
	e.audioQueue.Clear()
	e.picture.Reset()
	e.resetTimeline()
	e.lastEmittedPTS = 0
	e.presentMu.Lock()
	e.presentedPTS = 0
	e.presentMu.Unlock()
	e.ctl = newDecodeControl()
	e.group = new(errgroup.Group)

	e.mu.Lock()
	e.clock.Reset()
	e.finished = false
	e.state = StatePlaying
	e.mu.Unlock()

	e.group.Go(e.decodeLoop)

	ev := log.Info().
		Str("video", e.video.info.Codec).
		Int("width", e.video.info.Width).
		Int("height", e.video.info.Height).
		Float64("fps", e.video.info.FrameRate.Float64()).
		Int("videoLowWater", e.video.lowWater)
	if e.audio != nil {
		ev = ev.Str("audio", e.audio.info.Codec).
			Int("channels", e.audio.info.Channels).
			Int("audioLowWater", e.audio.lowWater)
	}
	ev.Msg("playback started")
	return nil
}

// open probes the container and allocates the stream contexts. On error
// everything it allocated is released.
func (e *Engine) open(open func() (avcore.Container, error), log zerolog.Logger) error {
	c, err := open()
	if err != nil {
		if !errors.Is(err, avcore.ErrContainerOpen) && !errors.Is(err, avcore.ErrStreamNotFound) {
			err = avcore.NewStreamError(avcore.ErrContainerOpen, "open", avcore.StreamVideo, err)
		}
		return err
	}

	vinfo := c.Video()
	vdec, err := c.OpenVideoDecoder(e.opts.Video)
	if err != nil {
		c.Close()
		return err
	}

	fps := vinfo.FrameRate.Float64()
	frameDuration := 1.0 / fallbackFrameRate
	if fps > 0 {
		frameDuration = 1.0 / fps
	}

	video := &videoStream{
		info:          vinfo,
		decoder:       vdec,
		lowWater:      videoLowWater(fps, e.opts.MinQueueSeconds),
		frameDuration: frameDuration,
	}

	var audio *audioStream
	if ainfo, ok := c.Audio(); ok {
		adec, err := c.OpenAudioDecoder(e.opts.OutputFormat)
		if err != nil {
			// Audio codec problems degrade to video only
			log.Warn().Err(err).Msg("audio stream unusable, playing video only")
		} else {
			audio = &audioStream{
				info:     ainfo,
				decoder:  adec,
				lowWater: audioLowWater(ainfo.Channels, e.opts.AudioQueueScale),
			}
		}
	}

	e.mu.Lock()
	e.container = c
	e.video = video
	e.audio = audio
	e.mu.Unlock()
	return nil
}

// Stop ends playback. It blocks until the decode goroutine has observed the
// stop flag and returned, then releases decoders, the container and all
// queued frames. Stop on an engine that was never started is a no-op.
func (e *Engine) Stop() {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	e.mu.Lock()
	switch e.state {
	case StateStopped:
		e.mu.Unlock()
		return
	case StateFailed:
		e.state = StateStopped
		e.mu.Unlock()
		return
	}
	e.state = StateStopped
	e.mu.Unlock()

	// No Tick can emit past this point; wait for a Present in flight
	e.presentMu.Lock()
	e.presentMu.Unlock()

	e.ctl.Stop()
	if err := e.group.Wait(); err != nil {
		e.log.Warn().Str("component", "engine").Err(err).Str("path", e.name).Msg("decode goroutine exited with error")
	}

	e.release()
	if e.opts.AudioSink != nil {
		e.opts.AudioSink.ClearQueue()
	}
	e.log.Info().Str("component", "engine").Str("path", e.name).Msg("playback stopped")
}

// release frees the stream contexts. Only called once the decode goroutine
// has been joined.
func (e *Engine) release() {
	e.mu.Lock()
	video, audio, c := e.video, e.audio, e.container
	e.video, e.audio, e.container = nil, nil, nil
	e.mu.Unlock()

	if video != nil {
		if err := video.decoder.Close(); err != nil {
			e.log.Warn().Str("component", "engine").Err(err).Msg("failed to close video decoder")
		}
	}
	if audio != nil {
		if err := audio.decoder.Close(); err != nil {
			e.log.Warn().Str("component", "engine").Err(err).Msg("failed to close audio decoder")
		}
	}
	if c != nil {
		if err := c.Close(); err != nil {
			e.log.Warn().Str("component", "engine").Err(err).Msg("failed to close container")
		}
	}
	e.videoQueue.Clear()
	e.audioQueue.Clear()
	e.picture.Reset()
}

// Pause freezes the clock. The decode goroutine keeps its queues filled.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.state == StatePlaying {
		e.state = StatePaused
	}
	e.mu.Unlock()
}

// Resume continues a paused engine. Time spent paused is not counted.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.state == StatePaused {
		e.state = StatePlaying
		e.clock.Anchor(e.opts.Now())
	}
	e.mu.Unlock()
}

// MediaInfo describes the streams of the open file.
type MediaInfo struct {
	Name     string
	Video    avcore.StreamInfo
	Audio    avcore.StreamInfo
	HasAudio bool
	// VideoLowWater and AudioLowWater are the queue refill thresholds.
	VideoLowWater int
	AudioLowWater int
}

// Info returns the stream layout of the open file.
func (e *Engine) Info() (MediaInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.video == nil || (e.state != StatePlaying && e.state != StatePaused) {
		return MediaInfo{}, ErrNotStarted
	}
	info := MediaInfo{
		Name:          e.name,
		Video:         e.video.info,
		VideoLowWater: e.video.lowWater,
	}
	if e.audio != nil {
		info.Audio = e.audio.info
		info.HasAudio = true
		info.AudioLowWater = e.audio.lowWater
	}
	return info, nil
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Finished reports whether the file played out with looping off.
func (e *Engine) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished
}

// HasAudio reports whether the open file has a usable audio stream.
func (e *Engine) HasAudio() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != StateStopped && e.state != StateFailed && e.audio != nil
}

// SetMuted toggles forwarding audio to the sink.
func (e *Engine) SetMuted(muted bool) {
	e.muted.Store(muted)
	if muted && e.opts.AudioSink != nil {
		e.opts.AudioSink.ClearQueue()
	}
}

// Muted reports whether audio forwarding is off.
func (e *Engine) Muted() bool {
	return e.muted.Load()
}

// SetLoop toggles restarting at end of stream.
func (e *Engine) SetLoop(loop bool) {
	e.loop.Store(loop)
}

// Loop reports whether looping is on.
func (e *Engine) Loop() bool {
	return e.loop.Load()
}

// Stats returns a snapshot of the playback counters.
func (e *Engine) Stats() StatsSnapshot {
	e.mu.Lock()
	clock := e.clock.Seconds()
	last := e.lastEmittedPTS
	e.mu.Unlock()

	e.presentMu.Lock()
	presented := e.presentedPTS
	e.presentMu.Unlock()

	return StatsSnapshot{
		VideoFrames:      e.stats.videoFrames.Load(),
		FramesSkipped:    e.stats.framesSkipped.Load(),
		FramesPresented:  e.stats.framesShown.Load(),
		AudioChunks:      e.stats.audioChunks.Load(),
		AudioBytes:       e.stats.audioBytes.Load(),
		DecodeErrors:     e.stats.decodeErrors.Load(),
		ResampleErrors:   e.stats.resampleErrors.Load(),
		Loops:            e.stats.loops.Load(),
		VideoQueue:       e.videoQueue.Len(),
		AudioQueue:       e.audioQueue.Len(),
		ClockSeconds:     clock,
		LastVideoPTS:     last,
		LastPresentedPTS: presented,
	}
}

// ClockSeconds returns the accumulated playback time.
func (e *Engine) ClockSeconds() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Seconds()
}

func (e *Engine) emit(ev Event) {
	if e.opts.Listener != nil {
		e.opts.Listener(ev)
	}
}

func (e *Engine) idle() {
	time.Sleep(e.opts.IdleSleep)
}
