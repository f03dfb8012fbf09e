package videoplayer

import (
	"time"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
	"github.com/rs/zerolog"
)

// Defaults for Options fields left at their zero value.
const (
	DefaultMinQueueSeconds = 0.4
	DefaultAudioQueueScale = 15
	DefaultAudioLookahead  = 100 * time.Millisecond
	DefaultIdleSleep       = time.Millisecond
	minVideoQueue          = 3
	fallbackAudioQueue     = 30
	fallbackFrameRate      = 30.0
)

// Options configures an Engine.
type Options struct {
	// AudioSink receives PCM chunks. Nil plays silently; audio still
	// drives the clock.
	AudioSink avcore.AudioSink

	// Listener receives engine events. May be nil.
	Listener Listener

	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger

	// Loop restarts playback from the beginning at end of stream.
	Loop bool

	// Muted decodes and paces audio but does not forward it to the sink.
	Muted bool

	// OutputFormat is the PCM layout audio is resampled to.
	OutputFormat avcore.OutputFormat

	// Video bounds the converted picture size.
	Video avcore.VideoOptions

	// MinQueueSeconds sets the video low-water mark as a fraction of the
	// frame rate.
	MinQueueSeconds float64

	// AudioQueueScale sets the audio low-water mark per source channel.
	AudioQueueScale int

	// AudioLookahead lets audio be handed to the sink this far ahead of
	// the clock so the device never starves.
	AudioLookahead time.Duration

	// IdleSleep is how long the decode goroutine sleeps when both queues
	// are above their low-water marks or the reader hit end of file.
	IdleSleep time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	if o.OutputFormat.SampleRate <= 0 || o.OutputFormat.Channels <= 0 {
		o.OutputFormat = avcore.DefaultOutputFormat()
	}
	if o.MinQueueSeconds <= 0 {
		o.MinQueueSeconds = DefaultMinQueueSeconds
	}
	if o.AudioQueueScale <= 0 {
		o.AudioQueueScale = DefaultAudioQueueScale
	}
	if o.AudioLookahead <= 0 {
		o.AudioLookahead = DefaultAudioLookahead
	}
	if o.IdleSleep <= 0 {
		o.IdleSleep = DefaultIdleSleep
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// videoLowWater returns the video queue refill threshold for a frame rate.
func videoLowWater(frameRate float64, minQueueSeconds float64) int {
	if frameRate <= 0 {
		frameRate = fallbackFrameRate
	}
	n := int(frameRate*minQueueSeconds + 0.999)
	if n < minVideoQueue {
		n = minVideoQueue
	}
	return n
}

// audioLowWater returns the audio queue refill threshold for a channel count.
func audioLowWater(channels int, scale int) int {
	if channels <= 0 {
		return fallbackAudioQueue
	}
	return channels * scale
}
