package standalone

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
)

// ringSeconds is how much PCM the ring buffer holds. It must exceed the
// engine's audio lookahead plus the device buffer, since overflow drops the
// oldest samples.
const ringSeconds = 1

// AudioPlayer plays engine PCM through oto. It implements avcore.AudioSink:
// QueueSamples copies chunks into a ring buffer that oto's player drains.
type AudioPlayer struct {
	ctx    *oto.Context
	player *oto.Player
	ring   *AudioRingBuffer
	format avcore.OutputFormat
}

// NewAudioPlayer opens the audio device for format. bufferMs sizes the
// device buffer; volume is applied before playback starts so a muted
// start does not pop.
func NewAudioPlayer(format avcore.OutputFormat, volume float64, bufferMs int) (*AudioPlayer, error) {
	otoFormat, err := otoSampleFormat(format.Format)
	if err != nil {
		return nil, err
	}

	buffer := time.Duration(bufferMs) * time.Millisecond
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       otoFormat,
		BufferSize:   buffer,
	})
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}
	<-ready

	ring := NewAudioRingBuffer(ringSeconds * format.SampleRate * format.FrameBytes())
	player := ctx.NewPlayer(ring)
	player.SetBufferSize(bufferBytes(format, buffer))
	player.SetVolume(clampVolume(volume))
	player.Play()

	return &AudioPlayer{
		ctx:    ctx,
		player: player,
		ring:   ring,
		format: format,
	}, nil
}

func otoSampleFormat(f avcore.SampleFormat) (oto.Format, error) {
	switch f {
	case avcore.SampleS16LE:
		return oto.FormatSignedInt16LE, nil
	case avcore.SampleF32LE:
		return oto.FormatFloat32LE, nil
	}
	return 0, fmt.Errorf("unsupported sample format %s", f)
}

// bufferBytes converts a duration to a whole number of sample frames.
func bufferBytes(format avcore.OutputFormat, d time.Duration) int {
	frames := int(d.Seconds() * float64(format.SampleRate))
	return frames * format.FrameBytes()
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 2.0 {
		return 2.0
	}
	return v
}

// QueueSamples queues one PCM chunk.
func (a *AudioPlayer) QueueSamples(pcm []byte) {
	a.ring.Write(pcm)
}

// ClearQueue drops queued audio that has not reached the device.
func (a *AudioPlayer) ClearQueue() {
	a.ring.Clear()
}

// BufferLevel returns the seconds of audio buffered ahead of the speaker.
func (a *AudioPlayer) BufferLevel() float64 {
	return a.format.Duration(a.ring.Buffered() + a.player.BufferedSize())
}

// SetVolume sets the playback volume, clamped to [0.0, 2.0].
func (a *AudioPlayer) SetVolume(vol float64) {
	a.player.SetVolume(clampVolume(vol))
}

// Close stops playback.
func (a *AudioPlayer) Close() {
	a.ring.Close()
	a.player.Close()
}
