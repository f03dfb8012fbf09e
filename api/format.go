package avcore

// SampleFormat identifies the PCM sample encoding handed to the audio sink.
type SampleFormat int

const (
	SampleS16LE SampleFormat = iota
	SampleF32LE
)

// BytesPerSample returns the size of one sample of one channel.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleF32LE:
		return 4
	default:
		return 2
	}
}

// String returns the display name of the sample format.
func (f SampleFormat) String() string {
	switch f {
	case SampleS16LE:
		return "s16le"
	case SampleF32LE:
		return "f32le"
	default:
		return "unknown"
	}
}

// Default engine output format. Matches the audio device the standalone
// player opens.
const (
	DefaultSampleRate = 48000
	DefaultChannels   = 2
)

// OutputFormat is the fixed PCM layout every audio chunk is resampled to.
type OutputFormat struct {
	SampleRate int
	Channels   int
	Format     SampleFormat
}

// DefaultOutputFormat returns 48kHz stereo signed 16-bit little-endian.
func DefaultOutputFormat() OutputFormat {
	return OutputFormat{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		Format:     SampleS16LE,
	}
}

// FrameBytes returns the size of one sample frame across all channels.
func (f OutputFormat) FrameBytes() int {
	return f.Channels * f.Format.BytesPerSample()
}

// Duration returns the playback length in seconds of n bytes of PCM.
func (f OutputFormat) Duration(n int) float64 {
	fb := f.FrameBytes()
	if fb == 0 || f.SampleRate == 0 {
		return 0
	}
	return float64(n/fb) / float64(f.SampleRate)
}

// FitSize scales width x height down to fit within maxWidth x maxHeight
// while preserving aspect ratio. A zero bound leaves that axis unconstrained.
// Pictures are never scaled up. Results are rounded down to even values,
// which chroma-subsampled sources require.
func FitSize(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	w, h := width, height
	if maxWidth > 0 && w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
	}
	if maxHeight > 0 && h > maxHeight {
		w = w * maxHeight / h
		h = maxHeight
	}
	if w == width && h == height {
		return w, h
	}

	w &^= 1
	h &^= 1
	if w < 2 {
		w = 2
	}
	if h < 2 {
		h = 2
	}
	return w, h
}
