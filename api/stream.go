package avcore

// StreamKind identifies which selected stream a packet belongs to.
type StreamKind int

const (
	StreamVideo StreamKind = iota
	StreamAudio
)

// String returns the display name of the stream kind.
func (k StreamKind) String() string {
	switch k {
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Rational is a fraction such as a stream time base or frame rate.
type Rational struct {
	Num int
	Den int
}

// Float64 returns the fraction as a float. A zero denominator yields 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Valid reports whether both terms are positive.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Seconds converts a timestamp in time-base units to seconds.
func Seconds(ts int64, tb Rational) float64 {
	return float64(ts) * tb.Float64()
}

// StreamInfo describes a selected stream.
type StreamInfo struct {
	Index    int
	Codec    string
	TimeBase Rational

	// Video only
	FrameRate Rational
	Width     int
	Height    int

	// Audio only
	SampleRate int
	Channels   int
}

// Packet is one compressed unit read from the container. Timestamps are in
// stream time-base units.
type Packet struct {
	Kind     StreamKind
	PTS      int64
	DTS      int64
	Duration int64
	Keyframe bool

	// Data holds the payload for backends that work on plain bytes.
	Data []byte

	// Handle carries a backend-native packet the backend's own decoders
	// understand.
	Handle any

	// Release frees backend resources attached to the packet.
	Release func()
}

// Free releases the packet. Safe to call more than once.
func (p *Packet) Free() {
	if p == nil || p.Release == nil {
		return
	}
	p.Release()
	p.Release = nil
}
