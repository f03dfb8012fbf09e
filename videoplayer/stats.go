package videoplayer

import "sync/atomic"

// Stats holds playback counters. Fields are updated from the decode
// goroutine and the host tick.
type Stats struct {
	videoFrames    atomic.Int64
	framesSkipped  atomic.Int64
	framesShown    atomic.Int64
	audioChunks    atomic.Int64
	audioBytes     atomic.Int64
	decodeErrors   atomic.Int64
	resampleErrors atomic.Int64
	loops          atomic.Int64
}

func (s *Stats) reset() {
	s.videoFrames.Store(0)
	s.framesSkipped.Store(0)
	s.framesShown.Store(0)
	s.audioChunks.Store(0)
	s.audioBytes.Store(0)
	s.decodeErrors.Store(0)
	s.resampleErrors.Store(0)
	s.loops.Store(0)
}

// StatsSnapshot is a point-in-time copy of the engine counters and queue
// state.
type StatsSnapshot struct {
	// VideoFrames counts frames written to the output picture slot.
	VideoFrames int64
	// FramesSkipped counts unconsumed pictures overwritten by catch-up.
	FramesSkipped int64
	// FramesPresented counts pictures handed to the picture sink.
	FramesPresented int64
	AudioChunks     int64
	AudioBytes      int64
	DecodeErrors    int64
	ResampleErrors  int64
	Loops           int64

	VideoQueue   int
	AudioQueue   int
	ClockSeconds float64
	// LastVideoPTS is the pts of the frame most recently moved into the
	// picture slot; LastPresentedPTS the one most recently handed to a sink.
	LastVideoPTS     float64
	LastPresentedPTS float64
}
