package videoplayer

import (
	"time"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
)

// Tick advances the playback clock by delta and hands every unit that is
// now due to the sinks. It is called from the host's frame loop and never
// blocks on decode work. Tick does nothing unless the engine is playing.
func (e *Engine) Tick(delta time.Duration) {
	e.tick(delta, false)
}

// TickNow is Tick with the delta measured as the wall-clock time since the
// previous tick or Resume.
func (e *Engine) TickNow() {
	e.tick(0, true)
}

func (e *Engine) tick(delta time.Duration, wall bool) {
	now := e.opts.Now()

	e.mu.Lock()
	if e.state != StatePlaying {
		e.mu.Unlock()
		return
	}
	if wall {
		delta = e.clock.Elapsed(now)
	}
	events := e.driveLocked(delta, now)
	e.mu.Unlock()

	for _, ev := range events {
		e.emit(ev)
	}
}

// driveLocked runs one output pass. Sink calls happen under e.mu so that
// once Stop has set StateStopped no further audio reaches the sink.
func (e *Engine) driveLocked(delta time.Duration, now time.Time) []Event {
	if !e.clock.Started() && e.clockReady() {
		e.clock.Start()
	}
	e.clock.Advance(delta, now)
	acc := e.clock.Seconds()

	if e.audio != nil {
		e.emitAudioLocked(acc + e.opts.AudioLookahead.Seconds())
	}
	e.emitVideoLocked(acc)

	if !e.ctl.Drained() || e.videoQueue.Len() > 0 || e.audioQueue.Len() > 0 {
		return nil
	}

	if e.loop.Load() {
		e.clock.Reset()
		e.ctl.RequestRewind()
		e.lastEmittedPTS = 0
		e.finished = false
		e.stats.loops.Add(1)
		e.log.Debug().Str("component", "output").Str("path", e.name).Msg("end of stream, looping")
		return []Event{{Type: EventLooped}}
	}
	if e.finished {
		return nil
	}
	e.finished = true
	e.log.Info().Str("component", "output").Str("path", e.name).
		Float64("clock", acc).
		Int64("frames", e.stats.videoFrames.Load()).
		Int64("skipped", e.stats.framesSkipped.Load()).
		Msg("playback finished")
	return []Event{{Type: EventFinished}}
}

// clockReady reports whether the clock may start. With an audio stream it
// waits for the first chunk, but gives up waiting once the reader is at end
// of file or the video queue is full, so a track that never decodes cannot
// hold playback.
func (e *Engine) clockReady() bool {
	if e.audio == nil || e.audioQueue.Len() > 0 {
		return true
	}
	return e.ctl.EOF() || e.videoQueue.Len() >= e.video.lowWater
}

// emitAudioLocked forwards every chunk due before limit. Audio is never
// skipped; when muted the chunks are consumed without reaching the sink so
// the clock keeps its pace.
func (e *Engine) emitAudioLocked(limit float64) {
	due := func(f AudioFrame) bool { return f.PTS < limit }
	for {
		f, ok := e.audioQueue.PopIf(due)
		if !ok {
			return
		}
		e.stats.audioChunks.Add(1)
		e.stats.audioBytes.Add(int64(f.ByteLength()))
		if e.muted.Load() || e.opts.AudioSink == nil {
			continue
		}
		e.opts.AudioSink.QueueSamples(f.Samples)
	}
}

// emitVideoLocked moves due frames into the picture slot. While the render
// side has not taken the current picture a due frame waits, unless it is
// already more than three frame durations late, in which case it replaces
// the unconsumed picture.
func (e *Engine) emitVideoLocked(acc float64) {
	due := func(f VideoFrame) bool {
		if f.PTS >= acc {
			return false
		}
		if e.picture.Consumed() {
			return true
		}
		staleness := acc - f.PTS - 2*f.FrameDuration
		return staleness >= f.FrameDuration
	}
	for {
		f, ok := e.videoQueue.PopIf(due)
		if !ok {
			return
		}
		if e.picture.Store(&f) {
			e.stats.framesSkipped.Add(1)
		}
		e.stats.videoFrames.Add(1)
		e.lastEmittedPTS = f.PTS
	}
}

// Present hands the latest unconsumed picture to sink. It returns false if
// there was nothing new. The pixel slice passed to sink is reused by the
// next Present; sinks that keep it must copy.
func (e *Engine) Present(sink avcore.PictureSink) bool {
	e.presentMu.Lock()

	e.mu.Lock()
	active := e.state == StatePlaying || e.state == StatePaused
	e.mu.Unlock()
	if !active {
		e.presentMu.Unlock()
		return false
	}

	buf, w, h, pts, ok := e.picture.Consume(e.presentBuf)
	e.presentBuf = buf
	if !ok {
		e.presentMu.Unlock()
		return false
	}
	sink.UpdatePicture(w, h, buf)
	e.presentedPTS = pts
	e.stats.framesShown.Add(1)
	e.presentMu.Unlock()

	e.emit(Event{Type: EventFrameConsumed})
	return true
}
