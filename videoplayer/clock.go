package videoplayer

import "time"

// PlaybackClock is the master clock of a playing file. It only accumulates
// once started; the output driver starts it when the first audio frame is
// available, or on the first tick when the file has no audio. It is mutated
// exclusively by Engine.Tick.
type PlaybackClock struct {
	accumulated float64
	reference   time.Time
	started     bool
}

// Started reports whether the clock is accumulating.
func (c *PlaybackClock) Started() bool {
	return c.started
}

// Start begins accumulation.
func (c *PlaybackClock) Start() {
	c.started = true
}

// Seconds returns the accumulated playback time.
func (c *PlaybackClock) Seconds() float64 {
	return c.accumulated
}

// Advance adds delta to the accumulated time if the clock is started and
// records now as the reference for the next wall-clock measurement.
func (c *PlaybackClock) Advance(delta time.Duration, now time.Time) {
	if c.started && delta > 0 {
		c.accumulated += delta.Seconds()
	}
	c.reference = now
}

// Elapsed returns the wall-clock time since the last Advance or Anchor.
// Returns zero before the first reference is taken.
func (c *PlaybackClock) Elapsed(now time.Time) time.Duration {
	if c.reference.IsZero() {
		return 0
	}
	d := now.Sub(c.reference)
	if d < 0 {
		return 0
	}
	return d
}

// Anchor moves the wall-clock reference to now without accumulating, so
// time spent paused is not counted.
func (c *PlaybackClock) Anchor(now time.Time) {
	c.reference = now
}

// Reset returns the clock to zero and stops accumulation.
func (c *PlaybackClock) Reset() {
	c.accumulated = 0
	c.started = false
	c.reference = time.Time{}
}
