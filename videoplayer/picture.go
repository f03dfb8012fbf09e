package videoplayer

import "sync"

// OutputPicture is the single-slot hand-off between the output driver and
// the render side. The driver writes a frame only once the previous one has
// been consumed, unless it is dropping a stale frame. The render side copies
// the pixels out under the lock and only then marks the slot consumed.
type OutputPicture struct {
	mu       sync.Mutex
	pixels   []byte
	width    int
	height   int
	pts      float64
	consumed bool
}

// NewOutputPicture creates an empty slot. An empty slot counts as consumed
// so the first frame is written without a drop.
func NewOutputPicture() *OutputPicture {
	return &OutputPicture{consumed: true}
}

// Consumed reports whether the render side has taken the current picture.
func (p *OutputPicture) Consumed() bool {
	p.mu.Lock()
	c := p.consumed
	p.mu.Unlock()
	return c
}

// Store copies frame into the slot and marks it unconsumed. It returns true
// if an unconsumed picture was overwritten.
func (p *OutputPicture) Store(frame *VideoFrame) bool {
	p.mu.Lock()
	n := len(frame.Pixels)
	if cap(p.pixels) < n {
		p.pixels = make([]byte, n)
	}
	p.pixels = p.pixels[:n]
	copy(p.pixels, frame.Pixels)
	p.width = frame.Width
	p.height = frame.Height
	p.pts = frame.PTS
	dropped := !p.consumed
	p.consumed = false
	p.mu.Unlock()
	return dropped
}

// Consume copies an unconsumed picture into dst, growing it as needed, and
// marks the slot consumed. ok is false if there was nothing new to take.
func (p *OutputPicture) Consume(dst []byte) (pixels []byte, width, height int, pts float64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.consumed {
		return dst, 0, 0, 0, false
	}

	n := len(p.pixels)
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	copy(dst, p.pixels)
	p.consumed = true
	return dst, p.width, p.height, p.pts, true
}

// Reset empties the slot.
func (p *OutputPicture) Reset() {
	p.mu.Lock()
	p.pixels = p.pixels[:0]
	p.width = 0
	p.height = 0
	p.pts = 0
	p.consumed = true
	p.mu.Unlock()
}
