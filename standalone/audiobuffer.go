package standalone

import (
	"io"
	"sync"
)

// AudioRingBuffer is a fixed-size byte FIFO between the engine's audio
// sink calls and oto's pull-model reader. When a write would overflow, the
// oldest bytes are dropped. Read blocks until data arrives or the buffer
// is closed.
type AudioRingBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	r      int
	n      int
	closed bool
}

// NewAudioRingBuffer creates a buffer holding at most capacity bytes.
func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	rb := &AudioRingBuffer{buf: make([]byte, capacity)}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write appends p. Writes after Close are ignored.
func (rb *AudioRingBuffer) Write(p []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closed || len(p) == 0 {
		return
	}

	size := len(rb.buf)
	if len(p) >= size {
		copy(rb.buf, p[len(p)-size:])
		rb.r = 0
		rb.n = size
		rb.cond.Broadcast()
		return
	}

	if over := rb.n + len(p) - size; over > 0 {
		rb.r = (rb.r + over) % size
		rb.n -= over
	}
	w := (rb.r + rb.n) % size
	c := copy(rb.buf[w:], p)
	copy(rb.buf, p[c:])
	rb.n += len(p)
	rb.cond.Broadcast()
}

// Read implements io.Reader for oto. It returns io.EOF once the buffer is
// closed and drained.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for rb.n == 0 && !rb.closed {
		rb.cond.Wait()
	}
	if rb.n == 0 {
		return 0, io.EOF
	}

	size := len(rb.buf)
	want := min(len(p), rb.n)
	c := copy(p[:want], rb.buf[rb.r:min(rb.r+want, size)])
	copy(p[c:want], rb.buf)
	rb.r = (rb.r + want) % size
	rb.n -= want
	return want, nil
}

// Buffered returns the number of unread bytes.
func (rb *AudioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.n
}

// Capacity returns the buffer size in bytes.
func (rb *AudioRingBuffer) Capacity() int {
	return len(rb.buf)
}

// Clear drops all unread bytes.
func (rb *AudioRingBuffer) Clear() {
	rb.mu.Lock()
	rb.r = 0
	rb.n = 0
	rb.mu.Unlock()
}

// Close wakes blocked readers. Remaining bytes can still be read.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	rb.closed = true
	rb.cond.Broadcast()
	rb.mu.Unlock()
}
