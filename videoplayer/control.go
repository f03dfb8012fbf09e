package videoplayer

import "sync"

// decodeControl coordinates the decode goroutine with the host side. The
// goroutine polls it once per loop iteration; nothing here blocks.
type decodeControl struct {
	mu        sync.Mutex
	running   bool
	stopReq   bool
	eof       bool
	rewindReq bool
}

func newDecodeControl() *decodeControl {
	return &decodeControl{running: true}
}

// Stop signals the decode goroutine to exit.
func (dc *decodeControl) Stop() {
	dc.mu.Lock()
	dc.running = false
	dc.stopReq = true
	dc.rewindReq = false
	dc.mu.Unlock()
}

// ShouldRun returns true if the goroutine should continue running.
func (dc *decodeControl) ShouldRun() bool {
	dc.mu.Lock()
	r := dc.running && !dc.stopReq
	dc.mu.Unlock()
	return r
}

// SetEOF records that the reader has no more packets.
func (dc *decodeControl) SetEOF() {
	dc.mu.Lock()
	dc.eof = true
	dc.mu.Unlock()
}

// EOF reports whether the reader reached end of file.
func (dc *decodeControl) EOF() bool {
	dc.mu.Lock()
	e := dc.eof
	dc.mu.Unlock()
	return e
}

// Drained reports end of file with no rewind in flight.
func (dc *decodeControl) Drained() bool {
	dc.mu.Lock()
	d := dc.eof && !dc.rewindReq
	dc.mu.Unlock()
	return d
}

// RequestRewind asks the decode goroutine to seek back to the start.
func (dc *decodeControl) RequestRewind() {
	dc.mu.Lock()
	if dc.running {
		dc.rewindReq = true
	}
	dc.mu.Unlock()
}

// RewindPending reports whether a rewind has been requested and not yet
// carried out.
func (dc *decodeControl) RewindPending() bool {
	dc.mu.Lock()
	r := dc.rewindReq
	dc.mu.Unlock()
	return r
}

// FinishRewind clears the rewind request. When the seek succeeded the EOF
// flag is cleared in the same critical section so the output driver never
// sees a drained reader without a pending rewind in between.
func (dc *decodeControl) FinishRewind(seeked bool) {
	dc.mu.Lock()
	if seeked {
		dc.eof = false
	}
	dc.rewindReq = false
	dc.mu.Unlock()
}
