package avcore

import (
	"errors"
	"fmt"
)

// Fatal open errors. Start aborts on these, except codec errors on the
// audio stream, which degrade playback to video only.
var (
	ErrContainerOpen  = errors.New("cannot open container")
	ErrStreamNotFound = errors.New("no usable video stream")
	ErrCodecNotFound  = errors.New("codec not found")
	ErrCodecContext   = errors.New("cannot set up codec context")
)

// Per-unit errors. The decode loop logs these and keeps going.
var (
	ErrDecode   = errors.New("decode failed")
	ErrResample = errors.New("resample failed")
)

// StreamError attaches the failing operation and stream to one of the
// sentinel errors above.
type StreamError struct {
	Op   string
	Kind StreamKind
	// Class is the sentinel the error matches with errors.Is.
	Class error
	Err   error
}

// NewStreamError builds a StreamError. err may be nil.
func NewStreamError(class error, op string, kind StreamKind, err error) *StreamError {
	return &StreamError{Op: op, Kind: kind, Class: class, Err: err}
}

func (e *StreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Class)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Kind, e.Op, e.Class, e.Err)
}

// Is matches the sentinel class.
func (e *StreamError) Is(target error) bool {
	return target == e.Class
}

// Unwrap returns the underlying cause.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err aborts an open. Per-unit decode and resample
// failures are not fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrDecode) && !errors.Is(err, ErrResample)
}
