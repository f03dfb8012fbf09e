package videoplayer

// EventType identifies a signal the engine sends to the host.
type EventType int

const (
	// EventFrameConsumed fires after Present handed a picture to the sink.
	EventFrameConsumed EventType = iota
	// EventFinished fires once when the file has played out and looping
	// is off.
	EventFinished
	// EventLooped fires when playback wraps back to the start.
	EventLooped
	// EventDecodeError carries a non-fatal per-frame error.
	EventDecodeError
	// EventFailed carries the fatal error that aborted Start.
	EventFailed
)

// String returns the display name of the event type.
func (t EventType) String() string {
	switch t {
	case EventFrameConsumed:
		return "frame-consumed"
	case EventFinished:
		return "finished"
	case EventLooped:
		return "looped"
	case EventDecodeError:
		return "decode-error"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a signal to the host. Err is set for EventDecodeError and
// EventFailed.
type Event struct {
	Type EventType
	Err  error
}

// Listener receives engine events. It is called from the goroutine that
// produced the event: the host tick for frame, finish and loop events, the
// decode goroutine for decode errors. A listener must not call Stop
// synchronously from a decode error event.
type Listener func(Event)
