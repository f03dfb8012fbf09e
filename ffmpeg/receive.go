package ffmpeg

import (
	"errors"

	"github.com/asticode/go-astiav"
)

// receiveFrames runs a codec receive loop until the codec wants more input
// or is fully drained. recv fetches the next frame and convert turns it into
// a unit. A frame that fails to convert is dropped and the loop carries on so
// nothing is left inside the codec; the first such error is returned,
// wrapped by convErr, together with the units that did convert. A receive
// error ends the loop and is wrapped by recvErr.
func receiveFrames[T any](recv func() error, convert func() (T, error), recvErr, convErr func(error) error) ([]T, error) {
	var (
		units []T
		first error
	)
	for {
		err := recv()
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return units, first
		}
		if err != nil {
			return units, recvErr(err)
		}

		u, err := convert()
		if err != nil {
			if first == nil {
				first = convErr(err)
			}
			continue
		}
		units = append(units, u)
	}
}
