package ffmpeg

import (
	"errors"
	"io"
)

// FFmpeg seek whence flags. AVSEEK_SIZE asks for the stream size instead
// of a seek; AVSEEK_FORCE is a hint plain memory ignores.
const (
	avseekSize  = 0x10000
	avseekForce = 0x20000
)

// memReader serves an in-memory file to FFmpeg's custom IO callbacks.
type memReader struct {
	data []byte
	pos  int64
}

func newMemReader(data []byte) *memReader {
	return &memReader{data: data}
}

func (r *memReader) read(b []byte) (int, error) {
	if r.pos >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(b, r.data[r.pos:])
	r.pos += int64(n)
	return n, nil
}

func (r *memReader) seek(offset int64, whence int) (int64, error) {
	size := int64(len(r.data))
	if whence&avseekSize != 0 {
		return size, nil
	}

	var pos int64
	switch whence &^ avseekForce {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = r.pos + offset
	case io.SeekEnd:
		pos = size + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if pos < 0 {
		return 0, errors.New("negative position")
	}
	r.pos = pos
	return pos, nil
}
