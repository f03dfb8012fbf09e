// Package avcore defines the decode backend and output sink contracts the
// playback engine is written against.
package avcore

// Backend opens media containers. Implementations wrap a concrete demuxer
// and codec library so the playback engine never touches library structs.
type Backend interface {
	// Open opens the container at path and probes its streams.
	// A missing or unparsable file yields ErrContainerOpen and a file
	// without a usable video stream yields ErrStreamNotFound.
	Open(path string) (Container, error)
}

// DataOpener is implemented by backends that can open media held in memory,
// such as videos extracted from an archive.
type DataOpener interface {
	// OpenData opens an in-memory container. The name is only used for
	// logging and format hints.
	OpenData(name string, data []byte) (Container, error)
}

// Container is an opened media file with a selected video stream and an
// optional audio stream.
type Container interface {
	// Video returns the selected video stream.
	Video() StreamInfo

	// Audio returns the selected audio stream. The bool is false when the
	// file has no audio track.
	Audio() (StreamInfo, bool)

	// ReadPacket returns the next packet of the selected streams. Packets
	// from other streams are skipped. Returns io.EOF at end of file.
	ReadPacket() (*Packet, error)

	// OpenVideoDecoder creates a decoder that outputs RGBA pictures.
	OpenVideoDecoder(opts VideoOptions) (VideoDecoder, error)

	// OpenAudioDecoder creates a decoder that outputs PCM in the given format.
	OpenAudioDecoder(format OutputFormat) (AudioDecoder, error)

	// SeekStart rewinds the container to time zero.
	SeekStart() error

	// Close releases the container. Decoders must be closed first.
	Close() error
}

// VideoOptions configures picture conversion.
type VideoOptions struct {
	// MaxWidth and MaxHeight bound the converted picture size while keeping
	// the aspect ratio. Zero means native size.
	MaxWidth  int
	MaxHeight int
}

// VideoDecoder turns video packets into RGBA pictures.
type VideoDecoder interface {
	// Decode feeds one packet and returns every picture the codec produced.
	// A packet that yields no picture is not an error. A picture that could
	// not be converted is dropped and reported as ErrDecode alongside any
	// pictures that did convert.
	Decode(pkt *Packet) ([]*Picture, error)

	// Drain signals end of input and returns the pictures the codec was
	// still holding back for reordering or frame threading. The decoder
	// accepts no more packets until Flush.
	Drain() ([]*Picture, error)

	// Flush discards buffered codec state, used after a seek.
	Flush() error

	// Close releases the decoder.
	Close() error
}

// AudioDecoder turns audio packets into PCM chunks in the engine output format.
type AudioDecoder interface {
	// Decode feeds one packet and returns every resampled chunk the codec
	// produced. Resampling failures are reported as ErrResample.
	Decode(pkt *Packet) ([][]byte, error)

	// Drain signals end of input and returns the remaining decoded samples,
	// including what the resampler had buffered. The decoder accepts no
	// more packets until Flush.
	Drain() ([][]byte, error)

	// Flush discards buffered codec and resampler state, used after a seek.
	Flush() error

	// Close releases the decoder.
	Close() error
}

// Picture is a decoded and converted video picture.
type Picture struct {
	Width  int
	Height int
	// Pixels is tightly packed RGBA, Width*Height*4 bytes.
	Pixels []byte
}
