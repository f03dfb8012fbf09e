package ffmpeg

import (
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astiav"
	"github.com/rs/zerolog"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
)

// container is an opened input with its selected streams. Only the decode
// goroutine uses it after open.
type container struct {
	name    string
	fc      *astiav.FormatContext
	ioc     *astiav.IOContext
	threads int
	log     zerolog.Logger

	video     int
	audio     int
	videoInfo avcore.StreamInfo
	audioInfo avcore.StreamInfo

	// next is the expected timestamp of the following packet per stream,
	// used when a packet carries none.
	next map[int]int64
}

func (c *container) Video() avcore.StreamInfo {
	return c.videoInfo
}

func (c *container) Audio() (avcore.StreamInfo, bool) {
	return c.audioInfo, c.audio >= 0
}

// ReadPacket returns the next packet of the selected streams. Packets of
// other streams are skipped. The returned packet owns an FFmpeg packet that
// Free releases.
func (c *container) ReadPacket() (*avcore.Packet, error) {
	for {
		pkt := astiav.AllocPacket()
		if err := c.fc.ReadFrame(pkt); err != nil {
			pkt.Free()
			if errors.Is(err, astiav.ErrEof) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}

		idx := pkt.StreamIndex()
		var kind avcore.StreamKind
		switch idx {
		case c.video:
			kind = avcore.StreamVideo
		case c.audio:
			kind = avcore.StreamAudio
		default:
			pkt.Free()
			continue
		}

		next := c.next[idx]
		pts, dts := fillTimestamps(pkt.Pts(), pkt.Dts(), next)
		if dur := pkt.Duration(); dur > 0 {
			c.next[idx] = max(pts, dts) + dur
		} else {
			c.next[idx] = max(pts, dts)
		}

		return &avcore.Packet{
			Kind:     kind,
			PTS:      pts,
			DTS:      dts,
			Duration: pkt.Duration(),
			Keyframe: pkt.Flags().Has(astiav.PacketFlagKey),
			Handle:   pkt,
			Release:  pkt.Free,
		}, nil
	}
}

// fillTimestamps substitutes missing timestamps. A missing DTS takes the
// PTS and the other way round; when both are missing the expected next
// timestamp of the stream is used.
func fillTimestamps(pts, dts, next int64) (int64, int64) {
	switch {
	case pts == astiav.NoPtsValue && dts == astiav.NoPtsValue:
		return next, next
	case dts == astiav.NoPtsValue:
		return pts, pts
	case pts == astiav.NoPtsValue:
		return dts, dts
	}
	return pts, dts
}

// SeekStart seeks the video stream back to its first keyframe.
func (c *container) SeekStart() error {
	if err := c.fc.SeekFrame(c.video, 0, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return fmt.Errorf("failed to seek %s to start: %w", c.name, err)
	}
	clear(c.next)
	return nil
}

func (c *container) OpenVideoDecoder(opts avcore.VideoOptions) (avcore.VideoDecoder, error) {
	s := c.fc.Streams()[c.video]
	d := &videoDecoder{
		par:     s.CodecParameters(),
		threads: c.threads,
		maxW:    opts.MaxWidth,
		maxH:    opts.MaxHeight,
		log:     c.log,
	}
	if err := d.open(); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *container) OpenAudioDecoder(format avcore.OutputFormat) (avcore.AudioDecoder, error) {
	if c.audio < 0 {
		return nil, avcore.NewStreamError(avcore.ErrStreamNotFound, "open decoder", avcore.StreamAudio, nil)
	}
	s := c.fc.Streams()[c.audio]
	d := &audioDecoder{
		par:    s.CodecParameters(),
		format: format,
		log:    c.log,
	}
	if err := d.open(); err != nil {
		return nil, err
	}
	return d, nil
}

// Close releases the input. Safe to call more than once.
func (c *container) Close() error {
	if c.fc != nil {
		c.fc.CloseInput()
		c.fc.Free()
		c.fc = nil
	}
	if c.ioc != nil {
		c.ioc.Free()
		c.ioc = nil
	}
	return nil
}
