package ffmpeg

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/rs/zerolog"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
)

// videoDecoder decodes one video stream and converts every picture to
// tightly packed RGBA.
type videoDecoder struct {
	par     *astiav.CodecParameters
	threads int
	maxW    int
	maxH    int
	log     zerolog.Logger

	cc     *astiav.CodecContext
	frame  *astiav.Frame
	scaler rgbaScaler
}

func (d *videoDecoder) open() error {
	codec := astiav.FindDecoder(d.par.CodecID())
	if codec == nil {
		return avcore.NewStreamError(avcore.ErrCodecNotFound, "open decoder", avcore.StreamVideo, nil)
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return avcore.NewStreamError(avcore.ErrCodecContext, "open decoder", avcore.StreamVideo, fmt.Errorf("failed to allocate codec context"))
	}
	if err := d.par.ToCodecContext(cc); err != nil {
		cc.Free()
		return avcore.NewStreamError(avcore.ErrCodecContext, "open decoder", avcore.StreamVideo, err)
	}
	if d.threads > 0 {
		cc.SetThreadCount(d.threads)
	}
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return avcore.NewStreamError(avcore.ErrCodecContext, "open decoder", avcore.StreamVideo, err)
	}

	d.cc = cc
	if d.frame == nil {
		d.frame = astiav.AllocFrame()
	}
	return nil
}

// Decode sends pkt to the decoder and returns every picture it produced.
// A packet that yields no picture yet is not an error.
func (d *videoDecoder) Decode(pkt *avcore.Packet) ([]*avcore.Picture, error) {
	ap, ok := pkt.Handle.(*astiav.Packet)
	if !ok {
		return nil, avcore.NewStreamError(avcore.ErrDecode, "decode", avcore.StreamVideo, fmt.Errorf("packet has no ffmpeg payload"))
	}
	if err := d.cc.SendPacket(ap); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return nil, avcore.NewStreamError(avcore.ErrDecode, "decode", avcore.StreamVideo, err)
	}
	return d.receive()
}

// Drain enters draining mode and returns the pictures still held by the
// codec.
func (d *videoDecoder) Drain() ([]*avcore.Picture, error) {
	if err := d.cc.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return nil, avcore.NewStreamError(avcore.ErrDecode, "drain", avcore.StreamVideo, err)
	}
	return d.receive()
}

// receive pulls every available frame and converts it to RGBA.
func (d *videoDecoder) receive() ([]*avcore.Picture, error) {
	return receiveFrames(
		func() error { return d.cc.ReceiveFrame(d.frame) },
		func() (*avcore.Picture, error) {
			defer d.frame.Unref()
			w, h := avcore.FitSize(d.frame.Width(), d.frame.Height(), d.maxW, d.maxH)
			pixels, err := d.scaler.convert(d.frame, w, h)
			if err != nil {
				return nil, err
			}
			return &avcore.Picture{Width: w, Height: h, Pixels: pixels}, nil
		},
		func(err error) error {
			return avcore.NewStreamError(avcore.ErrDecode, "decode", avcore.StreamVideo, err)
		},
		func(err error) error {
			return avcore.NewStreamError(avcore.ErrDecode, "convert", avcore.StreamVideo, err)
		},
	)
}

// Flush drops buffered pictures by reopening the codec context.
func (d *videoDecoder) Flush() error {
	if d.cc != nil {
		d.cc.Free()
		d.cc = nil
	}
	d.log.Debug().Msg("video decoder flushed")
	return d.open()
}

func (d *videoDecoder) Close() error {
	d.scaler.close()
	if d.frame != nil {
		d.frame.Free()
		d.frame = nil
	}
	if d.cc != nil {
		d.cc.Free()
		d.cc = nil
	}
	return nil
}

// rgbaScaler converts decoded frames to RGBA at a target size. The scale
// context is rebuilt whenever the source or target geometry changes.
type rgbaScaler struct {
	ssc        *astiav.SoftwareScaleContext
	dst        *astiav.Frame
	srcW, srcH int
	srcPix     astiav.PixelFormat
	dstW, dstH int
}

func (s *rgbaScaler) close() {
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.ssc != nil {
		s.ssc.Free()
		s.ssc = nil
	}
}

func (s *rgbaScaler) ensure(src *astiav.Frame, dw, dh int) error {
	sw, sh, sp := src.Width(), src.Height(), src.PixelFormat()
	if s.ssc != nil && sw == s.srcW && sh == s.srcH && sp == s.srcPix && dw == s.dstW && dh == s.dstH {
		return nil
	}
	s.close()

	flags := astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear)
	ssc, err := astiav.CreateSoftwareScaleContext(sw, sh, sp, dw, dh, astiav.PixelFormatRgba, flags)
	if err != nil {
		return fmt.Errorf("failed to create scale context %dx%d %s: %w", sw, sh, sp, err)
	}

	dst := astiav.AllocFrame()
	dst.SetWidth(dw)
	dst.SetHeight(dh)
	dst.SetPixelFormat(astiav.PixelFormatRgba)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("failed to allocate rgba frame: %w", err)
	}

	s.ssc = ssc
	s.dst = dst
	s.srcW, s.srcH, s.srcPix = sw, sh, sp
	s.dstW, s.dstH = dw, dh
	return nil
}

// convert scales src into a new tightly packed RGBA slice.
func (s *rgbaScaler) convert(src *astiav.Frame, dw, dh int) ([]byte, error) {
	if dw <= 0 || dh <= 0 {
		return nil, fmt.Errorf("invalid picture size %dx%d", dw, dh)
	}
	if err := s.ensure(src, dw, dh); err != nil {
		return nil, err
	}
	if err := s.ssc.ScaleFrame(src, s.dst); err != nil {
		return nil, fmt.Errorf("failed to scale frame: %w", err)
	}

	n, err := s.dst.ImageBufferSize(1)
	if err != nil {
		return nil, fmt.Errorf("failed to size rgba buffer: %w", err)
	}
	out := make([]byte, n)
	if _, err := s.dst.ImageCopyToBuffer(out, 1); err != nil {
		return nil, fmt.Errorf("failed to copy rgba buffer: %w", err)
	}
	return out, nil
}
