package ffmpeg

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/rs/zerolog"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
)

// audioDecoder decodes one audio stream and resamples it to the engine's
// output format.
type audioDecoder struct {
	par    *astiav.CodecParameters
	format avcore.OutputFormat
	log    zerolog.Logger

	cc    *astiav.CodecContext
	frame *astiav.Frame
	out   *astiav.Frame
	swr   *astiav.SoftwareResampleContext
}

func (d *audioDecoder) open() error {
	codec := astiav.FindDecoder(d.par.CodecID())
	if codec == nil {
		return avcore.NewStreamError(avcore.ErrCodecNotFound, "open decoder", avcore.StreamAudio, nil)
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return avcore.NewStreamError(avcore.ErrCodecContext, "open decoder", avcore.StreamAudio, fmt.Errorf("failed to allocate codec context"))
	}
	if err := d.par.ToCodecContext(cc); err != nil {
		cc.Free()
		return avcore.NewStreamError(avcore.ErrCodecContext, "open decoder", avcore.StreamAudio, err)
	}
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return avcore.NewStreamError(avcore.ErrCodecContext, "open decoder", avcore.StreamAudio, err)
	}

	d.cc = cc
	if d.frame == nil {
		d.frame = astiav.AllocFrame()
		d.out = astiav.AllocFrame()
	}
	return nil
}

// Decode sends pkt to the decoder and returns one PCM chunk per decoded
// frame.
func (d *audioDecoder) Decode(pkt *avcore.Packet) ([][]byte, error) {
	ap, ok := pkt.Handle.(*astiav.Packet)
	if !ok {
		return nil, avcore.NewStreamError(avcore.ErrDecode, "decode", avcore.StreamAudio, fmt.Errorf("packet has no ffmpeg payload"))
	}
	if err := d.cc.SendPacket(ap); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return nil, avcore.NewStreamError(avcore.ErrDecode, "decode", avcore.StreamAudio, err)
	}
	return d.receive()
}

// Drain enters draining mode, returns the remaining decoded frames and then
// the samples the resampler still holds.
func (d *audioDecoder) Drain() ([][]byte, error) {
	if err := d.cc.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return nil, avcore.NewStreamError(avcore.ErrDecode, "drain", avcore.StreamAudio, err)
	}
	chunks, err := d.receive()
	if d.swr == nil {
		return chunks, err
	}

	tail, flushErr := d.resample(nil)
	if flushErr != nil {
		if err == nil {
			err = avcore.NewStreamError(avcore.ErrResample, "resample", avcore.StreamAudio, flushErr)
		}
		return chunks, err
	}
	if len(tail) > 0 {
		chunks = append(chunks, tail)
	}
	return chunks, err
}

// receive pulls every available frame and resamples it.
func (d *audioDecoder) receive() ([][]byte, error) {
	return receiveFrames(
		func() error { return d.cc.ReceiveFrame(d.frame) },
		func() ([]byte, error) {
			defer d.frame.Unref()
			return d.resample(d.frame)
		},
		func(err error) error {
			return avcore.NewStreamError(avcore.ErrDecode, "decode", avcore.StreamAudio, err)
		},
		func(err error) error {
			return avcore.NewStreamError(avcore.ErrResample, "resample", avcore.StreamAudio, err)
		},
	)
}

// resample converts src to the output format. The resample context is
// created lazily and configures itself from the first frame. A nil src
// flushes the samples the context has buffered.
func (d *audioDecoder) resample(src *astiav.Frame) ([]byte, error) {
	if d.swr == nil {
		d.swr = astiav.AllocSoftwareResampleContext()
		if d.swr == nil {
			return nil, fmt.Errorf("failed to allocate resample context")
		}
	}

	d.out.Unref()
	d.out.SetChannelLayout(channelLayout(d.format.Channels))
	d.out.SetSampleFormat(sampleFormat(d.format.Format))
	d.out.SetSampleRate(d.format.SampleRate)

	if err := d.swr.ConvertFrame(src, d.out); err != nil {
		return nil, err
	}

	data, err := d.out.Data().Bytes(1)
	if err != nil {
		return nil, fmt.Errorf("failed to read resampled data: %w", err)
	}
	n := d.out.NbSamples() * d.format.FrameBytes()
	if n > len(data) {
		n = len(data)
	}
	pcm := make([]byte, n)
	copy(pcm, data[:n])
	return pcm, nil
}

// Flush drops buffered samples by reopening the codec context. The
// resampler is recreated on the next frame.
func (d *audioDecoder) Flush() error {
	if d.swr != nil {
		d.swr.Free()
		d.swr = nil
	}
	if d.cc != nil {
		d.cc.Free()
		d.cc = nil
	}
	d.log.Debug().Msg("audio decoder flushed")
	return d.open()
}

func (d *audioDecoder) Close() error {
	if d.swr != nil {
		d.swr.Free()
		d.swr = nil
	}
	if d.out != nil {
		d.out.Free()
		d.out = nil
	}
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

func channelLayout(channels int) astiav.ChannelLayout {
	if channels == 1 {
		return astiav.ChannelLayoutMono
	}
	return astiav.ChannelLayoutStereo
}

func sampleFormat(f avcore.SampleFormat) astiav.SampleFormat {
	if f == avcore.SampleF32LE {
		return astiav.SampleFormatFlt
	}
	return astiav.SampleFormatS16
}
