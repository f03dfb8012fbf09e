package videoplayer

import (
	"errors"
	"io"
	"sync/atomic"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
)

// decodeLoop runs on the engine's single decode goroutine. Each iteration
// checks the stop flag once, then either carries out a rewind, reads and
// decodes one packet, or sleeps briefly when there is nothing to do.
func (e *Engine) decodeLoop() error {
	log := e.log.With().Str("component", "decoder").Str("path", e.name).Logger()
	log.Debug().Msg("decode goroutine started")
	defer log.Debug().Msg("decode goroutine exited")

	for e.ctl.ShouldRun() {
		if e.ctl.RewindPending() {
			e.rewind()
			continue
		}
		if e.ctl.EOF() || !e.needsData() {
			e.idle()
			continue
		}
		e.readPacket()
	}
	return nil
}

// needsData reports whether either queue is below its low-water mark.
func (e *Engine) needsData() bool {
	if e.videoQueue.Len() < e.video.lowWater {
		return true
	}
	return e.audio != nil && e.audioQueue.Len() < e.audio.lowWater
}

// readPacket reads one packet and routes it to its decode path. Read errors
// other than end of file are treated as end of file after logging, so a
// truncated file plays what it has. At end of file both decoders are
// drained before the reader is marked done.
func (e *Engine) readPacket() {
	pkt, err := e.container.ReadPacket()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			e.log.Warn().Err(err).Str("path", e.name).Msg("read failed, treating as end of stream")
		}
		e.drain()
		e.ctl.SetEOF()
		return
	}
	defer pkt.Free()

	switch pkt.Kind {
	case avcore.StreamVideo:
		e.decodeVideo(pkt)
	case avcore.StreamAudio:
		if e.audio != nil {
			e.decodeAudio(pkt)
		}
	}
}

// decodeVideo decodes one video packet and queues every picture it
// produced. The frame timestamp comes from the packet's decode timestamp.
func (e *Engine) decodeVideo(pkt *avcore.Packet) {
	pictures, err := e.video.decoder.Decode(pkt)
	if err != nil {
		e.unitError(err, &e.stats.decodeErrors)
	}
	if len(pictures) == 0 {
		return
	}

	tb := e.video.info.TimeBase
	duration := avcore.Seconds(pkt.Duration, tb)
	if duration <= 0 {
		duration = e.video.frameDuration
	}
	e.queuePictures(pictures, avcore.Seconds(pkt.DTS, tb), duration)
}

// queuePictures pushes decoded pictures starting at pts, one frame duration
// apart.
func (e *Engine) queuePictures(pictures []*avcore.Picture, pts, duration float64) {
	for i, pic := range pictures {
		if pic == nil || len(pic.Pixels) < pic.Width*pic.Height*4 {
			e.unitError(avcore.NewStreamError(avcore.ErrDecode, "convert", avcore.StreamVideo, nil), &e.stats.decodeErrors)
			continue
		}
		framePTS := pts + float64(i)*duration
		// Queue order is presentation order
		if framePTS < e.lastQueuedPTS {
			framePTS = e.lastQueuedPTS
		}
		e.lastQueuedPTS = framePTS
		e.nextVideoPTS = framePTS + duration
		e.lastDuration = duration

		e.videoQueue.Push(VideoFrame{
			Width:         pic.Width,
			Height:        pic.Height,
			PTS:           framePTS,
			FrameDuration: duration,
			Pixels:        pic.Pixels,
		})
	}
}

// decodeAudio decodes one audio packet and queues the resampled chunks.
// Chunks after the first are offset by the playback length of the ones
// before them.
func (e *Engine) decodeAudio(pkt *avcore.Packet) {
	chunks, err := e.audio.decoder.Decode(pkt)
	if err != nil {
		e.unitError(err, &e.stats.resampleErrors)
	}

	e.queueChunks(chunks, avcore.Seconds(pkt.PTS, e.audio.info.TimeBase))
}

func (e *Engine) queueChunks(chunks [][]byte, pts float64) {
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		e.audioQueue.Push(AudioFrame{PTS: pts, Samples: chunk})
		pts += e.opts.OutputFormat.Duration(len(chunk))
		e.nextAudioPTS = pts
	}
}

// drain collects what the decoders still hold at end of file. Drained
// units continue the timeline of the last queued frame or chunk.
func (e *Engine) drain() {
	pictures, err := e.video.decoder.Drain()
	if err != nil {
		e.unitError(err, &e.stats.decodeErrors)
	}
	if len(pictures) > 0 {
		duration := e.lastDuration
		if duration <= 0 {
			duration = e.video.frameDuration
		}
		e.queuePictures(pictures, e.nextVideoPTS, duration)
	}

	if e.audio == nil {
		return
	}
	chunks, err := e.audio.decoder.Drain()
	if err != nil {
		e.unitError(err, &e.stats.resampleErrors)
	}
	e.queueChunks(chunks, e.nextAudioPTS)
}

// unitError logs a per-frame failure and reports it to the host. These
// never stop the loop. Classified errors pick their own counter; anything
// else is charged to fallback.
func (e *Engine) unitError(err error, fallback *atomic.Int64) {
	counter := fallback
	switch {
	case errors.Is(err, avcore.ErrResample):
		counter = &e.stats.resampleErrors
	case errors.Is(err, avcore.ErrDecode):
		counter = &e.stats.decodeErrors
	}
	counter.Add(1)
	e.log.Warn().Err(err).Str("path", e.name).Msg("dropped frame")
	e.emit(Event{Type: EventDecodeError, Err: err})
}

// rewind seeks back to the start for looping, flushes both decoders and
// empties the queues. If the seek fails looping is abandoned and the output
// driver reports the end of playback.
func (e *Engine) rewind() {
	log := e.log.With().Str("component", "decoder").Str("path", e.name).Logger()

	if err := e.container.SeekStart(); err != nil {
		log.Error().Err(err).Msg("seek to start failed, looping disabled")
		e.loop.Store(false)
		e.ctl.FinishRewind(false)
		return
	}
	if err := e.video.decoder.Flush(); err != nil {
		log.Warn().Err(err).Msg("failed to flush video decoder")
	}
	if e.audio != nil {
		if err := e.audio.decoder.Flush(); err != nil {
			log.Warn().Err(err).Msg("failed to flush audio decoder")
		}
	}

	e.videoQueue.Clear()
	e.audioQueue.Clear()
	e.resetTimeline()
	e.ctl.FinishRewind(true)
	log.Debug().Msg("rewound to start")
}

// resetTimeline forgets the decode-side timestamps, used when the reader
// starts again from the beginning.
func (e *Engine) resetTimeline() {
	e.lastQueuedPTS = 0
	e.nextVideoPTS = 0
	e.nextAudioPTS = 0
	e.lastDuration = 0
}
