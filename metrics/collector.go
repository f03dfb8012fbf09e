// Package metrics exposes engine playback counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/RetroDECK/ES-DE-sub002/videoplayer"
)

const namespace = "esvideo"

// StatsSource is implemented by *videoplayer.Engine.
type StatsSource interface {
	Stats() videoplayer.StatsSnapshot
}

// Collector reads a fresh stats snapshot on every scrape. Counters restart
// from zero when the engine opens a new file.
type Collector struct {
	src StatsSource

	videoFrames     *prometheus.Desc
	framesSkipped   *prometheus.Desc
	framesPresented *prometheus.Desc
	audioChunks     *prometheus.Desc
	audioBytes      *prometheus.Desc
	decodeErrors    *prometheus.Desc
	loops           *prometheus.Desc
	videoQueue      *prometheus.Desc
	audioQueue      *prometheus.Desc
	clock           *prometheus.Desc
}

// NewCollector returns a collector over src.
func NewCollector(src StatsSource) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		src:             src,
		videoFrames:     desc("video_frames_total", "Video frames moved into the output picture."),
		framesSkipped:   desc("video_frames_skipped_total", "Unpresented video frames overwritten during catch-up."),
		framesPresented: desc("video_frames_presented_total", "Video frames handed to the picture sink."),
		audioChunks:     desc("audio_chunks_total", "PCM chunks released to the audio sink."),
		audioBytes:      desc("audio_bytes_total", "PCM bytes released to the audio sink."),
		decodeErrors:    desc("decode_errors_total", "Frames dropped because they failed to decode or resample.", "stage"),
		loops:           desc("loops_total", "Times playback wrapped to the start."),
		videoQueue:      desc("video_queue_length", "Decoded video frames waiting to be shown."),
		audioQueue:      desc("audio_queue_length", "Resampled audio chunks waiting to be played."),
		clock:           desc("clock_seconds", "Current playback clock."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.videoFrames
	ch <- c.framesSkipped
	ch <- c.framesPresented
	ch <- c.audioChunks
	ch <- c.audioBytes
	ch <- c.decodeErrors
	ch <- c.loops
	ch <- c.videoQueue
	ch <- c.audioQueue
	ch <- c.clock
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.videoFrames, s.VideoFrames)
	counter(c.framesSkipped, s.FramesSkipped)
	counter(c.framesPresented, s.FramesPresented)
	counter(c.audioChunks, s.AudioChunks)
	counter(c.audioBytes, s.AudioBytes)
	counter(c.decodeErrors, s.DecodeErrors, "decode")
	counter(c.decodeErrors, s.ResampleErrors, "resample")
	counter(c.loops, s.Loops)
	gauge(c.videoQueue, float64(s.VideoQueue))
	gauge(c.audioQueue, float64(s.AudioQueue))
	gauge(c.clock, s.ClockSeconds)
}
