package videoplayer

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
)

const (
	testVideoTicks = 90000
	testPicW       = 4
	testPicH       = 2
	testChunkSamps = 1024
)

// Packet payload markers understood by the fake decoders.
var (
	payloadCorrupt = []byte("corrupt")
	payloadDouble  = []byte("double")
)

// fakeMedia scripts what a container yields.
type fakeMedia struct {
	video    avcore.StreamInfo
	audio    avcore.StreamInfo
	hasAudio bool
	packets  []avcore.Packet

	openErr       error
	videoCodecErr error
	audioCodecErr error
	seekErr       error
	// readErrAt makes ReadPacket fail with a non-EOF error at that index.
	readErrAt int
	// videoDelay makes the video decoder hold back one picture until the
	// next packet or Drain, like a codec with reorder delay.
	videoDelay bool
}

// newFakeMedia builds an interleaved file of the given length. Video runs at
// fps with a 1/90000 time base; audio is 1024-sample chunks at 48 kHz.
func newFakeMedia(seconds float64, fps int, withAudio bool) *fakeMedia {
	m := &fakeMedia{
		video: avcore.StreamInfo{
			Index:     0,
			Codec:     "fakevideo",
			TimeBase:  avcore.Rational{Num: 1, Den: testVideoTicks},
			FrameRate: avcore.Rational{Num: fps, Den: 1},
			Width:     testPicW,
			Height:    testPicH,
		},
		hasAudio:  withAudio,
		readErrAt: -1,
	}
	if withAudio {
		m.audio = avcore.StreamInfo{
			Index:      1,
			Codec:      "fakeaudio",
			TimeBase:   avcore.Rational{Num: 1, Den: avcore.DefaultSampleRate},
			SampleRate: avcore.DefaultSampleRate,
			Channels:   2,
		}
	}

	step := int64(testVideoTicks / fps)
	nVideo := int(seconds * float64(fps))
	nAudio := 0
	if withAudio {
		nAudio = int(seconds*avcore.DefaultSampleRate+testChunkSamps-1) / testChunkSamps
	}

	vi, ai := 0, 0
	for vi < nVideo || ai < nAudio {
		vt := float64(vi) / float64(fps)
		at := float64(ai*testChunkSamps) / avcore.DefaultSampleRate
		if vi < nVideo && (ai >= nAudio || vt <= at) {
			ts := int64(vi) * step
			m.packets = append(m.packets, avcore.Packet{
				Kind:     avcore.StreamVideo,
				PTS:      ts,
				DTS:      ts,
				Duration: step,
				Keyframe: vi%30 == 0,
				Data:     []byte{0},
			})
			vi++
			continue
		}
		ts := int64(ai * testChunkSamps)
		m.packets = append(m.packets, avcore.Packet{
			Kind:     avcore.StreamAudio,
			PTS:      ts,
			DTS:      ts,
			Duration: testChunkSamps,
			Data:     []byte{byte(ai)},
		})
		ai++
	}
	return m
}

func (m *fakeMedia) count(kind avcore.StreamKind) int {
	n := 0
	for _, p := range m.packets {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

// fakeBackend opens scripted media by name.
type fakeBackend struct {
	mu         sync.Mutex
	media      map[string]*fakeMedia
	containers []*fakeContainer
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{media: make(map[string]*fakeMedia)}
}

func (b *fakeBackend) add(name string, m *fakeMedia) {
	b.mu.Lock()
	b.media[name] = m
	b.mu.Unlock()
}

func (b *fakeBackend) Open(path string) (avcore.Container, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.media[path]
	if !ok {
		return nil, avcore.NewStreamError(avcore.ErrContainerOpen, "open", avcore.StreamVideo, io.ErrUnexpectedEOF)
	}
	if m.openErr != nil {
		return nil, m.openErr
	}
	c := &fakeContainer{media: m}
	b.containers = append(b.containers, c)
	return c, nil
}

func (b *fakeBackend) last() *fakeContainer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.containers) == 0 {
		return nil
	}
	return b.containers[len(b.containers)-1]
}

// fakeDataBackend adds in-memory opening on top of fakeBackend.
type fakeDataBackend struct {
	*fakeBackend
}

func (b fakeDataBackend) OpenData(name string, data []byte) (avcore.Container, error) {
	if len(data) == 0 {
		return nil, avcore.NewStreamError(avcore.ErrContainerOpen, "open", avcore.StreamVideo, io.ErrUnexpectedEOF)
	}
	return b.Open(string(data))
}

type fakeContainer struct {
	media *fakeMedia

	mu             sync.Mutex
	pos            int
	seeks          int
	closed         bool
	readAfterClose bool
	vdec           *fakeVideoDecoder
	adec           *fakeAudioDecoder
}

func (c *fakeContainer) Video() avcore.StreamInfo { return c.media.video }

func (c *fakeContainer) Audio() (avcore.StreamInfo, bool) {
	return c.media.audio, c.media.hasAudio
}

func (c *fakeContainer) ReadPacket() (*avcore.Packet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.readAfterClose = true
		return nil, io.EOF
	}
	if c.pos == c.media.readErrAt {
		c.pos++
		return nil, errors.New("i/o error")
	}
	if c.pos >= len(c.media.packets) {
		return nil, io.EOF
	}
	p := c.media.packets[c.pos]
	c.pos++
	return &p, nil
}

func (c *fakeContainer) OpenVideoDecoder(opts avcore.VideoOptions) (avcore.VideoDecoder, error) {
	if c.media.videoCodecErr != nil {
		return nil, c.media.videoCodecErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vdec = &fakeVideoDecoder{holdBack: c.media.videoDelay}
	return c.vdec, nil
}

func (c *fakeContainer) OpenAudioDecoder(format avcore.OutputFormat) (avcore.AudioDecoder, error) {
	if c.media.audioCodecErr != nil {
		return nil, c.media.audioCodecErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adec = &fakeAudioDecoder{frameBytes: format.FrameBytes()}
	return c.adec, nil
}

func (c *fakeContainer) SeekStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seeks++
	if c.media.seekErr != nil {
		return c.media.seekErr
	}
	c.pos = 0
	return nil
}

func (c *fakeContainer) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeContainer) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeContainer) seekCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seeks
}

// fakeVideoDecoder produces one testPicW x testPicH picture per packet. The
// first four bytes of each picture carry the frame index derived from the
// packet DTS. With holdBack set each packet returns the previous packet's
// picture and the last one only comes out of Drain.
type fakeVideoDecoder struct {
	holdBack bool

	mu      sync.Mutex
	pending []*avcore.Picture
	flushes int
	drains  int
	closed  bool
}

func (d *fakeVideoDecoder) Decode(pkt *avcore.Packet) ([]*avcore.Picture, error) {
	if string(pkt.Data) == string(payloadCorrupt) {
		return nil, avcore.NewStreamError(avcore.ErrDecode, "decode", avcore.StreamVideo, errors.New("invalid data"))
	}
	n := 1
	if string(pkt.Data) == string(payloadDouble) {
		n = 2
	}
	pics := make([]*avcore.Picture, 0, n)
	for range n {
		pix := make([]byte, testPicW*testPicH*4)
		binary.LittleEndian.PutUint32(pix, uint32(pkt.DTS))
		pics = append(pics, &avcore.Picture{Width: testPicW, Height: testPicH, Pixels: pix})
	}
	if !d.holdBack {
		return pics, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.pending
	d.pending = pics
	return out, nil
}

func (d *fakeVideoDecoder) Drain() ([]*avcore.Picture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drains++
	out := d.pending
	d.pending = nil
	return out, nil
}

func (d *fakeVideoDecoder) Flush() error {
	d.mu.Lock()
	d.flushes++
	d.pending = nil
	d.mu.Unlock()
	return nil
}

func (d *fakeVideoDecoder) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// fakeAudioDecoder produces one 1024-sample chunk per packet. Every byte of
// the chunk is the first payload byte so order can be checked at the sink.
type fakeAudioDecoder struct {
	frameBytes int

	mu      sync.Mutex
	flushes int
	closed  bool
}

func (d *fakeAudioDecoder) Decode(pkt *avcore.Packet) ([][]byte, error) {
	if string(pkt.Data) == string(payloadCorrupt) {
		return nil, avcore.NewStreamError(avcore.ErrResample, "resample", avcore.StreamAudio, errors.New("bad layout"))
	}
	chunk := make([]byte, testChunkSamps*d.frameBytes)
	for i := range chunk {
		chunk[i] = pkt.Data[0]
	}
	return [][]byte{chunk}, nil
}

func (d *fakeAudioDecoder) Drain() ([][]byte, error) {
	return nil, nil
}

func (d *fakeAudioDecoder) Flush() error {
	d.mu.Lock()
	d.flushes++
	d.mu.Unlock()
	return nil
}

func (d *fakeAudioDecoder) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// recordingSink implements both sinks and records what reached them.
type recordingSink struct {
	mu       sync.Mutex
	frames   []uint32
	sizes    [][2]int
	chunks   [][]byte
	bytes    int
	clears   int
	pictures int
}

func (s *recordingSink) UpdatePicture(width, height int, rgba []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, binary.LittleEndian.Uint32(rgba))
	s.sizes = append(s.sizes, [2]int{width, height})
	s.pictures++
}

func (s *recordingSink) QueueSamples(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, pcm)
	s.bytes += len(pcm)
}

func (s *recordingSink) ClearQueue() {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
}

func (s *recordingSink) counts() (pictures, chunks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pictures, len(s.chunks)
}

func (s *recordingSink) lastFrame() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return 0, false
	}
	return s.frames[len(s.frames)-1], true
}

// eventLog collects events from any goroutine.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) listen(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) count(t EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (l *eventLog) first(t EventType) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range l.events {
		if ev.Type == t {
			return ev, true
		}
	}
	return Event{}, false
}

// fakeNow is a manually advanced time source.
type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeNow() *fakeNow {
	return &fakeNow{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (n *fakeNow) Now() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.t
}

func (n *fakeNow) Add(d time.Duration) {
	n.mu.Lock()
	n.t = n.t.Add(d)
	n.mu.Unlock()
}

// testEngine wires an engine to a fake backend, a recording sink, an event
// log and a manual clock.
type testEngine struct {
	*Engine
	backend *fakeBackend
	sink    *recordingSink
	events  *eventLog
	now     *fakeNow
}

func newTestEngine(t *testing.T, opts Options) *testEngine {
	t.Helper()
	te := &testEngine{
		backend: newFakeBackend(),
		sink:    &recordingSink{},
		events:  &eventLog{},
		now:     newFakeNow(),
	}
	if opts.AudioSink == nil {
		opts.AudioSink = te.sink
	}
	opts.Listener = te.events.listen
	opts.Now = te.now.Now
	te.Engine = New(te.backend, opts)
	t.Cleanup(te.Stop)
	return te
}

// settle waits until the decode goroutine has refilled both queues to their
// low-water marks, or run out of packets, and has no rewind in flight. With
// the decode side settled every simulated tick sees the same queue state.
func (te *testEngine) settle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if te.settled() {
			return
		}
		time.Sleep(100 * time.Microsecond)
	}
	t.Fatalf("decode goroutine did not settle")
}

func (te *testEngine) settled() bool {
	if te.ctl.RewindPending() {
		return false
	}
	if te.ctl.EOF() {
		return true
	}
	if te.videoQueue.Len() < te.video.lowWater {
		return false
	}
	return te.audio == nil || te.audioQueue.Len() >= te.audio.lowWater
}

// waitEOF waits until the reader has consumed the whole file.
func (te *testEngine) waitEOF(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if te.ctl.EOF() && !te.ctl.RewindPending() {
			return
		}
		time.Sleep(100 * time.Microsecond)
	}
	t.Fatalf("reader did not reach end of file")
}

// step settles, advances simulated time by d, ticks and presents.
func (te *testEngine) step(t *testing.T, d time.Duration, present bool) {
	t.Helper()
	te.settle(t)
	te.now.Add(d)
	te.Tick(d)
	if present {
		te.Present(te.sink)
	}
}

// dtsSeconds converts a DTS recorded by the sink to seconds.
func dtsSeconds(dts uint32) float64 {
	return float64(dts) / testVideoTicks
}
