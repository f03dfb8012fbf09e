package standalone

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
	"github.com/RetroDECK/ES-DE-sub002/videoplayer"
)

type fakePlayback struct {
	state    videoplayer.State
	muted    bool
	loop     bool
	finished bool
	ticks    int
	presents int
}

func (f *fakePlayback) TickNow() { f.ticks++ }

func (f *fakePlayback) Present(sink avcore.PictureSink) bool {
	f.presents++
	sink.UpdatePicture(1, 1, []byte{1, 2, 3, 255})
	return true
}

func (f *fakePlayback) State() videoplayer.State { return f.state }
func (f *fakePlayback) Pause()                   { f.state = videoplayer.StatePaused }
func (f *fakePlayback) Resume()                  { f.state = videoplayer.StatePlaying }
func (f *fakePlayback) Muted() bool              { return f.muted }
func (f *fakePlayback) SetMuted(m bool)          { f.muted = m }
func (f *fakePlayback) Loop() bool               { return f.loop }
func (f *fakePlayback) SetLoop(l bool)           { f.loop = l }
func (f *fakePlayback) Finished() bool           { return f.finished }

func newTestPlayer(pb *fakePlayback, snaps *SnapshotManager) *Player {
	return NewPlayer(pb, PlayerOptions{
		Name:      "intro.mp4",
		Snapshots: snaps,
		Logger:    zerolog.Nop(),
	})
}

func TestPlayer_StepTicks(t *testing.T) {
	pb := &fakePlayback{state: videoplayer.StatePlaying}
	p := newTestPlayer(pb, nil)

	for i := 0; i < 3; i++ {
		if err := p.step(nil); err != nil {
			t.Fatalf("step %d: unexpected error %v", i, err)
		}
	}
	if pb.ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", pb.ticks)
	}
}

func TestPlayer_TogglePause(t *testing.T) {
	pb := &fakePlayback{state: videoplayer.StatePlaying}
	p := newTestPlayer(pb, nil)

	p.step([]action{actionPause})
	if pb.state != videoplayer.StatePaused {
		t.Fatalf("expected paused, got %s", pb.state)
	}
	if msg, _ := p.osd.Message(); msg != "Paused" {
		t.Fatalf("expected Paused message, got %q", msg)
	}

	p.step([]action{actionPause})
	if pb.state != videoplayer.StatePlaying {
		t.Fatalf("expected playing, got %s", pb.state)
	}
}

func TestPlayer_ToggleMuteAndLoop(t *testing.T) {
	pb := &fakePlayback{state: videoplayer.StatePlaying}
	p := newTestPlayer(pb, nil)

	p.step([]action{actionMute})
	if !pb.muted {
		t.Fatal("expected muted")
	}
	if msg, _ := p.osd.Message(); msg != "Mute on" {
		t.Fatalf("expected Mute on, got %q", msg)
	}

	p.step([]action{actionLoop})
	if !pb.loop {
		t.Fatal("expected loop on")
	}
	p.step([]action{actionLoop})
	if pb.loop {
		t.Fatal("expected loop off")
	}
}

func TestPlayer_QuitTerminates(t *testing.T) {
	pb := &fakePlayback{state: videoplayer.StatePlaying}
	p := newTestPlayer(pb, nil)

	if err := p.step([]action{actionQuit}); err != ebiten.Termination {
		t.Fatalf("expected ebiten.Termination, got %v", err)
	}
	if pb.ticks != 0 {
		t.Fatalf("expected no tick after quit, got %d", pb.ticks)
	}
}

func TestPlayer_DoneTerminates(t *testing.T) {
	pb := &fakePlayback{state: videoplayer.StatePlaying}
	done := make(chan struct{})
	p := NewPlayer(pb, PlayerOptions{Name: "intro.mp4", Done: done, Logger: zerolog.Nop()})

	if err := p.step(nil); err != nil {
		t.Fatalf("expected no error before done, got %v", err)
	}
	close(done)
	if err := p.step(nil); err != ebiten.Termination {
		t.Fatalf("expected ebiten.Termination once done, got %v", err)
	}
	if pb.ticks != 1 {
		t.Fatalf("expected no tick after done, got %d ticks", pb.ticks)
	}
}

func TestPlayer_FinishedTerminatesUnlessLooping(t *testing.T) {
	pb := &fakePlayback{state: videoplayer.StatePlaying, finished: true, loop: true}
	p := newTestPlayer(pb, nil)

	if err := p.step(nil); err != nil {
		t.Fatalf("expected looping player to keep running, got %v", err)
	}

	pb.loop = false
	if err := p.step(nil); err != ebiten.Termination {
		t.Fatalf("expected ebiten.Termination, got %v", err)
	}
}

func TestPlayer_Snapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	pb := &fakePlayback{state: videoplayer.StatePlaying}
	p := newTestPlayer(pb, NewSnapshotManager(dir, 0))

	p.step([]action{actionSnapshot})
	if msg, _ := p.osd.Message(); msg != "No picture yet" {
		t.Fatalf("expected no picture message, got %q", msg)
	}

	p.engine.Present(p.renderer)
	p.step([]action{actionSnapshot})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read snapshot dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(entries))
	}
}

func TestPlayer_SnapshotDisabled(t *testing.T) {
	pb := &fakePlayback{state: videoplayer.StatePlaying}
	p := newTestPlayer(pb, nil)

	p.step([]action{actionSnapshot})
	if _, ok := p.osd.Message(); ok {
		t.Fatal("expected no message when snapshots are disabled")
	}
}
