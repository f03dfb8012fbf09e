// Package standalone is the desktop host for the video engine: an ebiten
// window that drives the playback clock and draws presented pictures, and
// an oto audio sink.
package standalone

import (
	"fmt"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/rs/zerolog"

	avcore "github.com/RetroDECK/ES-DE-sub002/api"
	"github.com/RetroDECK/ES-DE-sub002/videoplayer"
)

// Playback is the engine surface the player drives. *videoplayer.Engine
// implements it.
type Playback interface {
	TickNow()
	Present(sink avcore.PictureSink) bool
	State() videoplayer.State
	Pause()
	Resume()
	Muted() bool
	SetMuted(muted bool)
	Loop() bool
	SetLoop(loop bool)
	Finished() bool
}

type action int

const (
	actionPause action = iota
	actionMute
	actionLoop
	actionSnapshot
	actionFullscreen
	actionQuit
)

var keyBindings = []struct {
	key ebiten.Key
	act action
}{
	{ebiten.KeySpace, actionPause},
	{ebiten.KeyM, actionMute},
	{ebiten.KeyL, actionLoop},
	{ebiten.KeyF12, actionSnapshot},
	{ebiten.KeyF11, actionFullscreen},
	{ebiten.KeyEscape, actionQuit},
}

// PlayerOptions configures the window.
type PlayerOptions struct {
	// Name is the media name shown in the title bar and used for
	// snapshot file names.
	Name   string
	Width  int
	Height int
	TPS    int
	// Snapshots saves F12 snapshots. Nil disables them.
	Snapshots *SnapshotManager
	// Done closes the window once it is closed.
	Done   <-chan struct{}
	Logger zerolog.Logger
}

// Player implements ebiten.Game. Update advances the engine clock, Draw
// presents the current picture. The window closes on Esc, or when playback
// finishes with looping off.
type Player struct {
	engine   Playback
	renderer *FramebufferRenderer
	osd      *OSD
	opts     PlayerOptions
	log      zerolog.Logger
	quit     bool
}

// NewPlayer creates a player for an engine that has been started.
func NewPlayer(engine Playback, opts PlayerOptions) *Player {
	return &Player{
		engine:   engine,
		renderer: NewFramebufferRenderer(),
		osd:      NewOSD(),
		opts:     opts,
		log:      opts.Logger.With().Str("component", "player").Logger(),
	}
}

// Run opens the window and blocks until it closes.
func (p *Player) Run() error {
	ebiten.SetWindowTitle(p.opts.Name)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(p.opts.Width, p.opts.Height)
	if p.opts.TPS > 0 {
		ebiten.SetTPS(p.opts.TPS)
	}
	return ebiten.RunGame(p)
}

// Update implements ebiten.Game.
func (p *Player) Update() error {
	var actions []action
	for _, b := range keyBindings {
		if inpututil.IsKeyJustPressed(b.key) {
			actions = append(actions, b.act)
		}
	}
	return p.step(actions)
}

func (p *Player) step(actions []action) error {
	select {
	case <-p.opts.Done:
		p.log.Debug().Msg("interrupted")
		return ebiten.Termination
	default:
	}

	for _, a := range actions {
		p.apply(a)
	}
	if p.quit {
		return ebiten.Termination
	}

	p.engine.TickNow()
	if p.engine.Finished() && !p.engine.Loop() {
		p.log.Debug().Msg("playback finished")
		return ebiten.Termination
	}
	return nil
}

func (p *Player) apply(a action) {
	switch a {
	case actionPause:
		switch p.engine.State() {
		case videoplayer.StatePlaying:
			p.engine.Pause()
			p.osd.Show("Paused", osdDuration)
		case videoplayer.StatePaused:
			p.engine.Resume()
			p.osd.Show("Playing", osdDuration)
		}
	case actionMute:
		muted := !p.engine.Muted()
		p.engine.SetMuted(muted)
		p.osd.Show(onOff("Mute", muted), osdDuration)
	case actionLoop:
		loop := !p.engine.Loop()
		p.engine.SetLoop(loop)
		p.osd.Show(onOff("Loop", loop), osdDuration)
	case actionSnapshot:
		p.snapshot()
	case actionFullscreen:
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	case actionQuit:
		p.quit = true
	}
}

func (p *Player) snapshot() {
	if p.opts.Snapshots == nil {
		return
	}
	img := p.renderer.Snapshot()
	if img == nil {
		p.osd.Show("No picture yet", osdDuration)
		return
	}
	path, err := p.opts.Snapshots.Save(img, p.opts.Name)
	if err != nil {
		p.log.Warn().Err(err).Msg("snapshot failed")
		p.osd.Show("Snapshot failed", osdDuration)
		return
	}
	p.log.Info().Str("file", path).Msg("snapshot saved")
	p.osd.Show("Saved "+filepath.Base(path), osdDuration)
}

func onOff(label string, on bool) string {
	if on {
		return fmt.Sprintf("%s on", label)
	}
	return fmt.Sprintf("%s off", label)
}

// Draw implements ebiten.Game.
func (p *Player) Draw(screen *ebiten.Image) {
	p.engine.Present(p.renderer)
	p.renderer.Draw(screen)
	p.osd.Draw(screen)
}

// Layout implements ebiten.Game.
func (p *Player) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := 1.0
	if m := ebiten.Monitor(); m != nil {
		s = m.DeviceScaleFactor()
	}
	return int(float64(outsideWidth) * s), int(float64(outsideHeight) * s)
}
