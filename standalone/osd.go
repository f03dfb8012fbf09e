package standalone

import (
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const osdDuration = 1500 * time.Millisecond

// OSD shows a short status message in the bottom-left corner.
type OSD struct {
	mu      sync.Mutex
	message string
	until   time.Time
	now     func() time.Time
}

func NewOSD() *OSD {
	return &OSD{now: time.Now}
}

// Show displays message for d, replacing any current message.
func (o *OSD) Show(message string, d time.Duration) {
	o.mu.Lock()
	o.message = message
	o.until = o.now().Add(d)
	o.mu.Unlock()
}

// Message returns the active message.
func (o *OSD) Message() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.message == "" || !o.now().Before(o.until) {
		return "", false
	}
	return o.message, true
}

func (o *OSD) Draw(screen *ebiten.Image) {
	msg, ok := o.Message()
	if !ok {
		return
	}
	ebitenutil.DebugPrintAt(screen, msg, 8, screen.Bounds().Dy()-24)
}
