package standalone

import (
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// FramebufferRenderer is the picture sink of the standalone player. The
// engine hands it RGBA pictures from Present; Draw scales the latest one
// into the window with letterboxing.
type FramebufferRenderer struct {
	mu     sync.Mutex
	pixels []byte
	width  int
	height int
	dirty  bool

	offscreen *ebiten.Image
	drawOpts  ebiten.DrawImageOptions
}

// NewFramebufferRenderer creates an empty renderer.
func NewFramebufferRenderer() *FramebufferRenderer {
	return &FramebufferRenderer{}
}

// UpdatePicture copies rgba. It implements avcore.PictureSink.
func (r *FramebufferRenderer) UpdatePicture(width, height int, rgba []byte) {
	n := width * height * 4
	if width <= 0 || height <= 0 || len(rgba) < n {
		return
	}

	r.mu.Lock()
	if cap(r.pixels) < n {
		r.pixels = make([]byte, n)
	}
	r.pixels = r.pixels[:n]
	copy(r.pixels, rgba)
	r.width, r.height = width, height
	r.dirty = true
	r.mu.Unlock()
}

// Size returns the dimensions of the latest picture.
func (r *FramebufferRenderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// Snapshot returns a copy of the latest picture, or nil before the first
// one arrives.
func (r *FramebufferRenderer) Snapshot() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.width == 0 || r.height == 0 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	copy(img.Pix, r.pixels)
	return img
}

// Draw renders the latest picture centered in screen, scaled to fit while
// keeping its aspect ratio.
func (r *FramebufferRenderer) Draw(screen *ebiten.Image) {
	r.mu.Lock()
	w, h := r.width, r.height
	if w == 0 || h == 0 {
		r.mu.Unlock()
		return
	}
	if r.offscreen == nil || r.offscreen.Bounds().Dx() != w || r.offscreen.Bounds().Dy() != h {
		if r.offscreen != nil {
			r.offscreen.Deallocate()
		}
		r.offscreen = ebiten.NewImage(w, h)
		r.dirty = true
	}
	if r.dirty {
		r.offscreen.WritePixels(r.pixels)
		r.dirty = false
	}
	r.mu.Unlock()

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale, dx, dy := fitRect(w, h, sw, sh)

	r.drawOpts = ebiten.DrawImageOptions{}
	r.drawOpts.GeoM.Scale(scale, scale)
	r.drawOpts.GeoM.Translate(dx, dy)
	r.drawOpts.Filter = ebiten.FilterLinear
	screen.DrawImage(r.offscreen, &r.drawOpts)
}

// fitRect returns the uniform scale and offset that center a w x h picture
// inside a sw x sh screen.
func fitRect(w, h, sw, sh int) (scale, dx, dy float64) {
	scale = float64(sw) / float64(w)
	if s := float64(sh) / float64(h); s < scale {
		scale = s
	}
	dx = (float64(sw) - float64(w)*scale) / 2
	dy = (float64(sh) - float64(h)*scale) / 2
	return scale, dx, dy
}
