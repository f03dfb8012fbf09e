package standalone

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"
)

// SnapshotManager saves presented pictures as PNG files.
type SnapshotManager struct {
	dir      string
	maxWidth int
	now      func() time.Time
}

// NewSnapshotManager saves into dir. Pictures wider than maxWidth are
// downscaled; zero keeps the presented size.
func NewSnapshotManager(dir string, maxWidth int) *SnapshotManager {
	return &SnapshotManager{dir: dir, maxWidth: maxWidth, now: time.Now}
}

// Save writes img to <dir>/<name>-<unix time>.png, name being the video's
// base name without extension, and returns the file path.
func (m *SnapshotManager) Save(img image.Image, name string) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no picture to save")
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		base = "snapshot"
	}
	path := filepath.Join(m.dir, fmt.Sprintf("%s-%d.png", base, m.now().Unix()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, downscale(img, m.maxWidth)); err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return path, nil
}

// downscale shrinks img to at most maxWidth pixels wide, keeping its
// aspect ratio.
func downscale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
