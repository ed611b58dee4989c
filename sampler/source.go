package sampler

import (
	"math"

	"github.com/astrovis/go-skytiles/pixel"
	"github.com/astrovis/go-skytiles/toast"
)

// Rect is a half-open region of source pixels.
type Rect struct {
	X0, Y0 int // inclusive
	X1, Y1 int // exclusive
}

func (r Rect) W() int { return r.X1 - r.X0 }
func (r Rect) H() int { return r.Y1 - r.Y0 }

func (r Rect) Contains(x, y int) bool {
	return x >= r.X0 && x < r.X1 && y >= r.Y0 && y < r.Y1
}

func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		X0: max(r.X0, o.X0), Y0: max(r.Y0, o.Y0),
		X1: min(r.X1, o.X1), Y1: min(r.Y1, o.Y1),
	}
}

// Window is a decoded rectangle of source pixels with per-pixel validity.
// Exactly one of RGBA and F is non-nil, depending on Format.
type Window struct {
	Rect   Rect
	Format pixel.Format
	RGBA   []uint8   // len 4*W*H, row-major
	F      []float32 // len W*H, row-major
	Mask   []bool    // len W*H
}

func (w *Window) index(x, y int) int {
	return (y-w.Rect.Y0)*w.Rect.W() + (x - w.Rect.X0)
}

// Source is the source data collaborator: chunked access to a pixel
// dataset that may be far larger than memory. ReadWindow must support
// concurrent calls. An I/O failure must be reported as an error wrapping
// ErrSourceUnavailable, never as invalid pixels.
type Source interface {
	Format() pixel.Format
	Bounds() Rect
	ReadWindow(r Rect) (*Window, error)
}

// Transform is the coordinate-transform collaborator: it maps a sky
// position to continuous source pixel coordinates, where integer values
// land on pixel centers. ok is false when the position has no
// counterpart in the source projection; that is a geometric condition,
// not an error.
type Transform interface {
	ToSource(pt toast.LatLon) (fx, fy float64, ok bool)
}

// PlateCarree maps the sphere onto a full-sky equirectangular image of
// the given dimensions, longitude decreasing along x (east left, the
// usual sky map orientation) and latitude decreasing along y.
type PlateCarree struct {
	Width  int
	Height int
}

func (p PlateCarree) ToSource(pt toast.LatLon) (float64, float64, bool) {
	dx := float64(p.Width) / (2 * math.Pi)
	dy := float64(p.Height) / math.Pi
	lon0 := math.Pi - 0.5/dx // longitude of the centers of the x = 0 column
	lat0 := math.Pi/2 - 0.5/dy

	lon := math.Mod(pt.Lon+math.Pi, 2*math.Pi)
	if lon < 0 {
		lon += 2 * math.Pi
	}
	lon -= math.Pi

	// The projection covers the whole sphere, so samples at the poles
	// and the longitude seam clamp to the edge pixels rather than
	// falling half a pixel outside the image.
	fx := clamp((lon0-lon)*dx, 0, float64(p.Width-1))
	fy := clamp((lat0-pt.Lat)*dy, 0, float64(p.Height-1))
	return fx, fy, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
