package sampler

import (
	"image"
	"math"

	"github.com/astrovis/go-skytiles/pixel"
)

// Memory is a Source over a dataset already decoded in memory: the
// concrete source for plain image inputs, and the reference
// implementation of the windowed-read contract.
type Memory struct {
	rect   Rect
	format pixel.Format
	rgba   []uint8
	f      []float32
	mask   []bool
}

// NewMemoryImage wraps a decoded image. Pixels with zero alpha are
// treated as no data.
func NewMemoryImage(img image.Image) *Memory {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	m := &Memory{
		rect:   Rect{X1: w, Y1: h},
		format: pixel.FormatRGBA8,
		rgba:   make([]uint8, 4*w*h),
		mask:   make([]bool, w*h),
	}
	for y := range h {
		for x := range w {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*w + x
			m.rgba[4*i] = uint8(r >> 8)
			m.rgba[4*i+1] = uint8(g >> 8)
			m.rgba[4*i+2] = uint8(b >> 8)
			m.rgba[4*i+3] = uint8(a >> 8)
			m.mask[i] = a > 0
		}
	}
	return m
}

// NewMemoryF32 wraps a float dataset of the given dimensions. NaN
// values are treated as no data.
func NewMemoryF32(w, h int, data []float32) *Memory {
	m := &Memory{
		rect:   Rect{X1: w, Y1: h},
		format: pixel.FormatF32,
		f:      data,
		mask:   make([]bool, w*h),
	}
	for i, v := range data {
		m.mask[i] = !math.IsNaN(float64(v))
	}
	return m
}

func (m *Memory) Format() pixel.Format { return m.format }

func (m *Memory) Bounds() Rect { return m.rect }

func (m *Memory) ReadWindow(r Rect) (*Window, error) {
	r = r.Intersect(m.rect)
	w, h := r.W(), r.H()

	win := &Window{
		Rect:   r,
		Format: m.format,
		Mask:   make([]bool, w*h),
	}
	if m.format == pixel.FormatRGBA8 {
		win.RGBA = make([]uint8, 4*w*h)
	} else {
		win.F = make([]float32, w*h)
	}

	stride := m.rect.W()
	for y := range h {
		srcRow := (r.Y0+y)*stride + r.X0
		copy(win.Mask[y*w:(y+1)*w], m.mask[srcRow:srcRow+w])
		if m.format == pixel.FormatRGBA8 {
			copy(win.RGBA[4*y*w:4*(y+1)*w], m.rgba[4*srcRow:4*(srcRow+w)])
		} else {
			copy(win.F[y*w:(y+1)*w], m.f[srcRow:srcRow+w])
		}
	}
	return win, nil
}
