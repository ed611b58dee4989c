// Package pixel provides the fixed-size tile pixel buffer shared by the
// sampling and merge stages, together with its on-disk codec.
package pixel

import "fmt"

// Format identifies the pixel format of a tile buffer.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatRGBA8          // 8-bit per channel color with alpha
	FormatF32            // single-channel float32 science data
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatF32:
		return "f32"
	}
	return "unknown"
}

// Buffer is a square tile pixel buffer with an explicit per-pixel
// validity mask. Values of invalid pixels are not meaningful; the codec
// replaces them with the sentinel (transparent black for RGBA8, NaN for
// F32) when a buffer is persisted.
//
// Exactly one of RGBA and F is non-nil, depending on Format.
type Buffer struct {
	Size   int
	Format Format
	RGBA   []uint8   // len 4*Size*Size, row-major
	F      []float32 // len Size*Size, row-major
	Mask   []bool    // len Size*Size; true means the pixel carries data
}

// NewBuffer allocates a fully invalid buffer of the given format and side length.
func NewBuffer(format Format, size int) *Buffer {
	b := &Buffer{
		Size:   size,
		Format: format,
		Mask:   make([]bool, size*size),
	}
	switch format {
	case FormatRGBA8:
		b.RGBA = make([]uint8, 4*size*size)
	case FormatF32:
		b.F = make([]float32, size*size)
	default:
		panic(fmt.Sprintf("skytiles: unknown pixel format %d", format))
	}
	return b
}

// Valid reports whether the pixel at (x, y) carries data.
func (b *Buffer) Valid(x, y int) bool {
	return b.Mask[y*b.Size+x]
}

// SetF32 stores a valid float sample at (x, y). The buffer must be FormatF32.
func (b *Buffer) SetF32(x, y int, v float32) {
	i := y*b.Size + x
	b.F[i] = v
	b.Mask[i] = true
}

// F32At returns the float sample at (x, y).
func (b *Buffer) F32At(x, y int) float32 {
	return b.F[y*b.Size+x]
}

// SetRGBA stores a valid color sample at (x, y). The buffer must be FormatRGBA8.
func (b *Buffer) SetRGBA(x, y int, r, g, bl, a uint8) {
	i := y*b.Size + x
	b.RGBA[4*i] = r
	b.RGBA[4*i+1] = g
	b.RGBA[4*i+2] = bl
	b.RGBA[4*i+3] = a
	b.Mask[i] = true
}

// RGBAAt returns the color sample at (x, y).
func (b *Buffer) RGBAAt(x, y int) (r, g, bl, a uint8) {
	i := y*b.Size + x
	return b.RGBA[4*i], b.RGBA[4*i+1], b.RGBA[4*i+2], b.RGBA[4*i+3]
}

// AnyValid reports whether at least one pixel carries data.
func (b *Buffer) AnyValid() bool {
	for _, v := range b.Mask {
		if v {
			return true
		}
	}
	return false
}
