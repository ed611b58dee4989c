// Package sampler maps tile footprints to pixel buffers by resampling a
// source dataset. One concrete sampler exists per supported source kind,
// selected at build configuration time.
package sampler

import (
	"context"
	"errors"

	"github.com/astrovis/go-skytiles/pixel"
	"github.com/astrovis/go-skytiles/toast"
)

// ErrSourceUnavailable reports that the source collaborator could not
// deliver requested data. This is an I/O failure, distinct from the
// geometric "no data here" condition that yields invalid pixels.
var ErrSourceUnavailable = errors.New("skytiles: source unavailable")

// Method selects the resampling kernel.
type Method uint8

const (
	Nearest Method = iota
	Bilinear
)

func (m Method) String() string {
	if m == Bilinear {
		return "bilinear"
	}
	return "nearest"
}

// Sampler produces the pixel buffer for one tile footprint. Pixels whose
// sky position falls outside the source extent, or whose source pixel is
// itself flagged invalid, are marked invalid in the result; that is not
// an error. Implementations must be safe for concurrent use.
type Sampler interface {
	Format() pixel.Format
	Sample(ctx context.Context, t toast.Tile, size int) (*pixel.Buffer, error)
}
