package sampler

import (
	"context"
	"fmt"
	"math"

	"github.com/astrovis/go-skytiles/healpix"
	"github.com/astrovis/go-skytiles/pixel"
	"github.com/astrovis/go-skytiles/toast"
)

// Frame identifies the coordinate frame a HEALPix map is stored in.
type Frame uint8

const (
	Equatorial Frame = iota
	Galactic
)

// Healpix samples an all-sky HEALPix map of float values. NaN map
// pixels are treated as no data. Output format is always F32.
type Healpix struct {
	data  []float32
	nside int
	order healpix.Order
	frame Frame
}

func NewHealpix(data []float32, order healpix.Order, frame Frame) (*Healpix, error) {
	nside := int(math.Round(math.Sqrt(float64(len(data)) / 12)))
	if !healpix.ValidNside(nside) || healpix.NPix(nside) != len(data) {
		return nil, fmt.Errorf("skytiles: map length %d is not 12*nside^2 for a power-of-two nside", len(data))
	}
	return &Healpix{data: data, nside: nside, order: order, frame: frame}, nil
}

func (h *Healpix) Nside() int { return h.nside }

func (h *Healpix) Format() pixel.Format {
	return pixel.FormatF32
}

func (h *Healpix) Sample(ctx context.Context, t toast.Tile, size int) (*pixel.Buffer, error) {
	grid := toast.SampleGrid(t, size)
	out := pixel.NewBuffer(pixel.FormatF32, size)

	for y := range size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := range size {
			pt := grid.Pts[y*size+x]
			lat, lon := pt.Lat, pt.Lon
			if h.frame == Galactic {
				lat, lon = healpix.GalacticFromEquatorial(lat, lon)
			}

			pix, err := healpix.AngToPix(h.order, h.nside, lat, lon)
			if err != nil {
				return nil, err
			}
			v := h.data[pix]
			if math.IsNaN(float64(v)) {
				continue
			}
			out.SetF32(x, y, v)
		}
	}
	return out, nil
}
