package sampler

import (
	"context"
	"math"

	"github.com/astrovis/go-skytiles/pixel"
	"github.com/astrovis/go-skytiles/toast"
)

// Grid samples a windowed Source through a coordinate Transform:
// the general path for image-like sources (equirectangular maps,
// reprojected surveys). Chunked reads go through a shared LRU cache so
// sources larger than memory are never loaded whole.
type Grid struct {
	src    Source
	tr     Transform
	method Method
	cache  *chunkCache
	bounds Rect
}

type GridOption func(*gridConfig)

type gridConfig struct {
	Method      Method
	CacheChunks int
}

// WithMethod selects the resampling kernel (default Nearest).
func WithMethod(m Method) GridOption {
	return func(c *gridConfig) { c.Method = m }
}

// WithCacheChunks bounds the number of resident source chunks (default 64).
func WithCacheChunks(n int) GridOption {
	return func(c *gridConfig) { c.CacheChunks = n }
}

func NewGrid(src Source, tr Transform, opts ...GridOption) *Grid {
	config := gridConfig{Method: Nearest, CacheChunks: 64}
	for _, opt := range opts {
		opt(&config)
	}
	return &Grid{
		src:    src,
		tr:     tr,
		method: config.Method,
		cache:  newChunkCache(src, config.CacheChunks),
		bounds: src.Bounds(),
	}
}

func (g *Grid) Format() pixel.Format {
	return g.src.Format()
}

func (g *Grid) Sample(ctx context.Context, t toast.Tile, size int) (*pixel.Buffer, error) {
	grid := toast.SampleGrid(t, size)
	out := pixel.NewBuffer(g.src.Format(), size)

	for y := range size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := range size {
			fx, fy, ok := g.tr.ToSource(grid.Pts[y*size+x])
			if !ok {
				continue // outside the source projection: no data
			}

			var err error
			if g.method == Bilinear {
				err = g.sampleBilinear(out, x, y, fx, fy)
			} else {
				err = g.sampleNearest(out, x, y, fx, fy)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (g *Grid) sampleNearest(out *pixel.Buffer, x, y int, fx, fy float64) error {
	sx := int(math.Round(fx))
	sy := int(math.Round(fy))
	if !g.bounds.Contains(sx, sy) {
		return nil
	}

	win, err := g.cache.window(sx, sy)
	if err != nil {
		return err
	}
	i := win.index(sx, sy)
	if !win.Mask[i] {
		return nil
	}

	if out.Format == pixel.FormatF32 {
		out.SetF32(x, y, win.F[i])
	} else {
		out.SetRGBA(x, y, win.RGBA[4*i], win.RGBA[4*i+1], win.RGBA[4*i+2], win.RGBA[4*i+3])
	}
	return nil
}

func (g *Grid) sampleBilinear(out *pixel.Buffer, x, y int, fx, fy float64) error {
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	wx := fx - float64(x0)
	wy := fy - float64(y0)

	var weightSum float64
	var accF float64
	var accRGBA [4]float64

	for dy := range 2 {
		for dx := range 2 {
			sx, sy := x0+dx, y0+dy
			if !g.bounds.Contains(sx, sy) {
				continue
			}

			win, err := g.cache.window(sx, sy)
			if err != nil {
				return err
			}
			i := win.index(sx, sy)
			if !win.Mask[i] {
				continue
			}

			w := (1 - math.Abs(float64(dx)-wx)) * (1 - math.Abs(float64(dy)-wy))
			weightSum += w
			if out.Format == pixel.FormatF32 {
				accF += w * float64(win.F[i])
			} else {
				for ch := range 4 {
					accRGBA[ch] += w * float64(win.RGBA[4*i+ch])
				}
			}
		}
	}

	if weightSum == 0 {
		return nil // all contributors missing or invalid
	}

	if out.Format == pixel.FormatF32 {
		out.SetF32(x, y, float32(accF/weightSum))
	} else {
		out.SetRGBA(x, y,
			roundByte(accRGBA[0]/weightSum),
			roundByte(accRGBA[1]/weightSum),
			roundByte(accRGBA[2]/weightSum),
			roundByte(accRGBA[3]/weightSum))
	}
	return nil
}

func roundByte(v float64) uint8 {
	return uint8(math.Min(255, math.Round(v)))
}
