package toast

// Grid holds the sky position sampled by each pixel of a tile, row-major.
// Pixel (i, j) of a tile at depth n samples the position of sub-tile
// (size*x+i, size*y+j) at depth n+log2(size), which falls out of
// subdividing the footprint corners all the way down to single pixels.
type Grid struct {
	Size int
	Pts  []LatLon
}

// SampleGrid computes the per-pixel sampling grid for a tile footprint.
// size must be a power of two.
func SampleGrid(t Tile, size int) *Grid {
	if size < 1 || size&(size-1) != 0 {
		panic("skytiles: tile size must be a power of two")
	}
	g := &Grid{Size: size, Pts: make([]LatLon, size*size)}
	g.fill(t, 0, 0, size)
	return g
}

func (g *Grid) fill(t Tile, x0, y0, size int) {
	if size == 1 {
		g.Pts[y0*g.Size+x0] = t.Corners[0]
		return
	}

	half := size / 2
	children := Children(t)
	g.fill(children[0], x0, y0, half)
	g.fill(children[1], x0+half, y0, half)
	g.fill(children[2], x0, y0+half, half)
	g.fill(children[3], x0+half, y0+half, half)
}
