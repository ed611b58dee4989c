// Package toast implements the TOAST octahedral all-sky projection and its
// quadtree tiling: tile footprints on the sphere, parent/child subdivision
// and per-pixel sampling grids.
//
// The sky is mapped onto a square subdivided into four level-1 tiles, one
// per octahedron face pair. Deeper tiles are produced by recursive
// subdivision of the footprint corners along great circles.
package toast

import (
	"iter"
	"math"

	"github.com/astrovis/go-skytiles/tile"
)

// LatLon is a position on the sphere, in radians.
type LatLon struct {
	Lat float64
	Lon float64
}

// Tile couples a pyramid position with its footprint on the sphere.
// Corners are ordered upper-left, upper-right, lower-right, lower-left
// in projection space. Increasing records the orientation of the
// diagonal used when subdividing the footprint.
type Tile struct {
	Pos        tile.Pos
	Corners    [4]LatLon
	Increasing bool
}

func deg(lon, lat float64) LatLon {
	return LatLon{Lat: lat * math.Pi / 180, Lon: lon * math.Pi / 180}
}

// The four level-1 footprints. Together they cover the full sphere;
// x is the fast axis, so the order is (0,0), (1,0), (0,1), (1,1).
var level1 = [4]Tile{
	{Pos: tile.Pos{N: 1, X: 0, Y: 0}, Corners: [4]LatLon{deg(0, -90), deg(90, 0), deg(0, 90), deg(180, 0)}, Increasing: true},
	{Pos: tile.Pos{N: 1, X: 1, Y: 0}, Corners: [4]LatLon{deg(90, 0), deg(0, -90), deg(0, 0), deg(0, 90)}, Increasing: false},
	{Pos: tile.Pos{N: 1, X: 0, Y: 1}, Corners: [4]LatLon{deg(180, 0), deg(0, 90), deg(270, 0), deg(0, -90)}, Increasing: false},
	{Pos: tile.Pos{N: 1, X: 1, Y: 1}, Corners: [4]LatLon{deg(0, 90), deg(0, 0), deg(0, -90), deg(270, 0)}, Increasing: true},
}

// Level1 returns the four level-1 tiles, in row-major position order.
func Level1() [4]Tile {
	return level1
}

// Mid returns the midpoint of the great-circle arc between a and b.
func Mid(a, b LatLon) LatLon {
	ax, ay, az := unitVector(a)
	bx, by, bz := unitVector(b)

	mx, my, mz := ax+bx, ay+by, az+bz
	norm := math.Sqrt(mx*mx + my*my + mz*mz)
	mx, my, mz = mx/norm, my/norm, mz/norm

	return LatLon{Lat: math.Asin(mz), Lon: math.Atan2(my, mx)}
}

func unitVector(p LatLon) (x, y, z float64) {
	cosLat := math.Cos(p.Lat)
	return cosLat * math.Cos(p.Lon), cosLat * math.Sin(p.Lon), math.Sin(p.Lat)
}

// Children subdivides a tile footprint into its four children, in the
// same top-left, top-right, bottom-left, bottom-right order as
// tile.Pos.Children. The children partition the parent footprint
// exactly: shared edges reuse the same great-circle midpoints.
func Children(t Tile) [4]Tile {
	ul, ur, lr, ll := t.Corners[0], t.Corners[1], t.Corners[2], t.Corners[3]

	top := Mid(ul, ur)
	right := Mid(ur, lr)
	bottom := Mid(lr, ll)
	left := Mid(ll, ul)

	var center LatLon
	if t.Increasing {
		center = Mid(ll, ur)
	} else {
		center = Mid(ul, lr)
	}

	pos := t.Pos.Children()
	return [4]Tile{
		{Pos: pos[0], Corners: [4]LatLon{ul, top, center, left}, Increasing: t.Increasing},
		{Pos: pos[1], Corners: [4]LatLon{top, ur, right, center}, Increasing: t.Increasing},
		{Pos: pos[2], Corners: [4]LatLon{left, center, bottom, ll}, Increasing: t.Increasing},
		{Pos: pos[3], Corners: [4]LatLon{center, right, lr, bottom}, Increasing: t.Increasing},
	}
}

// TileAt computes the footprint for an arbitrary position with depth >= 1,
// by descending from the level-1 ancestor one subdivision per level.
func TileAt(pos tile.Pos) Tile {
	if pos.N < 1 || !pos.Valid() {
		panic("skytiles: TileAt needs a valid position of depth >= 1")
	}

	shift := pos.N - 1
	t := level1[(pos.Y>>shift)*2+(pos.X>>shift)]

	for shift > 0 {
		shift--
		ix := (pos.X >> shift) & 1
		iy := (pos.Y >> shift) & 1
		t = Children(t)[iy*2+ix]
	}
	return t
}

// Generate returns an iterator over the tiles of a pyramid of the given
// depth, deepest-first: the four children of a tile are always yielded
// before the tile itself. If bottomOnly is set, only tiles of the
// deepest level are yielded. The root position is never yielded; its
// footprint is the whole sphere and it only ever arises from merging.
func Generate(depth uint32, bottomOnly bool) iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		for _, t := range level1 {
			if !postfix(t, depth, bottomOnly, yield) {
				return
			}
		}
	}
}

func postfix(t Tile, depth uint32, bottomOnly bool, yield func(Tile) bool) bool {
	if t.Pos.N > depth {
		return true
	}
	for _, child := range Children(t) {
		if !postfix(child, depth, bottomOnly, yield) {
			return false
		}
	}
	if bottomOnly && t.Pos.N != depth {
		return true
	}
	return yield(t)
}

// TileArea returns the solid angle of a tile footprint in steradians,
// as the sum of its two spherical triangles.
func TileArea(t Tile) float64 {
	ul, ur, lr, ll := t.Corners[0], t.Corners[1], t.Corners[2], t.Corners[3]
	if t.Increasing {
		return triangleArea(ll, ul, ur) + triangleArea(ll, ur, lr)
	}
	return triangleArea(ul, ur, lr) + triangleArea(ul, lr, ll)
}

// triangleArea computes spherical triangle area with l'Huilier's theorem.
func triangleArea(a, b, c LatLon) float64 {
	ab := arcLength(a, b)
	bc := arcLength(b, c)
	ca := arcLength(c, a)
	s := (ab + bc + ca) / 2

	tanE4 := math.Sqrt(math.Abs(math.Tan(s/2) * math.Tan((s-ab)/2) * math.Tan((s-bc)/2) * math.Tan((s-ca)/2)))
	return 4 * math.Atan(tanE4)
}

func arcLength(a, b LatLon) float64 {
	ax, ay, az := unitVector(a)
	bx, by, bz := unitVector(b)
	dot := ax*bx + ay*by + az*bz
	return math.Acos(math.Max(-1, math.Min(1, dot)))
}
