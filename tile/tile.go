// Package tile provides common tile pyramid interfaces and types.
package tile

// Pos represents a tile position in a quadtree pyramid: depth N,
// with X and Y counted from the top-left corner of the projection.
type Pos struct {
	N uint32
	X uint32
	Y uint32
}

func (p Pos) Valid() bool {
	return p.N < 32 && p.X < (1<<p.N) && p.Y < (1<<p.N)
}

// Parent returns the position one level up, plus the horizontal and
// vertical index (0 or 1) of p inside its parent. It must not be
// called on the root position.
func (p Pos) Parent() (parent Pos, ix, iy uint32) {
	if p.N == 0 {
		panic("skytiles: root position has no parent")
	}
	return Pos{N: p.N - 1, X: p.X / 2, Y: p.Y / 2}, p.X % 2, p.Y % 2
}

// Children returns the four child positions of p. The order is fixed:
// top-left, top-right, bottom-left, bottom-right. The merge step relies
// on this positional correspondence.
func (p Pos) Children() [4]Pos {
	n, x, y := p.N+1, p.X*2, p.Y*2
	return [4]Pos{
		{N: n, X: x, Y: y},
		{N: n, X: x + 1, Y: y},
		{N: n, X: x, Y: y + 1},
		{N: n, X: x + 1, Y: y + 1},
	}
}

// IsSub reports whether p lies in the subtree rooted at ancestor.
// It is false whenever p is shallower than ancestor.
func (p Pos) IsSub(ancestor Pos) bool {
	if p.N < ancestor.N {
		return false
	}
	shift := p.N - ancestor.N
	return p.X>>shift == ancestor.X && p.Y>>shift == ancestor.Y
}

// DepthTiles returns the total number of tiles in a pyramid of the given depth.
func DepthTiles(depth uint32) uint64 {
	return (1<<(2*(depth+1)) - 1) / 3
}

// Writer defines an interface for writing tiles to a pyramid store.
type Writer interface {
	// WriteTile writes a single encoded tile to the store.
	// It must be safe for concurrent use with distinct positions.
	WriteTile(pos Pos, tileData []byte) error

	// Finalize completes the writing process: flushes buffers, writes
	// indices. It must be called before closing the Writer.
	Finalize() error
}

type Reader interface {
	// ReadTile reads a single tile from the store.
	// It returns the tile data or an error if the tile cannot be read.
	// If the tile does not exist, it returns an empty slice with no error.
	ReadTile(pos Pos) ([]byte, error)
}

type Visitor interface {
	// VisitTiles visits all tiles in the store, calling the visitor for each.
	// It returns an error if visiting fails.
	// Order of tiles, upfront cpu and memory consumption are implementation-defined.
	VisitTiles(visitor func(Pos, []byte) error) error
}
