package spec

import (
	"math/bits"

	"github.com/google/hilbert"

	"github.com/astrovis/go-skytiles/tile"
)

// EncodeTileCode maps a position to its archive ordinal: positions of
// each level follow the level's Hilbert curve, shallower levels first,
// so sibling tiles land near each other in the tile data region.
func EncodeTileCode(pos tile.Pos) uint64 {
	h, _ := hilbert.NewHilbert(1 << pos.N)
	tileCode, _ := h.MapInverse(int(pos.X), int(pos.Y))

	tilesCount := (1<<(pos.N*2) - 1) / 3
	return uint64(tileCode + tilesCount)
}

func DecodeTileCode(tileCode uint64) tile.Pos {
	n := (bits.Len64(3*tileCode+1) - 1) / 2
	tilesCount := (1<<(n*2) - 1) / 3

	h, _ := hilbert.NewHilbert(1 << n)
	x, y, _ := h.Map(int(tileCode) - tilesCount)

	return tile.Pos{N: uint32(n), X: uint32(x), Y: uint32(y)}
}
