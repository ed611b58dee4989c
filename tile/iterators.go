package tile

import (
	"errors"
	"iter"
)

var errVisitCancelled = errors.New("visit cancelled")

// Positions returns an iterator over every position of a pyramid of the
// given depth, in postfix order: when a position is yielded, its four
// children have been yielded before it, unless it sits at the deepest level.
func Positions(depth uint32) iter.Seq[Pos] {
	return func(yield func(Pos) bool) {
		postfix(Pos{}, depth, yield)
	}
}

func postfix(p Pos, depth uint32, yield func(Pos) bool) bool {
	if p.N < depth {
		for _, child := range p.Children() {
			if !postfix(child, depth, yield) {
				return false
			}
		}
	}
	return yield(p)
}

// LevelPositions returns an iterator over all positions of a single level,
// row by row.
func LevelPositions(level uint32) iter.Seq[Pos] {
	return func(yield func(Pos) bool) {
		for y := range uint32(1) << level {
			for x := range uint32(1) << level {
				if !yield(Pos{N: level, X: x, Y: y}) {
					return
				}
			}
		}
	}
}

// IterTiles returns an iterator over all tiles in the store.
// It yields positions and their data. Iteration may panic on unrecoverable errors.
func IterTiles(r Visitor) iter.Seq2[Pos, []byte] {
	return func(yield func(Pos, []byte) bool) {
		err := r.VisitTiles(func(pos Pos, tileData []byte) error {
			if !yield(pos, tileData) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}
