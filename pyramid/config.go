// Package pyramid builds TOAST tile pyramids: it drives a sampler over
// the deepest level, merges sibling tiles bottom-up into their parents
// and hands every produced tile to a persistence writer, keeping only
// the sibling buffers still needed by pending merges in memory.
package pyramid

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/astrovis/go-skytiles/toast"
)

var (
	// ErrConfig reports an invalid build configuration. It is raised
	// before any tile work begins.
	ErrConfig = errors.New("skytiles: invalid build configuration")

	// ErrPersistence wraps a failed tile write.
	ErrPersistence = errors.New("skytiles: tile write failed")
)

// Config describes one pyramid build.
type Config struct {
	// Depth is the deepest pyramid level, at least 1. The deepest
	// level holds 4^Depth tiles produced directly from the source.
	Depth uint32

	// TileSize is the side length of every tile buffer, a power of two.
	TileSize int

	// Workers bounds the worker pool. Zero means GOMAXPROCS.
	Workers int

	// BottomOnly skips the merge stage and produces only the deepest level.
	BottomOnly bool

	// TopLevel is the shallowest level to produce when merging.
	TopLevel uint32

	// Filter optionally restricts the build to footprints it accepts.
	// Pruned subtrees count as missing children of their parents, so
	// the produced levels stay gap-free above the filtered region.
	Filter func(toast.Tile) bool
}

func (c *Config) validate() error {
	if c.Depth < 1 || c.Depth > 24 {
		return fmt.Errorf("%w: depth %d out of range [1, 24]", ErrConfig, c.Depth)
	}
	if c.TileSize < 2 || c.TileSize&(c.TileSize-1) != 0 {
		return fmt.Errorf("%w: tile size %d is not a power of two >= 2", ErrConfig, c.TileSize)
	}
	if c.TopLevel > c.Depth {
		return fmt.Errorf("%w: top level %d deeper than depth %d", ErrConfig, c.TopLevel, c.Depth)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: negative worker count", ErrConfig)
	}
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return nil
}

// TotalTiles returns the number of tiles an unfiltered build with this
// configuration produces. Filtered builds may produce fewer.
func (c Config) TotalTiles() uint64 {
	if c.BottomOnly {
		return 1 << (2 * c.Depth)
	}
	var total uint64
	for n := c.TopLevel; n <= c.Depth; n++ {
		total += 1 << (2 * n)
	}
	return total
}
