// Package pak provides API for reading and writing tile pyramids in a
// single-file archive format: a fixed header, the tile data region and
// a delta-coded directory ordered along each level's Hilbert curve.
package pak

import "github.com/astrovis/go-skytiles/pak/spec"

// HeaderMetadata carries the pyramid properties recorded in the
// archive header.
type HeaderMetadata struct {
	Format   spec.PixelFormat
	TileSize uint32
	MinLevel uint8
	MaxLevel uint8
}

func (m *HeaderMetadata) CopyFromHeader(header *spec.Header) {
	m.Format = header.Format
	m.TileSize = header.TileSize
	m.MinLevel = header.MinLevel
	m.MaxLevel = header.MaxLevel
}

func (m *HeaderMetadata) CopyToHeader(header *spec.Header) {
	header.Format = m.Format
	header.TileSize = m.TileSize
	header.MinLevel = m.MinLevel
	header.MaxLevel = m.MaxLevel
}
