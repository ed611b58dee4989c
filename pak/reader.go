package pak

import (
	"errors"
	"io"
	"iter"
	"os"

	"github.com/astrovis/go-skytiles/pak/spec"
	"github.com/astrovis/go-skytiles/tile"
)

type Reader interface {
	io.Closer

	HeaderMetadata() HeaderMetadata
	ReadMetadata() ([]byte, error)

	ReadTile(pos tile.Pos) ([]byte, error)
	ReadLocation(pos tile.Pos) (Location, error)

	Tiles() iter.Seq2[tile.Pos, []byte]
	VisitTiles(visitor func(tile.Pos, []byte) error) error
}

// Location is a tile's byte range within the archive. A zero Location
// means the tile is not present.
type Location struct {
	Offset uint64
	Length uint64
}

type FileAccessFunc = func(offset, length uint64) ([]byte, error)

type reader struct {
	fileAccess FileAccessFunc
	fileCloser func() error
	header     *spec.Header
	entries    []spec.Entry
}

func NewFileReader(filePath string) (Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	fileAccess := func(offset uint64, length uint64) ([]byte, error) {
		buffer := make([]byte, length)
		if _, err := file.ReadAt(buffer, int64(offset)); err != nil {
			return nil, err
		}
		return buffer, nil
	}
	r, err := newReader(fileAccess, func() error { return file.Close() })
	if err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

func NewReader(fileAccess FileAccessFunc) (Reader, error) {
	return newReader(fileAccess, func() error { return nil })
}

func newReader(fileAccess FileAccessFunc, fileCloser func() error) (Reader, error) {
	headerData, err := fileAccess(0, spec.HeaderLength)
	if err != nil {
		return nil, err
	}
	header, err := spec.DeserializeHeader(headerData)
	if err != nil {
		return nil, err
	}

	dirCompressed, err := fileAccess(header.DirectoryOffset, header.DirectoryLength)
	if err != nil {
		return nil, err
	}
	dirData, err := spec.Decompress(dirCompressed, header.InternalCompression)
	if err != nil {
		return nil, err
	}
	entries, err := spec.DeserializeDirectory(dirData)
	if err != nil {
		return nil, err
	}

	return &reader{
		fileAccess: fileAccess,
		fileCloser: fileCloser,
		header:     header,
		entries:    entries,
	}, nil
}

func (r *reader) Close() error {
	return r.fileCloser()
}

func (r *reader) HeaderMetadata() HeaderMetadata {
	result := HeaderMetadata{}
	result.CopyFromHeader(r.header)
	return result
}

func (r *reader) ReadMetadata() ([]byte, error) {
	return r.fileAccess(r.header.MetadataOffset, r.header.MetadataLength)
}

func (r *reader) ReadLocation(pos tile.Pos) (Location, error) {
	entry, found := spec.FindEntry(r.entries, spec.EncodeTileCode(pos))
	if !found {
		return Location{}, nil
	}
	return Location{
		Offset: r.header.TileDataOffset + entry.Offset,
		Length: uint64(entry.Length),
	}, nil
}

func (r *reader) ReadTile(pos tile.Pos) ([]byte, error) {
	location, err := r.ReadLocation(pos)
	if err != nil {
		return nil, err
	}
	if location.Length == 0 {
		return make([]byte, 0), nil
	}
	return r.fileAccess(location.Offset, location.Length)
}

func (r *reader) VisitTiles(visitor func(tile.Pos, []byte) error) error {
	for _, entry := range r.entries {
		tileData, err := r.fileAccess(r.header.TileDataOffset+entry.Offset, uint64(entry.Length))
		if err != nil {
			return err
		}
		for i := range entry.RunLength {
			pos := spec.DecodeTileCode(entry.TileCode + uint64(i))
			if err := visitor(pos, tileData); err != nil {
				return err
			}
		}
	}
	return nil
}

var errVisitCancelled = errors.New("cancelled")

// panics on any error from fileAccess
func (r *reader) Tiles() iter.Seq2[tile.Pos, []byte] {
	return func(yield func(tile.Pos, []byte) bool) {
		err := r.VisitTiles(func(pos tile.Pos, tileData []byte) error {
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
